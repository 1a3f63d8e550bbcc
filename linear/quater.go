// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "github.com/chewxy/math32"

// Q is a quaternion of float32, with V the imaginary part
// (x, y, z) and R the real part (w).
type Q struct {
	V V3
	R float32
}

// QI returns the identity quaternion.
func QI() Q { return Q{R: 1} }

// Mul sets q to contain l ⋅ r.
func (q *Q) Mul(l, r *Q) {
	var v, w V3
	v.Scale(r.R, &l.V)
	w.Scale(l.R, &r.V)
	v.Add(&v, &w)
	w.Cross(&l.V, &r.V)
	d := l.V.Dot(&r.V)
	q.V.Add(&v, &w)
	q.R = l.R*r.R - d
}

// Len returns the length of q.
func (q *Q) Len() float32 {
	return math32.Sqrt(q.V[0]*q.V[0] + q.V[1]*q.V[1] + q.V[2]*q.V[2] + q.R*q.R)
}

// Norm sets q to contain p normalized.
// If p has zero length, q is set to the identity quaternion.
func (q *Q) Norm(p *Q) {
	l := p.Len()
	if l == 0 {
		*q = QI()
		return
	}
	s := 1 / l
	q.V.Scale(s, &p.V)
	q.R = p.R * s
}

// M3 computes the 3x3 rotation matrix represented by q.
// q must be unit-length (use Norm beforehand if unsure).
func (q *Q) M3() (m M3) {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	m[0] = V3{1 - (yy + zz), xy + wz, xz - wy}
	m[1] = V3{xy - wz, 1 - (xx + zz), yz + wx}
	m[2] = V3{xz + wy, yz - wx, 1 - (xx + yy)}
	return
}
