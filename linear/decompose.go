// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "github.com/chewxy/math32"

// Decompose extracts the translation, rotation and scale components of
// an affine matrix m.
// ok is false when the matrix's linear part is singular along some axis
// (a zero-length column), in which case a rotation cannot be recovered,
// r holds the identity quaternion and s the zero vector. Decompose does not itself validate that
// composing the result reproduces m to any tolerance — callers that need
// that guarantee should use Compose and ApproxEqualM4 on the result.
func Decompose(m *M4) (t V3, r Q, s V3, ok bool) {
	t = V3{m[3][0], m[3][1], m[3][2]}

	colX := V3{m[0][0], m[0][1], m[0][2]}
	colY := V3{m[1][0], m[1][1], m[1][2]}
	colZ := V3{m[2][0], m[2][1], m[2][2]}
	sx, sy, sz := colX.Len(), colY.Len(), colZ.Len()
	if sx == 0 || sy == 0 || sz == 0 {
		return t, QI(), V3{}, false
	}

	var rot M3
	rot[0].Scale(1/sx, &colX)
	rot[1].Scale(1/sy, &colY)
	rot[2].Scale(1/sz, &colZ)

	// A negative determinant means the matrix mirrors space; fold the
	// sign into one scale component so the remaining matrix is a pure
	// rotation (quatFromM3 is undefined on improper rotations).
	var cr V3
	cr.Cross(&rot[0], &rot[1])
	if cr.Dot(&rot[2]) < 0 {
		sx = -sx
		rot[0].Scale(-1, &rot[0])
	}

	s = V3{sx, sy, sz}
	r = quatFromM3(&rot)
	ok = true
	return
}

// Compose builds the affine matrix represented by translation t,
// rotation r and scale s. It is the inverse of Decompose.
func Compose(t *V3, r *Q, s *V3) (m M4) {
	rot := r.M3()
	var col0, col1, col2 V3
	col0.Scale(s[0], &rot[0])
	col1.Scale(s[1], &rot[1])
	col2.Scale(s[2], &rot[2])
	m[0] = V4{col0[0], col0[1], col0[2], 0}
	m[1] = V4{col1[0], col1[1], col1[2], 0}
	m[2] = V4{col2[0], col2[1], col2[2], 0}
	m[3] = V4{t[0], t[1], t[2], 1}
	return
}

// ApproxEqualM4 reports whether a and b are equal to within an absolute
// tolerance of 1e-4·max(1, min(|a_ij|, |b_ij|)) in every element.
func ApproxEqualM4(a, b *M4) bool {
	for i := range a {
		for j := range a[i] {
			av, bv := a[i][j], b[i][j]
			tol := 1e-4 * math32.Max(1, math32.Min(math32.Abs(av), math32.Abs(bv)))
			if math32.Abs(av-bv) > tol {
				return false
			}
		}
	}
	return true
}

// NormalMatrix computes the 3x3 inverse-transpose of m's linear part,
// suitable for transforming normals under m (including non-uniform
// scale). It ignores m's translation and any projective last row.
func NormalMatrix(m *M4) M3 {
	var lin M3
	lin[0] = V3{m[0][0], m[0][1], m[0][2]}
	lin[1] = V3{m[1][0], m[1][1], m[1][2]}
	lin[2] = V3{m[2][0], m[2][1], m[2][2]}
	var inv, normal M3
	inv.Invert(&lin)
	normal.Transpose(&inv)
	return normal
}

// quatFromM3 converts a proper rotation matrix to a unit quaternion
// (Shepperd's method).
func quatFromM3(m *M3) Q {
	e := func(row, col int) float32 { return m[col][row] }
	tr := e(0, 0) + e(1, 1) + e(2, 2)
	var q Q
	switch {
	case tr > 0:
		s := math32.Sqrt(tr+1) * 2
		q.R = 0.25 * s
		q.V[0] = (e(2, 1) - e(1, 2)) / s
		q.V[1] = (e(0, 2) - e(2, 0)) / s
		q.V[2] = (e(1, 0) - e(0, 1)) / s
	case e(0, 0) > e(1, 1) && e(0, 0) > e(2, 2):
		s := math32.Sqrt(1+e(0, 0)-e(1, 1)-e(2, 2)) * 2
		q.R = (e(2, 1) - e(1, 2)) / s
		q.V[0] = 0.25 * s
		q.V[1] = (e(0, 1) + e(1, 0)) / s
		q.V[2] = (e(0, 2) + e(2, 0)) / s
	case e(1, 1) > e(2, 2):
		s := math32.Sqrt(1+e(1, 1)-e(0, 0)-e(2, 2)) * 2
		q.R = (e(0, 2) - e(2, 0)) / s
		q.V[0] = (e(0, 1) + e(1, 0)) / s
		q.V[1] = 0.25 * s
		q.V[2] = (e(1, 2) + e(2, 1)) / s
	default:
		s := math32.Sqrt(1+e(2, 2)-e(0, 0)-e(1, 1)) * 2
		q.R = (e(1, 0) - e(0, 1)) / s
		q.V[0] = (e(0, 2) + e(2, 0)) / s
		q.V[1] = (e(1, 2) + e(2, 1)) / s
		q.V[2] = 0.25 * s
	}
	var n Q
	n.Norm(&q)
	return n
}
