// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestV3(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	var u V3
	u.Add(&v, &w)
	assert.Equal(t, V3{1, 1, 6}, u)
	u.Sub(&v, &w)
	assert.Equal(t, V3{1, 3, 2}, u)
	u.Scale(-1, &v)
	assert.Equal(t, V3{-1, -2, -4}, u)
	assert.Equal(t, float32(6), v.Dot(&w))

	var n V3
	p := V3{0, 0, -2}
	n.Norm(&p)
	assert.Equal(t, V3{0, 0, -1}, n)

	var c V3
	a := V3{0, 0, -1}
	b := V3{0, 1, 0}
	c.Cross(&a, &b)
	assert.Equal(t, V3{1, 0, 0}, c)
}

func TestM4Identity(t *testing.T) {
	var m M4
	m.I()
	var v, r V4
	v = V4{1, 2, 3, 1}
	r.Mul(&m, &v)
	assert.Equal(t, v, r)
}

func TestM4InvertRoundTrip(t *testing.T) {
	var t4 M4
	t4.I()
	t4[3] = V4{5, -2, 9, 1}

	var inv, id M4
	inv.Invert(&t4)
	id.Mul(&t4, &inv)

	var want M4
	want.I()
	assert.True(t, ApproxEqualM4(&id, &want))
}

func TestDecomposeCompose(t *testing.T) {
	tr := V3{1, 2, 3}
	var r Q
	r.Norm(&Q{V3{0, 0.7071, 0}, 0.7071})
	sc := V3{2, 1, 0.5}

	m := Compose(&tr, &r, &sc)

	dt, dr, ds, ok := Decompose(&m)
	assert.True(t, ok)

	m2 := Compose(&dt, &dr, &ds)
	assert.True(t, ApproxEqualM4(&m, &m2))
	assert.InDelta(t, float32(1), dr.Len(), 1e-5)
}

func TestDecomposeSingular(t *testing.T) {
	var m M4
	m.I()
	m[0] = V4{}
	_, _, _, ok := Decompose(&m)
	assert.False(t, ok)
}

func TestNormalMatrixUniformScale(t *testing.T) {
	var m M4
	m.I()
	m[0][0], m[1][1], m[2][2] = 2, 2, 2
	nm := NormalMatrix(&m)
	// Uniform scale by s: inverse-transpose is uniform scale by 1/s.
	assert.InDelta(t, float32(0.5), nm[0][0], 1e-6)
	assert.InDelta(t, float32(0.5), nm[1][1], 1e-6)
	assert.InDelta(t, float32(0.5), nm[2][2], 1e-6)
}

func TestAABBExtendUnion(t *testing.T) {
	var a, b, u AABB
	p1 := V3{-1, 0, 0}
	p2 := V3{1, 2, 0}
	a.Extend(&p1)
	a.Extend(&p2)
	assert.Equal(t, V3{-1, 0, 0}, a.Min)
	assert.Equal(t, V3{1, 2, 0}, a.Max)

	p3 := V3{0, -5, 3}
	b.Extend(&p3)
	u.Union(&a, &b)
	assert.Equal(t, V3{-1, -5, 0}, u.Min)
	assert.Equal(t, V3{1, 2, 3}, u.Max)
}
