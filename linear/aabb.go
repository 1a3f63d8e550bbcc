// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box.
// A zero-value AABB is empty; use Extend to grow it from points.
type AABB struct {
	Min V3
	Max V3
	set bool
}

// Extend grows b so that it contains p.
func (b *AABB) Extend(p *V3) {
	if !b.set {
		b.Min, b.Max = *p, *p
		b.set = true
		return
	}
	for i := range p {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union sets b to contain the union of l and r.
func (b *AABB) Union(l, r *AABB) {
	if !l.set {
		*b = *r
		return
	}
	if !r.set {
		*b = *l
		return
	}
	*b = AABB{set: true}
	for i := range b.Min {
		b.Min[i] = math32.Min(l.Min[i], r.Min[i])
		b.Max[i] = math32.Max(l.Max[i], r.Max[i])
	}
}

// IsSet reports whether b has been grown from at least one point.
func (b *AABB) IsSet() bool { return b.set }
