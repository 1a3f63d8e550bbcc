// Package merge implements buffer merging: grouping compatible source
// geometries into buckets and assembling each bucket into one merged
// geometry with baked-in transforms and per-vertex ids.
package merge

import (
	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

// Bucket collects the source geometries destined for one merged
// output. Every geometry added to a Bucket is compatible with the
// first one added (geom.Compatible), and the running vertex count
// never exceeds geom.MaxVertexCountPerMesh.
type Bucket struct {
	MaterialID int
	Geoms      []*geom.Buffer
	Matrices   []linear.M4
	FragIDs    []int
	DBIDs      []uint32

	VertexCount int
	Box         linear.AABB

	// Cost is the bucket's accumulated byte cost under the model in
	// spec §4.2: the first geometry is free until a second is added,
	// at which point both are charged.
	Cost int64

	firstByteSize      int64
	firstByteSizeKnown bool
}

// NewBucket creates an empty bucket for the given material.
func NewBucket(materialID int) *Bucket {
	return &Bucket{MaterialID: materialID}
}

// Len returns the number of geometries collected so far.
func (b *Bucket) Len() int { return len(b.Geoms) }

// CanAdd reports whether g may be added to b: the bucket is empty, or
// g is compatible with the first geometry and the vertex cap is not
// exceeded.
func (b *Bucket) CanAdd(g *geom.Buffer) bool {
	if len(b.Geoms) == 0 {
		return true
	}
	if !geom.Compatible(b.Geoms[0], g) {
		return false
	}
	return b.VertexCount+g.VertexCount() <= geom.MaxVertexCountPerMesh
}

// Add records one more source geometry in the bucket. byteSizeKnown
// should be false when the source's ByteSize is unavailable (spec
// §4.11 ByteSizeUnknown); the entry is then excluded from cost
// accounting but still merged normally.
func (b *Bucket) Add(g *geom.Buffer, m linear.M4, fragID int, dbID uint32, box linear.AABB, byteSize int64, byteSizeKnown bool) {
	b.Geoms = append(b.Geoms, g)
	b.Matrices = append(b.Matrices, m)
	b.FragIDs = append(b.FragIDs, fragID)
	b.DBIDs = append(b.DBIDs, dbID)
	b.VertexCount += g.VertexCount()
	b.Box.Union(&b.Box, &box)

	switch len(b.Geoms) {
	case 1:
		b.firstByteSize = byteSize
		b.firstByteSizeKnown = byteSizeKnown
	case 2:
		if b.firstByteSizeKnown {
			b.Cost += b.firstByteSize
		}
		if byteSizeKnown {
			b.Cost += byteSize
		}
	default:
		if byteSizeKnown {
			b.Cost += byteSize
		}
	}
}
