package merge

import (
	"errors"

	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

const prefix = "merge: "

// Task is a GeomMergeTask: a pure, self-contained job that copies and
// transforms one bucket's geometries into a single merged buffer. A
// Task owns its inputs (the Bucket's slices) and produces an owned
// output, so it can run on the calling goroutine or be handed to a
// worker pool (see Coordinator) without any shared mutable state.
type Task struct {
	ID     int
	Bucket *Bucket
}

// Result is what a Task produces: the merged geometry, ready to be
// installed on a destination by the Coordinator.
type Result struct {
	TaskID int
	Geom   *geom.Buffer
	Err    error
}

// Run executes t synchronously and returns the merged geometry.
// It never mutates the Bucket's source geometries.
func (t Task) Run() Result {
	g, err := mergeBucket(t.Bucket)
	return Result{TaskID: t.ID, Geom: g, Err: err}
}

// mergeBucket implements spec §4.3: allocate destination buffers sized
// to the bucket's totals, copy vertex/index data with running offsets,
// append the id attribute, and transform each source range's positions
// and packed normals by that source's matrix.
func mergeBucket(b *Bucket) (*geom.Buffer, error) {
	if b.Len() == 0 {
		return nil, errors.New(prefix + "cannot merge an empty bucket")
	}
	first := b.Geoms[0]

	var totalV, totalI, totalIL int
	for _, g := range b.Geoms {
		totalV += g.VertexCount()
		totalI += len(g.IB)
		totalIL += len(g.IBLines)
	}
	if totalV > geom.MaxVertexCountPerMesh {
		return nil, errors.New(prefix + "bucket exceeds MaxVertexCountPerMesh")
	}

	stride := first.VBStride
	out := &geom.Buffer{
		VB:        make([]byte, totalV*stride*4),
		VBStride:  stride,
		IB:        make([]uint16, 0, totalI),
		Kind:      first.Kind,
		LineWidth: first.LineWidth,
		PointSize: first.PointSize,
		Attrs:     make(map[string]geom.Attr, len(first.Attrs)+1),
		AttrOrder: append([]string{}, first.AttrOrder...),
		IDs:       make([]byte, totalV*geom.IDItemSize),
	}
	if totalIL > 0 {
		out.IBLines = make([]uint16, 0, totalIL)
	}
	for name, a := range first.Attrs {
		out.Attrs[name] = a
	}
	out.Attrs["id"] = geom.Attr{ItemSize: geom.IDItemSize, BytesPerItem: 1, Normalized: true}
	out.AttrOrder = append(out.AttrOrder, "id")

	posOff := out.PositionOffset()
	normOff := out.NormalOffset()

	var vOff int
	for i, src := range b.Geoms {
		n := src.VertexCount()
		m := b.Matrices[i]
		dbID := b.DBIDs[i]

		// ib/iblines: copy with the running vertex offset added.
		for _, idx := range src.IB {
			out.IB = append(out.IB, idx+uint16(vOff))
		}
		for _, idx := range src.IBLines {
			out.IBLines = append(out.IBLines, idx+uint16(vOff))
		}

		// vb: verbatim copy of this source's vertex range, transformed
		// in place below.
		dstByteStart := vOff * stride * 4
		copy(out.VB[dstByteStart:], src.VB[:n*stride*4])

		var nm linear.M3
		if normOff >= 0 {
			nm = linear.NormalMatrix(&m)
		}

		floats := out.Float32s()
		u16s := out.Uint16s()
		for v := 0; v < n; v++ {
			base := (vOff + v) * stride

			p := linear.V4{
				floats[base+posOff],
				floats[base+posOff+1],
				floats[base+posOff+2],
				1,
			}
			var tp linear.V4
			tp.Mul(&m, &p)
			floats[base+posOff] = tp[0]
			floats[base+posOff+1] = tp[1]
			floats[base+posOff+2] = tp[2]

			if normOff >= 0 {
				// Each float occupies two uint16 slots in the aliased
				// view, so the pair's index is (base+normOff)*2.
				u16Idx := (base + normOff) * 2
				decoded := geom.DecodeNormal(u16s[u16Idx], u16s[u16Idx+1])
				var transformed, normed linear.V3
				transformed.Mul(&nm, &decoded)
				normed.Norm(&transformed)
				eu, ev := geom.EncodeNormal(normed)
				u16s[u16Idx], u16s[u16Idx+1] = eu, ev
			}

			geom.WriteID(out.IDs, vOff+v, dbID)
		}

		vOff += n
	}

	out.ByteSize = len(out.VB) + len(out.IB)*2 + len(out.IBLines)*2
	return out, nil
}
