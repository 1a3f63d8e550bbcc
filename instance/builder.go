// Package instance implements hardware instancing: packing maximal
// contiguous runs of fragments that share one (geometry, material)
// pair into a single shared-geometry mesh driven by per-instance
// offset, rotation and scale arrays (divisor 1).
package instance

import (
	"errors"

	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

const prefix = "instance: "

// instanceStride is the per-instance vertex stride, in floats, of the
// buffer Mesh.Buffer assembles: a 3-component offset, a 4-component
// rotation quaternion, and a 3-component scale, interleaved in that
// order.
const instanceStride = 3 + 4 + 3

// Fragment is one candidate for instancing: a reference to its shared
// source geometry, the material it is drawn with, and the world
// transform baked into its instance row.
type Fragment struct {
	FragID int
	GeomID int
	MatID  int
	DBID   uint32
	Matrix linear.M4
	Geom   *geom.Buffer
}

// Run groups the maximal contiguous stretches of frags that share the
// same (GeomID, MatID) pair. Order is preserved; a singleton run of
// length 1 is still returned, since callers decide the instancing
// threshold.
func Run(frags []Fragment) [][]Fragment {
	var runs [][]Fragment
	i := 0
	for i < len(frags) {
		j := i + 1
		for j < len(frags) && frags[j].GeomID == frags[i].GeomID && frags[j].MatID == frags[i].MatID {
			j++
		}
		runs = append(runs, frags[i:j])
		i = j
	}
	return runs
}

// Mesh is one accepted instanced output: the shared source geometry
// and the per-instance attribute arrays for every fragment that
// survived decomposition.
type Mesh struct {
	Geom *geom.Buffer // shared geometry, referenced, not copied
	// FragIDs, DBIDs are parallel to the per-instance arrays, one
	// entry per accepted instance.
	FragIDs  []int
	DBIDs    []uint32
	Offset   []float32 // 3 components per instance
	Rotation []float32 // 4 components per instance (quaternion x,y,z,w)
	Scaling  []float32 // 3 components per instance
	ByteSize int64
}

// NumInstances returns the number of accepted instances in m.
func (m *Mesh) NumInstances() int { return len(m.FragIDs) }

// Single is a fragment that could not be instanced: its run had only
// one member, its matrix failed the decompose/recompose validation
// (spec §4.6 step 3), or it was the only instance of its run to pass
// that validation.
type Single struct {
	FragID int
	DBID   uint32
	Geom   *geom.Buffer
	Matrix linear.M4
}

// Build packs one run into an instanced Mesh plus the Singles rejected
// from it. A run of length 1 is never instanced and is returned
// entirely as a Single. Rejected instances are swapped with the last
// active element of the run and the active range shrinks by one, so
// the accepted arrays hold only the surviving count. Because of that
// swap, accepted instances after a reject are not in the run's
// original order (a run 0..4 that rejects 2 yields 0, 1, 4, 3).
func Build(run []Fragment) (*Mesh, []Single, error) {
	if len(run) == 0 {
		return nil, nil, errors.New(prefix + "empty run")
	}
	if len(run) == 1 {
		f := run[0]
		return nil, []Single{{FragID: f.FragID, DBID: f.DBID, Geom: f.Geom, Matrix: f.Matrix}}, nil
	}

	work := make([]Fragment, len(run))
	copy(work, run)

	var singles []Single
	offset := make([]float32, 0, len(work)*3)
	rotation := make([]float32, 0, len(work)*4)
	scaling := make([]float32, 0, len(work)*3)
	fragIDs := make([]int, 0, len(work))
	dbIDs := make([]uint32, 0, len(work))

	var lastAccepted Fragment
	end := len(work)
	i := 0
	for i < end {
		f := work[i]
		t, r, s, ok := linear.Decompose(&f.Matrix)
		if ok {
			recomposed := linear.Compose(&t, &r, &s)
			ok = linear.ApproxEqualM4(&f.Matrix, &recomposed)
		}
		if !ok {
			// Reject: swap to end, shrink the active range, and fall
			// out as a Single. Do not advance i, since work[i] now
			// holds the element previously at end-1.
			singles = append(singles, Single{FragID: f.FragID, DBID: f.DBID, Geom: f.Geom, Matrix: f.Matrix})
			end--
			work[i], work[end] = work[end], work[i]
			continue
		}
		offset = append(offset, t[0], t[1], t[2])
		rotation = append(rotation, r.V[0], r.V[1], r.V[2], r.R)
		scaling = append(scaling, s[0], s[1], s[2])
		fragIDs = append(fragIDs, f.FragID)
		dbIDs = append(dbIDs, f.DBID)
		lastAccepted = f
		i++
	}

	if len(fragIDs) == 0 {
		return nil, singles, nil
	}
	if len(fragIDs) == 1 {
		// A single surviving instance is not worth instancing; fold it
		// back into the rejected set as a plain single-fragment mesh.
		singles = append(singles, Single{FragID: lastAccepted.FragID, DBID: lastAccepted.DBID, Geom: lastAccepted.Geom, Matrix: lastAccepted.Matrix})
		return nil, singles, nil
	}

	n := int64(len(fragIDs))
	byteSize := n*instanceStride*4 + n*geom.IDItemSize

	m := &Mesh{
		Geom:     run[0].Geom,
		FragIDs:  fragIDs,
		DBIDs:    dbIDs,
		Offset:   offset,
		Rotation: rotation,
		Scaling:  scaling,
		ByteSize: byteSize,
	}
	return m, singles, nil
}

// Buffer assembles m's per-instance offset/rotation/scaling arrays into
// one interleaved, divisor-1 geom.Buffer (instOffset/instRotation/
// instScaling, §4.6), plus the per-instance id attribute, ready to be
// drawn alongside the shared geometry it instances.
func (m *Mesh) Buffer() *geom.Buffer {
	n := m.NumInstances()

	vb := make([]byte, n*instanceStride*4)
	buf := &geom.Buffer{VB: vb, VBStride: instanceStride}
	floats := buf.Float32s()
	for i := 0; i < n; i++ {
		base := i * instanceStride
		copy(floats[base:base+3], m.Offset[i*3:i*3+3])
		copy(floats[base+3:base+7], m.Rotation[i*4:i*4+4])
		copy(floats[base+7:base+10], m.Scaling[i*3:i*3+3])
	}
	buf.Attrs = map[string]geom.Attr{
		"instOffset":   {Offset: 0, ItemSize: 3, BytesPerItem: 4, Interleaved: true},
		"instRotation": {Offset: 3, ItemSize: 4, BytesPerItem: 4, Interleaved: true},
		"instScaling":  {Offset: 7, ItemSize: 3, BytesPerItem: 4, Interleaved: true},
	}
	buf.AttrOrder = []string{"instOffset", "instRotation", "instScaling"}

	ids := make([]byte, n*geom.IDItemSize)
	for i, dbID := range m.DBIDs {
		geom.WriteID(ids, i, dbID)
	}
	buf.IDs = ids
	buf.Divisor = 1
	buf.ByteSize = len(buf.VB) + len(buf.IDs)
	return buf
}
