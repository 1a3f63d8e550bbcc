package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

func identity() linear.M4 {
	var m linear.M4
	m.I()
	return m
}

func translated(x float32) linear.M4 {
	m := identity()
	m[3] = linear.V4{x, 0, 0, 1}
	return m
}

// buildGeom creates a position-only geometry: n vertices at (i, 0, 0),
// stride floats per vertex, sequential indices.
func buildGeom(stride, n int) *geom.Buffer {
	b := &geom.Buffer{
		VB:       make([]byte, stride*4*n),
		VBStride: stride,
		IB:       make([]uint16, n),
		Kind:     geom.Triangles,
		Attrs: map[string]geom.Attr{
			"position": {Offset: 0, ItemSize: 3, BytesPerItem: 4, Interleaved: true},
		},
		AttrOrder: []string{"position"},
	}
	floats := b.Float32s()
	for i := 0; i < n; i++ {
		floats[i*stride] = float32(i)
		b.IB[i] = uint16(i)
	}
	b.ByteSize = len(b.VB) + len(b.IB)*2
	return b
}

type fakeFragList struct {
	geoms    []*geom.Buffer
	geomIDs  []int
	matIDs   []int
	matrices []linear.M4
	dbIDs    []uint32
	flags    []byte
	theming  map[uint32]linear.V4
}

func (f *fakeFragList) Count() int                  { return len(f.geoms) }
func (f *fakeFragList) GeometryID(i int) int        { return f.geomIDs[i] }
func (f *fakeFragList) MaterialID(i int) int        { return f.matIDs[i] }
func (f *fakeFragList) Geometry(i int) *geom.Buffer { return f.geoms[i] }
func (f *fakeFragList) OriginalWorldMatrix(i int) linear.M4 {
	if f.matrices[i] == (linear.M4{}) {
		return identity()
	}
	return f.matrices[i]
}
func (f *fakeFragList) WorldBounds(i int) linear.AABB { return linear.AABB{} }
func (f *fakeFragList) DBID(i int) uint32             { return f.dbIDs[i] }
func (f *fakeFragList) VizFlags() []byte              { return f.flags }
func (f *fakeFragList) ThemingColor(id uint32) (linear.V4, bool) {
	c, ok := f.theming[id]
	return c, ok
}

// TestBuildScenarioA covers spec scenario A: two compatible fragments
// with the same material merge into one container mesh.
func TestBuildScenarioA(t *testing.T) {
	g1 := buildGeom(32, 3)
	g2 := buildGeom(32, 3)

	fl := &fakeFragList{
		geoms:    []*geom.Buffer{g1, g2},
		geomIDs:  []int{1, 2},
		matIDs:   []int{1, 1},
		matrices: []linear.M4{identity(), translated(1)},
		dbIDs:    []uint32{10, 20},
		flags:    []byte{FlagVisible, FlagVisible},
	}

	res, err := Build(Options{Fragments: fl})
	require.NoError(t, err)
	require.Len(t, res.Meshes, 1)

	m := res.Meshes[0]
	assert.Equal(t, MeshContainer, m.Kind)
	assert.Equal(t, 192, len(m.Geom.Float32s()))
	assert.Equal(t, 6, len(m.Geom.IB))

	floats := m.Geom.Float32s()
	// Vertex 3 is the second geometry's first vertex (x=0) translated
	// by +1.
	assert.InDelta(t, 1, floats[3*32], 1e-5)

	assert.Equal(t, 0, res.FragID2MeshIndex[0])
	assert.Equal(t, 0, res.FragID2MeshIndex[1])
}

// TestBuildScenarioB covers spec scenario B: two geometries whose
// combined vertex count exceeds the 65535 cap must land in separate
// buckets/meshes.
func TestBuildScenarioB(t *testing.T) {
	g1 := buildGeom(4, 40000)
	g2 := buildGeom(4, 30000)

	fl := &fakeFragList{
		geoms:    []*geom.Buffer{g1, g2},
		geomIDs:  []int{1, 2},
		matIDs:   []int{1, 1},
		matrices: []linear.M4{identity(), identity()},
		dbIDs:    []uint32{1, 2},
		flags:    []byte{FlagVisible, FlagVisible},
	}

	res, err := Build(Options{Fragments: fl, ByteLimit: 1 << 40})
	require.NoError(t, err)
	require.Len(t, res.Meshes, 2)
	for _, m := range res.Meshes {
		assert.Equal(t, MeshSingle, m.Kind, "each bucket holds exactly one geometry, so neither gets merged")
	}
}

// TestPlanBucketsBudgetExhaustion covers spec scenario C at the
// bucketing level: 1000 same-sized, same-material fragments under a
// budget that fits roughly 50 before the first-geometry-free retroactive
// charge model exhausts it.
func TestPlanBucketsBudgetExhaustion(t *testing.T) {
	const n = 1000
	const size = 200 * 1024
	const budget = 10 * 1024 * 1024

	entries := make([]fragEntry, n)
	g := buildGeom(4, 1)
	for i := range entries {
		entries[i] = fragEntry{
			fragID:        i,
			geomID:        i, // distinct geomIds; all entries share g and matID, so they all join one bucket
			matID:         1,
			g:             g,
			matrix:        identity(),
			byteSize:      size,
			byteSizeKnown: true,
		}
	}

	plan := planBuckets(entries, budget)
	m := plan.toMap()
	assert.Less(t, m.NumConsolidated, n)
	assert.InDelta(t, 50, m.NumConsolidated, 15)
}

// TestBuildMixedMergeAndInstance exercises the full pipeline wiring:
// a small budget consolidates a handful of unique fragments, and the
// remainder (sharing one geomId+matId) falls through to the
// instancing pass.
func TestBuildMixedMergeAndInstance(t *testing.T) {
	const numInstanced = 10
	shared := buildGeom(4, 2)

	var geoms []*geom.Buffer
	var geomIDs, matIDs []int
	var matrices []linear.M4
	var dbIDs []uint32
	var flags []byte

	// Two cheap, unique, compatible fragments that exhaust a tiny
	// budget via the first-free/second-charged cost model.
	for i := 0; i < 2; i++ {
		geoms = append(geoms, buildGeom(4, 2))
		geomIDs = append(geomIDs, 100+i)
		matIDs = append(matIDs, 1)
		matrices = append(matrices, identity())
		dbIDs = append(dbIDs, uint32(100+i))
		flags = append(flags, FlagVisible)
	}
	for i := 0; i < numInstanced; i++ {
		geoms = append(geoms, shared)
		geomIDs = append(geomIDs, 1)
		matIDs = append(matIDs, 1)
		matrices = append(matrices, translated(float32(i)))
		dbIDs = append(dbIDs, uint32(200+i))
		flags = append(flags, FlagVisible)
	}

	fl := &fakeFragList{
		geoms: geoms, geomIDs: geomIDs, matIDs: matIDs,
		matrices: matrices, dbIDs: dbIDs, flags: flags,
	}

	res, err := Build(Options{Fragments: fl, ByteLimit: 1})
	require.NoError(t, err)

	for f := 0; f < fl.Count(); f++ {
		assert.GreaterOrEqual(t, res.FragID2MeshIndex[f], 0)
	}

	var foundInstanced bool
	for _, m := range res.Meshes {
		if m.Kind == MeshContainer && m.Variant == VariantInstanced {
			foundInstanced = true
			assert.Equal(t, len(m.FragIDs), m.NumInstances)
		}
	}
	assert.True(t, foundInstanced, "expected at least one instanced container mesh")
}

// TestApplyAttributesPartition covers spec scenario F.
func TestApplyAttributesPartition(t *testing.T) {
	mesh := &Mesh{
		Kind:     MeshContainer,
		Variant:  VariantVertexIDs,
		FragIDs:  []int{0, 1, 2, 3},
		Segments: []int{30, 30, 30, 30},
	}
	res := &Result{Meshes: []*Mesh{mesh}}

	red := linear.V4{1, 0, 0, 1}
	fl := &fakeFragList{
		dbIDs: []uint32{10, 20, 30, 40},
		flags: []byte{FlagVisible, FlagHide, FlagVisible, FlagVisible},
		theming: map[uint32]linear.V4{
			30: red,
		},
	}

	got, err := res.ApplyAttributes(0, fl, RenderNormal)
	require.NoError(t, err)
	require.Len(t, got.Groups, 3)
	assert.Equal(t, Group{Start: 0, Count: 30}, got.Groups[0])
	assert.Equal(t, 60, got.Groups[1].Start)
	assert.Equal(t, 30, got.Groups[1].Count)
	assert.True(t, got.Groups[1].HasTheming)
	assert.Equal(t, red, got.Groups[1].ThemingColor)
	assert.Equal(t, 90, got.Groups[2].Start)
	assert.Equal(t, 30, got.Groups[2].Count)
}

// TestApplyAttributesIdempotence covers invariant 10: calling
// ApplyAttributes twice with unchanged flags yields identical groups.
func TestApplyAttributesIdempotence(t *testing.T) {
	mesh := &Mesh{
		Kind:     MeshContainer,
		Variant:  VariantVertexIDs,
		FragIDs:  []int{0, 1, 2},
		Segments: []int{10, 10, 10},
	}
	res := &Result{Meshes: []*Mesh{mesh}}
	fl := &fakeFragList{
		dbIDs: []uint32{1, 2, 3},
		flags: []byte{FlagVisible, FlagHide, FlagVisible},
	}

	first, err := res.ApplyAttributes(0, fl, RenderNormal)
	require.NoError(t, err)
	firstGroups := append([]Group{}, first.Groups...)

	second, err := res.ApplyAttributes(0, fl, RenderNormal)
	require.NoError(t, err)
	assert.Equal(t, firstGroups, second.Groups)
}

// TestApplyAttributesFastPath covers the single-group collapse: a
// whole-range container with uniform visibility and no theming sets
// mesh-level Visible directly and clears Groups.
func TestApplyAttributesFastPath(t *testing.T) {
	mesh := &Mesh{
		Kind:     MeshContainer,
		Variant:  VariantVertexIDs,
		FragIDs:  []int{0, 1},
		Segments: []int{5, 5},
	}
	res := &Result{Meshes: []*Mesh{mesh}}
	fl := &fakeFragList{
		dbIDs: []uint32{1, 2},
		flags: []byte{FlagVisible, FlagVisible},
	}

	got, err := res.ApplyAttributes(0, fl, RenderNormal)
	require.NoError(t, err)
	assert.Empty(t, got.Groups)
	assert.True(t, got.Visible)
}

type fakeGeometryList struct {
	streamingAfter int
}

func (f *fakeGeometryList) ChooseMemoryType(g *geom.Buffer, instanceCount, gpuMeshCount int, gpuByteCount int64) Residency {
	if gpuMeshCount >= f.streamingAfter {
		return ResidencyStreaming
	}
	return ResidencyGPU
}

type fakeRenderer struct {
	deallocated []*geom.Buffer
}

func (f *fakeRenderer) SupportsInstancedArrays() bool { return true }
func (f *fakeRenderer) DeallocateGeometry(g *geom.Buffer) {
	f.deallocated = append(f.deallocated, g)
}

func TestResidencyMarksDiscardAfterUpload(t *testing.T) {
	g1 := buildGeom(32, 3)
	g2 := buildGeom(32, 3)
	fl := &fakeFragList{
		geoms:    []*geom.Buffer{g1, g2},
		geomIDs:  []int{1, 2},
		matIDs:   []int{1, 1},
		matrices: []linear.M4{identity(), translated(1)},
		dbIDs:    []uint32{10, 20},
		flags:    []byte{FlagVisible, FlagVisible},
	}

	geomList := &fakeGeometryList{streamingAfter: 100}
	renderer := &fakeRenderer{}

	res, err := Build(Options{Fragments: fl, Geometries: geomList, Renderer: renderer})
	require.NoError(t, err)
	require.Len(t, res.Meshes, 1)
	assert.True(t, res.Meshes[0].Geom.DiscardAfterUpload)
}
