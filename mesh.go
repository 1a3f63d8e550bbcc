package consolidate

import (
	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

// MeshKind distinguishes a container mesh (merged or instanced geometry
// owned by the engine) from a single-fragment mesh sharing its source.
type MeshKind int

const (
	MeshContainer MeshKind = iota
	MeshSingle
)

// Group is one draw-call sub-range of a container mesh (§4.8): either
// an index range (merged containers) or an instance range (instanced
// containers), optionally tinted by a theming color.
type Group struct {
	Start, Count         int
	HasEdges             bool
	EdgeStart, EdgeCount int

	Instanced                   bool
	InstanceStart, NumInstances int

	HasTheming   bool
	ThemingColor linear.V4
}

// Mesh is one output of the engine: either a container owning a new
// merged/instanced geometry, or a single-fragment mesh sharing its
// source geometry and material.
type Mesh struct {
	Kind MeshKind

	Geom       *geom.Buffer
	MaterialID int
	Variant    Variant

	// WorldMatrix is identity for container meshes (transforms are
	// baked in or carried per-instance) and the fragment's original
	// matrix for single meshes.
	WorldMatrix linear.M4
	// DBID is set only for single-fragment meshes.
	DBID uint32

	// FragIDs lists, in order, the fragments packed into this mesh.
	FragIDs []int
	// Segments[i] is the number of index units (merged containers) or
	// instance units (instanced containers) that FragIDs[i] contributes;
	// unused for single-fragment meshes.
	Segments []int
	// EdgeSegments[i] is the number of line-index units FragIDs[i]
	// contributes; nil when the container has no edge indices.
	EdgeSegments []int

	// FrustumCulled is always false; culling happens outside the
	// engine.
	FrustumCulled bool

	// InstanceBuffer and NumInstances are set only for instanced
	// containers.
	InstanceBuffer *geom.Buffer
	NumInstances   int

	Groups []Group

	Visible      bool
	HasTheming   bool
	ThemingColor linear.V4

	Residency Residency
}
