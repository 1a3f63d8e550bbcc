// Package consolidate implements the fragment consolidation engine: it
// merges and instances a scene's renderable fragments into a small set
// of GPU-drawable meshes under a memory budget, and partitions each
// resulting mesh into per-frame draw-call ranges reflecting per-fragment
// visibility and theming state.
package consolidate

import (
	"go.uber.org/zap"

	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

// Variant selects the shader-compatible material variant a mesh needs,
// since merged and instanced geometries carry their id/transform state
// in different attribute layouts.
type Variant int

const (
	VariantVertexIDs Variant = iota
	VariantInstanced
)

// Residency classifies where a geometry's buffers should live.
type Residency int

const (
	ResidencyGPU Residency = iota
	ResidencyStreaming
)

// DrawMode selects which fragments a partition pass considers visible.
type DrawMode int

const (
	RenderNormal DrawMode = iota
	RenderHidden
	RenderHighlighted
)

// Visibility flag bits read from FragmentList.VizFlags.
const (
	FlagVisible     byte = 1 << 0
	FlagHide        byte = 1 << 1
	FlagHighlighted byte = 1 << 2
)

// FragmentList is the external collaborator exposing the scene's
// fragments; the engine only reads through it.
type FragmentList interface {
	Count() int
	GeometryID(f int) int
	MaterialID(f int) int
	// Geometry returns nil when the fragment has no source geometry.
	Geometry(f int) *geom.Buffer
	OriginalWorldMatrix(f int) linear.M4
	WorldBounds(f int) linear.AABB
	DBID(f int) uint32
	VizFlags() []byte
	ThemingColor(dbID uint32) (linear.V4, bool)
}

// MaterialManager resolves the shader-compatible variant of a material
// for the given model.
type MaterialManager interface {
	MaterialVariant(materialID int, variant Variant, modelID int) int
}

// GeometryList lets the engine classify output and source geometries by
// residency, the combined GPU mesh/byte counters threaded through in
// visitation order.
type GeometryList interface {
	ChooseMemoryType(g *geom.Buffer, instanceCount, gpuMeshCount int, gpuByteCount int64) Residency
}

// RendererHandle is the narrow GPU-side collaborator used only for
// residency bookkeeping; the engine never submits draw commands itself.
type RendererHandle interface {
	SupportsInstancedArrays() bool
	DeallocateGeometry(g *geom.Buffer)
}

// Options configures one Build run.
type Options struct {
	ModelID int

	Fragments  FragmentList
	Materials  MaterialManager
	Geometries GeometryList
	Renderer   RendererHandle

	// ByteLimit bounds merge bucketing's cumulative cost; 0 uses
	// geom.DefaultByteBudget.
	ByteLimit int64

	// ConsMap, when non-nil, reuses an already-computed bucket plan
	// instead of recomputing fragment ordering and bucketing from
	// scratch (see Result.Rebuild).
	ConsMap *Map

	// Logger defaults to a no-op logger when nil.
	Logger *zap.Logger
}

func (o *Options) byteLimit() int64 {
	if o.ByteLimit > 0 {
		return o.ByteLimit
	}
	return geom.DefaultByteBudget
}

func (o *Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
