// Package geom implements the interleaved vertex/index buffer model
// used by the consolidation engine: a typed view over a fragment's
// geometry with an explicit attribute schema, and the helpers needed to
// merge or instance many such buffers into one.
package geom

import (
	"errors"
	"unsafe"
)

const prefix = "geom: "

// Kind is the primitive topology of a Buffer.
type Kind int

// Primitive kinds.
const (
	Triangles Kind = iota
	Lines
	WideLines
	Points
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Triangles:
		return "Triangles"
	case Lines:
		return "Lines"
	case WideLines:
		return "WideLines"
	case Points:
		return "Points"
	default:
		return "!geom.Kind"
	}
}

// Attr describes one entry of a Buffer's attribute schema.
type Attr struct {
	// Offset is the attribute's first component, in floats from the
	// start of a vertex, when Interleaved is true. It is unused
	// otherwise (id and per-instance attributes live in their own
	// byte arrays instead, see Buffer.IDs).
	Offset int
	// ItemSize is the number of components (e.g. 3 for a vec3, 2 for
	// the packed-normal pair).
	ItemSize int
	// BytesPerItem is the size of a single component.
	BytesPerItem int
	Normalized   bool
	// Pattern marks an attribute whose data follows a fixed,
	// non-data-dependent layout (as opposed to free-form vertex
	// data); carried only for schema-equality purposes, see Compatible.
	Pattern bool
	// Interleaved is false for attributes stored in a parallel,
	// non-interleaved array (id, instance offset/rotation/scaling).
	Interleaved bool
}

// Buffer is a GeometryBuffer: an interleaved vertex buffer, an index
// buffer, an optional line-index buffer, and the schema describing how
// to read vertex attributes out of VB.
type Buffer struct {
	// VB is the raw interleaved vertex data. Its length must be a
	// multiple of VBStride*4 bytes.
	VB []byte
	// VBStride is the vertex stride in floats.
	VBStride int
	IB       []uint16
	IBLines  []uint16

	// IDs holds the per-vertex (merged) or per-instance (instanced)
	// id attribute, 3 bytes per entry, not interleaved into VB.
	IDs []byte

	Attrs     map[string]Attr
	AttrOrder []string

	Kind      Kind
	LineWidth float32
	PointSize float32

	ByteSize int

	// Divisor marks per-instance attribute data (id, offset,
	// rotation, scaling); it applies to the whole buffer, since an
	// instanced Buffer carries no per-vertex attributes of its own
	// beyond the shared geometry it instances.
	Divisor int

	// DiscardAfterUpload marks a buffer whose CPU copy may be released
	// once its GPU-resident contents have been uploaded. Set on merged
	// container geometries that no single-fragment mesh shares.
	DiscardAfterUpload bool
}

// VertexCount returns the number of vertices encoded in VB.
func (b *Buffer) VertexCount() int {
	if b.VBStride == 0 {
		return 0
	}
	return len(b.VB) / (b.VBStride * 4)
}

// Float32s returns a zero-copy []float32 view over VB.
func (b *Buffer) Float32s() []float32 {
	if len(b.VB) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.VB[0])), len(b.VB)/4)
}

// Uint16s returns a zero-copy []uint16 view over VB, used to read and
// write packed-normal pairs aliased over the float32 position/normal
// attributes.
func (b *Buffer) Uint16s() []uint16 {
	if len(b.VB) == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b.VB[0])), len(b.VB)/2)
}

// NormalOffset returns the float offset of the packed-normal attribute,
// or -1 if b has no normal attribute.
func (b *Buffer) NormalOffset() int {
	if a, ok := b.Attrs["normal"]; ok {
		return a.Offset
	}
	return -1
}

// PositionOffset returns the float offset of the position attribute.
// Every Buffer produced by this package has one; it panics if absent,
// since that indicates a caller built an invalid schema.
func (b *Buffer) PositionOffset() int {
	a, ok := b.Attrs["position"]
	if !ok {
		panic(prefix + "buffer has no position attribute")
	}
	return a.Offset
}

// Validate checks the invariants from the data model: index values
// within range, and ByteSize consistent with the buffer contents.
func (b *Buffer) Validate() error {
	if b.VBStride <= 0 {
		return errors.New(prefix + "non-positive stride")
	}
	if len(b.VB)%(b.VBStride*4) != 0 {
		return errors.New(prefix + "VB length not a multiple of stride")
	}
	vc := b.VertexCount()
	for _, i := range b.IB {
		if int(i) >= vc {
			return errors.New(prefix + "index out of range in IB")
		}
	}
	for _, i := range b.IBLines {
		if int(i) >= vc {
			return errors.New(prefix + "index out of range in IBLines")
		}
	}
	want := len(b.VB) + len(b.IB)*2 + len(b.IBLines)*2
	if b.ByteSize != want {
		return errors.New(prefix + "ByteSize inconsistent with buffer contents")
	}
	return nil
}
