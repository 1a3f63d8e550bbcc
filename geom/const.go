package geom

// MaxVertexCountPerMesh is the hard cap on a merged geometry's vertex
// count, so its index buffer stays addressable with 16-bit indices.
const MaxVertexCountPerMesh = 65535

// DefaultByteBudget is the default memory budget for merge bucketing
// when the caller does not supply one.
const DefaultByteBudget int64 = 100 * 1024 * 1024
