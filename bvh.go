package consolidate

// BVHDefaults are hints for an external BVH builder, sized so that
// leaves are large enough not to shatter a consolidation's merged or
// instanced meshes across node boundaries.
type BVHDefaults struct {
	FragsPerLeafNode int
	MaxPolysPerNode  int
}

// ApplyBVHDefaults returns the engine's recommended BVH construction
// parameters.
func ApplyBVHDefaults() BVHDefaults {
	return BVHDefaults{
		FragsPerLeafNode: 512,
		MaxPolysPerNode:  100000,
	}
}
