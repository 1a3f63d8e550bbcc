package consolidate

import "github.com/gviegas/consolidate/geom"

// chooseResidency is the MemoryTypeChooser pass (§4.7): output meshes'
// geometries are classified first, so consolidated and instanced
// buffers are preferred onto the GPU, then original fragment
// geometries are classified in fragId order. A geometry already
// visited in the first pass (shared by a single-fragment mesh) is
// skipped in the second.
func chooseResidency(opts Options, result *Result) {
	visited := make(map[*geom.Buffer]bool)
	var gpuMeshCount int
	var gpuByteCount int64

	for _, m := range result.Meshes {
		if m.Geom == nil || visited[m.Geom] {
			continue
		}
		instanceCount := 1
		if m.Kind == MeshContainer && m.Variant == VariantInstanced {
			instanceCount = m.NumInstances
		}
		residency := opts.Geometries.ChooseMemoryType(m.Geom, instanceCount, gpuMeshCount, gpuByteCount)
		m.Residency = residency
		visited[m.Geom] = true

		if residency == ResidencyGPU {
			gpuMeshCount++
			gpuByteCount += int64(m.Geom.ByteSize)
		}
		if m.Kind == MeshContainer && m.Variant == VariantVertexIDs {
			m.Geom.DiscardAfterUpload = true
		}
	}

	for f := 0; f < opts.Fragments.Count(); f++ {
		g := opts.Fragments.Geometry(f)
		if g == nil || visited[g] {
			continue
		}
		visited[g] = true

		residency := opts.Geometries.ChooseMemoryType(g, 1, gpuMeshCount, gpuByteCount)
		if residency == ResidencyGPU {
			gpuMeshCount++
			gpuByteCount += int64(g.ByteSize)
			continue
		}
		// A source geometry moving off the GPU in this pass must have
		// whatever GPU allocation it held released.
		if opts.Renderer != nil {
			opts.Renderer.DeallocateGeometry(g)
		}
	}
}
