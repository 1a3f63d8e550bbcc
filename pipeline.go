package consolidate

import (
	"errors"

	"go.uber.org/zap"

	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/instance"
	"github.com/gviegas/consolidate/linear"
	"github.com/gviegas/consolidate/merge"
)

// Build is consolidateFragmentList: the end-to-end pipeline from a
// FragmentList to a Consolidation. It orders fragments by consolidation
// cost, buckets them under the byte budget, dispatches the merge
// coordinator, instances whatever remains, chooses residency, and
// stamps each mesh with its material variant.
func Build(opts Options) (*Result, error) {
	if opts.Fragments == nil {
		return nil, errors.New("consolidate: Options.Fragments is required")
	}
	logger := opts.logger()

	var consMap *Map
	var buckets []*merge.Bucket
	var tail []fragEntry
	var numDropped int

	if opts.ConsMap != nil {
		consMap = opts.ConsMap
		buckets = bucketsFromMap(opts.Fragments, consMap)
		tail = tailEntries(opts.Fragments, consMap)
	} else {
		entries := order(opts.Fragments, logger)
		numDropped = opts.Fragments.Count() - len(entries)
		plan := planBuckets(entries, opts.byteLimit())
		consMap = plan.toMap()
		buckets = plan.buckets
		tail = plan.tail
	}

	result := &Result{Map: consMap}
	result.Stats.NumDropped = numDropped
	fragCount := opts.Fragments.Count()
	result.FragID2MeshIndex = make([]int, fragCount)
	for i := range result.FragID2MeshIndex {
		result.FragID2MeshIndex[i] = -1
	}

	if err := emitMergedMeshes(opts, buckets, result, logger); err != nil {
		return nil, err
	}
	emitInstancedMeshes(opts, tail, result, logger)

	if opts.Geometries != nil {
		chooseResidency(opts, result)
	}

	return result, nil
}

// emitMergedMeshes runs the merge coordinator over every bucket of
// size ≥ 2 and appends one container Mesh per result; buckets of size
// 1 are never merged, and are instead emitted as single-fragment
// meshes sharing their source geometry.
func emitMergedMeshes(opts Options, buckets []*merge.Bucket, result *Result, logger *zap.Logger) error {
	var toMerge []*merge.Bucket

	for _, b := range buckets {
		if b == nil {
			continue
		}
		if b.Len() < 2 {
			for j, fid := range b.FragIDs {
				appendSingleMesh(opts, result, fid, b.Geoms[j], b.Matrices[j], b.DBIDs[j])
				result.Stats.NumSingle++
			}
			continue
		}
		toMerge = append(toMerge, b)
	}

	if len(toMerge) == 0 {
		return nil
	}

	coord, err := merge.NewCoordinator(0)
	if err != nil {
		return &Error{Kind: WorkerTaskFailed, FragID: -1, Err: err}
	}
	defer coord.Release()

	geoms, err := coord.Dispatch(toMerge)
	if err != nil {
		return &Error{Kind: WorkerTaskFailed, FragID: -1, Err: err}
	}

	for i, b := range toMerge {
		g := geoms[i]
		if g == nil {
			continue
		}
		matID := b.MaterialID
		if opts.Materials != nil {
			matID = opts.Materials.MaterialVariant(matID, VariantVertexIDs, opts.ModelID)
		}
		var ident linear.M4
		ident.I()
		segments := make([]int, len(b.Geoms))
		var edgeSegments []int
		for j, src := range b.Geoms {
			segments[j] = len(src.IB)
			if len(src.IBLines) > 0 {
				if edgeSegments == nil {
					edgeSegments = make([]int, len(b.Geoms))
				}
				edgeSegments[j] = len(src.IBLines)
			}
		}
		m := &Mesh{
			Kind:          MeshContainer,
			Geom:          g,
			MaterialID:    matID,
			Variant:       VariantVertexIDs,
			WorldMatrix:   ident,
			FragIDs:       append([]int{}, b.FragIDs...),
			Segments:      segments,
			EdgeSegments:  edgeSegments,
			FrustumCulled: false,
			Visible:       true,
		}
		result.Meshes = append(result.Meshes, m)
		meshIndex := len(result.Meshes) - 1
		for _, fid := range b.FragIDs {
			result.FragID2MeshIndex[fid] = meshIndex
		}
		result.ByteSize += int64(g.ByteSize)
		result.Stats.NumConsolidated += len(b.FragIDs)
	}
	return nil
}

// emitInstancedMeshes runs the instancing pass over the fragments that
// did not get merged: it finds maximal contiguous (geomId, matId)
// runs and instances every run of length ≥ 2, falling the rest back
// to single-fragment meshes.
func emitInstancedMeshes(opts Options, tail []fragEntry, result *Result, logger *zap.Logger) {
	if len(tail) == 0 {
		return
	}
	frags := make([]instance.Fragment, len(tail))
	for i, e := range tail {
		frags[i] = instance.Fragment{
			FragID: e.fragID,
			GeomID: e.geomID,
			MatID:  e.matID,
			DBID:   e.dbID,
			Matrix: e.matrix,
			Geom:   e.g,
		}
	}

	for _, run := range instance.Run(frags) {
		m, singles, err := instance.Build(run)
		if err != nil {
			logger.Warn("instancing run failed, falling back to single-fragment meshes")
			for _, f := range run {
				appendSingleMesh(opts, result, f.FragID, f.Geom, f.Matrix, f.DBID)
				result.Stats.NumSingle++
			}
			continue
		}
		for _, s := range singles {
			appendSingleMesh(opts, result, s.FragID, s.Geom, s.Matrix, s.DBID)
			result.Stats.NumSingle++
		}
		if m == nil {
			continue
		}

		matID := run[0].MatID
		if opts.Materials != nil {
			matID = opts.Materials.MaterialVariant(matID, VariantInstanced, opts.ModelID)
		}
		var ident linear.M4
		ident.I()
		instBuf := m.Buffer()
		segments := make([]int, len(m.FragIDs))
		for j := range segments {
			segments[j] = 1
		}
		mesh := &Mesh{
			Kind:           MeshContainer,
			Geom:           m.Geom,
			MaterialID:     matID,
			Variant:        VariantInstanced,
			WorldMatrix:    ident,
			FragIDs:        append([]int{}, m.FragIDs...),
			Segments:       segments,
			InstanceBuffer: instBuf,
			NumInstances:   m.NumInstances(),
			Visible:        true,
		}
		result.Meshes = append(result.Meshes, mesh)
		meshIndex := len(result.Meshes) - 1
		for _, fid := range m.FragIDs {
			result.FragID2MeshIndex[fid] = meshIndex
		}
		result.ByteSize += m.ByteSize
		result.Stats.NumInstanced += m.NumInstances()
	}
}

func appendSingleMesh(opts Options, result *Result, fragID int, g *geom.Buffer, matrix linear.M4, dbID uint32) {
	matID := opts.Fragments.MaterialID(fragID)
	mesh := &Mesh{
		Kind:          MeshSingle,
		Geom:          g,
		MaterialID:    matID,
		Variant:       VariantVertexIDs,
		WorldMatrix:   matrix,
		DBID:          dbID,
		FragIDs:       []int{fragID},
		FrustumCulled: false,
		Visible:       true,
	}
	result.Meshes = append(result.Meshes, mesh)
	result.FragID2MeshIndex[fragID] = len(result.Meshes) - 1
}
