package consolidate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/gviegas/consolidate/geom"
	"github.com/gviegas/consolidate/linear"
)

// fragEntry is one fragment prepared for ordering and bucketing: its
// resolved ids, geometry, transform, and cost-accounting bookkeeping.
type fragEntry struct {
	fragID int
	geomID int
	matID  int

	g      *geom.Buffer
	matrix linear.M4
	box    linear.AABB
	dbID   uint32

	byteSize      int64
	byteSizeKnown bool
}

// instanceCounts tallies how many fragments reference each geomId,
// skipping fragments with no source geometry.
func instanceCounts(fl FragmentList) map[int]int {
	counts := make(map[int]int)
	for f := 0; f < fl.Count(); f++ {
		if fl.Geometry(f) == nil {
			continue
		}
		counts[fl.GeometryID(f)]++
	}
	return counts
}

// order implements §4.2's ordering policy: ascending by
// instanceCount(geomId)·byteSize(geom), then geomId, then matId.
// Fragments with a null/missing geometry are dropped, with a single
// warning per call.
func order(fl FragmentList, logger *zap.Logger) []fragEntry {
	counts := instanceCounts(fl)
	entries := make([]fragEntry, 0, fl.Count())
	firstMissing, numMissing := -1, 0
	for f := 0; f < fl.Count(); f++ {
		g := fl.Geometry(f)
		if g == nil {
			if numMissing == 0 {
				firstMissing = f
			}
			numMissing++
			continue
		}
		known := g.ByteSize > 0
		if !known {
			logger.Warn("geometry missing byteSize, excluded from cost accounting", zap.Int("fragId", f))
		}
		entries = append(entries, fragEntry{
			fragID:        f,
			geomID:        fl.GeometryID(f),
			matID:         fl.MaterialID(f),
			g:             g,
			matrix:        fl.OriginalWorldMatrix(f),
			box:           fl.WorldBounds(f),
			dbID:          fl.DBID(f),
			byteSize:      int64(g.ByteSize),
			byteSizeKnown: known,
		})
	}
	if numMissing > 0 {
		logger.Warn("dropping fragments with missing geometry", zap.Int("firstFragId", firstMissing), zap.Int("count", numMissing))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		ca := int64(counts[a.geomID]) * a.byteSize
		cb := int64(counts[b.geomID]) * b.byteSize
		if ca != cb {
			return ca < cb
		}
		if a.geomID != b.geomID {
			return a.geomID < b.geomID
		}
		return a.matID < b.matID
	})
	return entries
}
