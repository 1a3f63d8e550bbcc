package consolidate

import (
	"github.com/gviegas/consolidate/linear"
	"github.com/gviegas/consolidate/merge"
)

// bucketPlan is the builder's working state: the buckets opened before
// the byte budget was reached, in creation order, and the entries that
// never got a chance to join one.
type bucketPlan struct {
	buckets []*merge.Bucket
	tail    []fragEntry
}

// planBuckets implements ConsolidationBuilder (§4.2): scan, per
// material, the active bucket list for one compatible under the
// vertex cap; open a new bucket if none matches; stop accepting once
// the cumulative cost reaches byteLimit.
func planBuckets(entries []fragEntry, byteLimit int64) bucketPlan {
	active := make(map[int][]*merge.Bucket)
	var order []*merge.Bucket
	var tail []fragEntry
	var totalCost int64
	budgetReached := false

	for _, e := range entries {
		if budgetReached {
			tail = append(tail, e)
			continue
		}
		list := active[e.matID]
		var chosen *merge.Bucket
		for _, b := range list {
			if b.CanAdd(e.g) {
				chosen = b
				break
			}
		}
		if chosen == nil {
			chosen = merge.NewBucket(e.matID)
			active[e.matID] = append(list, chosen)
			order = append(order, chosen)
		}

		prevCost := chosen.Cost
		chosen.Add(e.g, e.matrix, e.fragID, e.dbID, e.box, e.byteSize, e.byteSizeKnown)
		totalCost += chosen.Cost - prevCost

		if totalCost >= byteLimit {
			budgetReached = true
		}
	}

	return bucketPlan{buckets: order, tail: tail}
}

// toMap flattens a bucketPlan into the persisted ConsolidationMap.
func (p bucketPlan) toMap() *Map {
	var fragOrder []int
	ranges := make([]int, 0, len(p.buckets))
	boxes := make([]linear.AABB, 0, len(p.buckets))

	for _, b := range p.buckets {
		ranges = append(ranges, len(fragOrder))
		boxes = append(boxes, b.Box)
		fragOrder = append(fragOrder, b.FragIDs...)
	}
	numConsolidated := len(fragOrder)
	for _, e := range p.tail {
		fragOrder = append(fragOrder, e.fragID)
	}

	return &Map{
		FragOrder:       fragOrder,
		Ranges:          ranges,
		Boxes:           boxes,
		NumConsolidated: numConsolidated,
	}
}

// bucketsFromMap reconstructs the merge buckets described by an
// already-computed Map, re-reading geometries and matrices from fl but
// skipping the ordering and bucket-choice steps: every fragment's
// bucket membership is already decided.
func bucketsFromMap(fl FragmentList, m *Map) []*merge.Bucket {
	buckets := make([]*merge.Bucket, len(m.Ranges))
	for i := range m.Ranges {
		start, end := m.bucketRange(i)
		fragIDs := m.FragOrder[start:end]
		if len(fragIDs) == 0 {
			continue
		}
		matID := fl.MaterialID(fragIDs[0])
		b := merge.NewBucket(matID)
		for _, fid := range fragIDs {
			g := fl.Geometry(fid)
			bs := int64(g.ByteSize)
			b.Add(g, fl.OriginalWorldMatrix(fid), fid, fl.DBID(fid), fl.WorldBounds(fid), bs, bs > 0)
		}
		buckets[i] = b
	}
	return buckets
}

// tailEntries resolves the instancing pass's candidate fragIds (those
// from m.NumConsolidated onward) back into fragEntry form.
func tailEntries(fl FragmentList, m *Map) []fragEntry {
	ids := m.FragOrder[m.NumConsolidated:]
	entries := make([]fragEntry, len(ids))
	for i, fid := range ids {
		g := fl.Geometry(fid)
		bs := int64(g.ByteSize)
		entries[i] = fragEntry{
			fragID:        fid,
			geomID:        fl.GeometryID(fid),
			matID:         fl.MaterialID(fid),
			g:             g,
			matrix:        fl.OriginalWorldMatrix(fid),
			box:           fl.WorldBounds(fid),
			dbID:          fl.DBID(fid),
			byteSize:      bs,
			byteSizeKnown: bs > 0,
		}
	}
	return entries
}
