package consolidate

import "github.com/gviegas/consolidate/linear"

// Map is the ConsolidationMap: the cost-ordered bucket plan produced
// before any merging or instancing happens. FragOrder is partitioned
// into contiguous ranges, one per merge bucket that was opened before
// the byte budget was reached (including eventual size-1 buckets,
// which are later emitted as single-fragment meshes rather than
// merged); the remainder, from NumConsolidated onward, are the
// instancing pass's candidates.
type Map struct {
	FragOrder       []int
	Ranges          []int // start offset into FragOrder of bucket b
	Boxes           []linear.AABB
	NumConsolidated int
}

// bucketRange returns the [start, end) slice of FragOrder belonging to
// bucket b.
func (m *Map) bucketRange(b int) (start, end int) {
	start = m.Ranges[b]
	if b+1 < len(m.Ranges) {
		end = m.Ranges[b+1]
	} else {
		end = m.NumConsolidated
	}
	return
}
