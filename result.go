package consolidate

// Stats counts how fragments were disposed of across one Build run,
// for diagnostics only; nothing in the engine depends on these values.
type Stats struct {
	NumConsolidated int
	NumInstanced    int
	NumSingle       int
	NumDropped      int
}

// Result is the Consolidation: the output meshes, the fragId→mesh
// index map, the total byte size of engine-owned buffers, and the
// ConsolidationMap it was built from.
type Result struct {
	Meshes           []*Mesh
	FragID2MeshIndex []int
	ByteSize         int64
	Map              *Map

	Stats Stats
}

// Rebuild re-derives a Result by reusing r's already-computed
// ConsolidationMap: fragment ordering and bucketing are not
// recomputed, only the merge/instance/residency passes re-run. Useful
// when the underlying FragmentList changed in ways that don't affect
// the bucket plan (e.g. a different byte budget is irrelevant here
// since the plan is fixed; material/residency collaborators may
// differ).
func (r *Result) Rebuild(opts Options) (*Result, error) {
	opts.ConsMap = r.Map
	return Build(opts)
}
