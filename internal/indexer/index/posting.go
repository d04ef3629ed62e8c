package index

// TermEntry is one row of an index snapshot: a lemma and its posting ids in
// ascending order.
type TermEntry struct {
	Term   string
	DocIDs []uint32
}

// Stats summarises an index for logging and metrics.
type Stats struct {
	Terms     int
	Documents uint64
	Postings  uint64
}
