package analytics

import "time"

type EventType string

const (
	EventSearch        EventType = "search"
	EventIndexDoc      EventType = "index_document"
	EventIndexComplete EventType = "index_complete"
)

// Search modes.
const (
	ModeVector  = "vector"
	ModeBoolean = "boolean"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Mode      string    `json:"mode"`
	Query     string    `json:"query"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent is emitted by the indexer for each document written to an
// artifact ("index", "tfidf_tokens" or "tfidf_lemmas").
type IndexEvent struct {
	Type      EventType `json:"type"`
	DocID     uint32    `json:"doc_id"`
	Name      string    `json:"name"`
	Artifact  string    `json:"artifact"`
	TermCount int       `json:"term_count"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexCompleteEvent announces a finished build. Searchers drop their
// cached results when they see it.
type IndexCompleteEvent struct {
	Type      EventType `json:"type"`
	BuildID   string    `json:"build_id"`
	Documents int       `json:"documents"`
	Terms     int       `json:"terms"`
	Timestamp time.Time `json:"timestamp"`
}

type envelope struct {
	Type EventType `json:"type"`
}
