package semantic

// SearchResult is a single vector search hit.
type SearchResult struct {
	ID      string            `json:"id"`
	Score   float32           `json:"score"`
	Summary string            `json:"summary"`
	Kind    string            `json:"kind"`
	Name    string            `json:"name"`
	Date    string            `json:"date"`
	Meta    map[string]string `json:"meta"`
}

// VectorRecord is a single embedded submission to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // summary, kind, name, email, date, end_date, degraded
}

// StoredPoint is a point read back during a scroll, with its payload
// flattened to strings. Used by cmd/backfill to re-embed records.
type StoredPoint struct {
	ID       string
	Summary  string
	Degraded bool
	Payload  map[string]string
}
