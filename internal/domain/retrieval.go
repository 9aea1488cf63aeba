package domain

// VectorHit is a single nearest-neighbor hit from the vector index: the dense
// row id of the matched vector and its distance from the query. Lower distance
// means more similar.
type VectorHit struct {
	RowID    int
	Distance float32
}

// RetrievedItem is one ranked candidate: the employee record, the final score
// after heuristic boosts, and the reason tags for every boost that fired, in
// the order they were applied.
type RetrievedItem struct {
	Employee EmployeeRecord `json:"employee"`
	Score    float64        `json:"score"`
	Reasons  []string       `json:"reasons"`
}

// DebugTrace carries per-request retrieval diagnostics alongside the results.
// It is never persisted.
type DebugTrace struct {
	ParsedQuery ParsedQuery `json:"parsed_query"`
	// RawHits is the number of candidates considered before truncation,
	// after sentinel row ids were filtered out.
	RawHits int `json:"raw_hits"`
}
