package domain

// ParsedQuery holds the structured signals extracted from a free-text staffing
// query. It is recomputed per request and discarded afterwards.
type ParsedQuery struct {
	// MinYears is the minimum-years threshold, nil when the query carries no
	// numeric years mention.
	MinYears *int `json:"years"`
	// Skills are the controlled-vocabulary skill keywords found in the query,
	// in vocabulary order for deterministic tie-breaking.
	Skills []string `json:"skills"`
	// RequireAvailable is set when the query mentions "available". Detection
	// is one-directional: "not available" also sets it, a known quirk kept
	// from the source heuristics.
	RequireAvailable bool `json:"availability_required"`
	// Domain is the first domain keyword found in the query, empty when none.
	Domain string `json:"domain,omitempty"`
}

// Empty reports whether no signal was extracted at all.
func (p *ParsedQuery) Empty() bool {
	return p.MinYears == nil && len(p.Skills) == 0 && !p.RequireAvailable && p.Domain == ""
}
