// Package retrieve implements hybrid retrieval: dense vector search over the
// employee corpus combined with deterministic rule-based rescoring driven by
// signals parsed from the query.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/staffdex/staffdex/internal/domain"
)

// Weights are the additive boost increments applied on top of the base
// similarity score when a query-derived condition matches a candidate.
type Weights struct {
	Skill        float64
	Availability float64
	Years        float64
	Domain       float64
}

// DefaultWeights returns the reference boost values.
func DefaultWeights() Weights {
	return Weights{Skill: 0.05, Availability: 0.05, Years: 0.07, Domain: 0.06}
}

// oversample controls how many candidates are fetched per requested result.
// Rescoring can reorder the pool, so the vector ranking alone may not surface
// the true top-k.
const oversample = 3

// scorePrecision is the number of decimal digits final scores are rounded to.
const scorePrecision = 4

// Service is the hybrid retriever. All collaborators are loaded once and
// shared read-only, so a Service is safe for concurrent use.
type Service struct {
	embed   Embedder
	idx     VectorSearcher
	meta    MetadataResolver
	parser  QueryParser
	weights Weights
	timeout time.Duration
}

// New creates a hybrid retriever with the reference boost weights.
func New(embed Embedder, idx VectorSearcher, meta MetadataResolver, parser QueryParser) *Service {
	return &Service{
		embed:   embed,
		idx:     idx,
		meta:    meta,
		parser:  parser,
		weights: DefaultWeights(),
	}
}

// WithWeights overrides the boost weights.
func (s *Service) WithWeights(w Weights) *Service {
	s.weights = w
	return s
}

// WithTimeout bounds the embedding and index-search calls. Zero disables the
// bound. Deadline hits surface as domain.ErrTimeout, distinct from not-ready.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Retrieve runs the full hybrid pipeline for a query: embed, oversampled
// vector search, signal parsing, rescoring, deterministic ranking, truncation.
// A non-positive topK yields an empty result set with a populated trace, not
// an error.
func (s *Service) Retrieve(
	ctx context.Context, query string, topK int,
) ([]domain.RetrievedItem, domain.DebugTrace, error) {
	if !s.idx.Ready() || !s.meta.Ready() {
		return nil, domain.DebugTrace{}, domain.ErrNotReady
	}

	if topK <= 0 {
		return []domain.RetrievedItem{}, domain.DebugTrace{ParsedQuery: s.parser.Parse(query)}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Parsing is independent of embedding and search, so the two paths run
	// concurrently.
	var (
		parsed domain.ParsedQuery
		hits   []domain.VectorHit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parsed = s.parser.Parse(query)
		return nil
	})
	g.Go(func() error {
		emb, err := s.embed.Embed(gctx, query)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("embed query: %w", domain.ErrTimeout)
			}
			return fmt.Errorf("embed query: %w", err)
		}
		hits, err = s.idx.Search(emb.Embedding, max(topK*oversample, topK))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("vector search: %w", domain.ErrTimeout)
			}
			return fmt.Errorf("vector search: %w: %w", domain.ErrSearchFailed, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domain.DebugTrace{}, err
	}

	candidates, err := s.score(parsed, hits)
	if err != nil {
		return nil, domain.DebugTrace{}, err
	}

	trace := domain.DebugTrace{ParsedQuery: parsed, RawHits: len(candidates)}

	sortCandidates(candidates)

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	items := make([]domain.RetrievedItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, domain.RetrievedItem{
			Employee: c.employee,
			Score:    roundScore(c.score),
			Reasons:  c.reasons,
		})
	}
	return items, trace, nil
}

// candidate is a scored hit awaiting ranking. rank is the original vector
// index position, kept as the first tie-break key.
type candidate struct {
	employee domain.EmployeeRecord
	score    float64
	reasons  []string
	rank     int
}

// score resolves each hit and applies the additive boosts in fixed order.
// Sentinel (negative) row ids are skipped; a valid row id missing from the
// snapshot is a surfaced inconsistency.
func (s *Service) score(parsed domain.ParsedQuery, hits []domain.VectorHit) ([]candidate, error) {
	candidates := make([]candidate, 0, len(hits))

	for rank, hit := range hits {
		if hit.RowID < 0 {
			continue
		}
		emp, err := s.meta.EmployeeByRow(hit.RowID)
		if err != nil {
			return nil, fmt.Errorf("resolve candidate: %w", err)
		}

		// Base score convention: the index returns cosine distance
		// 1 − cos(q,v), so 1 − distance is the cosine similarity.
		score := 1.0 - float64(hit.Distance)
		var reasons []string

		for _, kw := range parsed.Skills {
			if skillMatches(emp.Skills, kw) {
				score += s.weights.Skill
				reasons = append(reasons, "skill:"+kw)
			}
		}

		if parsed.RequireAvailable && strings.EqualFold(emp.Availability, domain.Available) {
			score += s.weights.Availability
			reasons = append(reasons, "availability:"+domain.Available)
		}

		if parsed.MinYears != nil && emp.ExperienceYears >= *parsed.MinYears {
			score += s.weights.Years
			reasons = append(reasons, fmt.Sprintf("years>=%d", *parsed.MinYears))
		}

		if parsed.Domain != "" && domainMatches(emp.Projects, parsed.Domain) {
			score += s.weights.Domain
			reasons = append(reasons, "domain:"+parsed.Domain)
		}

		candidates = append(candidates, candidate{
			employee: emp,
			score:    score,
			reasons:  reasons,
			rank:     rank,
		})
	}
	return candidates, nil
}

// sortCandidates orders by final score descending. Ties break on the original
// vector rank, then on employee id, so identical inputs always produce
// identical output even under floating-point score equality.
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].employee.ID < candidates[j].employee.ID
	})
}

// skillMatches reports whether the parsed keyword appears as a substring of
// any candidate skill, case-insensitive.
func skillMatches(skills []string, keyword string) bool {
	for _, skill := range skills {
		if strings.Contains(strings.ToLower(skill), keyword) {
			return true
		}
	}
	return false
}

// domainMatches checks the domain keyword against the candidate's
// concatenated lower-cased project names.
func domainMatches(projects []string, keyword string) bool {
	joined := strings.ToLower(strings.Join(projects, " "))
	return strings.Contains(joined, keyword)
}

func roundScore(score float64) float64 {
	shift := math.Pow10(scorePrecision)
	return math.Round(score*shift) / shift
}
