// Package parser extracts structured staffing signals from free-text queries.
// Matching is deliberately simple controlled-vocabulary substring containment;
// the strategy is isolated here so it can be swapped without touching scoring.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/staffdex/staffdex/internal/domain"
)

// skillVocabulary is the controlled skill vocabulary. Slice order is the
// match/output order, which keeps parsed skill sets deterministic for a given
// query. Multi-word entries are matched as whole substrings.
var skillVocabulary = []string{
	"python", "java", "aws", "docker", "react native", "react",
	"pytorch", "tensorflow", "machine learning", "ml", "nlp",
	"kubernetes", "gcp", "azure", "sql", "node", "go", "scala",
	"spark", "pandas", "scikit-learn", "flask", "fastapi",
}

// domainVocabulary is the ordered domain keyword list. The first keyword found
// in the query wins.
var domainVocabulary = []string{
	"healthcare", "fintech", "e-commerce", "ecommerce", "gaming", "education", "devops",
}

// yearsPattern matches the first numeral followed by a years token, allowing
// an optional literal plus: "3+ years", "5 yrs", "7y".
var yearsPattern = regexp.MustCompile(`(\d+)\s*\+?\s*(?:years|yrs|y)`)

// Parser turns raw query text into a domain.ParsedQuery. The zero-cost
// construction keeps vocabularies swappable in tests.
type Parser struct {
	skills  []string
	domains []string
}

// New creates a parser over the default controlled vocabularies.
func New() *Parser {
	return &Parser{skills: skillVocabulary, domains: domainVocabulary}
}

// Parse extracts the minimum-years threshold, skill mentions, availability
// requirement, and domain keyword from the query. Pure and deterministic;
// matching is case-insensitive.
func (p *Parser) Parse(query string) domain.ParsedQuery {
	q := strings.ToLower(query)

	var parsed domain.ParsedQuery

	// Only the first numeric years mention counts.
	if m := yearsPattern.FindStringSubmatch(q); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil {
			parsed.MinYears = &years
		}
	}

	for _, skill := range p.skills {
		if strings.Contains(q, skill) {
			parsed.Skills = append(parsed.Skills, skill)
		}
	}

	// One-directional heuristic: "not available" also triggers. Kept as an
	// intentional quirk of the source behavior.
	parsed.RequireAvailable = strings.Contains(q, "available")

	for _, d := range p.domains {
		if strings.Contains(q, d) {
			parsed.Domain = d
			break
		}
	}

	return parsed
}
