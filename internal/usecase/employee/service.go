// Package employee serves the structured employee filter: a linear scan over
// the loaded corpus, unrelated to the vector retrieval path.
package employee

import (
	"strings"

	"github.com/staffdex/staffdex/internal/domain"
)

// Lister exposes the loaded employee corpus.
type Lister interface {
	Employees() []domain.EmployeeRecord
	Ready() bool
}

// Filter selects employees by structured attributes. Zero values mean "no
// constraint".
type Filter struct {
	Skill        string
	MinYears     *int
	Availability string
}

// Service answers structured employee filter queries.
type Service struct {
	store Lister
}

// New creates an employee filter service.
func New(store Lister) *Service {
	return &Service{store: store}
}

// Search scans all records and returns those matching every set constraint:
// case-insensitive skill substring, minimum experience, availability equality.
// Output order follows the store's id ordering.
func (s *Service) Search(f Filter) ([]domain.EmployeeRecord, error) {
	if !s.store.Ready() {
		return nil, domain.ErrNotReady
	}

	var out []domain.EmployeeRecord
	for _, emp := range s.store.Employees() {
		if matches(&emp, &f) {
			out = append(out, emp)
		}
	}
	return out, nil
}

func matches(e *domain.EmployeeRecord, f *Filter) bool {
	if f.Skill != "" && !hasSkill(e.Skills, f.Skill) {
		return false
	}
	if f.MinYears != nil && e.ExperienceYears < *f.MinYears {
		return false
	}
	if f.Availability != "" && !strings.EqualFold(e.Availability, f.Availability) {
		return false
	}
	return true
}

func hasSkill(skills []string, want string) bool {
	want = strings.ToLower(want)
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s), want) {
			return true
		}
	}
	return false
}
