package domain

import (
	"fmt"
	"strings"
)

// Availability values an employee record may carry.
const (
	Available    = "available"
	NotAvailable = "not available"
)

// EmployeeRecord is an immutable personnel record. Records are created once
// at corpus-build time and never mutated at query time.
type EmployeeRecord struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	Projects        []string `json:"projects"`
	Availability    string   `json:"availability"`
}

// CorpusRow renders the canonical text a record is embedded under. The index
// builder and the snapshot both use this exact rendering, so changing it
// requires a rebuild.
func (e *EmployeeRecord) CorpusRow() string {
	return fmt.Sprintf("%s | skills: %s | exp: %d years | projects: %s | availability: %s",
		e.Name,
		strings.Join(e.Skills, ", "),
		e.ExperienceYears,
		strings.Join(e.Projects, ", "),
		e.Availability,
	)
}

// Validate checks the structural invariants of a record. Malformed records
// are rejected at snapshot load, not at first access.
func (e *EmployeeRecord) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("employee id is required")
	}
	if e.Name == "" {
		return fmt.Errorf("employee %s: name is required", e.ID)
	}
	if e.ExperienceYears < 0 {
		return fmt.Errorf("employee %s: experience_years must be non-negative, got %d", e.ID, e.ExperienceYears)
	}
	switch e.Availability {
	case Available, NotAvailable:
		return nil
	default:
		return fmt.Errorf("employee %s: availability must be %q or %q, got %q",
			e.ID, Available, NotAvailable, e.Availability)
	}
}
