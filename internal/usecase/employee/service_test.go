package employee

import (
	"errors"
	"testing"

	"github.com/staffdex/staffdex/internal/domain"
)

type mockLister struct {
	emps  []domain.EmployeeRecord
	ready bool
}

func (m *mockLister) Employees() []domain.EmployeeRecord { return m.emps }
func (m *mockLister) Ready() bool                        { return m.ready }

func corpus() []domain.EmployeeRecord {
	return []domain.EmployeeRecord{
		{
			ID: "emp-1", Name: "Alice", Skills: []string{"Python", "AWS"},
			ExperienceYears: 5, Availability: domain.Available,
		},
		{
			ID: "emp-2", Name: "Bob", Skills: []string{"Java", "SQL"},
			ExperienceYears: 2, Availability: domain.NotAvailable,
		},
		{
			ID: "emp-3", Name: "Carol", Skills: []string{"React Native"},
			ExperienceYears: 7, Availability: domain.Available,
		},
	}
}

func intPtr(n int) *int { return &n }

func TestSearch_Filters(t *testing.T) {
	svc := New(&mockLister{emps: corpus(), ready: true})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no constraints", Filter{}, []string{"emp-1", "emp-2", "emp-3"}},
		{"skill substring", Filter{Skill: "react"}, []string{"emp-3"}},
		{"skill case insensitive", Filter{Skill: "PYTHON"}, []string{"emp-1"}},
		{"min years", Filter{MinYears: intPtr(5)}, []string{"emp-1", "emp-3"}},
		{"availability equality", Filter{Availability: "Available"}, []string{"emp-1", "emp-3"}},
		{"not available literal", Filter{Availability: "not available"}, []string{"emp-2"}},
		{"combined", Filter{Skill: "aws", MinYears: intPtr(3), Availability: "available"}, []string{"emp-1"}},
		{"no match", Filter{Skill: "cobol"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(tt.filter)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSearch_NotReady(t *testing.T) {
	svc := New(&mockLister{ready: false})
	if _, err := svc.Search(Filter{}); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}
