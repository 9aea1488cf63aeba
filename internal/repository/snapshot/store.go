// Package snapshot loads the metadata snapshot that pairs the vector index:
// row id → employee id, row id → indexed text, and the employee records
// themselves. The snapshot is read once at startup and immutable afterwards.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/staffdex/staffdex/internal/domain"
)

// fileFormat is the persisted snapshot layout. Row ids are serialized as
// decimal-string keys.
type fileFormat struct {
	VecIDToEmpID map[string]string                `json:"vec_id_to_emp_id"`
	VecIDToText  map[string]string                `json:"vec_id_to_text"`
	Employees    map[string]domain.EmployeeRecord `json:"employees"`
}

// Store resolves index row ids to employee records and indexed text.
// Load happens exactly once; all reads afterwards are lock-free.
type Store struct {
	loadOnce sync.Once
	loadErr  error

	mu        sync.RWMutex
	ready     bool
	rowToEmp  map[int]domain.EmployeeRecord
	rowToText map[int]string
	employees []domain.EmployeeRecord
}

// New creates an unloaded store.
func New() *Store {
	return &Store{}
}

// Load reads and validates the snapshot file exactly once. Concurrent callers
// share a single load; repeated calls return the first outcome. Malformed data
// is rejected here rather than at first access.
func (s *Store) Load(path string) error {
	s.loadOnce.Do(func() {
		s.loadErr = s.load(path)
	})
	return s.loadErr
}

func (s *Store) load(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidSnapshot, path, err)
	}

	rowToEmp := make(map[int]domain.EmployeeRecord, len(file.VecIDToEmpID))
	rowToText := make(map[int]string, len(file.VecIDToText))

	for key, empID := range file.VecIDToEmpID {
		rowID, err := strconv.Atoi(key)
		if err != nil || rowID < 0 {
			return fmt.Errorf("%w: row key %q is not a non-negative integer", domain.ErrInvalidSnapshot, key)
		}
		emp, ok := file.Employees[empID]
		if !ok {
			return fmt.Errorf("%w: row %d maps to unknown employee %q", domain.ErrInvalidSnapshot, rowID, empID)
		}
		rowToEmp[rowID] = emp
	}

	for key, text := range file.VecIDToText {
		rowID, err := strconv.Atoi(key)
		if err != nil || rowID < 0 {
			return fmt.Errorf("%w: text row key %q is not a non-negative integer", domain.ErrInvalidSnapshot, key)
		}
		if _, ok := rowToEmp[rowID]; !ok {
			return fmt.Errorf("%w: text row %d has no employee mapping", domain.ErrInvalidSnapshot, rowID)
		}
		rowToText[rowID] = text
	}

	for rowID := range rowToEmp {
		if _, ok := rowToText[rowID]; !ok {
			return fmt.Errorf("%w: row %d has no indexed text", domain.ErrInvalidSnapshot, rowID)
		}
	}

	employees := make([]domain.EmployeeRecord, 0, len(file.Employees))
	for id, emp := range file.Employees {
		if emp.ID != id {
			return fmt.Errorf("%w: employee keyed %q carries id %q", domain.ErrInvalidSnapshot, id, emp.ID)
		}
		if err := emp.Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidSnapshot, err)
		}
		employees = append(employees, emp)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].ID < employees[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowToEmp = rowToEmp
	s.rowToText = rowToText
	s.employees = employees
	s.ready = true
	return nil
}

// Ready reports whether the snapshot is loaded.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// EmployeeByRow resolves the employee owning an index row. A row id the index
// returned but the snapshot does not know means the two files are mismatched;
// the error is surfaced, never swallowed or defaulted.
func (s *Store) EmployeeByRow(rowID int) (domain.EmployeeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return domain.EmployeeRecord{}, domain.ErrNotReady
	}
	emp, ok := s.rowToEmp[rowID]
	if !ok {
		return domain.EmployeeRecord{}, domain.NewRowNotFound(rowID)
	}
	return emp, nil
}

// TextByRow resolves the source text a row was embedded from.
func (s *Store) TextByRow(rowID int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return "", domain.ErrNotReady
	}
	text, ok := s.rowToText[rowID]
	if !ok {
		return "", domain.NewRowNotFound(rowID)
	}
	return text, nil
}

// Employees returns all records ordered by employee id. The returned slice is
// a copy; records themselves are shared and must not be mutated.
func (s *Store) Employees() []domain.EmployeeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EmployeeRecord, len(s.employees))
	copy(out, s.employees)
	return out
}

// Len returns the number of indexed rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rowToEmp)
}

// Write persists a snapshot produced by the index builder. Row ids are dense
// and assigned in employee input order; employees[i] owns row i with texts[i]
// as its indexed text.
func Write(path string, employees []domain.EmployeeRecord, texts []string) error {
	if len(employees) != len(texts) {
		return fmt.Errorf("employees and texts length mismatch: %d vs %d", len(employees), len(texts))
	}

	file := fileFormat{
		VecIDToEmpID: make(map[string]string, len(employees)),
		VecIDToText:  make(map[string]string, len(texts)),
		Employees:    make(map[string]domain.EmployeeRecord, len(employees)),
	}
	for i, emp := range employees {
		if err := emp.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		key := strconv.Itoa(i)
		file.VecIDToEmpID[key] = emp.ID
		file.VecIDToText[key] = texts[i]
		file.Employees[emp.ID] = emp
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
