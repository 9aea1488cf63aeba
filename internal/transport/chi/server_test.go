package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/staffdex/staffdex/internal/domain"
	"github.com/staffdex/staffdex/internal/metrics"
	"github.com/staffdex/staffdex/internal/parser"
	answeruc "github.com/staffdex/staffdex/internal/usecase/answer"
	employeeuc "github.com/staffdex/staffdex/internal/usecase/employee"
	healthuc "github.com/staffdex/staffdex/internal/usecase/health"
	retrieveuc "github.com/staffdex/staffdex/internal/usecase/retrieve"
)

func TestMain(m *testing.M) {
	metrics.RegisterRetrievalMetrics()
	m.Run()
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockIndex struct {
	hits  []domain.VectorHit
	ready bool
	lastK int
}

func (m *mockIndex) Search(_ []float32, k int) ([]domain.VectorHit, error) {
	m.lastK = k
	return m.hits, nil
}

func (m *mockIndex) Ready() bool { return m.ready }

type mockStore struct {
	employees map[int]domain.EmployeeRecord
	ready     bool
}

func (m *mockStore) EmployeeByRow(rowID int) (domain.EmployeeRecord, error) {
	emp, ok := m.employees[rowID]
	if !ok {
		return domain.EmployeeRecord{}, domain.NewRowNotFound(rowID)
	}
	return emp, nil
}

func (m *mockStore) Ready() bool { return m.ready }

func (m *mockStore) Employees() []domain.EmployeeRecord {
	out := make([]domain.EmployeeRecord, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, emp)
	}
	return out
}

type staticReady bool

func (s staticReady) Ready() bool { return bool(s) }

func testEmployees() map[int]domain.EmployeeRecord {
	return map[int]domain.EmployeeRecord{
		0: {
			ID: "e1", Name: "Alice", Skills: []string{"Python", "AWS"},
			ExperienceYears: 5,
			Projects:        []string{"Healthcare analytics platform"},
			Availability:    domain.Available,
		},
		1: {
			ID: "e2", Name: "Bob", Skills: []string{"Java"},
			ExperienceYears: 2,
			Projects:        []string{"Payment gateway"},
			Availability:    domain.NotAvailable,
		},
	}
}

// newTestServer builds a Server over mocked collaborators with a real parser
// and a disabled answer model, mounted on a fresh router.
func newTestServer(t *testing.T, idx *mockIndex, store *mockStore) http.Handler {
	t.Helper()

	retrieve := retrieveuc.New(&mockEmbedder{vec: []float32{1, 0}}, idx, store, parser.New())
	answer := answeruc.New(nil, zap.NewNop())
	employees := employeeuc.New(store)
	health := healthuc.New(staticReady(idx.ready), staticReady(store.ready), nil)

	srv := NewServer(retrieve, answer, employees, health, 5, 10, zap.NewNop())
	r := chirouter.NewRouter()
	srv.Register(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRetrieveEndpoint(t *testing.T) {
	idx := &mockIndex{
		hits:  []domain.VectorHit{{RowID: 0, Distance: 0.2}, {RowID: 1, Distance: 0.4}},
		ready: true,
	}
	h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

	rec := doRequest(t, h, http.MethodPost, "/retrieve",
		`{"query": "Find Python developers with 3+ years for a healthcare project", "top_k": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp retrieveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Employee.ID != "e1" {
		t.Errorf("top result = %s, want e1 (boosted)", resp.Results[0].Employee.ID)
	}
	if got := resp.Debug.ParsedQuery.Skills; len(got) != 1 || got[0] != "python" {
		t.Errorf("parsed skills = %v, want [python]", got)
	}
	if resp.Debug.RawHits != 2 {
		t.Errorf("raw_hits = %d, want 2", resp.Debug.RawHits)
	}
	if idx.lastK != 6 {
		t.Errorf("search k = %d, want 6 (oversampled top_k)", idx.lastK)
	}
}

func TestRetrieveEndpointValidation(t *testing.T) {
	idx := &mockIndex{ready: true}
	h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty query", body: `{"query": ""}`},
		{name: "malformed json", body: `{"query": `},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/retrieve", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != CodeBadRequest {
				t.Errorf("code = %s, want %s", resp.Code, CodeBadRequest)
			}
		})
	}
}

func TestRetrieveEndpointTopKSemantics(t *testing.T) {
	hits := []domain.VectorHit{{RowID: 0, Distance: 0.2}, {RowID: 1, Distance: 0.4}}

	t.Run("absent top_k uses default", func(t *testing.T) {
		idx := &mockIndex{hits: hits, ready: true}
		h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

		rec := doRequest(t, h, http.MethodPost, "/retrieve", `{"query": "engineers"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if idx.lastK != 15 {
			t.Errorf("search k = %d, want 15 (default 5 oversampled)", idx.lastK)
		}
	})

	t.Run("explicit zero yields empty results", func(t *testing.T) {
		idx := &mockIndex{hits: hits, ready: true}
		h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

		rec := doRequest(t, h, http.MethodPost, "/retrieve", `{"query": "engineers", "top_k": 0}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp retrieveResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp.Results) != 0 {
			t.Errorf("results = %d, want 0", len(resp.Results))
		}
		if idx.lastK != 0 {
			t.Errorf("index searched with k=%d, want no search", idx.lastK)
		}
	})

	t.Run("top_k clamped to max", func(t *testing.T) {
		idx := &mockIndex{hits: hits, ready: true}
		h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

		rec := doRequest(t, h, http.MethodPost, "/retrieve", `{"query": "engineers", "top_k": 500}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if idx.lastK != 30 {
			t.Errorf("search k = %d, want 30 (max 10 oversampled)", idx.lastK)
		}
	})
}

func TestChatEndpoint(t *testing.T) {
	idx := &mockIndex{
		hits:  []domain.VectorHit{{RowID: 0, Distance: 0.2}},
		ready: true,
	}
	h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

	rec := doRequest(t, h, http.MethodPost, "/chat", `{"message": "Who knows Python?", "top_k": 1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer == "" {
		t.Error("answer is empty, want fallback text")
	}
	if !strings.Contains(resp.Answer, "Alice") {
		t.Errorf("answer = %q, want mention of Alice", resp.Answer)
	}
	if !resp.UsedHybrid {
		t.Error("used_hybrid = false, want true")
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}
}

func TestChatEndpointRequiresMessage(t *testing.T) {
	idx := &mockIndex{ready: true}
	h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

	rec := doRequest(t, h, http.MethodPost, "/chat", `{"message": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRetrieveEndpointNotReady(t *testing.T) {
	idx := &mockIndex{ready: false}
	h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

	rec := doRequest(t, h, http.MethodPost, "/retrieve", `{"query": "engineers"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != CodeNotReady {
		t.Errorf("code = %s, want %s", resp.Code, CodeNotReady)
	}
}

func TestEmployeeSearchEndpoint(t *testing.T) {
	idx := &mockIndex{ready: true}
	h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

	t.Run("skill and years filter", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/employees/search?skill=python&min_years=3", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var emps []domain.EmployeeRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &emps); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(emps) != 1 || emps[0].ID != "e1" {
			t.Errorf("employees = %v, want [e1]", emps)
		}
	})

	t.Run("no match is empty array", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/employees/search?skill=cobol", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("body = %s, want []", body)
		}
	})

	t.Run("bad min_years", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/employees/search?min_years=abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		idx := &mockIndex{ready: true}
		h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

		rec := doRequest(t, h, http.MethodGet, "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp healthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Status != string(healthuc.Healthy) {
			t.Errorf("status = %s, want %s", resp.Status, healthuc.Healthy)
		}
	})

	t.Run("degraded when index is down", func(t *testing.T) {
		idx := &mockIndex{ready: false}
		h := newTestServer(t, idx, &mockStore{employees: testEmployees(), ready: true})

		rec := doRequest(t, h, http.MethodGet, "/health", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		var resp healthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Checks["index"] != healthuc.CheckError {
			t.Errorf("index check = %s, want %s", resp.Checks["index"], healthuc.CheckError)
		}
	})
}
