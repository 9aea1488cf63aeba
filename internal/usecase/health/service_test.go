package health

import (
	"context"
	"errors"
	"testing"
)

type mockReady bool

func (m mockReady) Ready() bool { return bool(m) }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(mockReady(true), mockReady(true), &mockEmbeddingChecker{})
	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	for _, name := range []string{"index", "snapshot", "embedding"} {
		if report.Checks[name] != CheckOK {
			t.Errorf("check %s = %s, want ok", name, report.Checks[name])
		}
	}
}

func TestCheck_SnapshotNotLoaded(t *testing.T) {
	svc := New(mockReady(true), mockReady(false), nil)
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["snapshot"] != CheckError {
		t.Errorf("snapshot check = %s, want error", report.Checks["snapshot"])
	}
	if _, ok := report.Checks["embedding"]; ok {
		t.Error("nil embedding checker should not be reported")
	}
}

func TestCheck_EmbeddingFailure(t *testing.T) {
	svc := New(mockReady(true), mockReady(true), &mockEmbeddingChecker{err: errors.New("down")})
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["embedding"] != CheckError {
		t.Errorf("embedding check = %s, want error", report.Checks["embedding"])
	}
}
