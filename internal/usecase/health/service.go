package health

import (
	"context"

	"github.com/staffdex/staffdex/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks over the index, the snapshot, and the
// embedding provider.
type Service struct {
	index     ReadinessChecker
	snapshot  ReadinessChecker
	embedding domain.HealthChecker
}

// New creates a Service. embedding can be nil when the provider exposes no
// health endpoint.
func New(index, snapshot ReadinessChecker, embedding domain.HealthChecker) *Service {
	return &Service{index: index, snapshot: snapshot, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["index"] = boolCheck(s.index.Ready())
	checks["snapshot"] = boolCheck(s.snapshot.Ready())

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func boolCheck(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
