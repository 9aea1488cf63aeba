// Package chi exposes the staffing query API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/staffdex/staffdex/internal/domain"
	"github.com/staffdex/staffdex/internal/logger"
	"github.com/staffdex/staffdex/internal/metrics"
	answeruc "github.com/staffdex/staffdex/internal/usecase/answer"
	employeeuc "github.com/staffdex/staffdex/internal/usecase/employee"
	healthuc "github.com/staffdex/staffdex/internal/usecase/health"
	retrieveuc "github.com/staffdex/staffdex/internal/usecase/retrieve"
)

// ErrorCode identifies an API error class.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeNotReady          ErrorCode = "not_ready"
	CodeSnapshotMismatch  ErrorCode = "snapshot_mismatch"
	CodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	CodeAnswerProvider    ErrorCode = "answer_provider_error"
	CodeTimeout           ErrorCode = "timeout"
	CodeInternal          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server wires the usecase services to HTTP handlers.
type Server struct {
	retrieve      *retrieveuc.Service
	answer        *answeruc.Service
	employees     *employeeuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	defaultTopK   int
	maxTopK       int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieve *retrieveuc.Service,
	answer *answeruc.Service,
	employees *employeeuc.Service,
	health *healthuc.Service,
	defaultTopK, maxTopK int,
	log *zap.Logger,
) *Server {
	s := &Server{
		retrieve:    retrieve,
		answer:      answer,
		employees:   employees,
		health:      health,
		logger:      log,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, CodeNotReady),
		sentinelHandler(domain.ErrRowNotFound, http.StatusInternalServerError, CodeSnapshotMismatch),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(domain.ErrAnswerProvider, http.StatusBadGateway, CodeAnswerProvider),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/chat", s.handleChat)
	r.Post("/retrieve", s.handleRetrieve)
	r.Get("/employees/search", s.handleEmployeeSearch)
	r.Get("/health", s.handleHealth)
}

// --- DTOs ---

type chatRequest struct {
	Message string `json:"message"`
	TopK    *int   `json:"top_k"`
}

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type chatResponse struct {
	Answer     string                 `json:"answer"`
	Results    []domain.RetrievedItem `json:"results"`
	UsedHybrid bool                   `json:"used_hybrid"`
	Debug      domain.DebugTrace      `json:"debug"`
}

type retrieveResponse struct {
	Results []domain.RetrievedItem `json:"results"`
	Debug   domain.DebugTrace      `json:"debug"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// --- Handlers ---

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "message is required")
		return
	}

	items, trace, err := s.doRetrieve(r, req.Message, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	answer, err := s.answer.Generate(r.Context(), req.Message, items)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:     answer,
		Results:    items,
		UsedHybrid: true,
		Debug:      trace,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return
	}

	items, trace, err := s.doRetrieve(r, req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, retrieveResponse{Results: items, Debug: trace})
}

// doRetrieve normalizes top_k and runs the retriever with metrics. An absent
// top_k falls back to the configured default; an explicit non-positive value
// passes through and yields an empty result set.
func (s *Server) doRetrieve(
	r *http.Request, query string, topK *int,
) ([]domain.RetrievedItem, domain.DebugTrace, error) {
	k := s.defaultTopK
	if topK != nil {
		k = *topK
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}

	start := time.Now()
	items, trace, err := s.retrieve.Retrieve(r.Context(), query, k)
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, domain.DebugTrace{}, err
	}
	metrics.RetrievalRequestsTotal.WithLabelValues("success").Inc()
	metrics.RetrievalCandidates.Observe(float64(trace.RawHits))

	logger.FromContext(r.Context()).Debug("retrieval complete",
		zap.Int("top_k", k),
		zap.Int("raw_hits", trace.RawHits),
		zap.Int("results", len(items)),
	)
	return items, trace, nil
}

func (s *Server) handleEmployeeSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := employeeuc.Filter{
		Skill:        q.Get("skill"),
		Availability: q.Get("availability"),
	}
	if raw := q.Get("min_years"); raw != "" {
		years, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "min_years must be an integer")
			return
		}
		filter.MinYears = &years
	}

	emps, err := s.employees.Search(filter)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if emps == nil {
		emps = []domain.EmployeeRecord{}
	}
	writeJSON(w, http.StatusOK, emps)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// --- Error mapping ---

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, handle := range s.errorHandlers {
		if handle(w, err) {
			logger.FromContext(r.Context()).Warn("request failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
