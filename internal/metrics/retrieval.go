package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and embedding Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffdex",
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"status"},
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "staffdex",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "staffdex",
			Name:      "retrieval_candidates",
			Help:      "Raw candidate pool size before truncation",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 30, 60, 100},
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffdex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staffdex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffdex",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffdex",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval and embedding metrics.
// Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalCandidates)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	retrievalMetricsRegistered = true
}
