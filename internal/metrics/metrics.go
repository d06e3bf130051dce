// Package metrics holds the Prometheus instruments of the matching engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EmbeddingRequestsTotal counts remote embedding calls by outcome.
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matching",
			Name:      "embedding_requests_total",
			Help:      "Total number of remote embedding requests",
		},
		[]string{"model", "status"},
	)

	// EmbeddingRequestDuration observes remote embedding latency.
	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matching",
			Name:      "embedding_request_duration_seconds",
			Help:      "Remote embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	// EmbeddingFallbacksTotal counts deterministic fallback vectors by reason.
	EmbeddingFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matching",
			Name:      "embedding_fallbacks_total",
			Help:      "Deterministic fallback embeddings generated",
		},
		[]string{"reason"}, // "disabled" / "error" / "empty"
	)

	// VectorIndexRequestsTotal counts vector index operations by outcome.
	VectorIndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matching",
			Name:      "vector_index_requests_total",
			Help:      "Total vector index operations",
		},
		[]string{"op", "status"}, // op: upsert/query/delete; status: ok/error/skipped
	)

	// SearchRequestsTotal counts hybrid searches by variant and fusion source.
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matching",
			Name:      "search_requests_total",
			Help:      "Hybrid search requests",
		},
		[]string{"variant", "source"},
	)

	// SyncRunsTotal counts embedding sync workflow runs by kind and outcome.
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matching",
			Name:      "sync_runs_total",
			Help:      "Embedding sync workflow runs",
		},
		[]string{"kind", "outcome"}, // outcome: synced/evicted/missing/error
	)
)

var registered bool

// Register registers all engine metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingFallbacksTotal)
	prometheus.MustRegister(VectorIndexRequestsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SyncRunsTotal)
	registered = true
}
