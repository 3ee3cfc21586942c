package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric exported by the service.
const Namespace = "hybridsearch"

// Labels shared by the embedding and text generation provider metrics.
var (
	providerCallLabels  = []string{"provider", "model", "status"}
	providerTimeLabels  = []string{"provider", "model"}
	providerTokenLabels = []string{"provider", "model", "type"}
)

// Query embedding provider metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Query embedding calls by provider, model and status",
	}, providerCallLabels)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Query embedding latency",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, providerTimeLabels)

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "embedding",
		Name:      "tokens_total",
		Help:      "Tokens billed for query embeddings",
	}, providerTokenLabels)

	// EmbeddingErrorsTotal splits failed embedding calls by cause:
	// api_error, empty_response or dimension_mismatch.
	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "embedding",
		Name:      "errors_total",
		Help:      "Failed query embedding calls by cause",
	}, []string{"provider", "model", "error_type"})

	EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Query embedding cache lookups by result",
	}, []string{"result"})
)

// Rewrite model metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "rewrite_model",
		Name:      "requests_total",
		Help:      "Rewrite model calls by provider, model and status",
	}, providerCallLabels)

	ModelRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "rewrite_model",
		Name:      "request_duration_seconds",
		Help:      "Rewrite model latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2.5, 5},
	}, providerTimeLabels)

	ModelTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "rewrite_model",
		Name:      "tokens_total",
		Help:      "Tokens billed for rewrite completions",
	}, providerTokenLabels)
)

var (
	embMetricsRegistered   bool
	modelMetricsRegistered bool
)

// RegisterEmbeddingMetrics registers the embedding collectors once.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}

// RegisterModelMetrics registers the rewrite model collectors once.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal, ModelRequestDuration, ModelTokensTotal)
	modelMetricsRegistered = true
}
