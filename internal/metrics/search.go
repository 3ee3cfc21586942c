package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests by mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: ok / degraded / malformed / invalid / unavailable / error
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "backend_duration_seconds",
			Help:      "Retrieval backend call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend", "status"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_degraded_total",
			Help:      "Searches served without the vector backend",
		},
		[]string{"reason"}, // embedder / vector
	)

	RewriteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rewrite_total",
			Help:      "Query rewrite attempts by outcome",
		},
		[]string{"outcome"}, // unchanged / pattern / model / model_rejected / model_error
	)

	SuggestCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "suggest_cache_total",
			Help:      "Suggestion cache hits and misses",
		},
		[]string{"result"},
	)

	HistoryWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_writes_total",
			Help:      "Search history writes by status",
		},
		[]string{"status"}, // ok / error / dropped
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(BackendDuration)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(RewriteTotal)
	prometheus.MustRegister(SuggestCacheTotal)
	prometheus.MustRegister(HistoryWritesTotal)
	searchMetricsRegistered = true
}
