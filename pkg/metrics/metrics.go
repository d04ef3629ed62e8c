// Package metrics defines the Prometheus collectors used by the indexer and
// the search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     prometheus.Counter
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     *prometheus.CounterVec
	ArtifactLoadsTotal   *prometheus.CounterVec
	IndexTerms           prometheus.Gauge
	IndexDocuments       prometheus.Gauge
	VectorDocuments      *prometheus.GaugeVec
	VectorTerms          *prometheus.GaugeVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_requests_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Search queries by mode (vector, boolean) and result type (hit, zero_result, error).",
			},
			[]string{"mode", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"mode", "cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of matching documents per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
			[]string{"mode"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Documents processed by the indexer per artifact (index, tokens, lemmas).",
			},
			[]string{"artifact"},
		),
		ArtifactLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_loads_total",
				Help: "Artifact loads and writes by artifact and status.",
			},
			[]string{"artifact", "status"},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inverted_index_terms",
				Help: "Number of lemmas in the loaded inverted index.",
			},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inverted_index_documents",
				Help: "Number of documents in the loaded inverted index.",
			},
		),
		VectorDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vector_store_documents",
				Help: "Number of loaded document vectors.",
			},
			[]string{"source"},
		),
		VectorTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vector_store_terms",
				Help: "Number of terms in the global IDF table.",
			},
			[]string{"source"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RateLimitedTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.ArtifactLoadsTotal,
		m.IndexTerms,
		m.IndexDocuments,
		m.VectorDocuments,
		m.VectorTerms,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveSearch records one finished query.
func (m *Metrics) ObserveSearch(mode string, hits int, cacheHit bool, seconds float64, err error) {
	if m == nil {
		return
	}
	resultType := "hit"
	switch {
	case err != nil:
		resultType = "error"
	case hits == 0:
		resultType = "zero_result"
	}
	m.SearchQueriesTotal.WithLabelValues(mode, resultType).Inc()
	if err != nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	m.SearchLatency.WithLabelValues(mode, cacheStatus).Observe(seconds)
	m.SearchResultsCount.WithLabelValues(mode).Observe(float64(hits))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
