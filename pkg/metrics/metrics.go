// Package metrics defines the Prometheus collectors for index builds, the
// query path and the HTTP surface, and serves them for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "termsearch"

// Outcome label values for SearchQueriesTotal.
const (
	OutcomeHit        = "hit"
	OutcomeZeroResult = "zero_result"
	OutcomeCached     = "cached"
	OutcomeError      = "error"
)

type Metrics struct {
	// HTTP surface, labelled by method and normalized path.
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Query path.
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	// Index builds.
	DocsIndexedTotal   prometheus.Counter
	DocsFailedTotal    prometheus.Counter
	IndexTerms         prometheus.Gauge
	IndexDocuments     prometheus.Gauge
	IndexBuildDuration prometheus.Histogram
}

// New registers every collector on reg, or on the default registerer when
// reg is nil. Registering twice on one registry panics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	latency := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served, by method, path and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Wall time spent serving an HTTP request.",
			Buckets: append(latency, 2.5, 5),
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),

		SearchQueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "search", Name: "queries_total",
			Help: "Single-term queries answered, by outcome.",
		}, []string{"outcome"}),
		SearchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "latency_seconds",
			Help:    "Time to rank one query, split by whether the cache answered it.",
			Buckets: latency,
		}, []string{"cache_status"}),
		SearchResultsCount: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "results",
			Help:    "Ranked documents returned per query, after the top-k cut.",
			Buckets: []float64{0, 1, 2, 5, 10},
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Query results served from Redis.",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Queries Redis could not answer, including bypasses while the breaker is open.",
		}),

		DocsIndexedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "index", Name: "documents_indexed_total",
			Help: "Documents tokenized into an index.",
		}),
		DocsFailedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "index", Name: "documents_failed_total",
			Help: "Documents left out of an index because they could not be read.",
		}),
		IndexTerms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "index", Name: "terms",
			Help: "Distinct terms in the most recent index.",
		}),
		IndexDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "index", Name: "documents",
			Help: "Documents listed in the most recent index, readable or not.",
		}),
		IndexBuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "index", Name: "build_duration_seconds",
			Help:    "Time to list, read and tokenize the whole corpus.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

// Handler serves gatherer, or the default gatherer when it is nil.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
