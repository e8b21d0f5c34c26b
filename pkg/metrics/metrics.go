// Package metrics defines the Prometheus collectors of the search service.
// Every series lives under the "docsearch" namespace. Search series are
// labelled by scope: the collection searched, or "_all" for fan-out.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsearch"

// AllScope labels searches that fanned out over every collection.
const AllScope = "_all"

var latencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     prometheus.Counter

	Searches       *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec
	SearchHits     *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec

	IndexLoads        *prometheus.CounterVec
	CollectionSize    *prometheus.GaugeVec
	ActiveCollections prometheus.Gauge

	CircuitBreakerState *prometheus.GaugeVec
}

// New builds the collectors and registers them with reg, or with the
// default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: latencyBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests being served.",
		}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),

		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "search", Name: "queries_total",
			Help: "Searches by scope and outcome (hit, miss, zero_result).",
		}, []string{"scope", "outcome"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "duration_seconds",
			Help:    "Time to answer a search, cache lookup included.",
			Buckets: latencyBuckets,
		}, []string{"scope"}),
		SearchHits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "total_hits",
			Help:    "Matching documents per search before the limit is applied.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"scope"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Result cache lookups by result (hit, miss).",
		}, []string{"result"}),

		IndexLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "index", Name: "loads_total",
			Help: "Index file loads by collection and status (ok, unchanged, error).",
		}, []string{"collection", "status"}),
		CollectionSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "index", Name: "size",
			Help: "Documents and distinct terms in each served index.",
		}, []string{"collection", "kind"}),
		ActiveCollections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "index", Name: "collections",
			Help: "Collections configured in this process.",
		}),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight, m.RateLimitedTotal,
		m.Searches, m.SearchDuration, m.SearchHits, m.CacheLookups,
		m.IndexLoads, m.CollectionSize, m.ActiveCollections,
		m.CircuitBreakerState,
	)
	return m
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// The Record methods accept a nil receiver so library callers without a
// registry share code paths with the server.

// RecordLoad counts an index load attempt. A successful load also sets the
// collection's size gauges.
func (m *Metrics) RecordLoad(collection, status string, docs, terms int) {
	if m == nil {
		return
	}
	m.IndexLoads.WithLabelValues(collection, status).Inc()
	if status == "ok" {
		m.CollectionSize.WithLabelValues(collection, "documents").Set(float64(docs))
		m.CollectionSize.WithLabelValues(collection, "terms").Set(float64(terms))
	}
}

// RecordSearch observes one answered search. An empty scope is recorded as
// AllScope.
func (m *Metrics) RecordSearch(scope, cacheStatus string, seconds float64, totalHits int) {
	if m == nil {
		return
	}
	if scope == "" {
		scope = AllScope
	}
	outcome := cacheStatus
	if totalHits == 0 {
		outcome = "zero_result"
	}
	m.Searches.WithLabelValues(scope, outcome).Inc()
	m.SearchDuration.WithLabelValues(scope).Observe(seconds)
	m.SearchHits.WithLabelValues(scope).Observe(float64(totalHits))
}

// RecordCacheLookup counts one result-cache lookup.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
