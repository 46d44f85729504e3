// Package metrics holds the Prometheus collectors of the price API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder becomes a
// no-op, which keeps unit tests free of registries.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups    *prometheus.CounterVec   // labels: kind, result
	ComputeDuration *prometheus.HistogramVec // labels: kind
	ComputeErrors   *prometheus.CounterVec   // labels: kind, reason
	CacheFlushes    prometheus.Counter
	RefreshTriggers *prometheus.CounterVec // labels: outcome
	HTTPRequests    *prometheus.CounterVec // labels: route, code
	HTTPDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pse_cache_lookups_total",
			Help: "Cache lookups by key kind and result (hit|miss|error)",
		}, []string{"kind", "result"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pse_compute_duration_seconds",
			Help:    "Time spent reconciling a response on cache miss",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		ComputeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pse_compute_errors_total",
			Help: "Failed computations by key kind and reason (not_found|io)",
		}, []string{"kind", "reason"}),
		CacheFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pse_cache_flushes_total",
			Help: "Explicit cache invalidations",
		}),
		RefreshTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pse_refresh_triggers_total",
			Help: "Ingestion webhook calls by outcome",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pse_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pse_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.ComputeDuration,
		m.ComputeErrors,
		m.CacheFlushes,
		m.RefreshTriggers,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveCompute(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.ComputeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) ComputeError(kind, reason string) {
	if m == nil {
		return
	}
	m.ComputeErrors.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) CacheFlushed() {
	if m == nil {
		return
	}
	m.CacheFlushes.Inc()
}

func (m *Metrics) RefreshTriggered(outcome string) {
	if m == nil {
		return
	}
	m.RefreshTriggers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
