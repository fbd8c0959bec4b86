// Package metrics exposes the Prometheus collectors for crawlgate.
//
// Collectors are bound to a caller-supplied registry so several instances
// can coexist in one process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crawlgate"

type Collectors struct {
	robotsDecisions      *prometheus.CounterVec
	robotsRefresh        *prometheus.CounterVec
	robotsFetchDuration  prometheus.Histogram
	robotsCacheEvictions prometheus.Counter
	admissionDecisions   *prometheus.CounterVec
	admissionRetryAfter  prometheus.Histogram
	admissionPurged      prometheus.Counter
	errors               *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. When reg is also a Gatherer,
// Handler serves it.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	c := &Collectors{
		robotsDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "robots_decisions_total",
				Help:      "Robots policy decisions, labeled by outcome code.",
			},
			[]string{"outcome"},
		),
		robotsRefresh: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "robots_refresh_total",
				Help:      "Robots policy refreshes, labeled by result.",
			},
			[]string{"result"},
		),
		robotsFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "robots_fetch_duration_seconds",
				Help:      "Latency of robots.txt document fetches.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		robotsCacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "robots_cache_evictions_total",
				Help:      "Policy entries evicted because the cache was full.",
			},
		),
		admissionDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_decisions_total",
				Help:      "Admission gate decisions, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		admissionRetryAfter: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "admission_retry_after_seconds",
				Help:      "Retry-after durations handed to denied callers.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		admissionPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_records_purged_total",
				Help:      "Admission records removed by stale purges.",
			},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Absorbed errors, labeled by package and cause.",
			},
			[]string{"package", "cause"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP API latencies, labeled by method and route.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// Handler serves the collectors' registry, or the default gatherer when the
// registry cannot be gathered.
func (c *Collectors) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collectors) ObserveRobotsDecision(outcome string) {
	c.robotsDecisions.WithLabelValues(outcome).Inc()
}

func (c *Collectors) ObserveRobotsRefresh(result string, fetchDuration time.Duration) {
	c.robotsRefresh.WithLabelValues(result).Inc()
	if fetchDuration > 0 {
		c.robotsFetchDuration.Observe(fetchDuration.Seconds())
	}
}

func (c *Collectors) ObserveEviction() {
	c.robotsCacheEvictions.Inc()
}

func (c *Collectors) ObserveAdmission(granted bool, retryAfter time.Duration) {
	if granted {
		c.admissionDecisions.WithLabelValues("granted").Inc()
		return
	}
	c.admissionDecisions.WithLabelValues("denied").Inc()
	c.admissionRetryAfter.Observe(retryAfter.Seconds())
}

func (c *Collectors) ObservePurge(removed int) {
	if removed > 0 {
		c.admissionPurged.Add(float64(removed))
	}
}

func (c *Collectors) ObserveError(pkg string, cause string) {
	c.errors.WithLabelValues(pkg, cause).Inc()
}

func (c *Collectors) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
