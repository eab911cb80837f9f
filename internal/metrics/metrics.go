package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder publishes Prometheus metrics for request, cache, and rate-limit
// activity. It satisfies the cache and ratelimit observer interfaces so those
// packages stay free of prometheus imports.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	cacheOperations    *prometheus.CounterVec
	rateLimitDecisions *prometheus.CounterVec
	tasksEnqueued      *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a
// dedicated registry is created so multiple recorders can coexist without
// conflicting with the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supablog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests processed, by method, route, and status code.",
	}, []string{"method", "route", "status_code"})

	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "supablog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for completed HTTP requests.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"})

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supablog",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Cache operations executed, by operation and result.",
	}, []string{"operation", "result"})

	rateLimitDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supablog",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limiter admission decisions, by outcome.",
	}, []string{"outcome"})

	tasksEnqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supablog",
		Subsystem: "tasks",
		Name:      "enqueued_total",
		Help:      "Background tasks submitted, by task name.",
	}, []string{"task"})

	reg.MustRegister(httpRequests, httpLatency, cacheOperations, rateLimitDecisions, tasksEnqueued)

	return &Recorder{
		gatherer:           reg,
		handler:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		httpRequests:       httpRequests,
		httpLatency:        httpLatency,
		cacheOperations:    cacheOperations,
		rateLimitDecisions: rateLimitDecisions,
		tasksEnqueued:      tasksEnqueued,
	}
}

// Handler serves the /metrics scrape endpoint.
func (r *Recorder) Handler() http.Handler { return r.handler }

// Gatherer exposes the underlying registry for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.gatherer }

// ObserveRequest records one completed HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCache implements the cache observer.
func (r *Recorder) ObserveCache(operation, outcome string) {
	r.cacheOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRateLimit implements the ratelimit observer.
func (r *Recorder) ObserveRateLimit(outcome string) {
	r.rateLimitDecisions.WithLabelValues(outcome).Inc()
}

// ObserveTaskEnqueued counts a submitted background task.
func (r *Recorder) ObserveTaskEnqueued(task string) {
	r.tasksEnqueued.WithLabelValues(task).Inc()
}
