package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the HTTP surface and the
// mutation pipeline.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	mutationsTotal   *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	tasksEnqueued    *prometheus.CounterVec
}

// NewMetrics builds a self-contained registry with all instruments
// registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tix_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tix_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tix_mutations_total",
			Help: "Mutations by name and outcome.",
		}, []string{"mutation", "outcome"}),
		mutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tix_mutation_duration_seconds",
			Help:    "Mutation pipeline latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mutation"}),
		tasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tix_tasks_enqueued_total",
			Help: "Background tasks enqueued by type.",
		}, []string{"task_type"}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.mutationsTotal,
		m.mutationDuration,
		m.tasksEnqueued,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveMutation records one executed mutation.
func (m *Metrics) ObserveMutation(name, outcome string, elapsed time.Duration) {
	m.mutationsTotal.WithLabelValues(name, outcome).Inc()
	m.mutationDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveTaskEnqueued records a background task entering the queue.
func (m *Metrics) ObserveTaskEnqueued(taskType string) {
	m.tasksEnqueued.WithLabelValues(taskType).Inc()
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
