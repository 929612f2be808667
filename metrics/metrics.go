// Package metrics exposes Prometheus instrumentation for the webarchive server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry so
// tests can create instances without collector name collisions.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls         *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	rateLimitTimeouts *prometheus.CounterVec
	acquireWait       prometheus.Histogram
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webarchive",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webarchive",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution time including archive round trips.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"tool"}),
		rateLimitTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webarchive",
			Name:      "rate_limit_timeouts_total",
			Help:      "Callers that gave up waiting for a rate limit slot.",
		}, []string{"tool"}),
		acquireWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webarchive",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for rate limit admission.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 120},
		}),
	}

	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.rateLimitTimeouts,
		m.acquireWait,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveToolCall records one tool invocation.
func (m *Metrics) ObserveToolCall(tool string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RateLimitTimeout records a caller abandoning the admission queue.
func (m *Metrics) RateLimitTimeout(tool string) {
	m.rateLimitTimeouts.WithLabelValues(tool).Inc()
}

// ObserveAcquireWait records how long admission took.
func (m *Metrics) ObserveAcquireWait(d time.Duration) {
	m.acquireWait.Observe(d.Seconds())
}

// RegisterQueueDepth publishes the limiter's queue depth as a gauge. The
// callback is invoked at scrape time.
func (m *Metrics) RegisterQueueDepth(depth func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "webarchive",
		Name:      "rate_limit_queue_depth",
		Help:      "Callers currently waiting for rate limit admission.",
	}, depth))
}
