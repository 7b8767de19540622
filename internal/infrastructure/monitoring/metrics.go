// Package monitoring exposes Prometheus metrics for the HTTP surface and
// the script engine.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortunadb/ateles/internal/engine"
)

// Metrics holds all Prometheus metrics on a private registry. It
// implements engine.Recorder so sessions and workers report telemetry
// without depending on this package.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Engine metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	SessionsActive  prometheus.Gauge
	SessionsTotal   prometheus.Counter
	SessionFaults   prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

var _ engine.Recorder = (*Metrics)(nil)

// New creates a metrics collector.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ateles_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ateles_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ateles_commands_total",
				Help: "Total script commands executed",
			},
			[]string{"operation", "outcome"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ateles_command_duration_seconds",
				Help:    "Script command execution time in seconds",
				Buckets: []float64{.0001, .001, .01, .05, .1, .5, 1, 5, 30, 60},
			},
			[]string{"operation"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ateles_sessions_active",
				Help: "Sessions currently holding an execution context",
			},
		),
		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ateles_sessions_total",
				Help: "Total sessions created",
			},
		),
		SessionFaults: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ateles_session_faults_total",
				Help: "Sessions torn down by an unrecoverable engine fault",
			},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ateles_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Handler serves the scrape endpoint for this collector's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// SessionStarted implements engine.Recorder.
func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

// SessionEnded implements engine.Recorder.
func (m *Metrics) SessionEnded() {
	m.SessionsActive.Dec()
}

// SessionFaulted implements engine.Recorder.
func (m *Metrics) SessionFaulted() {
	m.SessionFaults.Inc()
}

// CommandExecuted implements engine.Recorder.
func (m *Metrics) CommandExecuted(op string, ok bool, duration time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.CommandsTotal.WithLabelValues(op, outcome).Inc()
	m.CommandDuration.WithLabelValues(op).Observe(duration.Seconds())
}
