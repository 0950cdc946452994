package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "msesync"

// Window request results.
const (
	WindowOK    = "ok"
	WindowEmpty = "empty"
	WindowError = "error"
)

// Metrics holds the sync collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	runs        prometheus.Counter
	outcomes    *prometheus.CounterVec
	windows     *prometheus.CounterVec
	rowsSaved   prometheus.Counter
	activeJobs  prometheus.Gauge
	jobDuration prometheus.Histogram
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs started.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuer_outcomes_total",
			Help:      "Terminal issuer outcomes by status.",
		}, []string{"status"}),
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_requests_total",
			Help:      "Year window requests by result.",
		}, []string{"result"}),
		rowsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_saved_total",
			Help:      "History rows handed to storage.",
		}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Sync jobs currently running.",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of one issuer sync job.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	reg.MustRegister(
		m.runs, m.outcomes, m.windows, m.rowsSaved, m.activeJobs, m.jobDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted counts a new run.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runs.Inc()
}

// JobStarted marks a job active.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.activeJobs.Inc()
}

// JobFinished records a job's terminal status and duration.
func (m *Metrics) JobFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.activeJobs.Dec()
	m.outcomes.WithLabelValues(status).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// Outcome counts an issuer outcome that never ran a job (up to date).
func (m *Metrics) Outcome(status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
}

// Window counts one year window request.
func (m *Metrics) Window(result string) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(result).Inc()
}

// RowsSaved adds persisted rows.
func (m *Metrics) RowsSaved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsSaved.Add(float64(n))
}
