// Package jobmetrics exposes Prometheus collectors for background jobs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks background task executions.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When
// the registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitop_jobs_total",
		Help: "Background task executions by type.",
	}, []string{"task"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitop_jobs_failures_total",
		Help: "Background task failures by type.",
	}, []string{"task"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monitop_jobs_duration_seconds",
		Help:    "Background task duration by type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	registerer.MustRegister(runs, failures, duration)
	return &Metrics{runs: runs, failures: failures, duration: duration}
}

// Tracker observes one task execution.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts observing a task execution.
func (m *Metrics) Track(task string) *Tracker {
	if m == nil {
		return nil
	}
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// End records the execution outcome and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil {
		return err
	}
	t.metrics.runs.WithLabelValues(t.task).Inc()
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	if err != nil {
		t.metrics.failures.WithLabelValues(t.task).Inc()
	}
	return err
}
