package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for stored procedure runs, whether
// triggered from an HTTP action or a background task.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the run metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single run.
type Tracker struct {
	metrics *Metrics
	action  string
	start   time.Time
}

// Track spawns a tracker for the given action name.
func (m *Metrics) Track(action string) *Tracker {
	if m == nil {
		return &Tracker{action: action, start: time.Now()}
	}
	return &Tracker{metrics: m, action: action, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.action == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.action).Inc()
	}
	t.metrics.runs.WithLabelValues(t.action, status).Inc()
	t.metrics.duration.WithLabelValues(t.action).Observe(time.Since(t.start).Seconds())
	return err
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelcast_procedure_runs_total",
		Help: "Stored procedure runs partitioned by action and status.",
	}, []string{"action", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelcast_procedure_failures_total",
		Help: "Failed stored procedure runs per action.",
	}, []string{"action"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fuelcast_procedure_duration_seconds",
		Help:    "Duration in seconds of stored procedure runs.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"action"})
	registerer.MustRegister(runs, failures, duration)
	return &Metrics{runs: runs, failures: failures, duration: duration}
}
