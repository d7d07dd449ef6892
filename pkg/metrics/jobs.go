package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "distribridge"

// JobMetrics records outcomes of the externally triggered sync jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of sync job runs in seconds.",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Sync job runs by result (success, failure, skipped).",
	}, []string{"job", "result"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_items_total",
		Help:      "Items processed by sync jobs by outcome (updated, error).",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, runs, items)
	return &JobMetrics{
		duration: duration,
		runs:     runs,
		items:    items,
	}
}

// ObserveDuration records the duration for the named job.
func (m *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *JobMetrics) IncSuccess(job string) {
	m.incRun(job, "success")
}

// IncFailure increments the failure counter for the named job.
func (m *JobMetrics) IncFailure(job string) {
	m.incRun(job, "failure")
}

// IncSkipped counts runs that found the job lock already held.
func (m *JobMetrics) IncSkipped(job string) {
	m.incRun(job, "skipped")
}

// AddItems adds per-item outcome counts from one run.
func (m *JobMetrics) AddItems(job string, updated, errors int) {
	if m == nil || m.items == nil {
		return
	}
	label := normalizeLabel(job)
	m.items.WithLabelValues(label, "updated").Add(float64(updated))
	m.items.WithLabelValues(label, "error").Add(float64(errors))
}

func (m *JobMetrics) incRun(job, result string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
