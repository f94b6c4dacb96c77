package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drifts   *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
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

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddDrifts counts accounts whose stored balance disagrees with ledger history.
func (m *Metrics) AddDrifts(orgID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.drifts.WithLabelValues(strconv.FormatInt(orgID, 10)).Add(float64(count))
}

// Skip counts a job run skipped because another worker held its lock.
func (m *Metrics) Skip(job string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(job).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	drifts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_balance_drifts_total",
		Help: "Accounts found with a stored balance differing from ledger history.",
	}, []string{"org"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_skipped_total",
		Help: "Job runs skipped because the lock was held elsewhere.",
	}, []string{"job"})
	registerer.MustRegister(runs, failures, duration, drifts, skipped)
	return &Metrics{runs: runs, failures: failures, duration: duration, drifts: drifts, skipped: skipped}
}
