package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobRunsTotal, jobDuration)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Scheduler job runs, by job name and result (ok/error).",
		},
		[]string{"job", "result"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of scheduler job runs.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func ObserveJobRun(job string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRunsTotal.WithLabelValues(norm(job), result).Inc()
	jobDuration.WithLabelValues(norm(job)).Observe(d.Seconds())
}
