package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_jobs_total",
			Help: "Total number of jobs finished, by terminal status.",
		},
		[]string{"status"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forge_job_duration_seconds",
			Help:    "Time from a worker claiming a job to its terminal status, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_queue_depth",
			Help: "Number of submitted jobs not yet claimed by a worker.",
		},
	)

	workersBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_workers_busy",
			Help: "Number of workers currently executing a task.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal)
	prometheus.MustRegister(jobDuration)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(workersBusy)

	// Pre-initialize label combinations so they appear in /metrics with
	// value 0 from startup.
	jobsTotal.WithLabelValues("done")
	jobsTotal.WithLabelValues("failed")
}
