package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_jobs_processed_total",
		Help: "Background job executions, labeled by job and status.",
	},
	[]string{"job", "status"}, // job='pending_sweeper'|'notify', status='ok'|'error'|'dropped'
)

func IncJob(job, status string) {
	jobsProcessedTotal.WithLabelValues(norm(job), norm(status)).Inc()
}
