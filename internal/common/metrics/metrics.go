// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	HTTPNodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_node_requests_total",
			Help: "Total number of outbound HTTP requests by method and status class",
		},
		[]string{"method", "status_class"},
	)

	HTTPNodeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_node_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	HTTPNodeItemFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_node_item_failures_total",
			Help: "Total number of items that failed, by error kind",
		},
		[]string{"kind"},
	)
)

// StatusClass buckets a status code as "2xx".."5xx", or "error" when no response arrived.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return string(rune('0'+status/100)) + "xx"
}
