// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntakeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of application submissions by outcome",
		},
		[]string{"outcome"},
	)

	IntakeStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_step_failures_total",
			Help: "Total number of failed intake steps",
		},
		[]string{"step"},
	)

	IntakeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_duration_seconds",
			Help:    "Duration of one intake orchestration run in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	FollowUpResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_results_total",
			Help: "Total number of follow-up scheduler results by status",
		},
		[]string{"status"},
	)

	FollowUpSendAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_send_attempts_total",
			Help: "Total number of mail transport attempts by outcome",
		},
		[]string{"outcome"},
	)

	TaskStoreKeyResolution = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskstore_key_resolution_total",
			Help: "Key attribute resolutions by source",
		},
		[]string{"source"},
	)

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
)
