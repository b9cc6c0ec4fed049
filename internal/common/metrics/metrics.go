// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_runs_total",
			Help: "Total number of matching runs by algorithm and status",
		},
		[]string{"algorithm", "status"},
	)

	MatchingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matching_run_duration_seconds",
			Help: "Duration of matching runs in seconds",
		},
		[]string{"algorithm"},
	)

	MatchingPairsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_pairs_scored_total",
			Help: "Total number of (student, project) pairs scored",
		},
		[]string{"algorithm"},
	)

	MatchingResultsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_results_persisted_total",
			Help: "Total number of matching results written to storage",
		},
		[]string{"algorithm"},
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
