package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HeartbeatsAccepted counts heartbeats that passed the full acceptance
	// pipeline and were appended to the log.
	HeartbeatsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeats_accepted_total",
			Help: "Total number of accepted heartbeats",
		},
	)

	// HeartbeatsRejected counts rejected heartbeats by rejection reason.
	HeartbeatsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartbeats_rejected_total",
			Help: "Total number of rejected heartbeats",
		},
		[]string{"reason"},
	)

	// RecomputeJobsProcessed counts recompute jobs completed successfully.
	RecomputeJobsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recompute_jobs_processed_total",
			Help: "Total number of recompute jobs completed successfully",
		},
	)

	// RecomputeJobsFailed counts failed recompute attempts. The permanent
	// label separates retryable failures from jobs that exhausted their
	// attempts.
	RecomputeJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recompute_jobs_failed_total",
			Help: "Total number of failed recompute job attempts",
		},
		[]string{"permanent"},
	)
)
