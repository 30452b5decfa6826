package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttemptsTotal tracks failed attempts by error category
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genie_retry_attempts_total",
			Help: "Total number of failed operation attempts",
		},
		[]string{"category"},
	)

	// RetryOutcomesTotal tracks how each executed operation ended
	RetryOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genie_retry_outcomes_total",
			Help: "Total number of executed operations by final outcome",
		},
		[]string{"outcome"},
	)

	// RetryBackoffSeconds tracks the jittered delay slept before a retry
	RetryBackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genie_retry_backoff_seconds",
			Help:    "Backoff delay before a retry in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	// BatchJobsTotal tracks batch job results
	BatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genie_batch_jobs_total",
			Help: "Total number of batch jobs by status",
		},
		[]string{"status"},
	)

	// BatchDuration tracks wall time of a whole batch
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genie_batch_duration_seconds",
			Help:    "Batch execution time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DBConnectionPoolUsage tracks open connections as a share of the pool limit
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genie_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the pool limit",
		},
	)

	// DeadLetterDepth tracks the number of leads waiting for replay
	DeadLetterDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genie_dead_letter_depth",
			Help: "Number of failed lookups waiting in the dead-letter queue",
		},
	)
)

// Outcome labels for RetryOutcomesTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeExhausted    = "exhausted"
	OutcomeNonRetryable = "non_retryable"
	OutcomeCancelled    = "cancelled"
)
