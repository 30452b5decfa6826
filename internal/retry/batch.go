package retry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/genie/internal/metrics"
)

// Job is an operation submitted as part of a batch.
type Job[T any] struct {
	Label     string
	Operation Operation[T]
}

// Success records a job that returned a result. Index is the job's position
// in the submitted slice.
type Success[T any] struct {
	Index  int
	Label  string
	Result T
}

// Failure records a job whose retries were exhausted or hit a non-retryable error.
type Failure struct {
	Index int
	Label string
	Err   error
}

// BatchResult aggregates every job outcome of one ExecuteBatch call.
type BatchResult[T any] struct {
	Successes      []Success[T]
	Failures       []Failure
	TotalProcessed int
	SuccessRate    float64 // Percentage in [0,100]
}

// SuccessRatePercent formats SuccessRate with one decimal, e.g. "80.0".
func (r BatchResult[T]) SuccessRatePercent() string {
	return fmt.Sprintf("%.1f", r.SuccessRate)
}

// BatchOptions controls grouping and throttling.
type BatchOptions struct {
	Concurrency int           // Jobs in flight per group; <= 0 means 3
	BatchDelay  time.Duration // Pause between groups; negative means none
}

// DefaultBatchOptions provides sensible defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Concurrency: 3,
		BatchDelay:  500 * time.Millisecond,
	}
}

// ExecuteBatch splits jobs into consecutive groups of opts.Concurrency, runs
// each group concurrently through Execute and waits for the whole group
// before pausing opts.BatchDelay and starting the next one. A failing job
// never cancels its siblings. ExecuteBatch itself never fails; if ctx ends
// between groups, unstarted jobs are reported as failures.
func ExecuteBatch[T any](ctx context.Context, e *Executor, jobs []Job[T], opts BatchOptions) BatchResult[T] {
	if e == nil {
		e = NewExecutor(DefaultPolicy())
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultBatchOptions().Concurrency
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}

	start := time.Now()
	type outcome struct {
		result T
		err    error
	}
	outcomes := make([]outcome, len(jobs))
	log := e.log.With("batch_size", len(jobs), "concurrency", opts.Concurrency)

	for groupStart := 0; groupStart < len(jobs); groupStart += opts.Concurrency {
		var err error
		if groupStart > 0 && opts.BatchDelay > 0 {
			err = e.sleep(ctx, opts.BatchDelay)
		}
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			log.Warn("Batch interrupted", "remaining", len(jobs)-groupStart, "error", err)
			for i := groupStart; i < len(jobs); i++ {
				outcomes[i].err = err
			}
			break
		}

		groupEnd := min(groupStart+opts.Concurrency, len(jobs))
		log.Debug("Starting batch group", "from", groupStart, "to", groupEnd-1)

		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i := groupStart; i < groupEnd; i++ {
			job := jobs[i]
			g.Go(func() error {
				res, err := Execute(ctx, e, job.Label, job.Operation)
				outcomes[i] = outcome{result: res, err: err}
				return nil // Never abort siblings
			})
		}
		_ = g.Wait()
	}

	result := BatchResult[T]{TotalProcessed: len(jobs)}
	for i, o := range outcomes {
		if o.err != nil {
			result.Failures = append(result.Failures, Failure{Index: i, Label: jobs[i].Label, Err: o.err})
			metrics.BatchJobsTotal.WithLabelValues("failed").Inc()
			continue
		}
		result.Successes = append(result.Successes, Success[T]{Index: i, Label: jobs[i].Label, Result: o.result})
		metrics.BatchJobsTotal.WithLabelValues("succeeded").Inc()
	}
	if result.TotalProcessed > 0 {
		result.SuccessRate = float64(len(result.Successes)) / float64(result.TotalProcessed) * 100
	}

	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	log.Info("Batch completed",
		"succeeded", len(result.Successes),
		"failed", len(result.Failures),
		"success_rate", result.SuccessRatePercent())

	return result
}
