package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vietddude/genie/internal/metrics"
)

// Operation is a unit of work that may be invoked more than once.
// Callers must make it safe to repeat.
type Operation[T any] func(ctx context.Context) (T, error)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// AttemptOutcome describes a single attempt. It is only handed to observers.
type AttemptOutcome struct {
	Label     string
	Attempt   int
	Succeeded bool
	Err       error
	Category  Category
	Delay     time.Duration // Backoff before the next attempt, zero when giving up
}

// Executor runs operations under a Policy.
// It holds no mutable state and is safe for concurrent use.
type Executor struct {
	policy   Policy
	classify Classifier
	observe  func(AttemptOutcome)
	sleep    SleepFunc
	random   func() float64
	log      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithClassifier replaces Classify.
func WithClassifier(c Classifier) Option {
	return func(e *Executor) { e.classify = c }
}

// WithObserver registers fn to receive every AttemptOutcome.
func WithObserver(fn func(AttemptOutcome)) Option {
	return func(e *Executor) { e.observe = fn }
}

// WithSleep replaces the backoff sleep. Mostly useful in tests.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithRandom sets the jitter source; fn must return values in [0,1).
func WithRandom(fn func() float64) Option {
	return func(e *Executor) { e.random = fn }
}

// NewExecutor creates an executor for policy. A policy that fails Validate is
// replaced by DefaultPolicy and the problem is logged; use NewPolicy to
// surface it as an error instead.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{
		policy:   policy,
		classify: Classify,
		sleep:    sleepContext,
		random:   rand.Float64,
		log:      slog.Default().With("component", "retry"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := policy.Validate(); err != nil {
		e.log.Error("Invalid retry policy, using defaults", "error", err)
		e.policy = DefaultPolicy()
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute invokes op until it succeeds, fails with a non-retryable error, or
// the retry budget is spent. The last error is returned as-is so callers can
// still inspect it. label only appears in diagnostics.
func Execute[T any](ctx context.Context, e *Executor, label string, op Operation[T]) (T, error) {
	if e == nil {
		e = NewExecutor(DefaultPolicy())
	}

	var zero T
	maxRetries := max(e.policy.MaxRetries, 0)

	// The loop only exits through a return.
	for attempt := 0; ; attempt++ {
		e.log.Debug("Executing operation", "label", label, "attempt", attempt+1, "max_attempts", maxRetries+1)

		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				e.log.Info("Operation succeeded after retry", "label", label, "attempt", attempt+1)
			}
			e.notify(AttemptOutcome{Label: label, Attempt: attempt, Succeeded: true})
			metrics.RetryOutcomesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
			return result, nil
		}

		category := e.classify(err)
		metrics.RetryAttemptsTotal.WithLabelValues(category.String()).Inc()

		if !category.Retryable() {
			e.log.Warn("Operation failed with non-retryable error",
				"label", label, "attempt", attempt+1, "error", err)
			e.notify(AttemptOutcome{Label: label, Attempt: attempt, Err: err, Category: category})
			metrics.RetryOutcomesTotal.WithLabelValues(metrics.OutcomeNonRetryable).Inc()
			return zero, err
		}

		if attempt == maxRetries {
			e.log.Error("Operation failed, retries exhausted",
				"label", label, "attempts", attempt+1, "category", category, "error", err)
			e.notify(AttemptOutcome{Label: label, Attempt: attempt, Err: err, Category: category})
			metrics.RetryOutcomesTotal.WithLabelValues(metrics.OutcomeExhausted).Inc()
			return zero, err
		}

		delay := e.policy.JitteredDelay(attempt, e.random())
		e.log.Warn("Operation failed, retrying",
			"label", label, "attempt", attempt+1, "category", category, "delay", delay, "error", err)
		e.notify(AttemptOutcome{Label: label, Attempt: attempt, Err: err, Category: category, Delay: delay})
		metrics.RetryBackoffSeconds.Observe(delay.Seconds())

		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			metrics.RetryOutcomesTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
			return zero, errors.Join(sleepErr, err)
		}
	}
}

func (e *Executor) notify(o AttemptOutcome) {
	if e.observe != nil {
		e.observe(o)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
