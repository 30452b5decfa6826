// Package retry executes flaky operations with exponential backoff and runs
// batches of them under bounded concurrency.
//
// This package contains:
//   - Policy: immutable retry budget and backoff shape
//   - Executor: runs one Operation until success or give-up
//   - Classify: maps errors onto a closed set of retry categories
//   - ExecuteBatch: groups jobs, runs each group concurrently, throttles between groups
//
// Classify consults structured signals before message text: Permanent and
// Categorize markers, context errors, gRPC status codes, then transport
// errors. The legacy substring table is the last resort, so a gRPC
// InvalidArgument whose message mentions "unavailable" is not retried.
package retry

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPolicy is returned by NewPolicy when a field is out of range.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Policy defines retry behavior. It is a value type and safe to share.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

// DefaultPolicy provides sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     5,
		BaseDelay:      1 * time.Second,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.1,
	}
}

// PolicyOption overrides a single field of the default policy.
type PolicyOption func(*Policy)

func WithMaxRetries(n int) PolicyOption {
	return func(p *Policy) { p.MaxRetries = n }
}

func WithBaseDelay(d time.Duration) PolicyOption {
	return func(p *Policy) { p.BaseDelay = d }
}

func WithMaxDelay(d time.Duration) PolicyOption {
	return func(p *Policy) { p.MaxDelay = d }
}

func WithJitterFraction(f float64) PolicyOption {
	return func(p *Policy) { p.JitterFraction = f }
}

// NewPolicy starts from DefaultPolicy, applies opts and validates the result.
func NewPolicy(opts ...PolicyOption) (Policy, error) {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate reports whether every field is within range.
func (p Policy) Validate() error {
	switch {
	case p.MaxRetries < 0:
		return fmt.Errorf("%w: max retries %d is negative", ErrInvalidPolicy, p.MaxRetries)
	case p.BaseDelay <= 0:
		return fmt.Errorf("%w: base delay %v must be positive", ErrInvalidPolicy, p.BaseDelay)
	case p.MaxDelay < p.BaseDelay:
		return fmt.Errorf("%w: max delay %v is below base delay %v", ErrInvalidPolicy, p.MaxDelay, p.BaseDelay)
	case p.JitterFraction < 0 || p.JitterFraction > 1 || math.IsNaN(p.JitterFraction):
		return fmt.Errorf("%w: jitter fraction %v outside [0,1]", ErrInvalidPolicy, p.JitterFraction)
	}
	return nil
}

// MaxAttempts is the total number of invocations the policy allows.
func (p Policy) MaxAttempts() int {
	return p.MaxRetries + 1
}

// Delay returns the pre-jitter backoff before the attempt following attempt:
// min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// JitteredDelay spreads Delay(attempt) by up to ±JitterFraction.
// r must be uniform in [0,1); the result is never negative.
func (p Policy) JitteredDelay(attempt int, r float64) time.Duration {
	delay := float64(p.Delay(attempt))
	jitterAmount := delay * p.JitterFraction
	offset := (2*r - 1) * jitterAmount

	return time.Duration(max(0, math.Floor(delay+offset)))
}
