// Package retry wraps synthesis calls with bounded retries and exponential
// backoff with jitter.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saypipe/saypipe/internal/fault"
)

// Defaults for the retry policy.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Executor retries a failing operation up to MaxAttempts times, sleeping
// min(maxDelay, baseDelay*2^(n-1)) plus jitter between attempts. Errors
// classified as non-retryable propagate immediately. The error returned
// after exhaustion is the last attempt's error, not a synthesized one.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// New creates an Executor. Non-positive parameters fall back to defaults.
func New(maxAttempts int, baseDelay, maxDelay time.Duration) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return &Executor{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay}
}

// Execute runs op until it succeeds, returns a non-retryable error, the
// attempt budget is exhausted, or ctx is cancelled. Backoff sleeps suspend
// only the calling request.
func (e *Executor) Execute(ctx context.Context, op func() ([]byte, error)) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.baseDelay
	policy.MaxInterval = e.maxDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.5
	policy.MaxElapsedTime = 0

	var result []byte
	attempt := func() error {
		data, err := op()
		if err != nil {
			if !fault.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = data
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(e.maxAttempts-1)), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}
