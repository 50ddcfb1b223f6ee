// Package retry centralizes the retry-with-backoff policy used for all
// network-bound calls. Callers receive the last error once attempts are
// exhausted.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries with exponential backoff and a delay cap.
type Policy struct {
	MaxAttempts  uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Default is the policy applied when a zero Policy is used.
var Default = Policy{
	MaxAttempts:  3,
	InitialDelay: 250 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// Do runs op, retrying transient failures with exponential backoff until the
// attempt ceiling is reached or ctx is cancelled.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = Default.MaxAttempts
	}
	initial := p.InitialDelay
	if initial == 0 {
		initial = Default.InitialDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay == 0 {
		maxDelay = Default.MaxDelay
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0 // bounded by the attempt ceiling, not wall clock

	return backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(b, ctx), attempts-1))
}

// Permanent marks err as non-retryable so Do surfaces it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
