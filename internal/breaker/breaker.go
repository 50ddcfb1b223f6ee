// Package breaker implements a minimal circuit breaker guarding calls to a
// flaky upstream. After a fixed number of consecutive failures the breaker
// opens and short-circuits further calls; it closes again automatically once
// the reset timeout has elapsed.
package breaker

import (
	"sync"
	"time"
)

// State is the breaker's current disposition.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// Breaker counts consecutive failures and trips open at the threshold.
// The zero value is not usable; construct with New.
type Breaker struct {
	mu           sync.Mutex
	threshold    int
	resetTimeout time.Duration
	errorCount   int
	lastFailure  time.Time

	now func() time.Time // overridden in tests
}

// New creates a closed Breaker that opens after threshold consecutive
// failures and auto-resets resetTimeout after the last failure.
func New(threshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is open and the
// reset timeout has elapsed it closes itself, zeroing the error count.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.errorCount < b.threshold {
		return true
	}
	if b.now().Sub(b.lastFailure) >= b.resetTimeout {
		b.errorCount = 0
		return true
	}
	return false
}

// Failure records a failed upstream call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorCount++
	b.lastFailure = b.now()
}

// Success records a successful call and resets the error count.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorCount = 0
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.errorCount >= b.threshold && b.now().Sub(b.lastFailure) < b.resetTimeout {
		return StateOpen
	}
	return StateClosed
}

// ErrorCount returns the current consecutive-failure count.
func (b *Breaker) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}
