package domain

import "errors"

var (
	// ErrValidation indicates missing or invalid trade parameters. It is
	// surfaced immediately and never retried.
	ErrValidation = errors.New("invalid trade parameters")

	// ErrRouteNotFound indicates that no venue produced an acceptable route.
	ErrRouteNotFound = errors.New("no route found")

	// ErrCircuitOpen indicates the market-data upstream is unavailable per
	// the circuit breaker and no cached value exists to fall back to.
	ErrCircuitOpen = errors.New("market data circuit open")

	// ErrExecution indicates a signing, submission, or confirmation failure.
	ErrExecution = errors.New("trade execution failed")

	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
