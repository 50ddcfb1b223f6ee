package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := New(3, time.Minute)

	b.Failure()
	b.Failure()

	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.ErrorCount())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		b.Failure()
	}

	assert.False(t, b.Allow())
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := New(3, time.Minute)

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()

	assert.True(t, b.Allow())
	assert.Equal(t, 1, b.ErrorCount())
}

func TestBreakerAutoResetsAfterTimeout(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	b := New(2, time.Minute)
	b.now = func() time.Time { return now }

	b.Failure()
	b.Failure()
	assert.False(t, b.Allow())

	// Just before the reset timeout the breaker is still open.
	now = now.Add(59 * time.Second)
	assert.False(t, b.Allow())

	// At the timeout it closes and zeroes the count.
	now = now.Add(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, 0, b.ErrorCount())
	assert.Equal(t, StateClosed, b.State())
}
