package engine

import (
	"sync"

	"soltrader/internal/domain"
)

// History is a fixed-capacity, newest-last record of executed trades. When
// full, appending evicts the oldest entry.
type History struct {
	mu      sync.Mutex
	entries []domain.TradeResult
	cap     int
}

// NewHistory creates a History holding at most capacity trades.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 50
	}
	return &History{
		entries: make([]domain.TradeResult, 0, capacity),
		cap:     capacity,
	}
}

// Append records a trade, evicting the oldest when at capacity.
func (h *History) Append(res domain.TradeResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == h.cap {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.cap-1]
	}
	h.entries = append(h.entries, res)
}

// Recent returns a copy of the recorded trades, oldest first.
func (h *History) Recent() []domain.TradeResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.TradeResult, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded trades.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
