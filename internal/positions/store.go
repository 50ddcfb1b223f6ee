// Package positions holds the open-position collection in a single
// mutex-guarded store. Both the risk loop and in-flight trades go through
// this store, so access is always serialized.
package positions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// Store implements domain.PositionStore in memory. Positions do not survive
// a restart.
type Store struct {
	mu   sync.RWMutex
	byID map[string]domain.Position
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]domain.Position)}
}

// Create registers a new open position.
func (s *Store) Create(ctx context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[pos.ID]; ok {
		return fmt.Errorf("positions: create %s: %w", pos.ID, domain.ErrAlreadyExists)
	}
	s.byID[pos.ID] = pos
	return nil
}

// Get returns the position by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.byID[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("positions: get %s: %w", id, domain.ErrNotFound)
	}
	return pos, nil
}

// List returns all open positions ordered by opening time.
func (s *Store) List(ctx context.Context) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Position, 0, len(s.byID))
	for _, pos := range s.byID {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

// UpdatePrice refreshes the position's current price.
func (s *Store) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("positions: update %s: %w", id, domain.ErrNotFound)
	}
	pos.CurrentPrice = price
	pos.UpdatedAt = ts
	s.byID[id] = pos
	return nil
}

// Remove deletes the position and reports whether it existed. Concurrent
// callers racing on the same breach see true exactly once.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

// Len returns the number of open positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Compile-time interface check.
var _ domain.PositionStore = (*Store)(nil)
