package domain

import (
	"context"
	"time"
)

// MarketDataCache is a TTL key/value cache for serialized market data.
// Entries past their TTL read as a miss but are retained for a grace window
// so callers can fall back to stale data while the upstream is unavailable.
type MarketDataCache interface {
	// Get returns the cached value when present and fresh.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// GetStale returns the cached value even if its TTL has elapsed.
	GetStale(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EventBus carries lifecycle events (trade executed, stop-loss triggered,
// arbitrage detected) to out-of-core consumers.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
