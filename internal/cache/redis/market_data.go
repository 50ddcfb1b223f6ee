package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"soltrader/internal/domain"
)

// retention is how long an expired entry is kept around after its TTL so the
// circuit-breaker path can fall back to stale data. Redis evicts the key for
// good once retention elapses.
const retention = 24 * time.Hour

// entry is the stored representation: a compressed payload plus its absolute
// expiry. Freshness is judged against ExpiresAt, not the Redis key TTL.
type entry struct {
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MarketDataCache implements domain.MarketDataCache on Redis with gzip
// payload compression. Entries past their TTL read as a miss but remain
// available through GetStale until the retention window lapses.
type MarketDataCache struct {
	rdb *redis.Client
	now func() time.Time
}

// NewMarketDataCache creates a MarketDataCache backed by the given Client.
func NewMarketDataCache(c *Client) *MarketDataCache {
	return &MarketDataCache{rdb: c.Underlying(), now: time.Now}
}

func cacheKey(key string) string { return "md:" + key }

// Set compresses and stores value under key with the given TTL.
func (mc *MarketDataCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	compressed, err := compress(value)
	if err != nil {
		return err
	}
	e := entry{
		Payload:   compressed,
		ExpiresAt: mc.now().UTC().Add(ttl),
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: marshal entry %s: %w", key, err)
	}
	keep := retention
	if ttl > keep {
		keep = ttl
	}
	if err := mc.rdb.Set(ctx, cacheKey(key), data, keep).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Get returns the decompressed value when the entry exists and is fresh.
func (mc *MarketDataCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok, err := mc.load(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if mc.now().UTC().After(e.ExpiresAt) {
		return nil, false, nil
	}
	value, err := decompress(e.Payload)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// GetStale returns the decompressed value regardless of TTL. Used only while
// the upstream circuit is open.
func (mc *MarketDataCache) GetStale(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok, err := mc.load(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	value, err := decompress(e.Payload)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Invalidate removes the entry for key.
func (mc *MarketDataCache) Invalidate(ctx context.Context, key string) error {
	if err := mc.rdb.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate %s: %w", key, err)
	}
	return nil
}

func (mc *MarketDataCache) load(ctx context.Context, key string) (entry, bool, error) {
	data, err := mc.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entry{}, false, nil
		}
		return entry{}, false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false, fmt.Errorf("redis: unmarshal entry %s: %w", key, err)
	}
	return e, true, nil
}

// Compile-time interface check.
var _ domain.MarketDataCache = (*MarketDataCache)(nil)
