// Package health queries per-venue liquidity/health scores and derives the
// exclusion set used during route discovery.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"soltrader/internal/domain"
)

// Config holds the health monitor parameters.
type Config struct {
	// Threshold is the minimum score for a venue to be considered healthy.
	Threshold float64
	// TTL is how long a score set is cached per token-set key.
	TTL time.Duration
}

// Monitor caches venue scores and answers health queries for token sets.
type Monitor struct {
	provider domain.HealthProvider
	cache    domain.MarketDataCache
	cfg      Config
	logger   *slog.Logger
}

// NewMonitor creates a Monitor with all required dependencies.
func NewMonitor(provider domain.HealthProvider, cache domain.MarketDataCache, cfg Config, logger *slog.Logger) *Monitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.8
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	return &Monitor{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "health")),
	}
}

func scoresKey(mints []string) string {
	sorted := make([]string, len(mints))
	copy(sorted, mints)
	sort.Strings(sorted)
	return "health:" + strings.Join(sorted, ",")
}

// Scores returns the venue score map for the given token set, served from
// cache when fresh. Non-finite or negative provider scores are coerced to 0.
func (m *Monitor) Scores(ctx context.Context, mints []string) (map[string]float64, error) {
	key := scoresKey(mints)

	if data, ok, err := m.cache.Get(ctx, key); err == nil && ok {
		var scores map[string]float64
		if err := json.Unmarshal(data, &scores); err == nil {
			return scores, nil
		}
	}

	scores, err := m.provider.Health(ctx, mints)
	if err != nil {
		return nil, fmt.Errorf("health: provider: %w", err)
	}

	for venue, score := range scores {
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
			m.logger.WarnContext(ctx, "health: invalid venue score coerced to 0",
				slog.String("venue", venue),
				slog.Float64("score", score),
			)
			scores[venue] = 0
		}
	}

	if data, err := json.Marshal(scores); err == nil {
		if cacheErr := m.cache.Set(ctx, key, data, m.cfg.TTL); cacheErr != nil {
			m.logger.WarnContext(ctx, "health: cache write failed",
				slog.String("error", cacheErr.Error()))
		}
	}
	return scores, nil
}

// IsHealthy reports whether every known venue scores at or above the
// threshold for the given token set.
func (m *Monitor) IsHealthy(ctx context.Context, mints []string) (bool, error) {
	scores, err := m.Scores(ctx, mints)
	if err != nil {
		return false, err
	}
	for _, score := range scores {
		if score < m.cfg.Threshold {
			return false, nil
		}
	}
	return true, nil
}

// Exclusions returns the venues scoring below the threshold, sorted, so
// route discovery never considers them.
func (m *Monitor) Exclusions(ctx context.Context, mints []string) ([]string, error) {
	scores, err := m.Scores(ctx, mints)
	if err != nil {
		return nil, err
	}
	var excluded []string
	for venue, score := range scores {
		if score < m.cfg.Threshold {
			excluded = append(excluded, venue)
		}
	}
	sort.Strings(excluded)
	if len(excluded) > 0 {
		m.logger.InfoContext(ctx, "health: excluding unhealthy venues",
			slog.Any("venues", excluded))
	}
	return excluded, nil
}
