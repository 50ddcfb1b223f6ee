// Package marketdata fronts the upstream price/bar provider with the TTL
// cache, the centralized retry policy, and a circuit breaker. When the
// breaker is open the service degrades to the last cached value if one
// exists; otherwise it fails fast with domain.ErrCircuitOpen.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/breaker"
	"soltrader/internal/domain"
	"soltrader/internal/retry"
)

// Config holds cache TTLs for the service.
type Config struct {
	PriceTTL time.Duration
	BarsTTL  time.Duration
}

// Service is the market-data access point for the rest of the engine.
type Service struct {
	provider domain.MarketDataProvider
	cache    domain.MarketDataCache
	breaker  *breaker.Breaker
	retry    retry.Policy
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a Service with all required dependencies.
func NewService(
	provider domain.MarketDataProvider,
	cache domain.MarketDataCache,
	brk *breaker.Breaker,
	policy retry.Policy,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.PriceTTL <= 0 {
		cfg.PriceTTL = 15 * time.Second
	}
	if cfg.BarsTTL <= 0 {
		cfg.BarsTTL = 5 * time.Minute
	}
	return &Service{
		provider: provider,
		cache:    cache,
		breaker:  brk,
		retry:    policy,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "marketdata")),
	}
}

func priceKey(mint string) string { return "price:" + mint }

func barsKey(mint string, limit int) string {
	return "bars:" + mint + ":" + strconv.Itoa(limit)
}

// Price returns the current price for mint, preferring the cache.
func (s *Service) Price(ctx context.Context, mint string) (decimal.Decimal, error) {
	key := priceKey(mint)

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var price decimal.Decimal
		if err := json.Unmarshal(data, &price); err == nil {
			return price, nil
		}
		s.logger.WarnContext(ctx, "marketdata: corrupt cached price, refetching",
			slog.String("mint", mint))
	} else if err != nil {
		s.logger.WarnContext(ctx, "marketdata: cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}

	var price decimal.Decimal
	err := s.refresh(ctx, key, func(ctx context.Context) (any, error) {
		p, err := s.provider.Price(ctx, mint)
		if err != nil {
			return nil, err
		}
		price = p
		return p, nil
	}, s.cfg.PriceTTL)
	if err == nil {
		return price, nil
	}

	// Breaker open or refresh exhausted: degrade to stale data when we can.
	if data, ok, staleErr := s.cache.GetStale(ctx, key); staleErr == nil && ok {
		var stale decimal.Decimal
		if uerr := json.Unmarshal(data, &stale); uerr == nil {
			s.logger.WarnContext(ctx, "marketdata: serving stale price",
				slog.String("mint", mint), slog.String("cause", err.Error()))
			return stale, nil
		}
	}
	return decimal.Zero, err
}

// SetPrice writes a price into the cache directly. Used by the websocket
// feed to keep hot tokens fresh without upstream round-trips.
func (s *Service) SetPrice(ctx context.Context, mint string, price decimal.Decimal) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("marketdata: marshal price %s: %w", mint, err)
	}
	return s.cache.Set(ctx, priceKey(mint), data, s.cfg.PriceTTL)
}

// Bars returns up to limit trailing OHLC bars for mint, oldest first.
func (s *Service) Bars(ctx context.Context, mint string, limit int) ([]domain.Bar, error) {
	key := barsKey(mint, limit)

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var bars []domain.Bar
		if err := json.Unmarshal(data, &bars); err == nil {
			return bars, nil
		}
	}

	var bars []domain.Bar
	err := s.refresh(ctx, key, func(ctx context.Context) (any, error) {
		b, err := s.provider.HistoricalBars(ctx, mint, limit)
		if err != nil {
			return nil, err
		}
		bars = b
		return b, nil
	}, s.cfg.BarsTTL)
	if err == nil {
		return bars, nil
	}

	if data, ok, staleErr := s.cache.GetStale(ctx, key); staleErr == nil && ok {
		var stale []domain.Bar
		if uerr := json.Unmarshal(data, &stale); uerr == nil {
			s.logger.WarnContext(ctx, "marketdata: serving stale bars",
				slog.String("mint", mint), slog.String("cause", err.Error()))
			return stale, nil
		}
	}
	return nil, err
}

// refresh performs one breaker-guarded, retried provider call and caches the
// result. A refresh that exhausts its retries counts as a single breaker
// failure.
func (s *Service) refresh(ctx context.Context, key string, fetch func(context.Context) (any, error), ttl time.Duration) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("marketdata: refresh %s: %w", key, domain.ErrCircuitOpen)
	}

	var value any
	err := s.retry.Do(ctx, func() error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		s.breaker.Failure()
		return fmt.Errorf("marketdata: refresh %s: %w", key, err)
	}
	s.breaker.Success()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marketdata: marshal %s: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		// A cache write failure must not fail the caller; the value is good.
		s.logger.WarnContext(ctx, "marketdata: cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
