// Package routing discovers the best swap route for a trade request by
// combining venue quotes with health exclusions and volatility-adjusted
// sizing.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// PriceSource supplies current token prices through the market-data cache.
type PriceSource interface {
	Price(ctx context.Context, mint string) (decimal.Decimal, error)
}

// Sizer adjusts a requested amount for current volatility.
type Sizer interface {
	AdjustPosition(ctx context.Context, amount decimal.Decimal, mint string) decimal.Decimal
}

// Excluder derives the set of venues too unhealthy to route through.
type Excluder interface {
	Exclusions(ctx context.Context, mints []string) ([]string, error)
}

// Registry resolves token decimals for display/base-unit conversion.
type Registry interface {
	Decimals(mint string) (int32, bool)
}

// Config holds route discovery parameters.
type Config struct {
	DefaultSlippageBps int
	MaxRoutes          int
}

// Finder implements best-route discovery.
type Finder struct {
	quotes PriceQuoter
	prices PriceSource
	sizer  Sizer
	health Excluder
	tokens Registry
	cfg    Config
	logger *slog.Logger
}

// PriceQuoter is the venue-quoting side of the aggregator client.
type PriceQuoter interface {
	Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.Route, error)
}

// NewFinder creates a Finder with all required dependencies.
func NewFinder(
	quotes PriceQuoter,
	prices PriceSource,
	sizer Sizer,
	health Excluder,
	tokens Registry,
	cfg Config,
	logger *slog.Logger,
) *Finder {
	if cfg.DefaultSlippageBps <= 0 {
		cfg.DefaultSlippageBps = 50
	}
	if cfg.MaxRoutes <= 0 {
		cfg.MaxRoutes = 3
	}
	return &Finder{
		quotes: quotes,
		prices: prices,
		sizer:  sizer,
		health: health,
		tokens: tokens,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "route_finder")),
	}
}

// FindBestRoute returns the best available route for the request. The
// quoting collaborator sorts candidates by output amount; the first one wins.
func (f *Finder) FindBestRoute(ctx context.Context, req domain.TradeRequest) (domain.Route, error) {
	if err := req.Validate(); err != nil {
		return domain.Route{}, err
	}

	inputPrice, err := f.prices.Price(ctx, req.InputMint)
	if err != nil {
		return domain.Route{}, fmt.Errorf("route_finder: input price: %w: %w", domain.ErrRouteNotFound, err)
	}
	if _, err := f.prices.Price(ctx, req.OutputMint); err != nil {
		return domain.Route{}, fmt.Errorf("route_finder: output price: %w: %w", domain.ErrRouteNotFound, err)
	}

	adjusted := f.sizer.AdjustPosition(ctx, req.Amount, req.InputMint)
	notionalUSD := adjusted.Mul(inputPrice)

	mints := []string{req.InputMint, req.OutputMint}
	excluded, err := f.health.Exclusions(ctx, mints)
	if err != nil {
		// Health data is advisory; proceed without exclusions rather than
		// blocking the trade.
		f.logger.WarnContext(ctx, "route_finder: health check unavailable",
			slog.String("error", err.Error()))
		excluded = nil
	}

	slippage := req.SlippageBps
	if slippage == 0 {
		slippage = f.cfg.DefaultSlippageBps
	}

	baseAmount, err := f.toBaseUnits(adjusted, req.InputMint)
	if err != nil {
		return domain.Route{}, err
	}

	routes, err := f.quotes.Quote(ctx, domain.QuoteRequest{
		InputMint:     req.InputMint,
		OutputMint:    req.OutputMint,
		Amount:        baseAmount,
		SlippageBps:   slippage,
		MaxRoutes:     f.cfg.MaxRoutes,
		ExcludeVenues: excluded,
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("route_finder: quote: %w", err)
	}
	if len(routes) == 0 {
		f.logger.InfoContext(ctx, "route_finder: no routes found",
			slog.String("input", req.InputMint),
			slog.String("output", req.OutputMint),
			slog.String("amount", adjusted.String()),
		)
		return domain.Route{}, domain.ErrRouteNotFound
	}

	best := routes[0]
	if dec, ok := f.tokens.Decimals(req.InputMint); ok {
		best.InputDecimals = dec
	}
	if dec, ok := f.tokens.Decimals(req.OutputMint); ok {
		best.OutputDecimals = dec
	}

	f.logger.InfoContext(ctx, "route_finder: best route selected",
		slog.String("input", req.InputMint),
		slog.String("output", req.OutputMint),
		slog.String("notional_usd", notionalUSD.Round(2).String()),
		slog.Int("candidates", len(routes)),
		slog.Any("venues", best.Venues()),
	)
	return best, nil
}

// toBaseUnits converts a display amount to on-chain base units using the
// token's registered decimals.
func (f *Finder) toBaseUnits(amount decimal.Decimal, mint string) (*big.Int, error) {
	dec, ok := f.tokens.Decimals(mint)
	if !ok {
		return nil, fmt.Errorf("route_finder: %w: unknown token %s", domain.ErrValidation, mint)
	}
	return amount.Shift(dec).Truncate(0).BigInt(), nil
}
