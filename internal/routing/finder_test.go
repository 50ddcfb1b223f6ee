package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltrader/internal/domain"
)

const (
	mintSOL  = "So11111111111111111111111111111111111111112"
	mintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type stubQuoter struct {
	routes []domain.Route
	err    error
	last   domain.QuoteRequest
}

func (s *stubQuoter) Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.Route, error) {
	s.last = req
	return s.routes, s.err
}

type stubPrices struct {
	prices map[string]decimal.Decimal
	calls  int
}

func (s *stubPrices) Price(ctx context.Context, mint string) (decimal.Decimal, error) {
	s.calls++
	p, ok := s.prices[mint]
	if !ok {
		return decimal.Zero, errors.New("no price available")
	}
	return p, nil
}

type stubSizer struct {
	factor decimal.Decimal
}

func (s *stubSizer) AdjustPosition(ctx context.Context, amount decimal.Decimal, mint string) decimal.Decimal {
	return amount.Mul(s.factor)
}

type stubHealth struct {
	excluded []string
	err      error
}

func (s *stubHealth) Exclusions(ctx context.Context, mints []string) ([]string, error) {
	return s.excluded, s.err
}

type stubRegistry map[string]int32

func (r stubRegistry) Decimals(mint string) (int32, bool) {
	d, ok := r[mint]
	return d, ok
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultRegistry() stubRegistry {
	return stubRegistry{mintSOL: 9, mintUSDC: 6}
}

func defaultPrices() *stubPrices {
	return &stubPrices{prices: map[string]decimal.Decimal{
		mintSOL:  decimal.NewFromInt(150),
		mintUSDC: decimal.NewFromInt(1),
	}}
}

func someRoute() domain.Route {
	return domain.Route{
		InputMint:  mintUSDC,
		OutputMint: mintSOL,
		InAmount:   big.NewInt(100_000_000),
		OutAmount:  big.NewInt(660_000_000),
		Hops:       []domain.RouteHop{{Venue: "Orca"}},
	}
}

func marketReq() domain.TradeRequest {
	return domain.TradeRequest{
		InputMint:  mintUSDC,
		OutputMint: mintSOL,
		Amount:     decimal.NewFromInt(100),
		Type:       domain.OrderTypeMarket,
	}
}

func newTestFinder(q *stubQuoter, p *stubPrices, h *stubHealth) *Finder {
	return NewFinder(q, p, &stubSizer{factor: decimal.NewFromInt(1)}, h, defaultRegistry(), Config{}, discard())
}

func TestFindBestRouteRejectsInvalidRequestBeforeLookups(t *testing.T) {
	prices := defaultPrices()
	f := newTestFinder(&stubQuoter{}, prices, &stubHealth{})

	req := marketReq()
	req.Amount = decimal.Zero
	_, err := f.FindBestRoute(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, prices.calls)
}

func TestFindBestRouteUnpricedTokenIsRouteNotFound(t *testing.T) {
	prices := &stubPrices{prices: map[string]decimal.Decimal{mintUSDC: decimal.NewFromInt(1)}}
	f := newTestFinder(&stubQuoter{routes: []domain.Route{someRoute()}}, prices, &stubHealth{})

	_, err := f.FindBestRoute(context.Background(), marketReq())
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestFindBestRouteNoRoutes(t *testing.T) {
	f := newTestFinder(&stubQuoter{routes: nil}, defaultPrices(), &stubHealth{})

	_, err := f.FindBestRoute(context.Background(), marketReq())
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestFindBestRouteConvertsAdjustedAmountToBaseUnits(t *testing.T) {
	quoter := &stubQuoter{routes: []domain.Route{someRoute()}}
	f := NewFinder(quoter, defaultPrices(), &stubSizer{factor: decimal.NewFromFloat(0.5)},
		&stubHealth{}, defaultRegistry(), Config{}, discard())

	_, err := f.FindBestRoute(context.Background(), marketReq())
	require.NoError(t, err)

	// 100 USDC halved by the sizer, in 6-decimal base units.
	assert.Equal(t, big.NewInt(50_000_000), quoter.last.Amount)
}

func TestFindBestRoutePassesExclusionsAndDefaults(t *testing.T) {
	quoter := &stubQuoter{routes: []domain.Route{someRoute()}}
	f := newTestFinder(quoter, defaultPrices(), &stubHealth{excluded: []string{"Raydium"}})

	route, err := f.FindBestRoute(context.Background(), marketReq())
	require.NoError(t, err)

	assert.Equal(t, []string{"Raydium"}, quoter.last.ExcludeVenues)
	assert.Equal(t, 50, quoter.last.SlippageBps, "default slippage applied")
	assert.Equal(t, 3, quoter.last.MaxRoutes)
	// Registry decimals filled onto the winning route.
	assert.Equal(t, int32(6), route.InputDecimals)
	assert.Equal(t, int32(9), route.OutputDecimals)
}

func TestFindBestRouteProceedsWhenHealthUnavailable(t *testing.T) {
	quoter := &stubQuoter{routes: []domain.Route{someRoute()}}
	f := newTestFinder(quoter, defaultPrices(), &stubHealth{err: errors.New("health down")})

	_, err := f.FindBestRoute(context.Background(), marketReq())
	require.NoError(t, err)
	assert.Empty(t, quoter.last.ExcludeVenues)
}

func TestFindBestRouteUnknownTokenFails(t *testing.T) {
	prices := &stubPrices{prices: map[string]decimal.Decimal{
		"unknown-mint": decimal.NewFromInt(2),
		mintSOL:        decimal.NewFromInt(150),
	}}
	f := newTestFinder(&stubQuoter{routes: []domain.Route{someRoute()}}, prices, &stubHealth{})

	req := marketReq()
	req.InputMint = "unknown-mint"
	_, err := f.FindBestRoute(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
