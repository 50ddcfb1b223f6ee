// Package engine is the trading core: it composes route discovery, sentiment
// screening, execution constraints, and cross-venue arbitrage detection into
// the operations the application modes run.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// RouteFinder discovers the best route for a trade request.
type RouteFinder interface {
	FindBestRoute(ctx context.Context, req domain.TradeRequest) (domain.Route, error)
}

// RouteExecutor performs the on-chain swap for a quoted route.
type RouteExecutor interface {
	Execute(ctx context.Context, route domain.Route) (domain.TradeResult, error)
}

// VenueQuoter quotes routes with per-venue restrictions, used for arbitrage
// probing.
type VenueQuoter interface {
	Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.Route, error)
}

// Config holds the engine's trading parameters.
type Config struct {
	// StableMint is the quote currency positions are exited into.
	StableMint string

	// MaxSlippageBps rejects routes quoting above this slippage.
	MaxSlippageBps int
	// MaxPriceImpactPct rejects routes above this price impact, e.g. 1.5.
	MaxPriceImpactPct decimal.Decimal

	// SentimentTopics and SentimentWindow scope the pre-trade sentiment
	// check. Empty topics disable the check.
	SentimentTopics []string
	SentimentWindow time.Duration
	// NegativeThreshold is the sentiment score magnitude below which a trade
	// is shrunk, e.g. 0.5 shrinks when score < -0.5.
	NegativeThreshold decimal.Decimal
	// ShrinkFactor scales the trade amount on negative sentiment.
	ShrinkFactor decimal.Decimal

	// ArbVenues are the venues probed pairwise for price divergence.
	ArbVenues []string
	// ArbMinProfit is the minimum profit fraction, e.g. 0.01 for 1%.
	ArbMinProfit decimal.Decimal
	// ArbReferenceAmount is the base-unit probe size for arbitrage quotes.
	ArbReferenceAmount *big.Int
}

// Engine executes trades and detects arbitrage opportunities.
type Engine struct {
	finder    RouteFinder
	executor  RouteExecutor
	quotes    VenueQuoter
	sentiment domain.SentimentProvider
	bus       domain.EventBus
	history   *History
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Engine with all required dependencies.
func New(
	finder RouteFinder,
	executor RouteExecutor,
	quotes VenueQuoter,
	sentiment domain.SentimentProvider,
	bus domain.EventBus,
	history *History,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.MaxSlippageBps <= 0 {
		cfg.MaxSlippageBps = 100
	}
	if !cfg.MaxPriceImpactPct.IsPositive() {
		cfg.MaxPriceImpactPct = decimal.NewFromFloat(1.5)
	}
	if cfg.SentimentWindow <= 0 {
		cfg.SentimentWindow = time.Hour
	}
	if !cfg.NegativeThreshold.IsPositive() {
		cfg.NegativeThreshold = decimal.NewFromFloat(0.5)
	}
	if !cfg.ShrinkFactor.IsPositive() {
		cfg.ShrinkFactor = decimal.NewFromFloat(0.5)
	}
	if !cfg.ArbMinProfit.IsPositive() {
		cfg.ArbMinProfit = decimal.NewFromFloat(0.01)
	}
	return &Engine{
		finder:    finder,
		executor:  executor,
		quotes:    quotes,
		sentiment: sentiment,
		bus:       bus,
		history:   history,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "engine")),
		now:       time.Now,
	}
}

// ExecuteTrade runs the full pipeline for a trade request: validate, screen
// sentiment, discover the best route, enforce execution constraints, and
// swap. Validation failures are returned before any network call is made.
func (e *Engine) ExecuteTrade(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	if err := req.Validate(); err != nil {
		return domain.TradeResult{}, fmt.Errorf("engine: %w", err)
	}

	req.Amount = e.applySentiment(ctx, req.Amount)

	route, err := e.finder.FindBestRoute(ctx, req)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("engine: find route: %w", err)
	}

	if route.SlippageBps > e.cfg.MaxSlippageBps {
		return domain.TradeResult{}, fmt.Errorf("engine: %w: slippage %d bps exceeds limit %d",
			domain.ErrValidation, route.SlippageBps, e.cfg.MaxSlippageBps)
	}
	if route.PriceImpactPct.GreaterThan(e.cfg.MaxPriceImpactPct) {
		return domain.TradeResult{}, fmt.Errorf("engine: %w: price impact %s%% exceeds limit %s%%",
			domain.ErrValidation, route.PriceImpactPct, e.cfg.MaxPriceImpactPct)
	}

	if e.executor == nil {
		return domain.TradeResult{}, fmt.Errorf("engine: %w: execution disabled in this mode", domain.ErrExecution)
	}
	result, err := e.executor.Execute(ctx, route)
	if err != nil {
		return domain.TradeResult{}, err
	}

	e.history.Append(result)
	e.publishTrade(ctx, result)
	return result, nil
}

// ExitPosition swaps a position back into the stable token at market.
func (e *Engine) ExitPosition(ctx context.Context, pos domain.Position) (string, error) {
	result, err := e.ExecuteTrade(ctx, domain.TradeRequest{
		InputMint:  pos.Mint,
		OutputMint: e.cfg.StableMint,
		Amount:     pos.Size,
		Type:       domain.OrderTypeMarket,
	})
	if err != nil {
		return "", fmt.Errorf("engine: exit position %s: %w", pos.ID, err)
	}
	return result.Signature, nil
}

// History returns the engine's trade record.
func (e *Engine) History() *History {
	return e.history
}

// applySentiment shrinks the trade amount when recent sentiment is strongly
// negative. Sentiment failures are neutral, never blocking.
func (e *Engine) applySentiment(ctx context.Context, amount decimal.Decimal) decimal.Decimal {
	if len(e.cfg.SentimentTopics) == 0 {
		return amount
	}
	score, err := e.sentiment.Analyze(ctx, e.cfg.SentimentTopics, e.cfg.SentimentWindow)
	if err != nil {
		e.logger.WarnContext(ctx, "engine: sentiment unavailable, trading at full size",
			slog.String("error", err.Error()))
		return amount
	}
	if score.GreaterThanOrEqual(e.cfg.NegativeThreshold.Neg()) {
		return amount
	}
	shrunk := amount.Mul(e.cfg.ShrinkFactor)
	e.logger.InfoContext(ctx, "engine: negative sentiment, shrinking trade",
		slog.String("score", score.String()),
		slog.String("amount", amount.String()),
		slog.String("shrunk", shrunk.String()),
	)
	return shrunk
}

// DetectArbitrage probes each configured venue (at least three) for the pair
// with a reference-sized quote and compares outputs. Fewer than two
// responsive venues means no signal; a best-to-worst output ratio strictly
// above 1 + ArbMinProfit is published and returned. Detection never trades.
func (e *Engine) DetectArbitrage(ctx context.Context, inputMint, outputMint string) (*domain.ArbOpportunity, error) {
	if len(e.cfg.ArbVenues) < 3 {
		return nil, fmt.Errorf("engine: %w: arbitrage needs at least three venues", domain.ErrValidation)
	}
	if e.cfg.ArbReferenceAmount == nil || e.cfg.ArbReferenceAmount.Sign() <= 0 {
		return nil, fmt.Errorf("engine: %w: arbitrage reference amount not set", domain.ErrValidation)
	}

	type venueQuote struct {
		venue string
		out   *big.Int
	}
	quotes := make([]venueQuote, 0, len(e.cfg.ArbVenues))
	for _, venue := range e.cfg.ArbVenues {
		routes, err := e.quotes.Quote(ctx, domain.QuoteRequest{
			InputMint:  inputMint,
			OutputMint: outputMint,
			Amount:     e.cfg.ArbReferenceAmount,
			MaxRoutes:  1,
			OnlyVenues: []string{venue},
		})
		if err != nil || len(routes) == 0 || routes[0].OutAmount == nil {
			e.logger.DebugContext(ctx, "engine: venue quote unavailable",
				slog.String("venue", venue),
				slog.String("pair", inputMint+"/"+outputMint))
			continue
		}
		quotes = append(quotes, venueQuote{venue: venue, out: routes[0].OutAmount})
	}

	if len(quotes) < 2 {
		e.logger.InfoContext(ctx, "engine: arbitrage skipped, not enough venue quotes",
			slog.Int("quotes", len(quotes)),
			slog.String("pair", inputMint+"/"+outputMint))
		return nil, nil
	}

	// The cheapest venue to buy on is the one quoting the most output per
	// reference input; the worst quote marks where the token trades rich.
	best, worst := quotes[0], quotes[0]
	for _, q := range quotes[1:] {
		if q.out.Cmp(best.out) > 0 {
			best = q
		}
		if q.out.Cmp(worst.out) < 0 {
			worst = q
		}
	}
	if worst.out.Sign() <= 0 {
		return nil, nil
	}

	ratio := decimal.NewFromBigInt(best.out, 0).Div(decimal.NewFromBigInt(worst.out, 0))
	if !ratio.GreaterThan(decimal.NewFromInt(1).Add(e.cfg.ArbMinProfit)) {
		return nil, nil
	}

	opp := &domain.ArbOpportunity{
		ID:              uuid.NewString(),
		Event:           domain.EventArbOpportunity,
		InputMint:       inputMint,
		OutputMint:      outputMint,
		BuyVenue:        best.venue,
		SellVenue:       worst.venue,
		BuyOutAmount:    best.out,
		SellOutAmount:   worst.out,
		ProfitRatio:     ratio,
		ReferenceAmount: e.cfg.ArbReferenceAmount,
		DetectedAt:      e.now().UTC(),
	}

	e.logger.InfoContext(ctx, "engine: arbitrage opportunity",
		slog.String("pair", inputMint+"/"+outputMint),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
		slog.String("profit_ratio", ratio.String()),
	)

	payload, err := json.Marshal(opp)
	if err != nil {
		return opp, fmt.Errorf("engine: marshal arbitrage event: %w", err)
	}
	if err := e.bus.Publish(ctx, domain.ChannelArb, payload); err != nil {
		e.logger.WarnContext(ctx, "engine: publish arbitrage event failed",
			slog.String("error", err.Error()))
	}
	return opp, nil
}

func (e *Engine) publishTrade(ctx context.Context, res domain.TradeResult) {
	event := domain.TradeExecutedEvent{
		Event:          domain.EventTradeExecuted,
		Signature:      res.Signature,
		InputMint:      res.InputMint,
		OutputMint:     res.OutputMint,
		InputAmount:    res.InputAmount,
		OutputAmount:   res.OutputAmount,
		ExecutionPrice: res.ExecutionPrice,
		Venues:         res.Venues,
		Timestamp:      res.Timestamp,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.ErrorContext(ctx, "engine: marshal trade event failed",
			slog.String("signature", res.Signature),
			slog.String("error", err.Error()))
		return
	}
	if err := e.bus.Publish(ctx, domain.ChannelTrades, payload); err != nil {
		e.logger.WarnContext(ctx, "engine: publish trade event failed",
			slog.String("signature", res.Signature),
			slog.String("error", err.Error()))
	}
}
