// Package risk runs the stop-loss loop over open positions: refresh prices,
// widen the stop threshold in volatile markets, and force an exit when a
// position breaches it.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// PriceSource supplies current token prices.
type PriceSource interface {
	Price(ctx context.Context, mint string) (decimal.Decimal, error)
}

// VolSource supplies volatility metrics per token.
type VolSource interface {
	Metrics(ctx context.Context, mint string) (domain.VolatilityMetrics, error)
}

// Exiter closes a position by swapping it back to the stable token. It
// returns the exit trade's signature.
type Exiter interface {
	ExitPosition(ctx context.Context, pos domain.Position) (string, error)
}

// Config holds the risk loop parameters.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration
}

// Monitor sweeps open positions and enforces stop-losses.
type Monitor struct {
	positions domain.PositionStore
	prices    PriceSource
	vol       VolSource
	exiter    Exiter
	bus       domain.EventBus
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewMonitor creates a Monitor with all required dependencies.
func NewMonitor(
	positions domain.PositionStore,
	prices PriceSource,
	vol VolSource,
	exiter Exiter,
	bus domain.EventBus,
	cfg Config,
	logger *slog.Logger,
) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Monitor{
		positions: positions,
		prices:    prices,
		vol:       vol,
		exiter:    exiter,
		bus:       bus,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "risk")),
		now:       time.Now,
	}
}

// Run sweeps positions on the configured interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.InfoContext(ctx, "risk: monitor started",
		slog.Duration("interval", m.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "risk: monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Step(ctx)
		}
	}
}

// Step performs a single sweep over all open positions. A failure on one
// position never blocks the rest of the sweep.
func (m *Monitor) Step(ctx context.Context) {
	positions, err := m.positions.List(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "risk: list positions failed",
			slog.String("error", err.Error()))
		return
	}

	for _, pos := range positions {
		if err := m.checkPosition(ctx, pos); err != nil {
			m.logger.WarnContext(ctx, "risk: position check failed",
				slog.String("position", pos.ID),
				slog.String("mint", pos.Mint),
				slog.String("error", err.Error()),
			)
		}
	}
}

// checkPosition refreshes one position's price and exits it when the price
// has moved beyond the volatility-adjusted stop threshold in either
// direction. Upward breaches lock in the gain; downward breaches cut the
// loss.
func (m *Monitor) checkPosition(ctx context.Context, pos domain.Position) error {
	price, err := m.prices.Price(ctx, pos.Mint)
	if err != nil {
		return fmt.Errorf("risk: price for %s: %w", pos.Mint, err)
	}

	if err := m.positions.UpdatePrice(ctx, pos.ID, price, m.now().UTC()); err != nil {
		return fmt.Errorf("risk: update price for %s: %w", pos.ID, err)
	}

	if !pos.EntryPrice.IsPositive() {
		return nil
	}

	move := price.Sub(pos.EntryPrice).Div(pos.EntryPrice)
	threshold := pos.StopLossPct.Mul(decimal.NewFromInt(1).Add(m.volatilityFactor(ctx, pos.Mint)))
	if move.Abs().LessThan(threshold) {
		return nil
	}

	m.logger.WarnContext(ctx, "risk: stop threshold breached",
		slog.String("position", pos.ID),
		slog.String("mint", pos.Mint),
		slog.String("entry", pos.EntryPrice.String()),
		slog.String("price", price.String()),
		slog.String("move_pct", move.String()),
		slog.String("threshold", threshold.String()),
	)

	signature, err := m.exiter.ExitPosition(ctx, pos)
	if err != nil {
		return fmt.Errorf("risk: exit %s: %w", pos.ID, err)
	}

	existed, err := m.positions.Remove(ctx, pos.ID)
	if err != nil {
		return fmt.Errorf("risk: remove %s: %w", pos.ID, err)
	}
	if !existed {
		// Another path already closed it; the breach was handled elsewhere.
		return nil
	}

	m.publishStopLoss(ctx, pos, price, move, threshold, signature)
	return nil
}

// volatilityFactor widens the stop threshold when current volatility runs
// above its trailing average. Unavailable metrics fall back to the base
// threshold.
func (m *Monitor) volatilityFactor(ctx context.Context, mint string) decimal.Decimal {
	metrics, err := m.vol.Metrics(ctx, mint)
	if err != nil {
		m.logger.DebugContext(ctx, "risk: volatility unavailable, using base stop-loss",
			slog.String("mint", mint),
			slog.String("error", err.Error()))
		return decimal.Zero
	}
	if !metrics.Average.IsPositive() || !metrics.Current.IsPositive() {
		return decimal.Zero
	}
	factor := metrics.Current.Div(metrics.Average).Sub(decimal.NewFromInt(1))
	if factor.IsNegative() {
		return decimal.Zero
	}
	return factor
}

func (m *Monitor) publishStopLoss(ctx context.Context, pos domain.Position, price, move, threshold decimal.Decimal, signature string) {
	event := domain.StopLossEvent{
		Event:         domain.EventStopLossTrigger,
		PositionID:    pos.ID,
		Mint:          pos.Mint,
		EntryPrice:    pos.EntryPrice,
		CurrentPrice:  price,
		LossPct:       move,
		Threshold:     threshold,
		ExitSignature: signature,
		Timestamp:     m.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.ErrorContext(ctx, "risk: marshal stop-loss event failed",
			slog.String("position", pos.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := m.bus.Publish(ctx, domain.ChannelRisk, payload); err != nil {
		m.logger.WarnContext(ctx, "risk: publish stop-loss event failed",
			slog.String("position", pos.ID),
			slog.String("error", err.Error()))
	}
}
