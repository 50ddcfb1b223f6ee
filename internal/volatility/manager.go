// Package volatility computes an ATR-style volatility measure from trailing
// price bars and derives the position-size adjustment factor applied before
// route discovery.
package volatility

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// BarSource supplies trailing OHLC bars, oldest first.
type BarSource interface {
	Bars(ctx context.Context, mint string, limit int) ([]domain.Bar, error)
}

// Config holds the tunable volatility parameters.
type Config struct {
	// Window is the bar count for the current-volatility estimate.
	Window int
	// AverageWindow is the longer reference window; must be >= Window.
	AverageWindow int
	// MinAdjustment is the floor of the adjustment factor, e.g. 0.2.
	MinAdjustment decimal.Decimal
	// MaxReduction caps the factor at 1 - MaxReduction, e.g. 0.5.
	MaxReduction decimal.Decimal
}

// Manager derives volatility metrics and sizing adjustments per token.
type Manager struct {
	bars   BarSource
	cfg    Config
	logger *slog.Logger
}

// NewManager creates a Manager with the given bar source and parameters.
func NewManager(bars BarSource, cfg Config, logger *slog.Logger) *Manager {
	if cfg.Window <= 0 {
		cfg.Window = 14
	}
	if cfg.AverageWindow < cfg.Window {
		cfg.AverageWindow = cfg.Window * 3
	}
	if cfg.MinAdjustment.IsZero() {
		cfg.MinAdjustment = decimal.NewFromFloat(0.2)
	}
	return &Manager{
		bars:   bars,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "volatility")),
	}
}

// Metrics returns the current and trailing-average volatility for mint and
// the derived position-size adjustment factor.
func (m *Manager) Metrics(ctx context.Context, mint string) (domain.VolatilityMetrics, error) {
	bars, err := m.bars.Bars(ctx, mint, m.cfg.AverageWindow)
	if err != nil {
		return domain.VolatilityMetrics{}, fmt.Errorf("volatility: bars for %s: %w", mint, err)
	}

	current := trueRangeAverage(tail(bars, m.cfg.Window))
	average := trueRangeAverage(bars)

	return domain.VolatilityMetrics{
		Current:          current,
		Average:          average,
		AdjustmentFactor: m.factor(current, average),
	}, nil
}

// AdjustPosition scales amount by the current adjustment factor for mint.
// On any failure it degrades gracefully and returns the unadjusted amount.
func (m *Manager) AdjustPosition(ctx context.Context, amount decimal.Decimal, mint string) decimal.Decimal {
	metrics, err := m.Metrics(ctx, mint)
	if err != nil {
		m.logger.WarnContext(ctx, "volatility: metrics unavailable, leaving size unadjusted",
			slog.String("mint", mint),
			slog.String("error", err.Error()),
		)
		return amount
	}
	adjusted := amount.Mul(metrics.AdjustmentFactor)
	m.logger.DebugContext(ctx, "volatility: position adjusted",
		slog.String("mint", mint),
		slog.String("factor", metrics.AdjustmentFactor.String()),
		slog.String("amount", amount.String()),
		slog.String("adjusted", adjusted.String()),
	)
	return adjusted
}

// factor maps the volatility ratio current/average into [MinAdjustment,
// 1-MaxReduction]. A zero or unknown ratio yields the neutral factor 1.
func (m *Manager) factor(current, average decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if !average.IsPositive() || !current.IsPositive() {
		return one
	}
	ratio := current.Div(average)
	factor := one.Div(ratio)
	if factor.GreaterThan(one) {
		factor = one
	}
	if factor.LessThan(m.cfg.MinAdjustment) {
		factor = m.cfg.MinAdjustment
	}
	ceiling := one.Sub(m.cfg.MaxReduction)
	if m.cfg.MaxReduction.IsPositive() && factor.GreaterThan(ceiling) {
		factor = ceiling
	}
	return factor
}

// trueRangeAverage is the mean true range across consecutive bars:
// max(high[i], close[i-1]) - min(low[i], close[i-1]). Fewer than two bars
// yield zero.
func trueRangeAverage(bars []domain.Bar) decimal.Decimal {
	if len(bars) < 2 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for i := 1; i < len(bars); i++ {
		high := decimal.Max(bars[i].High, bars[i-1].Close)
		low := decimal.Min(bars[i].Low, bars[i-1].Close)
		sum = sum.Add(high.Sub(low))
	}
	return sum.Div(decimal.NewFromInt(int64(len(bars) - 1)))
}

func tail(bars []domain.Bar, n int) []domain.Bar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
