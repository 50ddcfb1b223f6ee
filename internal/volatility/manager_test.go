package volatility

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltrader/internal/domain"
)

type stubBars struct {
	bars []domain.Bar
	err  error
}

func (s *stubBars) Bars(ctx context.Context, mint string, limit int) ([]domain.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.bars) > limit {
		return s.bars[len(s.bars)-limit:], nil
	}
	return s.bars, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flatBars builds n bars with constant high/low/close, yielding a constant
// true range of high-low.
func flatBars(n int, high, low, close float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = domain.Bar{
			High:  decimal.NewFromFloat(high),
			Low:   decimal.NewFromFloat(low),
			Close: decimal.NewFromFloat(close),
			Time:  ts.Add(time.Duration(i) * 15 * time.Minute),
		}
	}
	return bars
}

func TestMetricsSteadyMarketIsNeutral(t *testing.T) {
	src := &stubBars{bars: flatBars(42, 10.5, 9.5, 10)}
	m := NewManager(src, Config{Window: 14, AverageWindow: 42}, discard())

	metrics, err := m.Metrics(context.Background(), "mint")
	require.NoError(t, err)

	// Current equals the trailing average, so the factor caps at 1 (no
	// MaxReduction configured).
	assert.True(t, metrics.Current.Equal(metrics.Average), "current %s average %s", metrics.Current, metrics.Average)
	assert.True(t, metrics.AdjustmentFactor.Equal(decimal.NewFromInt(1)))
}

func TestMetricsVolatilitySpikeShrinksFactor(t *testing.T) {
	// Calm history, then a recent window twice as wide.
	bars := flatBars(28, 10.5, 9.5, 10)
	bars = append(bars, flatBars(14, 11.5, 8.5, 10)...)
	src := &stubBars{bars: bars}
	m := NewManager(src, Config{Window: 14, AverageWindow: 42, MinAdjustment: decimal.NewFromFloat(0.2)}, discard())

	metrics, err := m.Metrics(context.Background(), "mint")
	require.NoError(t, err)

	assert.True(t, metrics.Current.GreaterThan(metrics.Average))
	assert.True(t, metrics.AdjustmentFactor.LessThan(decimal.NewFromInt(1)))
	assert.True(t, metrics.AdjustmentFactor.GreaterThanOrEqual(decimal.NewFromFloat(0.2)))
}

func TestFactorFloorsAtMinAdjustment(t *testing.T) {
	m := NewManager(nil, Config{MinAdjustment: decimal.NewFromFloat(0.2)}, discard())

	// Current 100x the average drives 1/ratio far below the floor.
	factor := m.factor(decimal.NewFromInt(100), decimal.NewFromInt(1))
	assert.True(t, factor.Equal(decimal.NewFromFloat(0.2)), "got %s", factor)
}

func TestFactorCapsAtMaxReduction(t *testing.T) {
	m := NewManager(nil, Config{
		MinAdjustment: decimal.NewFromFloat(0.2),
		MaxReduction:  decimal.NewFromFloat(0.5),
	}, discard())

	// A calm market (ratio < 1) would yield factor 1, but the cap holds it
	// at 1 - MaxReduction.
	factor := m.factor(decimal.NewFromInt(1), decimal.NewFromInt(2))
	assert.True(t, factor.Equal(decimal.NewFromFloat(0.5)), "got %s", factor)
}

func TestFactorZeroVolatilityIsNeutral(t *testing.T) {
	m := NewManager(nil, Config{
		MinAdjustment: decimal.NewFromFloat(0.2),
		MaxReduction:  decimal.NewFromFloat(0.5),
	}, discard())

	factor := m.factor(decimal.Zero, decimal.Zero)
	assert.True(t, factor.Equal(decimal.NewFromInt(1)), "got %s", factor)
}

func TestAdjustPositionDegradesOnError(t *testing.T) {
	src := &stubBars{err: errors.New("upstream down")}
	m := NewManager(src, Config{}, discard())

	amount := decimal.NewFromInt(500)
	adjusted := m.AdjustPosition(context.Background(), amount, "mint")
	assert.True(t, adjusted.Equal(amount))
}

func TestTrueRangeAverageNeedsTwoBars(t *testing.T) {
	assert.True(t, trueRangeAverage(nil).IsZero())
	assert.True(t, trueRangeAverage(flatBars(1, 11, 9, 10)).IsZero())
}

func TestTrueRangeUsesPriorClose(t *testing.T) {
	// Gap down: prior close above the bar's high widens the range.
	bars := []domain.Bar{
		{High: decimal.NewFromInt(20), Low: decimal.NewFromInt(18), Close: decimal.NewFromInt(19)},
		{High: decimal.NewFromInt(15), Low: decimal.NewFromInt(14), Close: decimal.NewFromInt(14)},
	}
	// true range = max(15, 19) - min(14, 19) = 5
	assert.True(t, trueRangeAverage(bars).Equal(decimal.NewFromInt(5)))
}
