package risk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltrader/internal/domain"
	"soltrader/internal/positions"
)

type stubPrices struct {
	prices map[string]decimal.Decimal
	err    error
}

func (s *stubPrices) Price(ctx context.Context, mint string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	p, ok := s.prices[mint]
	if !ok {
		return decimal.Zero, errors.New("no price available")
	}
	return p, nil
}

type stubVol struct {
	metrics domain.VolatilityMetrics
	err     error
}

func (s *stubVol) Metrics(ctx context.Context, mint string) (domain.VolatilityMetrics, error) {
	return s.metrics, s.err
}

type stubExiter struct {
	err   error
	exits []string
}

func (s *stubExiter) ExitPosition(ctx context.Context, pos domain.Position) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.exits = append(s.exits, pos.ID)
	return "exit-sig-" + pos.ID, nil
}

type recordingBus struct {
	published map[string][][]byte
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: map[string][][]byte{}}
}

func (b *recordingBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openPosition(t *testing.T, store *positions.Store, id string, entry float64) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), domain.Position{
		ID:          id,
		Mint:        "mint-" + id,
		EntryPrice:  decimal.NewFromFloat(entry),
		Size:        decimal.NewFromInt(10),
		StopLossPct: decimal.NewFromFloat(0.05),
		OpenedAt:    time.Now().UTC(),
	}))
}

func calmVol() *stubVol {
	return &stubVol{metrics: domain.VolatilityMetrics{
		Current: decimal.NewFromInt(1),
		Average: decimal.NewFromInt(1),
	}}
}

func newTestMonitor(store *positions.Store, prices *stubPrices, vol *stubVol, exiter *stubExiter, bus *recordingBus) *Monitor {
	return NewMonitor(store, prices, vol, exiter, bus, Config{Interval: time.Minute}, discard())
}

func TestStepHoldsWhenAboveStop(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(97)}}
	exiter := &stubExiter{}
	bus := newRecordingBus()

	m := newTestMonitor(store, prices, calmVol(), exiter, bus)
	m.Step(context.Background())

	assert.Empty(t, exiter.exits)
	assert.Equal(t, 1, store.Len())

	// Price was still refreshed on the position.
	pos, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, pos.CurrentPrice.Equal(decimal.NewFromFloat(97)))
}

func TestStepExitsOnStopLossBreach(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(94)}}
	exiter := &stubExiter{}
	bus := newRecordingBus()

	m := newTestMonitor(store, prices, calmVol(), exiter, bus)
	m.Step(context.Background())

	assert.Equal(t, []string{"p1"}, exiter.exits)
	assert.Equal(t, 0, store.Len())

	require.Len(t, bus.published["risk"], 1)
	var ev domain.StopLossEvent
	require.NoError(t, json.Unmarshal(bus.published["risk"][0], &ev))
	assert.Equal(t, domain.EventStopLossTrigger, ev.Event)
	assert.Equal(t, "p1", ev.PositionID)
	assert.Equal(t, "exit-sig-p1", ev.ExitSignature)
	assert.True(t, ev.LossPct.Equal(decimal.NewFromFloat(-0.06)))
}

func TestStepExitsOnUpwardBreach(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	// A 50% move past entry breaches the 5% threshold just like a drop does;
	// the exit locks in the gain.
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(150)}}
	exiter := &stubExiter{}
	bus := newRecordingBus()

	m := newTestMonitor(store, prices, calmVol(), exiter, bus)
	m.Step(context.Background())

	assert.Equal(t, []string{"p1"}, exiter.exits)
	assert.Equal(t, 0, store.Len())

	require.Len(t, bus.published["risk"], 1)
	var ev domain.StopLossEvent
	require.NoError(t, json.Unmarshal(bus.published["risk"][0], &ev))
	assert.True(t, ev.LossPct.Equal(decimal.NewFromFloat(0.5)))
}

func TestStepHoldsOnSmallGain(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(103)}}
	exiter := &stubExiter{}

	m := newTestMonitor(store, prices, calmVol(), exiter, newRecordingBus())
	m.Step(context.Background())

	assert.Empty(t, exiter.exits)
	assert.Equal(t, 1, store.Len())
}

func TestStepVolatilityWidensThreshold(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	// 6% down breaches the base 5% stop but not the widened one.
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(94)}}
	vol := &stubVol{metrics: domain.VolatilityMetrics{
		Current: decimal.NewFromFloat(1.5),
		Average: decimal.NewFromInt(1),
	}}
	exiter := &stubExiter{}

	m := newTestMonitor(store, prices, vol, exiter, newRecordingBus())
	m.Step(context.Background())

	assert.Empty(t, exiter.exits)
	assert.Equal(t, 1, store.Len())
}

func TestStepVolatilityFailureFallsBackToBaseStop(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(94)}}
	vol := &stubVol{err: errors.New("bars unavailable")}
	exiter := &stubExiter{}

	m := newTestMonitor(store, prices, vol, exiter, newRecordingBus())
	m.Step(context.Background())

	assert.Equal(t, []string{"p1"}, exiter.exits)
}

func TestStepExitFailureKeepsPosition(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "p1", 100)
	prices := &stubPrices{prices: map[string]decimal.Decimal{"mint-p1": decimal.NewFromFloat(90)}}
	exiter := &stubExiter{err: errors.New("no route")}
	bus := newRecordingBus()

	m := newTestMonitor(store, prices, calmVol(), exiter, bus)
	m.Step(context.Background())

	// Position survives for the next sweep; nothing was published.
	assert.Equal(t, 1, store.Len())
	assert.Empty(t, bus.published["risk"])
}

func TestStepOneFailureDoesNotBlockOthers(t *testing.T) {
	store := positions.NewStore()
	openPosition(t, store, "bad", 100)
	openPosition(t, store, "good", 100)
	// "mint-bad" has no price and fails its check; "mint-good" still exits.
	prices := &stubPrices{prices: map[string]decimal.Decimal{
		"mint-good": decimal.NewFromFloat(90),
	}}
	exiter := &stubExiter{}

	m := newTestMonitor(store, prices, calmVol(), exiter, newRecordingBus())
	m.Step(context.Background())

	assert.Equal(t, []string{"good"}, exiter.exits)
}
