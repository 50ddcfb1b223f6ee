package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltrader/internal/domain"
)

type stubSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *stubSender) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *stubSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// chanBus is an in-process EventBus for tests.
type chanBus struct {
	mu       sync.Mutex
	channels map[string]chan []byte
}

func newChanBus() *chanBus {
	return &chanBus{channels: map[string]chan []byte{}}
}

func (b *chanBus) channel(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[name]
	if !ok {
		ch = make(chan []byte, 16)
		b.channels[name] = ch
	}
	return ch
}

func (b *chanBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.channel(channel) <- payload
	return nil
}

func (b *chanBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return b.channel(channel), nil
}

var _ domain.EventBus = (*chanBus)(nil)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderTradeExecuted(t *testing.T) {
	payload, err := json.Marshal(domain.TradeExecutedEvent{
		Event:          domain.EventTradeExecuted,
		Signature:      "sig-1",
		InputMint:      "usdc",
		OutputMint:     "sol",
		InputAmount:    decimal.NewFromInt(100),
		OutputAmount:   decimal.NewFromFloat(0.66),
		ExecutionPrice: decimal.NewFromFloat(0.0066),
	})
	require.NoError(t, err)

	text := render(payload)
	assert.Contains(t, text, "Trade executed")
	assert.Contains(t, text, "sig-1")
	assert.Contains(t, text, "0.66")
}

func TestRenderStopLoss(t *testing.T) {
	payload, err := json.Marshal(domain.StopLossEvent{
		Event:         domain.EventStopLossTrigger,
		Mint:          "sol",
		LossPct:       decimal.NewFromFloat(-0.06),
		EntryPrice:    decimal.NewFromInt(100),
		ExitSignature: "exit-sig",
	})
	require.NoError(t, err)

	text := render(payload)
	assert.Contains(t, text, "Stop-loss")
	assert.Contains(t, text, "exit-sig")
}

func TestRenderDropsUnknownAndMalformed(t *testing.T) {
	assert.Empty(t, render([]byte(`{"event":"mystery"}`)))
	assert.Empty(t, render([]byte("not json")))
}

func TestNotifierForwardsBusEvents(t *testing.T) {
	bus := newChanBus()
	sender := &stubSender{}
	n := New(bus, sender, Config{Channels: []string{domain.ChannelTrades}}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := n.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	}()

	payload, err := json.Marshal(domain.TradeExecutedEvent{
		Event:     domain.EventTradeExecuted,
		Signature: "sig-xyz",
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, domain.ChannelTrades, payload))

	require.Eventually(t, func() bool {
		return len(sender.messages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, sender.messages()[0], "sig-xyz")

	cancel()
	wg.Wait()
}
