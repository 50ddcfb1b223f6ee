// Package feed streams live price ticks over a websocket into the
// market-data cache so hot tokens stay fresh without upstream polling.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// PriceSink receives streamed prices.
type PriceSink interface {
	SetPrice(ctx context.Context, mint string, price decimal.Decimal) error
}

// Config holds the feed endpoint and subscription set.
type Config struct {
	URL            string
	Mints          []string
	ReconnectDelay time.Duration
}

// Feed maintains a websocket subscription and forwards ticks to the sink.
type Feed struct {
	sink   PriceSink
	cfg    Config
	logger *slog.Logger
	dial   func(ctx context.Context, url string) (*websocket.Conn, error)
}

// New creates a Feed.
func New(sink PriceSink, cfg Config, logger *slog.Logger) *Feed {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &Feed{
		sink:   sink,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "feed")),
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

type subscribeMessage struct {
	Type  string   `json:"type"`
	Mints []string `json:"mints"`
}

type tick struct {
	Mint  string          `json:"mint"`
	Price decimal.Decimal `json:"price"`
}

// Run connects and streams until ctx is canceled, reconnecting after
// transient failures.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := f.stream(ctx); err != nil {
			if ctx.Err() != nil {
				f.logger.InfoContext(ctx, "feed: stopped")
				return ctx.Err()
			}
			f.logger.WarnContext(ctx, "feed: connection lost, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("delay", f.cfg.ReconnectDelay))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

// stream runs one websocket session: subscribe, then forward ticks until the
// connection breaks or ctx is canceled.
func (f *Feed) stream(ctx context.Context) error {
	conn, err := f.dial(ctx, f.cfg.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Mints: f.cfg.Mints}); err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "feed: subscribed",
		slog.String("url", f.cfg.URL),
		slog.Int("mints", len(f.cfg.Mints)))

	// Unblock the read loop when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var t tick
		if err := json.Unmarshal(data, &t); err != nil {
			f.logger.DebugContext(ctx, "feed: skipping malformed tick",
				slog.String("error", err.Error()))
			continue
		}
		if t.Mint == "" || !t.Price.IsPositive() {
			continue
		}
		if err := f.sink.SetPrice(ctx, t.Mint, t.Price); err != nil {
			f.logger.WarnContext(ctx, "feed: price write failed",
				slog.String("mint", t.Mint),
				slog.String("error", err.Error()))
		}
	}
}
