// Package notify relays bus events (trades, stop-losses, arbitrage) to an
// external messaging channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"soltrader/internal/domain"
)

// Sender delivers a rendered notification.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Config selects which event channels are relayed.
type Config struct {
	Channels []string
}

// Notifier consumes bus channels and forwards rendered events to the sender.
type Notifier struct {
	bus    domain.EventBus
	sender Sender
	cfg    Config
	logger *slog.Logger
}

// New creates a Notifier. With no channels configured, all known channels
// are relayed.
func New(bus domain.EventBus, sender Sender, cfg Config, logger *slog.Logger) *Notifier {
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{domain.ChannelTrades, domain.ChannelRisk, domain.ChannelArb}
	}
	return &Notifier{
		bus:    bus,
		sender: sender,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "notify")),
	}
}

// Run consumes all configured channels until ctx is canceled.
func (n *Notifier) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, channel := range n.cfg.Channels {
		channel := channel
		g.Go(func() error {
			return n.consume(ctx, channel)
		})
	}
	return g.Wait()
}

func (n *Notifier) consume(ctx context.Context, channel string) error {
	messages, err := n.bus.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", channel, err)
	}
	n.logger.InfoContext(ctx, "notify: listening", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-messages:
			if !ok {
				return fmt.Errorf("notify: channel %s closed", channel)
			}
			text := render(payload)
			if text == "" {
				continue
			}
			if err := n.sender.Send(ctx, text); err != nil {
				n.logger.WarnContext(ctx, "notify: send failed",
					slog.String("channel", channel),
					slog.String("error", err.Error()))
			}
		}
	}
}

// render turns a bus payload into a human-readable line based on its event
// label. Unknown events are dropped.
func render(payload []byte) string {
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}

	switch envelope.Event {
	case domain.EventTradeExecuted:
		var ev domain.TradeExecutedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return ""
		}
		return fmt.Sprintf("Trade executed: %s %s -> %s %s (price %s, sig %s)",
			ev.InputAmount, ev.InputMint, ev.OutputAmount, ev.OutputMint,
			ev.ExecutionPrice, ev.Signature)
	case domain.EventStopLossTrigger:
		var ev domain.StopLossEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return ""
		}
		return fmt.Sprintf("Stop-loss triggered: %s down %s from entry %s (exit sig %s)",
			ev.Mint, ev.LossPct, ev.EntryPrice, ev.ExitSignature)
	case domain.EventArbOpportunity:
		var ev domain.ArbOpportunity
		if err := json.Unmarshal(payload, &ev); err != nil {
			return ""
		}
		return fmt.Sprintf("Arbitrage: buy %s on %s, sell on %s, ratio %s",
			ev.OutputMint, ev.BuyVenue, ev.SellVenue, ev.ProfitRatio)
	default:
		return ""
	}
}
