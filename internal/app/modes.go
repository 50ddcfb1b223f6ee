package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"soltrader/internal/feed"
)

// TradeMode runs the risk loop and supporting feeds; trades are executed on
// demand through the engine.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps)
	g.Go(func() error {
		return deps.Risk.Run(ctx)
	})
	return g.Wait()
}

// MonitorMode runs only the risk loop and notifications; no new positions
// are opened.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps)
	g.Go(func() error {
		return deps.Risk.Run(ctx)
	})
	return g.Wait()
}

// ArbitrageMode runs the cross-venue scanner and notifications.
func (a *App) ArbitrageMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting arbitrage mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps)
	if deps.Scanner != nil {
		g.Go(func() error {
			return deps.Scanner.Run(ctx)
		})
	}
	return g.Wait()
}

// FullMode runs everything: risk loop, arbitrage scanner, price feed, and
// notifications.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps)
	g.Go(func() error {
		return deps.Risk.Run(ctx)
	})
	if deps.Scanner != nil {
		g.Go(func() error {
			return deps.Scanner.Run(ctx)
		})
	}
	return g.Wait()
}

// startCommon launches the goroutines shared by every mode: the websocket
// price feed (when enabled) and the notifier (when configured).
func (a *App) startCommon(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Feed.Enabled {
		priceFeed := feed.New(deps.FeedSink, feed.Config{
			URL:            a.cfg.Feed.URL,
			Mints:          a.cfg.Feed.Mints,
			ReconnectDelay: a.cfg.Feed.ReconnectDelay.Duration,
		}, a.logger)
		g.Go(func() error {
			return priceFeed.Run(ctx)
		})
	}
	if deps.Notifier != nil {
		g.Go(func() error {
			return deps.Notifier.Run(ctx)
		})
	}
}
