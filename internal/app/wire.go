package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/arbitrage"
	"soltrader/internal/breaker"
	"soltrader/internal/cache/redis"
	"soltrader/internal/config"
	"soltrader/internal/domain"
	"soltrader/internal/engine"
	"soltrader/internal/executor"
	"soltrader/internal/health"
	"soltrader/internal/marketdata"
	"soltrader/internal/notify"
	"soltrader/internal/platform/birdeye"
	"soltrader/internal/platform/jupiter"
	"soltrader/internal/platform/lunarcrush"
	"soltrader/internal/positions"
	"soltrader/internal/retry"
	"soltrader/internal/risk"
	"soltrader/internal/routing"
	"soltrader/internal/solana"
	"soltrader/internal/volatility"
)

// Dependencies bundles every service the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Bus       domain.EventBus
	Positions domain.PositionStore

	MarketData *marketdata.Service
	Engine     *engine.Engine
	Risk       *risk.Monitor
	Scanner    *arbitrage.Scanner
	Notifier   *notify.Notifier

	// FeedSink is non-nil only when the websocket feed is enabled.
	FeedSink *marketdata.Service
}

// needsWallet returns true for modes that sign and submit transactions.
func needsWallet(mode string) bool {
	switch mode {
	case "trade", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis: cache and event bus ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	cache := redis.NewMarketDataCache(redisClient)
	deps.Bus = redis.NewEventBus(redisClient)

	// --- Market data: provider behind cache, breaker, and retry ---
	policy := retry.Policy{
		MaxAttempts:  uint64(cfg.Retry.MaxAttempts),
		InitialDelay: cfg.Retry.InitialDelay.Duration,
		MaxDelay:     cfg.Retry.MaxDelay.Duration,
	}
	brk := breaker.New(cfg.Breaker.Threshold, cfg.Breaker.ResetTimeout.Duration)
	birdeyeClient := birdeye.NewClient(cfg.Birdeye.BaseURL, cfg.Birdeye.ApiKey, logger)

	deps.MarketData = marketdata.NewService(birdeyeClient, cache, brk, policy, marketdata.Config{
		PriceTTL: cfg.Cache.PriceTTL.Duration,
		BarsTTL:  cfg.Cache.BarsTTL.Duration,
	}, logger)
	deps.FeedSink = deps.MarketData

	// --- Sizing and health ---
	vol := volatility.NewManager(deps.MarketData, volatility.Config{
		Window:        cfg.Volatility.Window,
		AverageWindow: cfg.Volatility.AverageWindow,
		MinAdjustment: decimal.NewFromFloat(cfg.Volatility.MinAdjustment),
		MaxReduction:  decimal.NewFromFloat(cfg.Volatility.MaxReduction),
	}, logger)

	healthMon := health.NewMonitor(birdeyeClient, cache, health.Config{
		Threshold: cfg.Trading.HealthThreshold,
		TTL:       cfg.Cache.HealthTTL.Duration,
	}, logger)

	// --- Routing ---
	jupiterClient := jupiter.NewClient(cfg.Jupiter.BaseURL, logger)
	finder := routing.NewFinder(jupiterClient, deps.MarketData, vol, healthMon, cfg.Registry(), routing.Config{
		DefaultSlippageBps: cfg.Trading.DefaultSlippageBps,
		MaxRoutes:          cfg.Trading.MaxRoutes,
	}, logger)

	// --- Execution ---
	deps.Positions = positions.NewStore()

	var exec engine.RouteExecutor
	if needsWallet(cfg.Mode) {
		wallet, err := solana.NewWallet(cfg.Wallet.SecretKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		ledger := solana.NewRPCClient(cfg.RPC.Endpoint, logger,
			solana.WithConfirmInterval(cfg.RPC.ConfirmInterval.Duration),
			solana.WithConfirmTimeout(cfg.RPC.ConfirmTimeout.Duration),
		)
		exec = executor.New(jupiterClient, wallet, ledger, deps.Positions, policy, executor.Config{
			StopLossPct: decimal.NewFromFloat(cfg.Trading.StopLossPct),
		}, logger)
	}

	// --- Engine ---
	sentimentClient := lunarcrush.NewClient(cfg.Sentiment.BaseURL, cfg.Sentiment.ApiKey, logger)
	history := engine.NewHistory(cfg.Trading.HistorySize)

	deps.Engine = engine.New(finder, exec, jupiterClient, sentimentClient, deps.Bus, history, engine.Config{
		StableMint:         cfg.Trading.StableMint,
		MaxSlippageBps:     cfg.Trading.MaxSlippageBps,
		MaxPriceImpactPct:  decimal.NewFromFloat(cfg.Trading.MaxPriceImpactPct),
		SentimentTopics:    cfg.Sentiment.Topics,
		SentimentWindow:    time.Duration(cfg.Sentiment.WindowMinutes) * time.Minute,
		NegativeThreshold:  decimal.NewFromFloat(cfg.Trading.NegativeSentiment),
		ShrinkFactor:       decimal.NewFromFloat(cfg.Trading.SentimentShrink),
		ArbVenues:          cfg.Arbitrage.Venues,
		ArbMinProfit:       decimal.NewFromFloat(cfg.Arbitrage.MinProfitPct),
		ArbReferenceAmount: big.NewInt(cfg.Arbitrage.ReferenceAmount),
	}, logger)

	// --- Risk loop ---
	deps.Risk = risk.NewMonitor(deps.Positions, deps.MarketData, vol, deps.Engine, deps.Bus, risk.Config{
		Interval: cfg.Risk.Interval.Duration,
	}, logger)

	// --- Arbitrage scanner ---
	if cfg.Arbitrage.Enabled || cfg.Mode == "arbitrage" {
		pairs := make([]arbitrage.Pair, 0, len(cfg.Arbitrage.Pairs))
		for _, p := range cfg.Arbitrage.Pairs {
			pairs = append(pairs, arbitrage.Pair{InputMint: p.InputMint, OutputMint: p.OutputMint})
		}
		deps.Scanner = arbitrage.NewScanner(deps.Engine, arbitrage.Config{
			Interval: cfg.Arbitrage.Interval.Duration,
			Pairs:    pairs,
		}, logger)
	}

	// --- Notifications ---
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		sender := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		deps.Notifier = notify.New(deps.Bus, sender, notify.Config{
			Channels: cfg.Notify.Channels,
		}, logger)
	}

	return deps, cleanup, nil
}
