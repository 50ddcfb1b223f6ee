// Package config defines the top-level configuration for the trader and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SOLTRADER_* environment
// variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	RPC        RPCConfig        `toml:"rpc"`
	Jupiter    JupiterConfig    `toml:"jupiter"`
	Birdeye    BirdeyeConfig    `toml:"birdeye"`
	Sentiment  SentimentConfig  `toml:"sentiment"`
	Redis      RedisConfig      `toml:"redis"`
	Cache      CacheConfig      `toml:"cache"`
	Breaker    BreakerConfig    `toml:"breaker"`
	Retry      RetryConfig      `toml:"retry"`
	Trading    TradingConfig    `toml:"trading"`
	Volatility VolatilityConfig `toml:"volatility"`
	Risk       RiskConfig       `toml:"risk"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Feed       FeedConfig       `toml:"feed"`
	Notify     NotifyConfig     `toml:"notify"`
	Tokens     []TokenConfig    `toml:"tokens"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the trading keypair.
type WalletConfig struct {
	// SecretKey is the base58-encoded 64-byte keypair (or 32-byte seed).
	SecretKey string `toml:"secret_key"`
}

// RPCConfig holds chain RPC parameters.
type RPCConfig struct {
	Endpoint        string   `toml:"endpoint"`
	ConfirmInterval duration `toml:"confirm_interval"`
	ConfirmTimeout  duration `toml:"confirm_timeout"`
}

// JupiterConfig holds the swap aggregator endpoint.
type JupiterConfig struct {
	BaseURL string `toml:"base_url"`
}

// BirdeyeConfig holds the market-data provider endpoint and key.
type BirdeyeConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// SentimentConfig holds the social-sentiment provider parameters.
type SentimentConfig struct {
	BaseURL       string   `toml:"base_url"`
	ApiKey        string   `toml:"api_key"`
	Topics        []string `toml:"topics"`
	WindowMinutes int      `toml:"window_minutes"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// CacheConfig holds market-data cache TTLs.
type CacheConfig struct {
	PriceTTL  duration `toml:"price_ttl"`
	BarsTTL   duration `toml:"bars_ttl"`
	HealthTTL duration `toml:"health_ttl"`
}

// BreakerConfig holds circuit-breaker parameters for the upstream data
// provider.
type BreakerConfig struct {
	Threshold    int      `toml:"threshold"`
	ResetTimeout duration `toml:"reset_timeout"`
}

// RetryConfig holds the shared retry policy for network calls.
type RetryConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	InitialDelay duration `toml:"initial_delay"`
	MaxDelay     duration `toml:"max_delay"`
}

// TradingConfig holds core execution parameters.
type TradingConfig struct {
	StableMint         string  `toml:"stable_mint"`
	DefaultSlippageBps int     `toml:"default_slippage_bps"`
	MaxSlippageBps     int     `toml:"max_slippage_bps"`
	MaxPriceImpactPct  float64 `toml:"max_price_impact_pct"`
	MaxRoutes          int     `toml:"max_routes"`
	StopLossPct        float64 `toml:"stop_loss_pct"`
	NegativeSentiment  float64 `toml:"negative_sentiment_threshold"`
	SentimentShrink    float64 `toml:"sentiment_shrink_factor"`
	HealthThreshold    float64 `toml:"health_threshold"`
	HistorySize        int     `toml:"history_size"`
}

// VolatilityConfig holds the sizing-adjustment parameters.
type VolatilityConfig struct {
	Window        int     `toml:"window"`
	AverageWindow int     `toml:"average_window"`
	MinAdjustment float64 `toml:"min_adjustment"`
	MaxReduction  float64 `toml:"max_reduction"`
}

// RiskConfig holds the stop-loss loop parameters.
type RiskConfig struct {
	Interval duration `toml:"interval"`
}

// ArbitrageConfig holds cross-venue detection parameters.
type ArbitrageConfig struct {
	Enabled         bool         `toml:"enabled"`
	Venues          []string     `toml:"venues"`
	MinProfitPct    float64      `toml:"min_profit_pct"`
	ReferenceAmount int64        `toml:"reference_amount"`
	Interval        duration     `toml:"interval"`
	Pairs           []PairConfig `toml:"pairs"`
}

// PairConfig is a token pair scanned for arbitrage.
type PairConfig struct {
	InputMint  string `toml:"input_mint"`
	OutputMint string `toml:"output_mint"`
}

// FeedConfig holds the websocket price feed parameters.
type FeedConfig struct {
	Enabled        bool     `toml:"enabled"`
	URL            string   `toml:"url"`
	Mints          []string `toml:"mints"`
	ReconnectDelay duration `toml:"reconnect_delay"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Channels       []string `toml:"channels"`
}

// TokenConfig registers a tradable token and its on-chain decimals.
type TokenConfig struct {
	Symbol   string `toml:"symbol"`
	Mint     string `toml:"mint"`
	Decimals int    `toml:"decimals"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		RPC: RPCConfig{
			Endpoint:        "https://api.mainnet-beta.solana.com",
			ConfirmInterval: duration{2 * time.Second},
			ConfirmTimeout:  duration{60 * time.Second},
		},
		Jupiter: JupiterConfig{
			BaseURL: "https://quote-api.jup.ag/v4",
		},
		Birdeye: BirdeyeConfig{
			BaseURL: "https://public-api.birdeye.so",
		},
		Sentiment: SentimentConfig{
			BaseURL:       "https://lunarcrush.com/api/v4",
			Topics:        []string{"solana"},
			WindowMinutes: 60,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			PriceTTL:  duration{15 * time.Second},
			BarsTTL:   duration{5 * time.Minute},
			HealthTTL: duration{time.Minute},
		},
		Breaker: BreakerConfig{
			Threshold:    5,
			ResetTimeout: duration{60 * time.Second},
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: duration{250 * time.Millisecond},
			MaxDelay:     duration{5 * time.Second},
		},
		Trading: TradingConfig{
			StableMint:         "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			DefaultSlippageBps: 50,
			MaxSlippageBps:     100,
			MaxPriceImpactPct:  1.5,
			MaxRoutes:          3,
			StopLossPct:        0.05,
			NegativeSentiment:  0.5,
			SentimentShrink:    0.5,
			HealthThreshold:    0.8,
			HistorySize:        50,
		},
		Volatility: VolatilityConfig{
			Window:        14,
			AverageWindow: 42,
			MinAdjustment: 0.2,
			MaxReduction:  0.5,
		},
		Risk: RiskConfig{
			Interval: duration{30 * time.Second},
		},
		Arbitrage: ArbitrageConfig{
			Enabled:         false,
			Venues:          []string{"Orca", "Raydium", "Phoenix"},
			MinProfitPct:    0.01,
			ReferenceAmount: 1_000_000,
			Interval:        duration{time.Minute},
		},
		Feed: FeedConfig{
			Enabled:        false,
			ReconnectDelay: duration{2 * time.Second},
		},
		Notify: NotifyConfig{
			Channels: []string{"trades", "risk", "arb"},
		},
		Tokens: []TokenConfig{
			{Symbol: "SOL", Mint: "So11111111111111111111111111111111111111112", Decimals: 9},
			{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":     true,
	"monitor":   true,
	"arbitrage": true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, arbitrage, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading modes need a signing key.
	needsWallet := c.Mode == "trade" || c.Mode == "full"
	if needsWallet && c.Wallet.SecretKey == "" {
		errs = append(errs, "wallet: secret_key must be set for mode "+c.Mode)
	}

	if c.RPC.Endpoint == "" {
		errs = append(errs, "rpc: endpoint must not be empty")
	}
	if c.Jupiter.BaseURL == "" {
		errs = append(errs, "jupiter: base_url must not be empty")
	}
	if c.Birdeye.BaseURL == "" {
		errs = append(errs, "birdeye: base_url must not be empty")
	}
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Breaker.Threshold < 1 {
		errs = append(errs, "breaker: threshold must be >= 1")
	}
	if c.Breaker.ResetTimeout.Duration <= 0 {
		errs = append(errs, "breaker: reset_timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry: max_attempts must be >= 1")
	}

	if c.Trading.StableMint == "" {
		errs = append(errs, "trading: stable_mint must not be empty")
	}
	if c.Trading.DefaultSlippageBps < 0 || c.Trading.MaxSlippageBps < c.Trading.DefaultSlippageBps {
		errs = append(errs, "trading: max_slippage_bps must be >= default_slippage_bps >= 0")
	}
	if c.Trading.MaxPriceImpactPct <= 0 {
		errs = append(errs, "trading: max_price_impact_pct must be positive")
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		errs = append(errs, fmt.Sprintf("trading: stop_loss_pct must be in (0, 1), got %g", c.Trading.StopLossPct))
	}
	if c.Trading.HealthThreshold < 0 || c.Trading.HealthThreshold > 1 {
		errs = append(errs, fmt.Sprintf("trading: health_threshold must be in [0, 1], got %g", c.Trading.HealthThreshold))
	}

	if c.Volatility.Window < 2 {
		errs = append(errs, "volatility: window must be >= 2")
	}
	if c.Volatility.AverageWindow < c.Volatility.Window {
		errs = append(errs, "volatility: average_window must be >= window")
	}
	if c.Volatility.MinAdjustment <= 0 || c.Volatility.MinAdjustment > 1 {
		errs = append(errs, fmt.Sprintf("volatility: min_adjustment must be in (0, 1], got %g", c.Volatility.MinAdjustment))
	}
	if c.Volatility.MaxReduction < 0 || c.Volatility.MaxReduction >= 1 {
		errs = append(errs, fmt.Sprintf("volatility: max_reduction must be in [0, 1), got %g", c.Volatility.MaxReduction))
	}
	// The factor range must not be empty: the cap 1-max_reduction has to sit
	// at or above the floor.
	if 1-c.Volatility.MaxReduction < c.Volatility.MinAdjustment {
		errs = append(errs, "volatility: 1 - max_reduction must be >= min_adjustment")
	}

	if c.Risk.Interval.Duration <= 0 {
		errs = append(errs, "risk: interval must be positive")
	}

	if c.Arbitrage.Enabled || c.Mode == "arbitrage" {
		if len(c.Arbitrage.Venues) < 3 {
			errs = append(errs, "arbitrage: at least three venues are required")
		}
		if c.Arbitrage.MinProfitPct <= 0 {
			errs = append(errs, "arbitrage: min_profit_pct must be positive")
		}
		if c.Arbitrage.ReferenceAmount <= 0 {
			errs = append(errs, "arbitrage: reference_amount must be positive")
		}
		if len(c.Arbitrage.Pairs) == 0 {
			errs = append(errs, "arbitrage: at least one pair is required")
		}
	}

	if c.Feed.Enabled && c.Feed.URL == "" {
		errs = append(errs, "feed: url must not be empty when the feed is enabled")
	}

	if len(c.Tokens) == 0 {
		errs = append(errs, "tokens: at least one token must be registered")
	}
	seen := map[string]bool{}
	for i, t := range c.Tokens {
		if t.Mint == "" {
			errs = append(errs, fmt.Sprintf("tokens[%d]: mint must not be empty", i))
			continue
		}
		if seen[t.Mint] {
			errs = append(errs, fmt.Sprintf("tokens[%d]: duplicate mint %s", i, t.Mint))
		}
		seen[t.Mint] = true
		if t.Decimals < 0 || t.Decimals > 18 {
			errs = append(errs, fmt.Sprintf("tokens[%d]: decimals must be in [0, 18], got %d", i, t.Decimals))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// TokenRegistry maps mint addresses to their decimals for unit conversion.
type TokenRegistry struct {
	decimals map[string]int32
}

// Registry builds the token registry from the configured token list.
func (c *Config) Registry() *TokenRegistry {
	m := make(map[string]int32, len(c.Tokens))
	for _, t := range c.Tokens {
		m[t.Mint] = int32(t.Decimals)
	}
	return &TokenRegistry{decimals: m}
}

// Decimals returns the registered decimals for mint.
func (r *TokenRegistry) Decimals(mint string) (int32, bool) {
	d, ok := r.decimals[mint]
	return d, ok
}
