package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SOLTRADER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SOLTRADER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.SecretKey, "SOLTRADER_WALLET_SECRET_KEY")

	// ── RPC ──
	setStr(&cfg.RPC.Endpoint, "SOLTRADER_RPC_ENDPOINT")
	setDuration(&cfg.RPC.ConfirmInterval, "SOLTRADER_RPC_CONFIRM_INTERVAL")
	setDuration(&cfg.RPC.ConfirmTimeout, "SOLTRADER_RPC_CONFIRM_TIMEOUT")

	// ── Jupiter ──
	setStr(&cfg.Jupiter.BaseURL, "SOLTRADER_JUPITER_BASE_URL")

	// ── Birdeye ──
	setStr(&cfg.Birdeye.BaseURL, "SOLTRADER_BIRDEYE_BASE_URL")
	setStr(&cfg.Birdeye.ApiKey, "SOLTRADER_BIRDEYE_API_KEY")

	// ── Sentiment ──
	setStr(&cfg.Sentiment.BaseURL, "SOLTRADER_SENTIMENT_BASE_URL")
	setStr(&cfg.Sentiment.ApiKey, "SOLTRADER_SENTIMENT_API_KEY")
	setStringSlice(&cfg.Sentiment.Topics, "SOLTRADER_SENTIMENT_TOPICS")
	setInt(&cfg.Sentiment.WindowMinutes, "SOLTRADER_SENTIMENT_WINDOW_MINUTES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SOLTRADER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SOLTRADER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SOLTRADER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SOLTRADER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SOLTRADER_REDIS_MAX_RETRIES")

	// ── Cache ──
	setDuration(&cfg.Cache.PriceTTL, "SOLTRADER_CACHE_PRICE_TTL")
	setDuration(&cfg.Cache.BarsTTL, "SOLTRADER_CACHE_BARS_TTL")
	setDuration(&cfg.Cache.HealthTTL, "SOLTRADER_CACHE_HEALTH_TTL")

	// ── Breaker ──
	setInt(&cfg.Breaker.Threshold, "SOLTRADER_BREAKER_THRESHOLD")
	setDuration(&cfg.Breaker.ResetTimeout, "SOLTRADER_BREAKER_RESET_TIMEOUT")

	// ── Retry ──
	setInt(&cfg.Retry.MaxAttempts, "SOLTRADER_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.InitialDelay, "SOLTRADER_RETRY_INITIAL_DELAY")
	setDuration(&cfg.Retry.MaxDelay, "SOLTRADER_RETRY_MAX_DELAY")

	// ── Trading ──
	setStr(&cfg.Trading.StableMint, "SOLTRADER_TRADING_STABLE_MINT")
	setInt(&cfg.Trading.DefaultSlippageBps, "SOLTRADER_TRADING_DEFAULT_SLIPPAGE_BPS")
	setInt(&cfg.Trading.MaxSlippageBps, "SOLTRADER_TRADING_MAX_SLIPPAGE_BPS")
	setFloat64(&cfg.Trading.MaxPriceImpactPct, "SOLTRADER_TRADING_MAX_PRICE_IMPACT_PCT")
	setInt(&cfg.Trading.MaxRoutes, "SOLTRADER_TRADING_MAX_ROUTES")
	setFloat64(&cfg.Trading.StopLossPct, "SOLTRADER_TRADING_STOP_LOSS_PCT")
	setFloat64(&cfg.Trading.NegativeSentiment, "SOLTRADER_TRADING_NEGATIVE_SENTIMENT_THRESHOLD")
	setFloat64(&cfg.Trading.SentimentShrink, "SOLTRADER_TRADING_SENTIMENT_SHRINK_FACTOR")
	setFloat64(&cfg.Trading.HealthThreshold, "SOLTRADER_TRADING_HEALTH_THRESHOLD")
	setInt(&cfg.Trading.HistorySize, "SOLTRADER_TRADING_HISTORY_SIZE")

	// ── Volatility ──
	setInt(&cfg.Volatility.Window, "SOLTRADER_VOLATILITY_WINDOW")
	setInt(&cfg.Volatility.AverageWindow, "SOLTRADER_VOLATILITY_AVERAGE_WINDOW")
	setFloat64(&cfg.Volatility.MinAdjustment, "SOLTRADER_VOLATILITY_MIN_ADJUSTMENT")
	setFloat64(&cfg.Volatility.MaxReduction, "SOLTRADER_VOLATILITY_MAX_REDUCTION")

	// ── Risk ──
	setDuration(&cfg.Risk.Interval, "SOLTRADER_RISK_INTERVAL")

	// ── Arbitrage ──
	setBool(&cfg.Arbitrage.Enabled, "SOLTRADER_ARBITRAGE_ENABLED")
	setStringSlice(&cfg.Arbitrage.Venues, "SOLTRADER_ARBITRAGE_VENUES")
	setFloat64(&cfg.Arbitrage.MinProfitPct, "SOLTRADER_ARBITRAGE_MIN_PROFIT_PCT")
	setInt64(&cfg.Arbitrage.ReferenceAmount, "SOLTRADER_ARBITRAGE_REFERENCE_AMOUNT")
	setDuration(&cfg.Arbitrage.Interval, "SOLTRADER_ARBITRAGE_INTERVAL")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "SOLTRADER_FEED_ENABLED")
	setStr(&cfg.Feed.URL, "SOLTRADER_FEED_URL")
	setStringSlice(&cfg.Feed.Mints, "SOLTRADER_FEED_MINTS")
	setDuration(&cfg.Feed.ReconnectDelay, "SOLTRADER_FEED_RECONNECT_DELAY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SOLTRADER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SOLTRADER_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Channels, "SOLTRADER_NOTIFY_CHANNELS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SOLTRADER_MODE")
	setStr(&cfg.LogLevel, "SOLTRADER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
