package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the trading key and signs transactions. Key custody lives
// outside this core.
type Wallet interface {
	PublicKey() string
	SignTransaction(tx []byte) ([]byte, error)
}

// Ledger submits signed transactions to the chain and awaits confirmation.
type Ledger interface {
	Submit(ctx context.Context, signedTx []byte) (signature string, err error)
	Confirm(ctx context.Context, signature string) error
	LatestBlockhash(ctx context.Context) (string, error)
}

// QuoteProvider is a venue aggregator that quotes swap routes and builds the
// corresponding unsigned transactions.
type QuoteProvider interface {
	// Quote returns candidate routes sorted best output first. An empty
	// slice means no venue could serve the request.
	Quote(ctx context.Context, req QuoteRequest) ([]Route, error)
	// SwapTransaction builds the unsigned transaction for a quoted route.
	SwapTransaction(ctx context.Context, route Route, ownerPubkey string) ([]byte, error)
}

// SentimentProvider scores recent market chatter in [-1, 1].
type SentimentProvider interface {
	Analyze(ctx context.Context, topics []string, window time.Duration) (decimal.Decimal, error)
}

// HealthProvider reports a qualitative liquidity/health score per venue in
// [0, 1] for the given token set.
type HealthProvider interface {
	Health(ctx context.Context, mints []string) (map[string]float64, error)
}

// MarketDataProvider is the upstream price and historical-bar source. Calls
// are network-bound and sit behind the market-data cache and its circuit
// breaker.
type MarketDataProvider interface {
	Price(ctx context.Context, mint string) (decimal.Decimal, error)
	HistoricalBars(ctx context.Context, mint string, limit int) ([]Bar, error)
}
