package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single historical OHLC price bar for a token.
type Bar struct {
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
	Time  time.Time
}

// VolatilityMetrics describes current market volatility for a token and the
// position-size adjustment factor derived from it.
type VolatilityMetrics struct {
	Current          decimal.Decimal
	Average          decimal.Decimal
	AdjustmentFactor decimal.Decimal
}
