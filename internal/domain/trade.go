package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType indicates how a trade request should be priced.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// TradeRequest is an instruction to swap an amount of the input token for
// the output token. Amount is in display units of the input token.
type TradeRequest struct {
	InputMint   string
	OutputMint  string
	Amount      decimal.Decimal
	Type        OrderType
	LimitPrice  decimal.Decimal // required for limit orders
	SlippageBps int             // 0 means the configured default
	Deadline    time.Time       // zero means no deadline
}

// Validate checks the request parameters. All failures wrap ErrValidation so
// callers can classify them with errors.Is.
func (r TradeRequest) Validate() error {
	if r.InputMint == "" {
		return fmt.Errorf("%w: input mint is empty", ErrValidation)
	}
	if r.OutputMint == "" {
		return fmt.Errorf("%w: output mint is empty", ErrValidation)
	}
	if r.InputMint == r.OutputMint {
		return fmt.Errorf("%w: input and output mint are identical", ErrValidation)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be > 0, got %s", ErrValidation, r.Amount)
	}
	switch r.Type {
	case OrderTypeMarket, "":
	case OrderTypeLimit:
		if !r.LimitPrice.IsPositive() {
			return fmt.Errorf("%w: limit order requires a limit price", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrValidation, r.Type)
	}
	if r.SlippageBps < 0 {
		return fmt.Errorf("%w: slippage bps must be >= 0, got %d", ErrValidation, r.SlippageBps)
	}
	if !r.Deadline.IsZero() && r.Deadline.Before(time.Now().UTC()) {
		return fmt.Errorf("%w: deadline already passed", ErrValidation)
	}
	return nil
}

// TradeResult describes a confirmed on-chain swap. Amounts are in display
// units; the execution price is output over input.
type TradeResult struct {
	Signature      string
	InputMint      string
	OutputMint     string
	InputAmount    decimal.Decimal
	OutputAmount   decimal.Decimal
	ExecutionPrice decimal.Decimal
	SlippageBps    int
	PriceImpactPct decimal.Decimal
	Fee            decimal.Decimal
	Venues         []string
	Timestamp      time.Time
}
