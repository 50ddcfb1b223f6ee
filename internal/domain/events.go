package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Event bus channel names.
const (
	ChannelTrades = "trades"
	ChannelRisk   = "risk"
	ChannelArb    = "arb"
)

// Event type labels carried in the "event" field of published payloads.
const (
	EventTradeExecuted   = "trade_executed"
	EventStopLossTrigger = "stop_loss_triggered"
	EventArbOpportunity  = "arb_opportunity"
)

// TradeExecutedEvent is published on ChannelTrades after a confirmed swap.
type TradeExecutedEvent struct {
	Event          string          `json:"event"`
	Signature      string          `json:"signature"`
	InputMint      string          `json:"input_mint"`
	OutputMint     string          `json:"output_mint"`
	InputAmount    decimal.Decimal `json:"input_amount"`
	OutputAmount   decimal.Decimal `json:"output_amount"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	Venues         []string        `json:"venues"`
	Timestamp      time.Time       `json:"timestamp"`
}

// StopLossEvent is published on ChannelRisk when the risk loop forces an exit.
type StopLossEvent struct {
	Event         string          `json:"event"`
	PositionID    string          `json:"position_id"`
	Mint          string          `json:"mint"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	LossPct       decimal.Decimal `json:"loss_pct"`
	Threshold     decimal.Decimal `json:"threshold"`
	ExitSignature string          `json:"exit_signature"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ArbOpportunity is published on ChannelArb when the cross-venue profit ratio
// exceeds the configured minimum. Detection never executes the trade itself.
type ArbOpportunity struct {
	ID              string          `json:"id"`
	Event           string          `json:"event"`
	InputMint       string          `json:"input_mint"`
	OutputMint      string          `json:"output_mint"`
	BuyVenue        string          `json:"buy_venue"`
	SellVenue       string          `json:"sell_venue"`
	BuyOutAmount    *big.Int        `json:"buy_out_amount"`
	SellOutAmount   *big.Int        `json:"sell_out_amount"`
	ProfitRatio     decimal.Decimal `json:"profit_ratio"`
	ReferenceAmount *big.Int        `json:"reference_amount"`
	DetectedAt      time.Time       `json:"detected_at"`
}
