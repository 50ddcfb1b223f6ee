package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding created by a confirmed trade. CurrentPrice is
// refreshed by the risk loop; the position is removed when the stop-loss
// fires or the holder exits manually.
type Position struct {
	ID           string // transaction signature of the originating trade
	Mint         string
	EntryPrice   decimal.Decimal
	CurrentPrice decimal.Decimal
	Size         decimal.Decimal // display units
	StopLoss     decimal.Decimal // price level
	StopLossPct  decimal.Decimal // fraction, e.g. 0.05
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

// PositionStore owns the open-position collection. Implementations must be
// safe for concurrent use by the risk loop and in-flight trades.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Get(ctx context.Context, id string) (Position, error)
	List(ctx context.Context) ([]Position, error)
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal, ts time.Time) error
	// Remove deletes the position and reports whether it existed, so a
	// stop-loss breach is acted on exactly once.
	Remove(ctx context.Context, id string) (bool, error)
}
