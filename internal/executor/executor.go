// Package executor turns a quoted route into a confirmed on-chain swap and
// records the resulting open position.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
	"soltrader/internal/retry"
)

// Config holds execution parameters.
type Config struct {
	// StopLossPct is the default stop-loss fraction applied to every new
	// position, e.g. 0.05 for 5%.
	StopLossPct decimal.Decimal
}

// Executor signs, submits, and confirms swaps built from quoted routes.
type Executor struct {
	quotes    domain.QuoteProvider
	wallet    domain.Wallet
	ledger    domain.Ledger
	positions domain.PositionStore
	retry     retry.Policy
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Executor with all required dependencies.
func New(
	quotes domain.QuoteProvider,
	wallet domain.Wallet,
	ledger domain.Ledger,
	positions domain.PositionStore,
	policy retry.Policy,
	cfg Config,
	logger *slog.Logger,
) *Executor {
	if !cfg.StopLossPct.IsPositive() {
		cfg.StopLossPct = decimal.NewFromFloat(0.05)
	}
	return &Executor{
		quotes:    quotes,
		wallet:    wallet,
		ledger:    ledger,
		positions: positions,
		retry:     policy,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "executor")),
		now:       time.Now,
	}
}

// Execute performs the full swap lifecycle for a route: build the unsigned
// transaction, sign it, submit, and wait for confirmation. On success a
// position is opened under the transaction signature. Any failure before
// confirmation leaves no position behind.
func (e *Executor) Execute(ctx context.Context, route domain.Route) (domain.TradeResult, error) {
	if route.InAmount == nil || route.OutAmount == nil {
		return domain.TradeResult{}, fmt.Errorf("executor: %w: route has no amounts", domain.ErrValidation)
	}

	var unsigned []byte
	err := e.retry.Do(ctx, func() error {
		tx, err := e.quotes.SwapTransaction(ctx, route, e.wallet.PublicKey())
		if err != nil {
			return err
		}
		unsigned = tx
		return nil
	})
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("executor: build swap: %w: %w", domain.ErrExecution, err)
	}

	signed, err := e.wallet.SignTransaction(unsigned)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("executor: sign: %w: %w", domain.ErrExecution, err)
	}

	// Resubmitting an identical signed transaction is idempotent, so the
	// submit is retried under the shared policy.
	var signature string
	err = e.retry.Do(ctx, func() error {
		sig, err := e.ledger.Submit(ctx, signed)
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("executor: submit: %w: %w", domain.ErrExecution, err)
	}

	if err := e.ledger.Confirm(ctx, signature); err != nil {
		return domain.TradeResult{}, fmt.Errorf("executor: confirm %s: %w: %w", signature, domain.ErrExecution, err)
	}

	result := e.buildResult(route, signature)

	pos := domain.Position{
		ID:           signature,
		Mint:         route.OutputMint,
		EntryPrice:   entryPrice(result),
		CurrentPrice: entryPrice(result),
		Size:         result.OutputAmount,
		StopLossPct:  e.cfg.StopLossPct,
		OpenedAt:     result.Timestamp,
		UpdatedAt:    result.Timestamp,
	}
	pos.StopLoss = pos.EntryPrice.Mul(decimal.NewFromInt(1).Sub(e.cfg.StopLossPct))
	if err := e.positions.Create(ctx, pos); err != nil {
		// The swap is already on chain. Record the failure loudly but do not
		// fail the trade.
		e.logger.ErrorContext(ctx, "executor: position create failed",
			slog.String("signature", signature),
			slog.String("error", err.Error()))
	}

	e.logger.InfoContext(ctx, "executor: trade confirmed",
		slog.String("signature", signature),
		slog.String("input", route.InputMint),
		slog.String("output", route.OutputMint),
		slog.String("in_amount", result.InputAmount.String()),
		slog.String("out_amount", result.OutputAmount.String()),
		slog.String("price", result.ExecutionPrice.String()),
	)
	return result, nil
}

// buildResult converts the route's base-unit amounts to display units and
// derives the realized execution price.
func (e *Executor) buildResult(route domain.Route, signature string) domain.TradeResult {
	in := decimal.NewFromBigInt(route.InAmount, -route.InputDecimals)
	out := decimal.NewFromBigInt(route.OutAmount, -route.OutputDecimals)

	price := decimal.Zero
	if in.IsPositive() {
		price = out.Div(in)
	}

	fee := decimal.NewFromBigInt(route.TotalFee(), -route.OutputDecimals)

	return domain.TradeResult{
		Signature:      signature,
		InputMint:      route.InputMint,
		OutputMint:     route.OutputMint,
		InputAmount:    in,
		OutputAmount:   out,
		ExecutionPrice: price,
		SlippageBps:    route.SlippageBps,
		PriceImpactPct: route.PriceImpactPct,
		Fee:            fee,
		Venues:         route.Venues(),
		Timestamp:      e.now().UTC(),
	}
}

// entryPrice is the price paid per unit of the acquired token, in input-token
// terms. It is the value the risk loop compares against the live price.
func entryPrice(res domain.TradeResult) decimal.Decimal {
	if !res.OutputAmount.IsPositive() {
		return decimal.Zero
	}
	return res.InputAmount.Div(res.OutputAmount)
}
