// Package arbitrage periodically scans configured token pairs for
// cross-venue price divergence.
package arbitrage

import (
	"context"
	"log/slog"
	"time"

	"soltrader/internal/domain"
)

// Detector probes venues for a single pair and reports an opportunity, if
// any.
type Detector interface {
	DetectArbitrage(ctx context.Context, inputMint, outputMint string) (*domain.ArbOpportunity, error)
}

// Pair is a token pair to scan.
type Pair struct {
	InputMint  string
	OutputMint string
}

// Config holds the scan schedule and pair list.
type Config struct {
	Interval time.Duration
	Pairs    []Pair
}

// Scanner drives the detector over all configured pairs on a fixed interval.
type Scanner struct {
	detector Detector
	cfg      Config
	logger   *slog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(detector Detector, cfg Config, logger *slog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Scanner{
		detector: detector,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "arbitrage")),
	}
}

// Run scans until ctx is canceled. A failure on one pair never blocks the
// rest of the sweep.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "arbitrage: scanner started",
		slog.Int("pairs", len(s.cfg.Pairs)),
		slog.Duration("interval", s.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "arbitrage: scanner stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one detection pass over all configured pairs.
func (s *Scanner) Sweep(ctx context.Context) {
	for _, pair := range s.cfg.Pairs {
		opp, err := s.detector.DetectArbitrage(ctx, pair.InputMint, pair.OutputMint)
		if err != nil {
			s.logger.WarnContext(ctx, "arbitrage: detection failed",
				slog.String("input", pair.InputMint),
				slog.String("output", pair.OutputMint),
				slog.String("error", err.Error()),
			)
			continue
		}
		if opp != nil {
			s.logger.InfoContext(ctx, "arbitrage: opportunity recorded",
				slog.String("id", opp.ID),
				slog.String("profit_ratio", opp.ProfitRatio.String()),
			)
		}
	}
}
