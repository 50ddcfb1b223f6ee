package domain

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"
)

// RouteHop is a single venue leg of a swap route. Amounts are on-chain base
// units and must never be mixed with display-unit decimals without an
// explicit conversion.
type RouteHop struct {
	Venue          string
	InputMint      string
	OutputMint     string
	InAmount       *big.Int
	OutAmount      *big.Int
	PriceImpactPct decimal.Decimal
	FeeAmount      *big.Int
	FeeMint        string
}

// Route is an ordered sequence of venue hops converting InAmount of the input
// mint into OutAmount of the output mint. A route is immutable once returned
// by a venue and is consumed exactly once by the trade executor.
type Route struct {
	InputMint      string
	OutputMint     string
	InputDecimals  int32
	OutputDecimals int32
	InAmount       *big.Int
	OutAmount      *big.Int
	SlippageBps    int
	PriceImpactPct decimal.Decimal
	Hops           []RouteHop

	// Raw is the venue's original quote payload, passed back verbatim when
	// requesting the swap transaction.
	Raw json.RawMessage
}

// Venues returns the ordered venue labels traversed by the route.
func (r Route) Venues() []string {
	labels := make([]string, 0, len(r.Hops))
	for _, h := range r.Hops {
		labels = append(labels, h.Venue)
	}
	return labels
}

// TotalFee sums the per-hop fee amounts in base units.
func (r Route) TotalFee() *big.Int {
	total := new(big.Int)
	for _, h := range r.Hops {
		if h.FeeAmount != nil {
			total.Add(total, h.FeeAmount)
		}
	}
	return total
}

// QuoteRequest asks a quote provider for candidate routes.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      *big.Int // base units of the input mint
	SlippageBps int
	MaxRoutes   int
	// ExcludeVenues removes unhealthy venues from route discovery.
	ExcludeVenues []string
	// OnlyVenues restricts discovery to the named venues (arbitrage probing).
	OnlyVenues []string
}
