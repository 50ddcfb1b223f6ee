package jupiter

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// quoteResponse is the aggregator's /quote payload: candidate routes sorted
// best output first.
type quoteResponse struct {
	Data []quoteRoute `json:"data"`
}

type quoteRoute struct {
	InAmount       string       `json:"inAmount"`
	OutAmount      string       `json:"outAmount"`
	PriceImpactPct string       `json:"priceImpactPct"`
	SlippageBps    int          `json:"slippageBps"`
	MarketInfos    []marketInfo `json:"marketInfos"`
}

type marketInfo struct {
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	LpFee      lpFee  `json:"lpFee"`
}

type lpFee struct {
	Amount string `json:"amount"`
	Mint   string `json:"mint"`
}

// swapResponse is the /swap payload carrying the unsigned transaction.
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func parseBigInt(s, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("jupiter: invalid %s amount %q", field, s)
	}
	return v, nil
}

// toDomainRoute converts a raw quote route, preserving the original JSON so
// the swap endpoint can consume it verbatim.
func (q quoteRoute) toDomainRoute(req domain.QuoteRequest, raw json.RawMessage) (domain.Route, error) {
	inAmount, err := parseBigInt(q.InAmount, "in")
	if err != nil {
		return domain.Route{}, err
	}
	outAmount, err := parseBigInt(q.OutAmount, "out")
	if err != nil {
		return domain.Route{}, err
	}

	impact := decimal.Zero
	if q.PriceImpactPct != "" {
		impact, err = decimal.NewFromString(q.PriceImpactPct)
		if err != nil {
			return domain.Route{}, fmt.Errorf("jupiter: invalid price impact %q: %w", q.PriceImpactPct, err)
		}
	}

	hops := make([]domain.RouteHop, 0, len(q.MarketInfos))
	for _, mi := range q.MarketInfos {
		hopIn, err := parseBigInt(mi.InAmount, "hop in")
		if err != nil {
			return domain.Route{}, err
		}
		hopOut, err := parseBigInt(mi.OutAmount, "hop out")
		if err != nil {
			return domain.Route{}, err
		}
		fee, err := parseBigInt(mi.LpFee.Amount, "fee")
		if err != nil {
			return domain.Route{}, err
		}
		hops = append(hops, domain.RouteHop{
			Venue:      mi.Label,
			InputMint:  mi.InputMint,
			OutputMint: mi.OutputMint,
			InAmount:   hopIn,
			OutAmount:  hopOut,
			FeeAmount:  fee,
			FeeMint:    mi.LpFee.Mint,
		})
	}

	return domain.Route{
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		SlippageBps:    q.SlippageBps,
		PriceImpactPct: impact,
		Hops:           hops,
		Raw:            raw,
	}, nil
}
