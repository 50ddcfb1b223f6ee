package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validRequest() TradeRequest {
	return TradeRequest{
		InputMint:  "usdc-mint",
		OutputMint: "sol-mint",
		Amount:     decimal.NewFromInt(100),
		Type:       OrderTypeMarket,
	}
}

func TestTradeRequestValidate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())

	tests := []struct {
		name   string
		mutate func(*TradeRequest)
	}{
		{"empty input mint", func(r *TradeRequest) { r.InputMint = "" }},
		{"empty output mint", func(r *TradeRequest) { r.OutputMint = "" }},
		{"identical mints", func(r *TradeRequest) { r.OutputMint = r.InputMint }},
		{"zero amount", func(r *TradeRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *TradeRequest) { r.Amount = decimal.NewFromInt(-1) }},
		{"limit without price", func(r *TradeRequest) { r.Type = OrderTypeLimit }},
		{"unknown order type", func(r *TradeRequest) { r.Type = "stop" }},
		{"negative slippage", func(r *TradeRequest) { r.SlippageBps = -1 }},
		{"expired deadline", func(r *TradeRequest) { r.Deadline = time.Now().Add(-time.Minute) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			assert.ErrorIs(t, req.Validate(), ErrValidation)
		})
	}
}

func TestTradeRequestLimitWithPrice(t *testing.T) {
	req := validRequest()
	req.Type = OrderTypeLimit
	req.LimitPrice = decimal.NewFromFloat(0.0065)
	assert.NoError(t, req.Validate())
}

func TestTradeRequestEmptyTypeDefaultsToMarket(t *testing.T) {
	req := validRequest()
	req.Type = ""
	assert.NoError(t, req.Validate())
}

func TestRouteVenuesAndTotalFee(t *testing.T) {
	r := Route{
		Hops: []RouteHop{
			{Venue: "Orca", FeeAmount: big.NewInt(100)},
			{Venue: "Raydium", FeeAmount: big.NewInt(250)},
			{Venue: "Phoenix"}, // nil fee
		},
	}

	assert.Equal(t, []string{"Orca", "Raydium", "Phoenix"}, r.Venues())
	assert.Equal(t, big.NewInt(350), r.TotalFee())
}

func TestRouteTotalFeeEmpty(t *testing.T) {
	assert.Equal(t, int64(0), (Route{}).TotalFee().Int64())
}
