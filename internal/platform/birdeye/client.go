// Package birdeye is the REST client for the market-data provider: spot
// prices, historical OHLCV bars, and per-venue liquidity health scores.
package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/domain"
)

// Client talks to the provider's public data API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given API root and key.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With(slog.String("component", "birdeye")),
	}
}

type priceResponse struct {
	Data struct {
		Value float64 `json:"value"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Price returns the current USD price for mint.
func (c *Client) Price(ctx context.Context, mint string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("address", mint)

	var resp priceResponse
	if err := c.get(ctx, "/defi/price?"+params.Encode(), &resp); err != nil {
		return decimal.Zero, fmt.Errorf("birdeye: price %s: %w", mint, err)
	}
	if !resp.Success || resp.Data.Value <= 0 {
		return decimal.Zero, fmt.Errorf("birdeye: price %s: no price available", mint)
	}
	return decimal.NewFromFloat(resp.Data.Value), nil
}

type ohlcvResponse struct {
	Data struct {
		Items []struct {
			High     float64 `json:"h"`
			Low      float64 `json:"l"`
			Close    float64 `json:"c"`
			UnixTime int64   `json:"unixTime"`
		} `json:"items"`
	} `json:"data"`
	Success bool `json:"success"`
}

// HistoricalBars returns up to limit trailing 15-minute bars for mint,
// oldest first.
func (c *Client) HistoricalBars(ctx context.Context, mint string, limit int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("address", mint)
	params.Set("type", "15m")
	params.Set("limit", strconv.Itoa(limit))

	var resp ohlcvResponse
	if err := c.get(ctx, "/defi/ohlcv?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("birdeye: ohlcv %s: %w", mint, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("birdeye: ohlcv %s: request rejected", mint)
	}

	bars := make([]domain.Bar, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		bars = append(bars, domain.Bar{
			High:  decimal.NewFromFloat(item.High),
			Low:   decimal.NewFromFloat(item.Low),
			Close: decimal.NewFromFloat(item.Close),
			Time:  time.Unix(item.UnixTime, 0).UTC(),
		})
	}
	return bars, nil
}

type healthResponse struct {
	Data struct {
		Scores map[string]float64 `json:"scores"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Health returns per-venue liquidity/health scores in [0,1] for the given
// token set.
func (c *Client) Health(ctx context.Context, mints []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("addresses", strings.Join(mints, ","))

	var resp healthResponse
	if err := c.get(ctx, "/defi/venue_health?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("birdeye: venue health: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("birdeye: venue health: request rejected")
	}
	return resp.Data.Scores, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 256))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}

// Compile-time interface checks.
var (
	_ domain.MarketDataProvider = (*Client)(nil)
	_ domain.HealthProvider     = (*Client)(nil)
)
