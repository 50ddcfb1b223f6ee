// Package jupiter is the REST client for the swap aggregator that quotes
// routes across liquidity venues and builds swap transactions.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"soltrader/internal/domain"
)

// Client talks to the aggregator's quote and swap endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given API root, e.g.
// "https://quote-api.jup.ag/v4".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With(slog.String("component", "jupiter")),
	}
}

// Quote requests candidate routes for the swap described by req. The
// aggregator sorts routes by output amount; ties keep the aggregator's
// ordering.
func (c *Client) Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.Route, error) {
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", req.Amount.String())
	if req.SlippageBps > 0 {
		params.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	}
	if req.MaxRoutes > 0 {
		params.Set("maxRoutes", strconv.Itoa(req.MaxRoutes))
	}
	if len(req.ExcludeVenues) > 0 {
		params.Set("excludeDexes", strings.Join(req.ExcludeVenues, ","))
	}
	if len(req.OnlyVenues) > 0 {
		params.Set("onlyDirectRoutes", "true")
		params.Set("dexes", strings.Join(req.OnlyVenues, ","))
	}

	body, err := c.get(ctx, "/quote?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("jupiter: quote %s->%s: %w", req.InputMint, req.OutputMint, err)
	}

	// Decode twice: typed for conversion, raw to hand each route back to the
	// swap endpoint untouched.
	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("jupiter: decode quote response: %w", err)
	}
	var rawResp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &rawResp); err != nil {
		return nil, fmt.Errorf("jupiter: decode raw quote response: %w", err)
	}

	routes := make([]domain.Route, 0, len(resp.Data))
	for i, q := range resp.Data {
		var raw json.RawMessage
		if i < len(rawResp.Data) {
			raw = rawResp.Data[i]
		}
		route, err := q.toDomainRoute(req, raw)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// SwapTransaction builds the unsigned serialized transaction for a quoted
// route on behalf of ownerPubkey.
func (c *Client) SwapTransaction(ctx context.Context, route domain.Route, ownerPubkey string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"route":         route.Raw,
		"userPublicKey": ownerPubkey,
		"wrapUnwrapSOL": true,
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter: marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("jupiter: build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter: swap request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jupiter: read swap response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter: swap: http %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var swap swapResponse
	if err := json.Unmarshal(body, &swap); err != nil {
		return nil, fmt.Errorf("jupiter: decode swap response: %w", err)
	}
	tx, err := base64.StdEncoding.DecodeString(swap.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("jupiter: decode swap transaction: %w", err)
	}
	return tx, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}

// Compile-time interface check.
var _ domain.QuoteProvider = (*Client)(nil)
