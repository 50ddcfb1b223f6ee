// Package lunarcrush is the REST client for the social-sentiment provider.
package lunarcrush

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

// Client fetches aggregate sentiment scores for a set of topics.
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
		logger:     logger.With(slog.String("component", "lunarcrush")),
	}
}

type sentimentResponse struct {
	Data struct {
		OverallScore float64 `json:"overall_score"`
	} `json:"data"`
}

// Analyze returns the overall sentiment for topics over the trailing window,
// clamped to [-1, 1].
func (c *Client) Analyze(ctx context.Context, topics []string, window time.Duration) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("topics", strings.Join(topics, ","))
	params.Set("window_minutes", strconv.Itoa(int(window.Minutes())))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sentiment?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lunarcrush: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lunarcrush: sentiment request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lunarcrush: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("lunarcrush: http %d", resp.StatusCode)
	}

	var parsed sentimentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("lunarcrush: decode response: %w", err)
	}

	score := decimal.NewFromFloat(parsed.Data.OverallScore)
	one := decimal.NewFromInt(1)
	if score.GreaterThan(one) {
		score = one
	}
	if score.LessThan(one.Neg()) {
		score = one.Neg()
	}
	return score, nil
}

// Compile-time interface check.
var _ domain.SentimentProvider = (*Client)(nil)
