package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"soltrader/internal/domain"
)

// Default ledger client tuning.
const (
	defaultTimeout         = 30 * time.Second
	defaultConfirmInterval = 2 * time.Second
	defaultConfirmTimeout  = 60 * time.Second
)

// RPCClient implements domain.Ledger over Solana HTTP JSON-RPC 2.0.
type RPCClient struct {
	endpoint        string
	client          *http.Client
	confirmInterval time.Duration
	confirmTimeout  time.Duration
	requestID       atomic.Uint64
	logger          *slog.Logger
}

// RPCOption configures an RPCClient.
type RPCOption func(*RPCClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) RPCOption {
	return func(c *RPCClient) { c.client = client }
}

// WithConfirmInterval sets the confirmation polling interval.
func WithConfirmInterval(d time.Duration) RPCOption {
	return func(c *RPCClient) { c.confirmInterval = d }
}

// WithConfirmTimeout sets how long Confirm waits before giving up.
func WithConfirmTimeout(d time.Duration) RPCOption {
	return func(c *RPCClient) { c.confirmTimeout = d }
}

// NewRPCClient creates a ledger client for the given RPC endpoint.
func NewRPCClient(endpoint string, logger *slog.Logger, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		endpoint:        endpoint,
		client:          &http.Client{Timeout: defaultTimeout},
		confirmInterval: defaultConfirmInterval,
		confirmTimeout:  defaultConfirmTimeout,
		logger:          logger.With(slog.String("component", "solana_rpc")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("solana: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("solana: read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana: %s: http %d: %s", method, resp.StatusCode, truncate(data, 256))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("solana: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("solana: %s: %w", method, rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("solana: decode %s result: %w", method, err)
		}
	}
	return nil
}

// Submit sends a signed transaction and returns its base58 signature.
func (c *RPCClient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	var signature string
	err := c.call(ctx, "sendTransaction",
		[]any{
			base64.StdEncoding.EncodeToString(signedTx),
			map[string]any{"encoding": "base64", "skipPreflight": false},
		},
		&signature,
	)
	if err != nil {
		return "", err
	}
	c.logger.DebugContext(ctx, "transaction submitted", slog.String("signature", signature))
	return signature, nil
}

type signatureStatus struct {
	ConfirmationStatus string `json:"confirmationStatus"`
	Err                any    `json:"err"`
}

type signatureStatusesResult struct {
	Value []*signatureStatus `json:"value"`
}

// Confirm polls signature status until the transaction is confirmed or
// finalized. An on-chain error or a timeout fails the confirmation.
func (c *RPCClient) Confirm(ctx context.Context, signature string) error {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		var result signatureStatusesResult
		err := c.call(ctx, "getSignatureStatuses",
			[]any{[]string{signature}, map[string]any{"searchTransactionHistory": true}},
			&result,
		)
		if err == nil && len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("solana: confirm %s: transaction failed on chain: %v", signature, status.Err)
			}
			switch status.ConfirmationStatus {
			case "confirmed", "finalized":
				return nil
			}
		}
		if err != nil {
			c.logger.WarnContext(ctx, "confirmation poll failed",
				slog.String("signature", signature),
				slog.String("error", err.Error()),
			)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("solana: confirm %s: timed out after %s", signature, c.confirmTimeout)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("solana: confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// LatestBlockhash returns the cluster's most recent blockhash.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (string, error) {
	var result latestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": "confirmed"}}, &result); err != nil {
		return "", err
	}
	return result.Value.Blockhash, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}

// Compile-time interface check.
var _ domain.Ledger = (*RPCClient)(nil)
