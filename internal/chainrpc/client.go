// Package chainrpc talks JSON-RPC 2.0 to a vault lab node: a devnet-style
// chain exposing the vault and strategy under test. Amounts travel as decimal
// strings so arbitrary-precision values survive JSON.
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient is a JSON-RPC 2.0 client with retries and exponential backoff.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new lab node RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Node error codes surfaced for failed vault operations.
const (
	codeHealthCheck   = -32001
	codeLossAboveMax  = -32002
	codeEmptyPosition = -32003
)

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return mapNodeError(rpcResp.Error)
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// VaultSnapshot retrieves the current vault-level state.
func (c *HTTPClient) VaultSnapshot(ctx context.Context) (*snapshotResult, error) {
	var result snapshotResult
	if err := c.call(ctx, "vault_getSnapshot", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StrategyParams retrieves the per-strategy accounting state.
func (c *HTTPClient) StrategyParams(ctx context.Context) (*strategyParamsResult, error) {
	var result strategyParamsResult
	if err := c.call(ctx, "strategy_getParams", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SharesOf retrieves a holder's share balance.
func (c *HTTPClient) SharesOf(ctx context.Context, holder string) (string, error) {
	var result struct {
		Shares string `json:"shares"`
	}
	if err := c.call(ctx, "vault_getShares", []interface{}{holder}, &result); err != nil {
		return "", err
	}
	return result.Shares, nil
}

// Harvest triggers a harvest report and returns the realized amounts.
func (c *HTTPClient) Harvest(ctx context.Context) (*harvestResult, error) {
	var result harvestResult
	if err := c.call(ctx, "strategy_harvest", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetHealthCheck toggles the strategy's loss gate.
func (c *HTTPClient) SetHealthCheck(ctx context.Context, on bool) error {
	return c.call(ctx, "strategy_setHealthCheck", []interface{}{on}, nil)
}

// Drain removes the strategy's external balance and returns the amount moved.
func (c *HTTPClient) Drain(ctx context.Context) (string, error) {
	var result struct {
		Moved string `json:"moved"`
	}
	if err := c.call(ctx, "strategy_drain", nil, &result); err != nil {
		return "", err
	}
	return result.Moved, nil
}

// Inject donates funds directly to the strategy's external balance.
func (c *HTTPClient) Inject(ctx context.Context, amount string) error {
	return c.call(ctx, "strategy_inject", []interface{}{amount}, nil)
}

// Sleep advances chain time by the given number of seconds.
func (c *HTTPClient) Sleep(ctx context.Context, seconds int64) error {
	return c.call(ctx, "chain_sleep", []interface{}{seconds}, nil)
}

// Deposit mints shares for the holder and returns the share count.
func (c *HTTPClient) Deposit(ctx context.Context, holder, amount string) (string, error) {
	var result struct {
		Shares string `json:"shares"`
	}
	if err := c.call(ctx, "vault_deposit", []interface{}{holder, amount}, &result); err != nil {
		return "", err
	}
	return result.Shares, nil
}

// Withdraw burns the holder's shares and returns the payout.
func (c *HTTPClient) Withdraw(ctx context.Context, holder, shares string, maxLossBps uint64) (string, error) {
	var result struct {
		Payout string `json:"payout"`
	}
	if err := c.call(ctx, "vault_withdraw", []interface{}{holder, shares, maxLossBps}, &result); err != nil {
		return "", err
	}
	return result.Payout, nil
}

// SetDebtRatio reallocates the strategy's target allocation.
func (c *HTTPClient) SetDebtRatio(ctx context.Context, bps uint64) error {
	return c.call(ctx, "vault_setDebtRatio", []interface{}{bps}, nil)
}

// snapshotResult is the raw RPC response for vault_getSnapshot.
type snapshotResult struct {
	TotalAssets   string `json:"totalAssets"`
	TotalSupply   string `json:"totalSupply"`
	PricePerShare string `json:"pricePerShare"`
	TotalIdle     string `json:"totalIdle"`
	Decimals      uint8  `json:"decimals"`
}

// strategyParamsResult is the raw RPC response for strategy_getParams.
type strategyParamsResult struct {
	DebtRatio       uint64 `json:"debtRatio"`
	TotalDebt       string `json:"totalDebt"`
	TotalGain       string `json:"totalGain"`
	TotalLoss       string `json:"totalLoss"`
	EstimatedAssets string `json:"estimatedAssets"`
}

// harvestResult is the raw RPC response for strategy_harvest.
type harvestResult struct {
	Profit string `json:"profit"`
	Loss   string `json:"loss"`
	Extra  string `json:"extra"`
}
