// Package llm executes single model invocations against provider
// endpoints with timeout, retry, and response normalization. Failures are
// classified as transient or fatal so orchestration modes can aggregate
// partial failures without unwinding the whole call.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gatekeep-dev/gatekeep/model"
	"github.com/gatekeep-dev/gatekeep/prompt"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is a provider-agnostic model invoker.
type Client struct {
	registry    *model.Registry
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
	temperature *float64
}

// TokenUsage represents token consumption details for a model call.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// Response contains the normalized model result. Cost metadata is
// surfaced for cost-tracking callers but never blocks response return.
type Response struct {
	// RequestID uniquely identifies this invocation.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the model that actually served the request.
	Model string

	// Usage contains token and cost metadata when the provider reports it.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Attempts is the total number of request attempts made.
	Attempts int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the backoff configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithTemperature sets an explicit sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(client *Client) {
		client.temperature = &t
	}
}

// NewClient creates a model invoker over the given endpoint registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:    registry,
		retryConfig: DefaultRetryConfig(),
		httpClient:  &http.Client{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke issues one model call. Transient failures (transport errors,
// rate limits, per-call timeouts) are retried with exponential backoff up
// to maxRetries, for maxRetries+1 total attempts; fatal failures surface
// immediately. Fallback endpoints configured for the model are consulted
// when the primary's circuit breaker is open.
func (c *Client) Invoke(ctx context.Context, payload *prompt.Payload, modelID string, timeout time.Duration, maxRetries int) (*Response, error) {
	if payload == nil {
		return nil, NewFatalError(KindInvalidResponse, fmt.Errorf("payload is required"))
	}
	if modelID == "" {
		return nil, NewFatalError(KindInvalidResponse, fmt.Errorf("model id is required"))
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	requestID := uuid.New().String()
	messages := []Message{
		{Role: "system", Content: payload.System},
		{Role: "user", Content: payload.User},
	}

	chain := c.registry.Chain(modelID)
	var endpoint *model.EndpointConfig
	var endpointName string
	for _, name := range chain {
		if ep := c.registry.Endpoint(name); ep != nil {
			endpoint = ep
			endpointName = name
			break
		}
	}
	if endpoint == nil {
		return nil, NewFatalError(KindInvalidResponse, fmt.Errorf("no endpoint configured for model %s", modelID))
	}

	var lastErr error
	attempts := 0
	for attempts <= maxRetries {
		attempts++

		resp, err := c.doRequest(ctx, endpoint, messages, timeout)
		if err == nil {
			c.registry.MarkEndpointSuccess(endpointName)
			resp.RequestID = requestID
			resp.Attempts = attempts
			return resp, nil
		}

		if ctx.Err() != nil {
			// Caller cancelled or overall deadline elapsed; don't
			// misreport it as an endpoint failure.
			return nil, NewTransientError(KindTimeout, ctx.Err())
		}

		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}

		if attempts <= maxRetries {
			backoff := c.calculateBackoff(attempts)
			c.logger.Debug("Request failed, retrying",
				"request_id", requestID,
				"model", endpointName,
				"attempt", attempts,
				"max_attempts", maxRetries+1,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, NewTransientError(KindTimeout, ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	c.registry.MarkEndpointFailure(endpointName)
	c.logger.Warn("Model invocation exhausted retries",
		"request_id", requestID,
		"model", endpointName,
		"attempts", attempts,
		"error", lastErr)
	return nil, lastErr
}

// calculateBackoff computes exponential backoff with jitter. Jitter
// prevents synchronized retries when several personas hit the same
// rate-limited endpoint.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// doRequest executes a single HTTP request against the endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, messages []Message, timeout time.Duration) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(KindInvalidResponse, fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	url := provider.BuildURL(ep.URL)
	body, err := provider.BuildRequestBody(ep.Model, messages, c.temperature, ep.MaxTokens)
	if err != nil {
		return nil, NewFatalError(KindInvalidResponse, fmt.Errorf("build request body: %w", err))
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(KindInvalidResponse, fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, NewTransientError(KindTimeout, fmt.Errorf("model call timed out after %s", timeout))
		}
		return nil, NewTransientError(KindTransport, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(KindTransport, fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	resp, err := provider.ParseResponse(respBody, ep.Model)
	if err != nil {
		return nil, NewFatalError(KindInvalidResponse, err)
	}
	return resp, nil
}

// classifyHTTPError maps an HTTP error status to an invocation error kind.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("model API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(KindRateLimited, err)
	case statusCode >= 500:
		return NewTransientError(KindTransport, err)
	default:
		// Auth and bad-request errors indicate a config problem, not a
		// condition retrying can fix.
		return NewFatalError(KindInvalidResponse, err)
	}
}
