// Package agent holds the adapters for the external generation and embedding
// services. Retry, backoff, and rate limiting live here; nothing above this
// layer ever sees a transient provider error.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vampirenirmal/bookforge/internal/core"
)

// Generator is the single capability the pipeline needs from a chat backend.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest describes one chat completion call.
type GenerateRequest struct {
	SystemPrompt string
	UserText     string
	Temperature  float64
	TopP         float64 // zero means provider default
}

// ChatClient talks to an OpenAI-compatible chat completion endpoint.
type ChatClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type ChatOption func(*ChatClient)

func WithMaxRetries(n int) ChatOption {
	return func(c *ChatClient) { c.maxRetries = n }
}

func WithTimeout(d time.Duration) ChatOption {
	return func(c *ChatClient) {
		transport := c.httpClient.Transport
		c.httpClient = &http.Client{Timeout: d, Transport: transport}
	}
}

func WithRateLimit(requestsPerMinute, burst int) ChatOption {
	return func(c *ChatClient) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithLogger(logger *slog.Logger) ChatOption {
	return func(c *ChatClient) { c.logger = logger }
}

// NewChatClient builds a client for one backend endpoint and model.
func NewChatClient(apiKey, baseURL, model string, opts ...ChatOption) *ChatClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &ChatClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: transport,
		},
		maxRetries: 5,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     slog.Default().With("component", "chat_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Generate sends the request, retrying transient failures with exponential
// backoff until the attempt budget runs out.
func (c *ChatClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if c.apiKey == "" {
		return "", core.ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.doRequest(ctx, req)
		if err == nil {
			c.logger.Debug("generation request succeeded",
				"model", c.model,
				"attempt", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_chars", len(text))
			return text, nil
		}

		lastErr = err
		if !core.IsRetryable(err) {
			c.logger.Error("generation request failed",
				"model", c.model,
				"attempt", attempt,
				"error", err)
			return "", err
		}

		c.logger.Warn("generation request failed, retrying",
			"model", c.model,
			"attempt", attempt,
			"next_backoff", backoff,
			"error", err)
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *ChatClient) doRequest(ctx context.Context, req GenerateRequest) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserText},
		},
		Temperature: req.Temperature,
	}
	if req.TopP > 0 {
		body.TopP = &req.TopP
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", core.ErrNetworkError, err)
	}

	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", core.ErrRateLimited, truncate(body, 200))
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", core.ErrTimeout, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", core.ErrServerError, status, truncate(body, 200))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", core.ErrNoAPIKey, status)
	case status == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: status %d", core.ErrPromptTooLarge, status)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, truncate(body, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
