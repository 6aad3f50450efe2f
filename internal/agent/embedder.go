package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vampirenirmal/bookforge/internal/core"
)

// Embedder turns batches of text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const minEmbedBatch = 4

// EmbeddingClient talks to a Mistral-style embeddings endpoint. Requests are
// split into batches to stay under provider token limits; a batch-too-large
// rejection halves the batch size and retries until the floor is reached.
type EmbeddingClient struct {
	apiKey     string
	baseURL    string
	model      string
	batchSize  int
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type EmbedOption func(*EmbeddingClient)

func WithEmbedBatchSize(n int) EmbedOption {
	return func(c *EmbeddingClient) {
		if n >= minEmbedBatch {
			c.batchSize = n
		}
	}
}

func WithEmbedMaxRetries(n int) EmbedOption {
	return func(c *EmbeddingClient) { c.maxRetries = n }
}

func WithEmbedLogger(logger *slog.Logger) EmbedOption {
	return func(c *EmbeddingClient) { c.logger = logger }
}

func NewEmbeddingClient(apiKey, baseURL, model string, opts ...EmbedOption) *EmbeddingClient {
	c := &EmbeddingClient{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		batchSize: 32,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		maxRetries: 5,
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
		logger:     slog.Default().With("component", "embedding_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns one vector per input text, in input order.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, core.ErrNoAPIKey
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	batchSize := c.batchSize
	i := 0

	for i < len(texts) {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			// Token-limit rejections shrink the batch and retry the same
			// span; anything else is terminal for the whole call.
			if isBatchTooLarge(err) && batchSize > minEmbedBatch {
				batchSize = max(minEmbedBatch, batchSize/2)
				c.logger.Warn("embedding batch rejected, shrinking",
					"new_batch_size", batchSize)
				continue
			}
			return nil, fmt.Errorf("embedding texts %d..%d: %w", i, end, err)
		}

		out = append(out, vectors...)
		i = end
	}

	return out, nil
}

func isBatchTooLarge(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many tokens") ||
		strings.Contains(msg, "batch too large") ||
		strings.Contains(msg, "maximum context")
}

type embedRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// embedBatch sends one provider request with retry on transient failures.
func (c *EmbeddingClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
				if backoff > 20*time.Second {
					backoff = 20 * time.Second
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := c.doEmbed(ctx, batch)
		if err == nil {
			return vectors, nil
		}

		lastErr = err
		if !core.IsRetryable(err) {
			return nil, err
		}

		c.logger.Warn("embedding request failed, retrying",
			"attempt", attempt,
			"batch_size", len(batch),
			"error", err)
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *EmbeddingClient) doEmbed(ctx context.Context, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: c.model, Inputs: batch})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", core.ErrNetworkError, err)
	}

	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) != len(batch) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d inputs",
			len(parsed.Data), len(batch))
	}

	vectors := make([][]float32, len(batch))
	for _, row := range parsed.Data {
		if row.Index < 0 || row.Index >= len(batch) {
			return nil, fmt.Errorf("provider returned out-of-range index %d", row.Index)
		}
		vectors[row.Index] = row.Embedding
	}
	return vectors, nil
}
