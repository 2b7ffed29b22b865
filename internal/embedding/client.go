package embedding

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docindex/internal/embedding Embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"docindex/internal/contextutil"
)

const (
	defaultBatchSize   = 16
	defaultMaxRetries  = 5
	defaultRetryDelay  = 2 * time.Second
	defaultConcurrency = 2
	defaultTimeout     = 60 * time.Second
)

// ErrRateLimited is returned when the provider keeps responding with HTTP 429
// after all retries are exhausted.
var ErrRateLimited = errors.New("embedding provider rate limited")

// ErrCountMismatch is returned when a provider response contains a different
// number of vectors than the number of texts requested. Partial results are
// never returned because the caller could not associate them with its inputs.
var ErrCountMismatch = errors.New("embedding count mismatch")

// ProviderError is a non-retryable error response from the embedding provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider returned status %d: %s", e.StatusCode, e.Body)
}

// Embedder converts texts into fixed-dimension vectors. Implementations must
// preserve input order: vector k corresponds to text k.
type Embedder interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedOne generates a vector for a single text (query embedding).
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Config holds settings for the embeddings client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	BatchSize   int           // Texts per provider request (default 16)
	MaxRetries  int           // Rate-limit retries per batch (default 5)
	RetryDelay  time.Duration // Backoff base; the nth retry waits n times this (default 2s)
	Concurrency int           // In-flight batch requests (default 2)
	HTTPClient  *http.Client
}

// Client is an Embedder backed by an OpenAI-compatible embeddings endpoint
// (POST {base}/v1/embeddings). Large inputs are partitioned into batches;
// rate-limited batches are retried with backoff while other in-flight batches
// proceed unaffected.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	batchSize   int
	maxRetries  int
	retryDelay  time.Duration
	concurrency int
	client      *http.Client
}

// NewClient creates an embeddings client, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		batchSize:   cfg.BatchSize,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		concurrency: cfg.Concurrency,
		client:      cfg.HTTPClient,
	}
}

// embeddingsRequest is the request payload for the embeddings API.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingData is a single embedding in the response. Index identifies the
// input the vector belongs to; batched responses are not guaranteed to
// preserve request order.
type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// embeddingsResponse is the response payload from the embeddings API.
type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

// Embed generates embeddings for texts, batched internally. The result has
// one vector per input text in input order; any batch failure fails the
// whole call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := c.embedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end-1, err)
			}
			copy(results[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EmbedOne generates an embedding for a single text via the batch path.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch issues one provider request for a batch, retrying rate-limit
// responses with linearly increasing backoff. Any other error aborts
// immediately.
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	attempt := 0
	for {
		vectors, err := c.post(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}

		attempt++
		if attempt > c.maxRetries {
			return nil, fmt.Errorf("no retries left after %d attempts: %w", attempt, err)
		}

		delay := c.retryDelay * time.Duration(attempt)
		logger.WarnContext(ctx, "rate limited while generating embeddings",
			"attempt", attempt, "max_retries", c.maxRetries, "delay", delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// post issues a single embeddings request and restores per-item order.
func (c *Client) post(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingsRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(decoded.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrCountMismatch, len(texts), len(decoded.Data))
	}

	// Results are per-request indexed; re-sort before concatenation.
	sort.Slice(decoded.Data, func(i, j int) bool {
		return decoded.Data[i].Index < decoded.Data[j].Index
	})

	vectors := make([][]float32, len(decoded.Data))
	for i, item := range decoded.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}
