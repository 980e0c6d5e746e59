package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lritter14/askdoc/internal/service"
)

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
// Callers must normalize text before every call; embeddings are a pure
// function of (normalized text, model version).
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation

	client *http.Client

	initMu      sync.Mutex
	initialized bool
}

// NewEmbeddingsClient creates a new embeddings client. expectedSize is the
// configured vector dimension; all returned vectors are validated against it.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, timeout time.Duration) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       &http.Client{Timeout: timeout},
	}
}

// ModelVersion reports the active embedding model identifier. Stored records
// are tagged with it so a stale index is detectable after a model change.
func (c *EmbeddingsClient) ModelVersion() string {
	return c.Model
}

// Init performs the one-time, process-wide backend initialization by embedding
// a probe string and validating the returned dimension. Idempotent; concurrent
// callers block on the same initialization instead of re-triggering it. A
// failed attempt leaves the client uninitialized so it can be retried.
func (c *EmbeddingsClient) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}

	vecs, err := c.embed(ctx, []string{"init"})
	if err != nil {
		return err
	}
	if len(vecs) != 1 || len(vecs[0]) != c.ExpectedSize {
		return service.ModelUnavailable(fmt.Errorf("probe embedding has wrong shape"))
	}

	c.initialized = true
	return nil
}

// EmbedTexts generates embeddings for the given already-normalized texts.
// The result is ordered and the same length as the input; every vector is
// validated against the expected size.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.embed(ctx, texts)
}

// EmbeddingsRequest represents the request payload for the embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

func (c *EmbeddingsClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload := EmbeddingsRequest{
		Model: c.Model,
		Input: texts,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/embeddings", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, service.ModelUnavailable(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))
	}

	result := make([][]float32, len(embeddingsResp.Data))
	for i, data := range embeddingsResp.Data {
		if len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}
