package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lritter14/askdoc/internal/service"
)

// embeddingsServer answers /v1/embeddings with dim-sized vectors, one per input.
func embeddingsServer(t *testing.T, dim int) (*httptest.Server, *[][]string) {
	t.Helper()
	var inputs [][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		inputs = append(inputs, req.Input)

		resp := EmbeddingsResponse{Data: make([]EmbeddingData, len(req.Input))}
		for i := range req.Input {
			vec := make([]float64, dim)
			vec[0] = float64(i + 1)
			resp.Data[i] = EmbeddingData{Embedding: vec}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &inputs
}

func TestEmbedTexts(t *testing.T) {
	srv, inputs := embeddingsServer(t, 4)
	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, 5*time.Second)

	vecs, err := c.EmbedTexts(context.Background(), []string{"first text", "second text"})
	if err != nil {
		t.Fatalf("EmbedTexts() error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 4 {
			t.Errorf("vector %d has dimension %d, want 4", i, len(v))
		}
	}
	// Order-aligned with the input.
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Errorf("vectors not order-aligned: %v", vecs)
	}

	// First call is the init probe, second the real batch.
	if len(*inputs) != 2 {
		t.Fatalf("backend saw %d calls, want probe + batch", len(*inputs))
	}
	if got := (*inputs)[1]; len(got) != 2 || got[0] != "first text" {
		t.Errorf("batch input = %v", got)
	}
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	srv, _ := embeddingsServer(t, 4)
	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, 5*time.Second)

	if _, err := c.EmbedTexts(context.Background(), nil); err == nil {
		t.Error("EmbedTexts(nil) should fail")
	}
}

func TestEmbeddingsInitValidatesDimension(t *testing.T) {
	srv, _ := embeddingsServer(t, 8)
	// Configured for 4 but the backend returns 8-dim vectors.
	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, 5*time.Second)

	err := c.Init(context.Background())
	if err == nil {
		t.Fatal("Init() should reject a wrong-dimension probe")
	}
}

func TestEmbeddingsInitIdempotent(t *testing.T) {
	srv, inputs := embeddingsServer(t, 4)
	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, 5*time.Second)
	ctx := context.Background()

	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := c.Init(ctx); err != nil {
		t.Fatalf("second Init() error: %v", err)
	}
	if len(*inputs) != 1 {
		t.Errorf("backend saw %d probes, want 1", len(*inputs))
	}
}

func TestEmbeddingsInitFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, 5*time.Second)
	if err := c.Init(context.Background()); err == nil {
		t.Fatal("Init() against sick backend should fail")
	}

	// Point the same client at a healthy backend: a fresh attempt must run.
	healthy, _ := embeddingsServer(t, 4)
	c.BaseURL = healthy.URL
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init() retry after recovery error: %v", err)
	}
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Always one vector regardless of input size.
		_ = json.NewEncoder(w).Encode(EmbeddingsResponse{
			Data: []EmbeddingData{{Embedding: make([]float64, 4)}},
		})
	}))
	defer srv.Close()

	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, 5*time.Second)
	if _, err := c.EmbedTexts(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("EmbedTexts() should reject a count mismatch")
	}
}

func TestEmbedTextsBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewEmbeddingsClient(srv.URL, "key", "embed-model", 4, time.Second)
	_, err := c.EmbedTexts(context.Background(), []string{"a"})
	if !errors.Is(err, service.ErrModelUnavailable) {
		t.Errorf("EmbedTexts() error = %v, want ErrModelUnavailable", err)
	}
}

func TestModelVersion(t *testing.T) {
	c := NewEmbeddingsClient("http://localhost", "key", "embed-model-v3", 4, time.Second)
	if got := c.ModelVersion(); got != "embed-model-v3" {
		t.Errorf("ModelVersion() = %q", got)
	}
}
