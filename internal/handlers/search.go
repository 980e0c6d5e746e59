package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/retrieval"
	"github.com/lritter14/askdoc/internal/store"
)

// Searcher is the retrieval surface the search handler needs.
type Searcher interface {
	Search(ctx context.Context, req retrieval.SearchRequest) (retrieval.SearchResponse, error)
}

// SearchHandler handles similarity search requests.
type SearchHandler struct {
	engine Searcher
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(engine Searcher) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// SearchRequest is the HTTP request payload for similarity search.
type SearchRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// SearchResult is one ranked chunk in the HTTP response.
type SearchResult struct {
	ChunkText  string         `json:"chunk_text"`
	SourceID   string         `json:"source_id"`
	Score      float64        `json:"score"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   store.Metadata `json:"metadata"`
}

// SearchResponse is the HTTP response payload for similarity search.
type SearchResponse struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	LatencyMs int64          `json:"latency_ms"`
}

// ServeHTTP handles POST /api/v1/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	resp, err := h.engine.Search(ctx, retrieval.SearchRequest{
		Query:     req.Query,
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process search")
		return
	}

	results := make([]SearchResult, len(resp.Results))
	for i, res := range resp.Results {
		results[i] = SearchResult{
			ChunkText:  res.ChunkText,
			SourceID:   res.SourceID,
			Score:      res.Score,
			ChunkIndex: res.ChunkIndex,
			Metadata:   res.Metadata,
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:     resp.Query,
		Results:   results,
		LatencyMs: resp.Latency.Milliseconds(),
	})
}
