package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/textnorm"
	"github.com/lritter14/askdoc/internal/vectorindex"
)

// QueryEmbedder is the embedding surface the neighbors handler needs.
type QueryEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NeighborsHandler answers nearest-neighbor lookups against the secondary
// content-vector index directly, bypassing question fusion. It is an
// inspection surface: the scores are raw index similarities, useful for
// checking what the index holds for a query.
type NeighborsHandler struct {
	embedder QueryEmbedder
	index    vectorindex.Index
}

// NewNeighborsHandler creates a new NeighborsHandler.
func NewNeighborsHandler(embedder QueryEmbedder, index vectorindex.Index) *NeighborsHandler {
	return &NeighborsHandler{embedder: embedder, index: index}
}

const defaultNeighborK = 5

// NeighborsRequest is the HTTP request payload for index neighbor lookups.
type NeighborsRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// NeighborResult is one indexed point in the HTTP response.
type NeighborResult struct {
	PointID string         `json:"point_id"`
	Score   float32        `json:"score"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// NeighborsResponse is the HTTP response payload for index neighbor lookups.
type NeighborsResponse struct {
	Query     string           `json:"query"`
	Neighbors []NeighborResult `json:"neighbors"`
}

// ServeHTTP handles POST /api/v1/index/neighbors.
func (h *NeighborsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req NeighborsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.K < 0 {
		writeError(w, http.StatusBadRequest, "K must not be negative")
		return
	}
	k := req.K
	if k == 0 {
		k = defaultNeighborK
	}

	vecs, err := h.embedder.EmbedTexts(ctx, []string{textnorm.Normalize(req.Query)})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to embed query")
		return
	}
	if len(vecs) == 0 {
		writeError(w, http.StatusInternalServerError, "Failed to embed query")
		return
	}

	neighbors, err := h.index.Query(ctx, vecs[0], k)
	if err != nil {
		logger.ErrorContext(ctx, "neighbor query failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
		return
	}

	results := make([]NeighborResult, len(neighbors))
	for i, n := range neighbors {
		results[i] = NeighborResult{PointID: n.PointID, Score: n.Score, Meta: n.Meta}
	}

	writeJSON(w, http.StatusOK, NeighborsResponse{Query: req.Query, Neighbors: results})
}
