package handlers

import (
	"net/http"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/store"
	"github.com/lritter14/askdoc/internal/vectorindex"
)

// StatusHandler reports index state: stored chunk count, secondary index point
// count, and the active embedding model version.
type StatusHandler struct {
	store          store.Store
	index          vectorindex.Index
	embeddingModel string
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(st store.Store, index vectorindex.Index, embeddingModel string) *StatusHandler {
	return &StatusHandler{store: st, index: index, embeddingModel: embeddingModel}
}

// StatusResponse is the index status payload.
type StatusResponse struct {
	Chunks         int    `json:"chunks"`
	IndexPoints    int    `json:"index_points"`
	EmbeddingModel string `json:"embedding_model"`
}

// ServeHTTP handles GET /api/v1/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chunks, err := h.store.Count(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count chunks", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	points, err := h.index.PointCount(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count index points", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Chunks:         chunks,
		IndexPoints:    points,
		EmbeddingModel: h.embeddingModel,
	})
}

// ClearHandler irreversibly removes all rows and index entries.
type ClearHandler struct {
	store store.Store
	index vectorindex.Index
}

// NewClearHandler creates a new ClearHandler.
func NewClearHandler(st store.Store, index vectorindex.Index) *ClearHandler {
	return &ClearHandler{store: st, index: index}
}

// ClearResponse confirms a completed clear.
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

// ServeHTTP handles DELETE /api/v1/index.
func (h *ClearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := h.store.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to clear store", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	if err := h.index.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to clear index", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
		return
	}

	logger.InfoContext(ctx, "index cleared")
	writeJSON(w, http.StatusOK, ClearResponse{Cleared: true})
}
