package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/ingest"
)

// BatchIngester is the ingestion surface the handler needs.
type BatchIngester interface {
	IngestBatch(ctx context.Context, sources []ingest.Source) ingest.BatchSummary
}

// IngestHandler handles batch ingestion requests.
type IngestHandler struct {
	pipeline BatchIngester
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pipeline BatchIngester) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

// IngestSource is one source document in the HTTP request.
type IngestSource struct {
	SourceID string            `json:"source_id"`
	Text     string            `json:"text"`
	Type     string            `json:"type,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// IngestRequest is the HTTP request payload for batch ingestion.
type IngestRequest struct {
	Sources []IngestSource `json:"sources"`
}

// IngestResult reports one source's outcome.
type IngestResult struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// IngestResponse is the full batch summary, returned even with partial failures.
type IngestResponse struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []IngestResult `json:"results"`
}

// ServeHTTP handles POST /api/v1/ingest.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Sources) == 0 {
		writeError(w, http.StatusBadRequest, "At least one source is required")
		return
	}

	sources := make([]ingest.Source, len(req.Sources))
	for i, s := range req.Sources {
		sources[i] = ingest.Source{
			ID:    s.SourceID,
			Text:  s.Text,
			Type:  s.Type,
			Extra: s.Extra,
		}
	}

	summary := h.pipeline.IngestBatch(ctx, sources)

	results := make([]IngestResult, len(summary.Results))
	for i, res := range summary.Results {
		out := IngestResult{
			SourceID: res.SourceID,
			Chunks:   res.Chunks,
			Success:  res.Success,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		results[i] = out
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Results:   results,
	})
}
