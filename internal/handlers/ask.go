package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lritter14/askdoc/internal/answer"
	"github.com/lritter14/askdoc/internal/contextutil"
)

// Answerer is the synthesis surface the ask handlers need.
type Answerer interface {
	Ask(ctx context.Context, req answer.AskRequest) (answer.AskResponse, error)
	AskStream(ctx context.Context, req answer.AskRequest) (<-chan answer.Event, error)
}

// AskHandler handles full-response QA requests.
type AskHandler struct {
	synth Answerer
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(synth Answerer) *AskHandler {
	return &AskHandler{synth: synth}
}

// AskRequest is the HTTP request payload for QA queries, shared by the
// full-response and streaming variants.
type AskRequest struct {
	Question        string   `json:"question"`
	TopK            int      `json:"top_k,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
	MaxAnswerTokens int      `json:"max_answer_tokens,omitempty"`
	SystemPrompt    string   `json:"system_prompt,omitempty"`
}

// CitationResponse is one cited chunk in the HTTP response.
type CitationResponse struct {
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
}

// AskResponse is the HTTP response payload for full-response QA.
type AskResponse struct {
	Answer    string             `json:"answer"`
	Citations []CitationResponse `json:"citations"`
	LatencyMs int64              `json:"latency_ms"`
}

func decodeAskRequest(w http.ResponseWriter, r *http.Request) (answer.AskRequest, bool) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return answer.AskRequest{}, false
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return answer.AskRequest{}, false
	}

	return answer.AskRequest{
		Question:        req.Question,
		TopK:            req.TopK,
		Threshold:       req.Threshold,
		MaxAnswerTokens: req.MaxAnswerTokens,
		SystemPrompt:    req.SystemPrompt,
	}, true
}

func toCitationResponses(citations []answer.Citation) []CitationResponse {
	out := make([]CitationResponse, len(citations))
	for i, c := range citations {
		out[i] = CitationResponse{
			SourceID:   c.SourceID,
			ChunkIndex: c.ChunkIndex,
			ChunkText:  c.ChunkText,
			Score:      c.Score,
		}
	}
	return out
}

// ServeHTTP handles POST /api/v1/ask.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	askReq, ok := decodeAskRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.synth.Ask(ctx, askReq)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process question")
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:    resp.Answer,
		Citations: toCitationResponses(resp.Citations),
		LatencyMs: resp.Latency.Milliseconds(),
	})
}
