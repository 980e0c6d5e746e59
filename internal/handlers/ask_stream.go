package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lritter14/askdoc/internal/answer"
	"github.com/lritter14/askdoc/internal/contextutil"
)

// AskStreamHandler handles streaming QA requests over Server-Sent Events.
type AskStreamHandler struct {
	synth Answerer
}

// NewAskStreamHandler creates a new AskStreamHandler.
func NewAskStreamHandler(synth Answerer) *AskStreamHandler {
	return &AskStreamHandler{synth: synth}
}

// StreamEvent is the wire form of one streamed answer event.
type StreamEvent struct {
	Type      string             `json:"type"`
	Delta     string             `json:"delta,omitempty"`
	Text      string             `json:"text,omitempty"`
	Citations []CitationResponse `json:"citations,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ServeHTTP handles POST /api/v1/ask/stream. The response is an SSE sequence:
// zero or more delta events, then either a done or an error event. Client
// disconnect cancels the request context, which stops the model stream.
func (h *AskStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	askReq, ok := decodeAskRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	events, err := h.synth.AskStream(ctx, askReq)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process question")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range events {
		wire := StreamEvent{Type: string(ev.Type)}
		switch ev.Type {
		case answer.EventDelta:
			wire.Delta = ev.Delta
			wire.Text = ev.Text
		case answer.EventDone:
			wire.Text = ev.Text
			wire.Citations = toCitationResponses(ev.Citations)
		case answer.EventError:
			logger.ErrorContext(ctx, "answer stream failed", "error", ev.Err)
			wire.Error = "Model stream failed"
		}

		payload, err := json.Marshal(wire)
		if err != nil {
			logger.ErrorContext(ctx, "failed to marshal stream event", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client went away; ctx cancellation stops the producer.
			return
		}
		flusher.Flush()
	}
}
