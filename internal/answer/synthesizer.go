// Package answer assembles retrieved context into a prompt and invokes a
// language model, synchronously or as a streamed event sequence.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/llm"
	"github.com/lritter14/askdoc/internal/retrieval"
	"github.com/lritter14/askdoc/internal/service"
)

// Retriever is the retrieval surface the synthesizer needs.
type Retriever interface {
	Search(ctx context.Context, req retrieval.SearchRequest) (retrieval.SearchResponse, error)
}

// ChatBackend is the language model surface the synthesizer needs.
type ChatBackend interface {
	Chat(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChat(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(delta string) error) error
}

// Synthesizer answers questions over retrieved context.
type Synthesizer struct {
	retriever Retriever
	chat      ChatBackend
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(retriever Retriever, chat ChatBackend) *Synthesizer {
	return &Synthesizer{retriever: retriever, chat: chat}
}

// AskRequest is a question over the index. TopK and Threshold follow the
// retrieval defaults when zero-valued.
type AskRequest struct {
	Question        string
	TopK            int
	Threshold       *float64
	MaxAnswerTokens int
	SystemPrompt    string // optional override
}

// Citation is one retrieved chunk the answer was grounded on.
type Citation struct {
	SourceID   string
	ChunkIndex int
	ChunkText  string
	Score      float64
}

// AskResponse is a full, non-streamed answer.
type AskResponse struct {
	Answer    string
	Citations []Citation
	Latency   time.Duration
}

const defaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"Answer using only the information from the context below. If the context doesn't contain " +
	"enough information to answer the question, say so."

// Ask answers a question in full-response mode: retrieve, build one prompt
// embedding the ordered context chunks and the verbatim question, invoke the
// model, and return the answer plus the chunks used as citations.
func (s *Synthesizer) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	citations, messages, err := s.prepare(ctx, req)
	if err != nil {
		return AskResponse{}, err
	}

	answerText, err := s.chat.Chat(ctx, messages, llm.ChatParams{
		MaxTokens:   req.MaxAnswerTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return AskResponse{}, fmt.Errorf("failed to get model response: %w", err)
	}

	latency := time.Since(start)
	logger.InfoContext(ctx, "ask completed",
		"citations", len(citations), "answer_length", len(answerText), "latency_ms", latency.Milliseconds())

	return AskResponse{Answer: answerText, Citations: citations, Latency: latency}, nil
}

// AskStream answers a question in streaming mode. Retrieval happens before the
// first event; retrieval and validation errors are returned directly. The
// returned channel carries an ordered event sequence: zero or more deltas with
// strictly growing cumulative text, then exactly one terminal Done or Error
// event, after which the channel is closed. There is no mid-stream retry; a
// caller must retry the entire request. Cancelling ctx stops further model
// token requests and closes the channel.
func (s *Synthesizer) AskStream(ctx context.Context, req AskRequest) (<-chan Event, error) {
	citations, messages, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)

		var text strings.Builder
		streamErr := s.chat.StreamChat(ctx, messages, llm.ChatParams{
			MaxTokens:   req.MaxAnswerTokens,
			Temperature: 0.7,
		}, func(delta string) error {
			text.WriteString(delta)
			select {
			case events <- Event{Type: EventDelta, Delta: delta, Text: text.String()}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		if streamErr != nil {
			if errors.Is(streamErr, context.Canceled) || errors.Is(streamErr, context.DeadlineExceeded) {
				// Consumer cancelled; end the sequence without a terminal event.
				return
			}
			select {
			case events <- Event{Type: EventError, Err: streamErr}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case events <- Event{Type: EventDone, Text: text.String(), Citations: citations}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}

// prepare validates the request, retrieves context, and builds the prompt.
func (s *Synthesizer) prepare(ctx context.Context, req AskRequest) ([]Citation, []llm.Message, error) {
	if req.Question == "" {
		return nil, nil, &service.ValidationError{Field: "question", Message: "must not be empty"}
	}
	if req.MaxAnswerTokens < 0 {
		return nil, nil, &service.ValidationError{Field: "max_answer_tokens", Message: "must not be negative"}
	}

	searchResp, err := s.retriever.Search(ctx, retrieval.SearchRequest{
		Query:     req.Question,
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval failed: %w", err)
	}

	citations := make([]Citation, len(searchResp.Results))
	for i, r := range searchResp.Results {
		citations[i] = Citation{
			SourceID:   r.SourceID,
			ChunkIndex: r.ChunkIndex,
			ChunkText:  r.ChunkText,
			Score:      r.Score,
		}
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(req.Question, searchResp.Results)},
	}
	return citations, messages, nil
}

// buildPrompt embeds the ordered context chunks (most relevant first) and the
// verbatim question into one prompt.
func buildPrompt(question string, results []retrieval.Result) string {
	var b strings.Builder
	b.WriteString("--- Context ---\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[Source: %s | chunk %d]\n%s\n\n", r.SourceID, r.ChunkIndex, r.ChunkText)
	}
	b.WriteString("--- End Context ---\n\n")
	b.WriteString(question)
	return b.String()
}
