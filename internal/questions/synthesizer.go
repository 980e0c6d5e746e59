// Package questions synthesizes hypothetical questions a chunk could answer.
// The questions are embedded alongside the chunk's content to widen retrieval
// recall for question-style queries.
package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/lritter14/askdoc/internal/llm"
)

// ChatBackend is the language model surface the synthesizer needs.
type ChatBackend interface {
	Chat(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Synthesizer generates up to a fixed count of candidate questions per chunk.
type Synthesizer struct {
	chat      ChatBackend
	perChunk  int
	maxTokens int
}

// NewSynthesizer creates a Synthesizer that asks for perChunk questions.
func NewSynthesizer(chat ChatBackend, perChunk int) *Synthesizer {
	return &Synthesizer{
		chat:      chat,
		perChunk:  perChunk,
		maxTokens: 256,
	}
}

const systemPrompt = "You write short natural-language questions that a given passage answers. " +
	"Output one question per line. No numbering, no bullets, no commentary."

// Generate returns at most the configured number of questions for one chunk's
// text. A shorter list is accepted as degraded but valid. On error the caller
// indexes the chunk with zero question vectors; a single-chunk failure must
// never abort the batch.
func (s *Synthesizer) Generate(ctx context.Context, chunkText string) ([]string, error) {
	if s.perChunk <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(chunkText) == "" {
		return nil, fmt.Errorf("empty chunk text")
	}

	userPrompt := fmt.Sprintf("Write %d questions this passage answers:\n\n%s", s.perChunk, chunkText)
	out, err := s.chat.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, llm.ChatParams{MaxTokens: s.maxTokens, Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	qs := parseQuestions(out, s.perChunk)
	return qs, nil
}

// parseQuestions splits model output into lines, strips list markers the model
// sometimes adds despite instructions, and caps the result at max.
func parseQuestions(out string, max int) []string {
	var qs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = stripListMarker(line)
		if line == "" {
			continue
		}
		qs = append(qs, line)
		if len(qs) == max {
			break
		}
	}
	return qs
}

func stripListMarker(line string) string {
	line = strings.TrimLeft(line, "-*• \t")
	// "1. ", "2) " style numbering
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if (c == '.' || c == ')') && i > 0 {
			return strings.TrimSpace(line[i+1:])
		}
		break
	}
	return strings.TrimSpace(line)
}
