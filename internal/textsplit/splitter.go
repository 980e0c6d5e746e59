// Package textsplit splits raw source text into size- or semantically-bounded
// chunks. Chunks jointly cover the source and each chunk's text is a contiguous
// substring of it.
package textsplit

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Mode selects the chunking strategy.
type Mode int

const (
	// ModeFixed splits deterministically at the size boundary, preferring the
	// nearest paragraph or sentence break within a bounded look-back window.
	ModeFixed Mode = iota
	// ModeSemantic groups contiguous sentences while a continuity heuristic
	// holds, breaking on topic drift or the size cap. Falls back to fixed-size
	// behavior when no good break exists.
	ModeSemantic
)

// String returns the strategy name as stored in chunk metadata.
func (m Mode) String() string {
	if m == ModeSemantic {
		return "semantic"
	}
	return "fixed"
}

// ParseMode maps a strategy name to its Mode. Unknown names map to ModeFixed.
func ParseMode(s string) Mode {
	if s == "semantic" {
		return ModeSemantic
	}
	return ModeFixed
}

// Options controls splitting.
type Options struct {
	MaxChunkSize int // Max runes per chunk
	Mode         Mode
}

// Chunk is one bounded slice of a source document.
type Chunk struct {
	Index int    // 0-based position within the source
	Text  string // Contiguous substring of the source
	Size  int    // Rune count of Text
}

const (
	// lookbackDivisor bounds how far back from the size boundary a break point
	// is searched: window = MaxChunkSize / lookbackDivisor.
	lookbackDivisor = 4
	// minGroupSentences keeps semantic groups from degenerating into
	// one-sentence chunks on every minor topic shift.
	minGroupSentences = 2
	// continuityThreshold is the minimum lexical overlap for two adjacent
	// sentences to be considered the same topic.
	continuityThreshold = 0.1
)

var sentencePattern = regexp.MustCompile(`(?m)(?U)[^.!?]+[.!?]`)

// Split splits text into an ordered sequence of chunks. An empty or
// whitespace-only source yields nil; the caller treats this as "no content".
// A source shorter than the threshold bypasses splitting entirely.
func Split(text string, opts Options) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = 1000
	}

	if utf8.RuneCountInString(text) <= opts.MaxChunkSize {
		return []Chunk{{Index: 0, Text: text, Size: utf8.RuneCountInString(text)}}
	}

	var chunks []Chunk
	if opts.Mode == ModeSemantic {
		chunks = splitSemantic(text, opts.MaxChunkSize)
	} else {
		chunks = splitFixed(text, opts.MaxChunkSize)
	}

	// Drop whitespace-only chunks and re-index.
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		c.Index = len(out)
		c.Size = utf8.RuneCountInString(c.Text)
		out = append(out, c)
	}
	return out
}

// splitFixed cuts at the size boundary, preferring a paragraph break, then a
// newline, then a sentence break, searched within the look-back window.
func splitFixed(text string, maxSize int) []Chunk {
	runes := []rune(text)
	lookback := maxSize / lookbackDivisor
	var chunks []Chunk
	start := 0

	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Text: string(runes[start:])})
			break
		}

		window := string(runes[start:end])
		cut := end
		if p := strings.LastIndex(window, "\n\n"); p != -1 && end-(start+runeLen(window[:p])) <= lookback {
			cut = start + runeLen(window[:p]) + 2
		} else if p := strings.LastIndex(window, "\n"); p != -1 && end-(start+runeLen(window[:p])) <= lookback {
			cut = start + runeLen(window[:p]) + 1
		} else if p := strings.LastIndex(window, ". "); p != -1 && end-(start+runeLen(window[:p])) <= lookback {
			cut = start + runeLen(window[:p]) + 2
		}

		chunks = append(chunks, Chunk{Text: string(runes[start:cut])})
		start = cut
	}
	return chunks
}

// runeLen counts the runes in a byte-indexed prefix of a window string.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// splitSemantic groups contiguous sentences while adjacent sentences share
// vocabulary, breaking on topic drift or the size cap. A single sentence that
// exceeds the cap is handed to the fixed splitter, which guarantees
// termination and a bounded chunk count.
func splitSemantic(text string, maxSize int) []Chunk {
	spans := sentenceSpans(text)
	if len(spans) == 0 {
		return splitFixed(text, maxSize)
	}

	var chunks []Chunk
	i := 0
	for i < len(spans) {
		sentence := text[spans[i][0]:spans[i][1]]
		if utf8.RuneCountInString(sentence) > maxSize {
			chunks = append(chunks, splitFixed(sentence, maxSize)...)
			i++
			continue
		}

		// Grow the group while the continuity heuristic holds.
		groupStart := spans[i][0]
		groupEnd := spans[i][1]
		groupRunes := utf8.RuneCountInString(sentence)
		count := 1
		for i+count < len(spans) {
			next := text[spans[i+count][0]:spans[i+count][1]]
			nextRunes := utf8.RuneCountInString(next)
			if groupRunes+nextRunes > maxSize {
				break
			}
			prev := text[spans[i+count-1][0]:spans[i+count-1][1]]
			if count >= minGroupSentences && lexicalOverlap(prev, next) < continuityThreshold {
				break
			}
			groupEnd = spans[i+count][1]
			groupRunes += nextRunes
			count++
		}

		chunks = append(chunks, Chunk{Text: text[groupStart:groupEnd]})
		i += count
	}
	return chunks
}

// sentenceSpans returns contiguous [start,end) byte spans covering the whole
// text, one per sentence. Gaps between regex matches are folded into the
// following span so no byte of the source is lost.
func sentenceSpans(text string) [][2]int {
	matches := sentencePattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	spans := make([][2]int, 0, len(matches)+1)
	prevEnd := 0
	for _, m := range matches {
		spans = append(spans, [2]int{prevEnd, m[1]})
		prevEnd = m[1]
	}
	if prevEnd < len(text) {
		if strings.TrimSpace(text[prevEnd:]) != "" {
			spans = append(spans, [2]int{prevEnd, len(text)})
		} else {
			spans[len(spans)-1][1] = len(text)
		}
	}
	return spans
}

// lexicalOverlap computes the Jaccard overlap of the word sets of two
// sentences, ignoring short words.
func lexicalOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) > 3 {
			set[w] = struct{}{}
		}
	}
	return set
}
