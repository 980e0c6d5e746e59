// Package retrieval ranks stored chunks against a query by fused
// content/question similarity.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/service"
	"github.com/lritter14/askdoc/internal/store"
	"github.com/lritter14/askdoc/internal/textnorm"
)

// Embedder is the embedding surface the engine needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine retrieves ranked chunks above a similarity threshold, capped at top-K.
type Engine struct {
	embedder         Embedder
	store            store.Store
	defaultTopK      int
	defaultThreshold float64
}

// NewEngine creates a retrieval engine with configuration defaults for top-K
// and the similarity threshold.
func NewEngine(embedder Embedder, st store.Store, defaultTopK int, defaultThreshold float64) *Engine {
	return &Engine{
		embedder:         embedder,
		store:            st,
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
	}
}

// SearchRequest is a retrieval query. TopK of 0 and a nil Threshold use the
// configured defaults.
type SearchRequest struct {
	Query     string
	TopK      int
	Threshold *float64
}

// Result is a transient read-only view of one matching chunk.
type Result struct {
	ChunkText  string
	SourceID   string
	Score      float64
	ChunkIndex int
	Metadata   store.Metadata
}

// SearchResponse carries the ranked results plus the echoed query and latency.
type SearchResponse struct {
	Query   string
	Results []Result
	Latency time.Duration
}

// Search embeds the normalized query once and scores it against every stored
// content and question vector. A chunk's question score is the maximum
// similarity across its own questions, and its fused score is
// max(content score, question score), letting either representation win
// independently. Chunks below the threshold are rejected; the rest are sorted
// by descending fused score with a deterministic tie-break (ascending chunk
// index, then earlier creation time) and truncated to top-K. An empty store or
// an empty post-threshold set yields an empty result list, not an error.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if req.Query == "" {
		return SearchResponse{}, &service.ValidationError{Field: "query", Message: "must not be empty"}
	}
	topK := req.TopK
	if topK == 0 {
		topK = e.defaultTopK
	}
	if topK < 0 {
		return SearchResponse{}, &service.ValidationError{Field: "top_k", Message: "must not be negative"}
	}
	threshold := e.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold < -1 || threshold > 1 {
			return SearchResponse{}, &service.ValidationError{Field: "threshold", Message: "must be in [-1, 1]"}
		}
	}

	vecs, err := e.embedder.EmbedTexts(ctx, []string{textnorm.Normalize(req.Query)})
	if err != nil {
		return SearchResponse{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) == 0 {
		return SearchResponse{}, fmt.Errorf("no embedding returned for query")
	}
	queryVec := vecs[0]

	records, err := e.store.Scan(ctx)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("failed to scan store: %w", err)
	}

	type scored struct {
		rec   *store.Record
		score float64
	}
	matches := make([]scored, 0, len(records))
	for _, rec := range records {
		score := FusedScore(queryVec, rec)
		if score < threshold {
			continue
		}
		matches = append(matches, scored{rec: rec, score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if matches[i].rec.ChunkIndex != matches[j].rec.ChunkIndex {
			return matches[i].rec.ChunkIndex < matches[j].rec.ChunkIndex
		}
		return matches[i].rec.CreatedAt.Before(matches[j].rec.CreatedAt)
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ChunkText:  m.rec.ChunkText,
			SourceID:   m.rec.SourceID,
			Score:      m.score,
			ChunkIndex: m.rec.ChunkIndex,
			Metadata:   m.rec.Metadata,
		}
	}

	latency := time.Since(start)
	logger.InfoContext(ctx, "search completed",
		"scanned", len(records), "matched", len(results),
		"top_k", topK, "threshold", threshold, "latency_ms", latency.Milliseconds())

	return SearchResponse{Query: req.Query, Results: results, Latency: latency}, nil
}

// FusedScore computes max(content similarity, best question similarity) for
// one record against a query vector. The best-matching paraphrase wins; one
// weak question never drags down a chunk whose other questions match well.
func FusedScore(query []float32, rec *store.Record) float64 {
	score := Cosine(query, rec.ContentVector)
	for _, qv := range rec.QuestionVectors {
		if s := Cosine(query, qv); s > score {
			score = s
		}
	}
	return score
}

// Cosine computes the cosine similarity of two vectors. Mismatched or
// zero-magnitude vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
