// Package ingest turns raw sources into indexed chunk records: split, embed
// content, synthesize and embed hypothetical questions, persist.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/extract"
	"github.com/lritter14/askdoc/internal/service"
	"github.com/lritter14/askdoc/internal/store"
	"github.com/lritter14/askdoc/internal/textnorm"
	"github.com/lritter14/askdoc/internal/textsplit"
	"github.com/lritter14/askdoc/internal/vectorindex"
)

// Embedder is the embedding surface the pipeline needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelVersion() string
}

// QuestionGen synthesizes hypothetical questions for one chunk.
type QuestionGen interface {
	Generate(ctx context.Context, chunkText string) ([]string, error)
}

// Source is one document to ingest: raw text plus a source identifier, as
// delivered by an external extraction collaborator. Type "markdown" routes the
// text through the markdown extractor first.
type Source struct {
	ID    string
	Text  string
	Type  string
	Extra map[string]string
}

// SourceResult reports the outcome of ingesting one source.
type SourceResult struct {
	SourceID string
	Chunks   int
	Success  bool
	Err      error
}

// BatchSummary is the full success/fail report of a batch ingestion.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []SourceResult
}

// Options controls chunking and batch concurrency.
type Options struct {
	MaxChunkSize int
	Mode         textsplit.Mode
	Workers      int // bounded worker pool size for batches
}

// Pipeline orchestrates ingestion into the record store and the secondary
// content-vector index.
type Pipeline struct {
	embedder  Embedder
	questions QuestionGen
	store     store.Store
	index     vectorindex.Index
	extractor *extract.MarkdownExtractor
	opts      Options
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(embedder Embedder, questions QuestionGen, st store.Store, index vectorindex.Index, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		embedder:  embedder,
		questions: questions,
		store:     st,
		index:     index,
		extractor: extract.NewMarkdownExtractor(),
		opts:      opts,
		logger:    slog.Default(),
	}
}

// IngestSource ingests one source as a sequential pipeline: the chunk,
// question, and embedding calls are the only suspension points and are awaited
// in order, so one run never has overlapping in-flight backend calls.
// Re-ingesting a known source replaces its records (clear-then-reinsert).
// Failures are folded into the result record, never propagated past the batch
// loop.
func (p *Pipeline) IngestSource(ctx context.Context, src Source) SourceResult {
	logger := contextutil.LoggerFromContext(ctx)

	chunks, err := p.ingest(ctx, src)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "source_id", src.ID, "error", err)
		return SourceResult{
			SourceID: src.ID,
			Success:  false,
			Err:      &service.IngestionError{SourceID: src.ID, Err: err},
		}
	}

	logger.InfoContext(ctx, "ingested source", "source_id", src.ID, "chunks", chunks)
	return SourceResult{SourceID: src.ID, Chunks: chunks, Success: true}
}

func (p *Pipeline) ingest(ctx context.Context, src Source) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if src.ID == "" {
		return 0, &service.ValidationError{Field: "source_id", Message: "must not be empty"}
	}

	text := src.Text
	if src.Type == "markdown" {
		text = p.extractor.ExtractText([]byte(src.Text))
	}

	chunks := textsplit.Split(text, textsplit.Options{
		MaxChunkSize: p.opts.MaxChunkSize,
		Mode:         p.opts.Mode,
	})
	if len(chunks) == 0 {
		return 0, service.ErrNoContent
	}

	// One batched embedding call for all chunk texts of this source. Embedding
	// happens before the old ingestion is touched: if the backend fails here,
	// the previous records stay queryable instead of leaving the source empty.
	normalized := make([]string, len(chunks))
	for i, c := range chunks {
		normalized[i] = textnorm.Normalize(c.Text)
	}
	contentVecs, err := p.embedder.EmbedTexts(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(contentVecs) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(contentVecs))
	}

	// Replace any previous ingestion of this source: clear, then reinsert.
	oldIDs, err := p.store.IDsBySource(ctx, src.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list existing chunks: %w", err)
	}
	if len(oldIDs) > 0 {
		if err := p.index.Delete(ctx, oldIDs); err != nil {
			// The store rows are about to go; stale index points only cost
			// recall of deleted content, so keep going.
			logger.WarnContext(ctx, "failed to delete old index points", "source_id", src.ID, "error", err)
		}
		if err := p.store.DeleteBySource(ctx, src.ID); err != nil {
			return 0, fmt.Errorf("failed to delete existing chunks: %w", err)
		}
	}

	meta := store.Metadata{
		SourceType:     src.Type,
		IngestedAt:     time.Now(),
		ChunkStrategy:  p.opts.Mode.String(),
		EmbeddingModel: p.embedder.ModelVersion(),
		Extra:          src.Extra,
	}

	for i, chunk := range chunks {
		qs, qVecs := p.questionVectors(ctx, chunk.Text)

		rec := &store.Record{
			SourceID:        src.ID,
			SourceText:      text,
			ChunkText:       chunk.Text,
			ChunkIndex:      chunk.Index,
			ChunkSize:       chunk.Size,
			ContentVector:   contentVecs[i],
			Questions:       qs,
			QuestionVectors: qVecs,
			Metadata:        meta,
		}

		id, err := p.store.Insert(ctx, rec)
		if err != nil {
			return 0, fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}

		if err := p.index.Upsert(ctx, []vectorindex.Point{{
			ID:  id,
			Vec: contentVecs[i],
			Meta: map[string]any{
				"source_id":   src.ID,
				"chunk_index": chunk.Index,
			},
		}}); err != nil {
			return 0, fmt.Errorf("failed to index chunk %d: %w", chunk.Index, err)
		}
	}

	return len(chunks), nil
}

// questionVectors synthesizes and embeds hypothetical questions for one chunk.
// A generation or embedding failure degrades to zero question vectors; a
// single-chunk failure must never abort the batch. Fewer than the configured
// count is accepted as-is.
func (p *Pipeline) questionVectors(ctx context.Context, chunkText string) ([]string, [][]float32) {
	logger := contextutil.LoggerFromContext(ctx)

	qs, err := p.questions.Generate(ctx, chunkText)
	if err != nil {
		logger.WarnContext(ctx, "question synthesis failed, indexing without questions", "error", err)
		return nil, nil
	}
	if len(qs) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(qs))
	for i, q := range qs {
		normalized[i] = textnorm.Normalize(q)
	}
	vecs, err := p.embedder.EmbedTexts(ctx, normalized)
	if err != nil || len(vecs) != len(qs) {
		logger.WarnContext(ctx, "question embedding failed, indexing without questions", "error", err)
		return nil, nil
	}
	return qs, vecs
}

// IngestBatch ingests sources through a bounded worker pool. The batch always
// completes and reports a full per-source summary even with partial failures.
func (p *Pipeline) IngestBatch(ctx context.Context, sources []Source) BatchSummary {
	logger := contextutil.LoggerFromContext(ctx)

	results := make([]SourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, src := range sources {
		g.Go(func() error {
			results[i] = p.IngestSource(gctx, src)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results

	summary := BatchSummary{Total: len(sources), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	logger.InfoContext(ctx, "batch ingestion completed",
		"total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary
}
