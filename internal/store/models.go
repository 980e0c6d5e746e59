package store

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks github.com/lritter14/askdoc/internal/store Store

import (
	"context"
	"time"
)

// Metadata carries the required base fields for every record plus an open
// extension map for source-specific fields. Keeping the base typed keeps the
// required fields checkable.
type Metadata struct {
	SourceType     string            `json:"source_type"`
	IngestedAt     time.Time         `json:"ingested_at"`
	ChunkStrategy  string            `json:"chunk_strategy"`
	EmbeddingModel string            `json:"embedding_model"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Record is one indexed chunk. Records are created once at ingestion and never
// mutated in place; re-ingesting a source replaces its records wholesale.
type Record struct {
	ID              string      // UUID, generated on insert
	SourceID        string      // Filename or URL
	SourceText      string      // Full source text the chunk was cut from
	ChunkText       string      // Contiguous substring of SourceText
	ChunkIndex      int         // 0-based position within the source
	ChunkSize       int         // Rune count of ChunkText
	ContentVector   []float32   // Fixed-dimension content embedding
	Questions       []string    // Hypothetical questions, length 0..Q
	QuestionVectors [][]float32 // Order-aligned with Questions
	Metadata        Metadata
	CreatedAt       time.Time
}

// Store is the vector index store: it exclusively owns persisted chunk
// records. (source_id, chunk_index) is the natural dedup key.
type Store interface {
	// Insert appends one record, returning its generated identifier.
	Insert(ctx context.Context, rec *Record) (string, error)
	// Scan returns all rows, ordered by source id then chunk index.
	Scan(ctx context.Context) ([]*Record, error)
	// Count is a cheap read of the total stored chunks.
	Count(ctx context.Context) (int, error)
	// Clear irreversibly removes all rows.
	Clear(ctx context.Context) error
	// Merge imports records, deduplicating on (source_id, chunk_index).
	// Colliding keys are dropped (first write wins); the skipped count is
	// reported to the caller.
	Merge(ctx context.Context, incoming []*Record) (inserted, skipped int, err error)
	// DeleteBySource removes all records for one source. Used by the
	// clear-then-reinsert re-ingestion path.
	DeleteBySource(ctx context.Context, sourceID string) error
	// IDsBySource lists record IDs for one source, ordered by chunk index.
	IDsBySource(ctx context.Context, sourceID string) ([]string, error)
}
