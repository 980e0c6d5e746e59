package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a SQLite database. The append path needs no
// cross-row coordination; readers may observe a snapshot missing very recent
// concurrent inserts.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		// Each pooled connection to :memory: would get its own database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate creates the schema. Idempotent.
func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			source_text TEXT NOT NULL,
			chunk_text TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			chunk_size INTEGER NOT NULL,
			content_vec BLOB NOT NULL,
			questions TEXT NOT NULL,
			question_vecs BLOB NOT NULL,
			metadata TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (source_id, chunk_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks (source_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const insertSQL = `INSERT INTO chunks
	(id, source_id, source_text, chunk_text, chunk_index, chunk_size,
	 content_vec, questions, question_vecs, metadata, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Insert appends one record and returns its generated identifier.
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) (string, error) {
	if err := validate(rec); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	args, err := recordArgs(rec)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, insertSQL, args...); err != nil {
		return "", fmt.Errorf("failed to insert chunk: %w", err)
	}
	return rec.ID, nil
}

// Merge imports records, dropping keys that collide with existing rows
// (first write wins) and reporting the skipped count.
func (s *SQLiteStore) Merge(ctx context.Context, incoming []*Record) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin merge: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	mergeSQL := `INSERT OR IGNORE INTO chunks
		(id, source_id, source_text, chunk_text, chunk_index, chunk_size,
		 content_vec, questions, question_vecs, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var inserted, skipped int
	for _, rec := range incoming {
		if err := validate(rec); err != nil {
			return 0, 0, err
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}

		args, err := recordArgs(rec)
		if err != nil {
			return 0, 0, err
		}
		res, err := tx.ExecContext(ctx, mergeSQL, args...)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to merge chunk: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read merge result: %w", err)
		}
		if n == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit merge: %w", err)
	}
	return inserted, skipped, nil
}

// Scan returns all rows ordered by source id then chunk index.
func (s *SQLiteStore) Scan(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, source_text, chunk_text, chunk_index, chunk_size,
		        content_vec, questions, question_vecs, metadata, created_at
		 FROM chunks ORDER BY source_id, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// Count returns the total number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Clear irreversibly removes all rows.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}

// DeleteBySource removes all records for one source.
func (s *SQLiteStore) DeleteBySource(ctx context.Context, sourceID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete chunks by source: %w", err)
	}
	return nil
}

// IDsBySource lists record IDs for one source, ordered by chunk index.
// Returns an empty slice if no chunks exist (not an error).
func (s *SQLiteStore) IDsBySource(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE source_id = ? ORDER BY chunk_index", sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

func validate(rec *Record) error {
	if rec.SourceID == "" {
		return fmt.Errorf("record has empty source id")
	}
	if len(rec.ContentVector) == 0 {
		return fmt.Errorf("record has no content vector")
	}
	if len(rec.Questions) != len(rec.QuestionVectors) {
		return fmt.Errorf("questions (%d) and question vectors (%d) are not aligned",
			len(rec.Questions), len(rec.QuestionVectors))
	}
	return nil
}

func recordArgs(rec *Record) ([]any, error) {
	questionsJSON, err := json.Marshal(rec.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return []any{
		rec.ID, rec.SourceID, rec.SourceText, rec.ChunkText, rec.ChunkIndex, rec.ChunkSize,
		encodeVector(rec.ContentVector), string(questionsJSON), encodeVectors(rec.QuestionVectors),
		string(metaJSON), rec.CreatedAt.UnixNano(),
	}, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var contentBlob, questionBlob []byte
	var questionsJSON, metaJSON string
	var createdNanos int64

	if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.SourceText, &rec.ChunkText,
		&rec.ChunkIndex, &rec.ChunkSize, &contentBlob, &questionsJSON,
		&questionBlob, &metaJSON, &createdNanos); err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}

	vec, _, err := decodeVector(contentBlob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", rec.ID, err)
	}
	rec.ContentVector = vec

	rec.QuestionVectors, err = decodeVectors(questionBlob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", rec.ID, err)
	}

	if err := json.Unmarshal([]byte(questionsJSON), &rec.Questions); err != nil {
		return nil, fmt.Errorf("chunk %s: failed to unmarshal questions: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("chunk %s: failed to unmarshal metadata: %w", rec.ID, err)
	}

	rec.CreatedAt = time.Unix(0, createdNanos)
	return &rec, nil
}
