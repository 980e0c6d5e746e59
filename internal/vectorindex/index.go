package vectorindex

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks github.com/lritter14/askdoc/internal/vectorindex Index

import "context"

// Point mirrors one chunk record's content vector into the secondary index.
// Question vectors are not indexed here; the retrieval engine compares them by
// full scan of the record store.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// Neighbor is one nearest-neighbor query result.
type Neighbor struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Index is the secondary nearest-neighbor index keyed on content vectors only.
type Index interface {
	// EnsureCollection creates the collection if missing and validates the
	// vector size if it exists.
	EnsureCollection(ctx context.Context, vectorSize int) error
	// Upsert mirrors points into the index.
	Upsert(ctx context.Context, points []Point) error
	// Query returns the k nearest neighbors of the query vector.
	Query(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	// Delete removes points by their IDs.
	Delete(ctx context.Context, ids []string) error
	// Clear removes every point in the collection.
	Clear(ctx context.Context) error
	// PointCount reports the number of indexed points.
	PointCount(ctx context.Context) (int, error)
}
