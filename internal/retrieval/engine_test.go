package retrieval

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/lritter14/askdoc/internal/service"
	"github.com/lritter14/askdoc/internal/store"
	"github.com/lritter14/askdoc/internal/store/mocks"
)

// fakeEmbedder returns a fixed query vector.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

// rec builds a record whose fused score against the unit query [1,0,0] is
// directly readable off the vector components.
func rec(sourceID string, chunkIndex int, content []float32, questionVecs ...[]float32) *store.Record {
	return &store.Record{
		ID:              sourceID + "-" + string(rune('0'+chunkIndex)),
		SourceID:        sourceID,
		ChunkText:       "chunk " + sourceID,
		ChunkIndex:      chunkIndex,
		ContentVector:   content,
		QuestionVectors: questionVecs,
		CreatedAt:       time.Unix(100, 0),
	}
}

var queryVec = []float32{1, 0, 0}

func newEngine(t *testing.T, records []*store.Record) *Engine {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().Scan(gomock.Any()).Return(records, nil).AnyTimes()
	return NewEngine(&fakeEmbedder{vec: queryVec}, st, 5, -1)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "mismatched length", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFusedScoreTakesMax(t *testing.T) {
	tests := []struct {
		name string
		rec  *store.Record
		want float64
	}{
		{
			name: "content wins",
			rec:  rec("a", 0, []float32{1, 0, 0}, []float32{0, 1, 0}),
			want: 1,
		},
		{
			name: "question wins",
			rec:  rec("a", 0, []float32{0, 1, 0}, []float32{0, 0, 1}, []float32{1, 0, 0}),
			want: 1,
		},
		{
			name: "weak question does not drag down",
			rec:  rec("a", 0, []float32{1, 0, 0}, []float32{-1, 0, 0}),
			want: 1,
		},
		{
			name: "no questions",
			rec:  rec("a", 0, []float32{0, 1, 0}),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FusedScore(queryVec, tt.rec)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FusedScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchValidation(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	bad := 1.5
	tests := []struct {
		name string
		req  SearchRequest
	}{
		{name: "empty query", req: SearchRequest{Query: ""}},
		{name: "negative top_k", req: SearchRequest{Query: "q", TopK: -1}},
		{name: "threshold out of range", req: SearchRequest{Query: "q", Threshold: &bad}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Search(ctx, tt.req)
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Errorf("Search() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSearchEmptyStore(t *testing.T) {
	e := newEngine(t, nil)

	resp, err := e.Search(context.Background(), SearchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("Search() on empty store error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("Search() = %d results, want 0", len(resp.Results))
	}
}

func TestSearchThresholdFiltersAll(t *testing.T) {
	records := []*store.Record{
		rec("a", 0, []float32{0.5, 0.5, 0}),  // cosine ~0.707
		rec("b", 0, []float32{0.1, 0.99, 0}), // cosine ~0.1
	}
	e := newEngine(t, records)

	threshold := 0.9
	resp, err := e.Search(context.Background(), SearchRequest{Query: "q", Threshold: &threshold})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("all chunks score below 0.9, want empty results, got %d", len(resp.Results))
	}
}

func TestSearchThresholdIsInclusive(t *testing.T) {
	records := []*store.Record{
		rec("exact", 0, []float32{1, 0, 0}), // cosine exactly 1
		rec("below", 0, []float32{0, 1, 0}), // cosine 0
	}
	e := newEngine(t, records)

	threshold := 1.0
	resp, err := e.Search(context.Background(), SearchRequest{Query: "q", Threshold: &threshold})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].SourceID != "exact" {
		t.Errorf("score == threshold should be kept, got %+v", resp.Results)
	}
}

func TestSearchRanksByFusedScore(t *testing.T) {
	records := []*store.Record{
		rec("low", 0, []float32{0.2, 0.98, 0}),
		rec("high", 0, []float32{1, 0, 0}),
		// Content is weak but one question matches perfectly.
		rec("question-boosted", 0, []float32{0, 1, 0}, []float32{0.9, 0.1, 0}),
	}
	e := newEngine(t, records)

	resp, err := e.Search(context.Background(), SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("Search() = %d results, want 3", len(resp.Results))
	}
	wantOrder := []string{"high", "question-boosted", "low"}
	for i, w := range wantOrder {
		if resp.Results[i].SourceID != w {
			t.Errorf("results[%d] = %q, want %q", i, resp.Results[i].SourceID, w)
		}
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Errorf("scores not descending at position %d", i)
		}
	}
}

func TestSearchTopKBound(t *testing.T) {
	var records []*store.Record
	for i := 0; i < 10; i++ {
		records = append(records, rec("doc", i, []float32{1, float32(i) * 0.01, 0}))
	}
	e := newEngine(t, records)

	resp, err := e.Search(context.Background(), SearchRequest{Query: "q", TopK: 3})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("Search() = %d results, want top_k=3", len(resp.Results))
	}
}

func TestSearchTieBreakDeterministic(t *testing.T) {
	older := rec("b", 2, []float32{1, 0, 0})
	older.CreatedAt = time.Unix(50, 0)
	records := []*store.Record{
		rec("a", 3, []float32{1, 0, 0}), // same score, higher chunk index
		rec("a", 1, []float32{1, 0, 0}),
		older, // same score and would tie on nothing else at index 2
		rec("c", 2, []float32{1, 0, 0}),
	}
	e := newEngine(t, records)

	first, err := e.Search(context.Background(), SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	// Equal scores: ascending chunk index, then earlier created-at.
	wantOrder := []struct {
		source string
		index  int
	}{
		{"a", 1}, {"b", 2}, {"c", 2}, {"a", 3},
	}
	if len(first.Results) != len(wantOrder) {
		t.Fatalf("Search() = %d results, want %d", len(first.Results), len(wantOrder))
	}
	for i, w := range wantOrder {
		got := first.Results[i]
		if got.SourceID != w.source || got.ChunkIndex != w.index {
			t.Errorf("results[%d] = (%q, %d), want (%q, %d)",
				i, got.SourceID, got.ChunkIndex, w.source, w.index)
		}
	}

	// Identical inputs rank identically across runs.
	second, err := e.Search(context.Background(), SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("second Search() error: %v", err)
	}
	for i := range first.Results {
		if !reflect.DeepEqual(first.Results[i], second.Results[i]) {
			t.Errorf("result %d differs between identical searches", i)
		}
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	e := NewEngine(&fakeEmbedder{err: errors.New("backend down")}, st, 5, 0.25)

	_, err := e.Search(context.Background(), SearchRequest{Query: "q"})
	if err == nil {
		t.Fatal("Search() should propagate embedder failure")
	}
}

func TestSearchStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().Scan(gomock.Any()).Return(nil, errors.New("db closed"))
	e := NewEngine(&fakeEmbedder{vec: queryVec}, st, 5, 0.25)

	_, err := e.Search(context.Background(), SearchRequest{Query: "q"})
	if err == nil {
		t.Fatal("Search() should propagate store failure")
	}
}
