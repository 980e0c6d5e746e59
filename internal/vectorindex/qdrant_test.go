package vectorindex

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestGrpcEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "standard port",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:     "no port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334, // Default gRPC port
		},
		{
			name:     "no hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost",
			wantPort: 6334,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := grpcEndpoint(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Error("grpcEndpoint() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("grpcEndpoint() error: %v", err)
			}
			if host != tt.wantHost {
				t.Errorf("host = %q, want %q", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %d, want %d", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantIndexInvalidURL(t *testing.T) {
	if _, err := NewQdrantIndex("://invalid", "chunks"); err == nil {
		t.Error("NewQdrantIndex() with invalid URL should return error")
	}
}

func TestUpsertEmptyPoints(t *testing.T) {
	// Empty input returns before the client is touched.
	idx := &QdrantIndex{collection: "chunks"}
	if err := idx.Upsert(context.Background(), nil); err != nil {
		t.Errorf("Upsert() with no points should be a no-op, got: %v", err)
	}
}

func TestDeleteEmptyIDs(t *testing.T) {
	idx := &QdrantIndex{collection: "chunks"}
	if err := idx.Delete(context.Background(), nil); err != nil {
		t.Errorf("Delete() with no IDs should be a no-op, got: %v", err)
	}
}

func TestQueryInvalidK(t *testing.T) {
	idx := &QdrantIndex{collection: "chunks"}
	for _, k := range []int{0, -1} {
		if _, err := idx.Query(context.Background(), []float32{1, 0}, k); err == nil {
			t.Errorf("Query() with k=%d should return error", k)
		}
	}
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name string
		in   *qdrant.Value
		want any
	}{
		{
			name: "string",
			in:   &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: "doc-1"}},
			want: "doc-1",
		},
		{
			name: "integer",
			in:   &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: 3}},
			want: int64(3),
		},
		{
			name: "double",
			in:   &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: 0.5}},
			want: 0.5,
		},
		{
			name: "bool",
			in:   &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: true}},
			want: true,
		},
		{
			name: "nil kind",
			in:   &qdrant.Value{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertValue(tt.in); got != tt.want {
				t.Errorf("convertValue() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConvertValueList(t *testing.T) {
	in := &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{
		Values: []*qdrant.Value{
			{Kind: &qdrant.Value_StringValue{StringValue: "a"}},
			{Kind: &qdrant.Value_IntegerValue{IntegerValue: 2}},
		},
	}}}

	got, ok := convertValue(in).([]any)
	if !ok {
		t.Fatalf("convertValue() = %T, want []any", convertValue(in))
	}
	if len(got) != 2 || got[0] != "a" || got[1] != int64(2) {
		t.Errorf("list = %v", got)
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	payload := map[string]*qdrant.Value{
		"source_id":   {Kind: &qdrant.Value_StringValue{StringValue: "doc-1"}},
		"chunk_index": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 4}},
		"nil":         nil,
	}

	got := convertPayloadToMap(payload)
	if got["source_id"] != "doc-1" || got["chunk_index"] != int64(4) {
		t.Errorf("payload map = %v", got)
	}
	if _, ok := got["nil"]; ok {
		t.Error("nil values should be dropped")
	}

	empty := convertPayloadToMap(nil)
	if empty == nil || len(empty) != 0 {
		t.Errorf("convertPayloadToMap(nil) = %v, want empty map", empty)
	}
}

func TestCollectionVectorSize(t *testing.T) {
	full := &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: 768}),
			},
		},
	}
	if got := collectionVectorSize(full); got != 768 {
		t.Errorf("collectionVectorSize() = %d, want 768", got)
	}

	for _, tt := range []struct {
		name string
		info *qdrant.CollectionInfo
	}{
		{name: "nil config", info: &qdrant.CollectionInfo{}},
		{name: "nil params", info: &qdrant.CollectionInfo{Config: &qdrant.CollectionConfig{}}},
		{name: "nil vectors config", info: &qdrant.CollectionInfo{
			Config: &qdrant.CollectionConfig{Params: &qdrant.CollectionParams{}},
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := collectionVectorSize(tt.info); got != 0 {
				t.Errorf("collectionVectorSize() = %d, want 0", got)
			}
		})
	}
}
