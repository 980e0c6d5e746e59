package store

import "testing"

func TestVectorCodecRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{name: "typical", vec: []float32{0.1, -0.5, 3.25, 0}},
		{name: "single element", vec: []float32{42}},
		{name: "empty", vec: []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, consumed, err := decodeVector(encodeVector(tt.vec))
			if err != nil {
				t.Fatalf("decodeVector() error: %v", err)
			}
			if consumed != 4+4*len(tt.vec) {
				t.Errorf("consumed = %d, want %d", consumed, 4+4*len(tt.vec))
			}
			if len(got) != len(tt.vec) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.vec))
			}
			for i := range got {
				if got[i] != tt.vec[i] {
					t.Errorf("element %d = %v, want %v", i, got[i], tt.vec[i])
				}
			}
		})
	}
}

func TestVectorsCodecRoundtrip(t *testing.T) {
	vecs := [][]float32{
		{1, 2, 3},
		{-0.25},
		{},
	}

	got, err := decodeVectors(encodeVectors(vecs))
	if err != nil {
		t.Fatalf("decodeVectors() error: %v", err)
	}
	if len(got) != len(vecs) {
		t.Fatalf("count = %d, want %d", len(got), len(vecs))
	}
	for i := range got {
		if len(got[i]) != len(vecs[i]) {
			t.Errorf("vector %d length = %d, want %d", i, len(got[i]), len(vecs[i]))
		}
		for j := range got[i] {
			if got[i][j] != vecs[i][j] {
				t.Errorf("vecs[%d][%d] = %v, want %v", i, j, got[i][j], vecs[i][j])
			}
		}
	}
}

func TestDecodeVectorsCorruptCount(t *testing.T) {
	// A count header claiming far more vectors than the blob can hold must be
	// rejected up front, not attempted as an allocation.
	blob := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := decodeVectors(blob); err == nil {
		t.Error("decodeVectors should reject an impossible count")
	}

	blob = append(encodeVectors([][]float32{{1, 2}}), 0)
	blob[0] = 200 // claims 200 vectors, payload holds one
	if _, err := decodeVectors(blob); err == nil {
		t.Error("decodeVectors should reject a count exceeding the payload")
	}
}

func TestDecodeVectorTruncated(t *testing.T) {
	if _, _, err := decodeVector(nil); err == nil {
		t.Error("decodeVector(nil) should fail")
	}

	blob := encodeVector([]float32{1, 2, 3})
	if _, _, err := decodeVector(blob[:len(blob)-2]); err == nil {
		t.Error("decodeVector on truncated blob should fail")
	}
}
