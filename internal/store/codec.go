package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are stored as little-endian float32 blobs. Multi-vector blobs carry
// a uint32 vector count, then per vector a uint32 length and its floats.

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+4*len(vec))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("vector blob too short: %d bytes", len(buf))
	}
	n := int(binary.LittleEndian.Uint32(buf[0:4]))
	need := 4 + 4*n
	if len(buf) < need {
		return nil, 0, fmt.Errorf("vector blob truncated: need %d bytes, have %d", need, len(buf))
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4+4*i:]))
	}
	return vec, need, nil
}

func encodeVectors(vecs [][]float32) []byte {
	size := 4
	for _, v := range vecs {
		size += 4 + 4*len(v)
	}
	buf := make([]byte, 0, size)

	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(len(vecs)))
	buf = append(buf, head[:]...)
	for _, v := range vecs {
		buf = append(buf, encodeVector(v)...)
	}
	return buf
}

func decodeVectors(buf []byte) ([][]float32, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("vectors blob too short: %d bytes", len(buf))
	}
	count := int(binary.LittleEndian.Uint32(buf[0:4]))
	buf = buf[4:]

	// Every vector carries at least its own 4-byte length header; a count the
	// blob cannot hold is corruption, caught here before allocating for it.
	if count > len(buf)/4 {
		return nil, fmt.Errorf("vectors blob corrupt: count %d exceeds capacity of %d bytes", count, len(buf))
	}

	vecs := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		vec, consumed, err := decodeVector(buf)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		vecs = append(vecs, vec)
		buf = buf[consumed:]
	}
	return vecs, nil
}
