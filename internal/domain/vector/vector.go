// Package vector provides the numeric routines shared by the vectorizer,
// the search engine, and the ranking scorer.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of differing length are compared over the overlapping prefix.
// If either norm is zero the similarity is 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales v to unit L2 norm in place and returns it.
// An all-zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}

// Fit resizes v to dim: longer vectors are truncated, shorter ones are
// right-padded with zeros. The input is not modified.
func Fit(v []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, v)
	return out
}

// Average blends two vectors element-wise over their overlapping prefix,
// keeping the longer vector's tail. Either argument may be nil.
func Average(a, b []float32) []float32 {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	long, short := a, b
	if len(b) > len(a) {
		long, short = b, a
	}
	out := make([]float32, len(long))
	copy(out, long)
	for i := range short {
		out[i] = (long[i] + short[i]) / 2
	}
	return out
}

// Clamp01 bounds s to [0, 1].
func Clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Round6 rounds s to 6 decimal digits for stable output.
func Round6(s float64) float64 {
	return math.Round(s*1e6) / 1e6
}

// ToBytes encodes v as little-endian float32 bytes for storage.
func ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// FromBytes decodes a little-endian float32 byte payload.
func FromBytes(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector payload: len=%d (not multiple of 4)", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
