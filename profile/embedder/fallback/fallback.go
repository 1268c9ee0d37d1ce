// Package fallback provides a deterministic local embedding source.
//
// It stands in for the remote provider when retries are exhausted, so
// the profile pipeline keeps functioning in a degraded mode instead of
// crashing — at the cost of embedding quality. Vectors are seeded from
// a hash of the input text: two independent calls with the same text
// and dimensionality always produce identical vectors.
package fallback

import (
	"context"
	"hash/fnv"
	"math"
)

// SourceName identifies fallback vectors in logs and telemetry.
const SourceName = "fallback"

// Source generates hash-seeded vectors of any requested dimensionality.
type Source struct{}

// New creates a fallback source.
func New() *Source {
	return &Source{}
}

// Name implements profile.EmbeddingSource.
func (s *Source) Name() string {
	return SourceName
}

// Embed creates a deterministic embedding from text. The model name is
// ignored; only the text and dimensionality shape the output.
func (s *Source) Embed(_ context.Context, text string, _ string, dimensions int) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, dimensions)
	for i := range embedding {
		// LCG over the hash seed: reproducible pseudo-random values.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// normalize converts the embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
