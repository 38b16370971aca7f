package embed

import (
	"context"
	"math"
)

// StaticDimensions is the embedding dimension produced by StaticEmbedder,
// the engine's dependency-free default.
const StaticDimensions = 256

// DefaultEmbeddingCacheSize is the default number of vectors CachedEmbedder
// keeps in its LRU.
const DefaultEmbeddingCacheSize = 1000

// Embedder generates vector embeddings for text. Implementation is opaque
// to the core: a deterministic hashing embedder and an LRU-caching wrapper
// around one both satisfy this contract, as would a network-backed model
// client.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the length of vectors this embedder produces.
	Dimension() int

	// ModelID identifies the embedder implementation. Used to key cache
	// entries and to detect dimension/model mismatches against a
	// previously built index.
	ModelID() string
}

// normalizeVector normalizes a vector to unit length, leaving zero vectors
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
