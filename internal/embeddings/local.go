package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// LocalEmbedder produces deterministic embeddings from a text hash. No
// network, no API key; used for tests and offline development. Equal inputs
// always produce equal vectors.
type LocalEmbedder struct {
	dim int
}

// NewLocalEmbedder creates a deterministic offline embedder
func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &LocalEmbedder{dim: dim}
}

func (e *LocalEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// embed seeds each component from the text hash and normalizes to unit
// length so cosine comparisons behave like real embeddings.
func (e *LocalEmbedder) embed(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := float64(h.Sum64() % 100000)

	vector := make([]float32, e.dim)
	var norm float64
	for i := range vector {
		value := math.Sin(seed*float64(i+1))*0.1 + 0.01
		vector[i] = float32(value)
		norm += value * value
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}
	return vector
}

func (e *LocalEmbedder) modelName() string {
	return "local-hash"
}

func (e *LocalEmbedder) dimension() int {
	return e.dim
}
