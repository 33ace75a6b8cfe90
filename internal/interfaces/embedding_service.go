package interfaces

import "context"

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// Generate embeddings for a batch of chunk texts, order preserved
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Generate query embedding (may use a different task prompt than documents)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Get model information
	ModelName() string
	Dimension() int
}
