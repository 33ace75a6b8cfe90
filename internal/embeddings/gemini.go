package embeddings

import (
	"context"
	"fmt"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiEmbedder embeds batches via the Gemini embedding API
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int
	logger arbor.ILogger
}

// NewGeminiEmbedder creates a Gemini-backed batch embedder
func NewGeminiEmbedder(geminiCfg *common.GeminiConfig, embeddingCfg *common.EmbeddingConfig, logger arbor.ILogger) (*GeminiEmbedder, error) {
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for embeddings (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	model := geminiCfg.EmbedModel
	if model == "" {
		model = "gemini-embedding-001"
	}
	dim := embeddingCfg.Dimensions
	if dim <= 0 {
		dim = 768
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  geminiCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Info().
		Str("embed_model", model).
		Int("dimensions", dim).
		Msg("Gemini embedder initialized")

	return &GeminiEmbedder{
		client: client,
		model:  model,
		dim:    dim,
		logger: logger,
	}, nil
}

func (e *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	outputDim := int32(e.dim)
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		if len(embedding.Values) != e.dim {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dim, len(embedding.Values))
		}
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

func (e *GeminiEmbedder) modelName() string {
	return e.model
}

func (e *GeminiEmbedder) dimension() int {
	return e.dim
}
