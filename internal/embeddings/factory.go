package embeddings

import (
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewFromConfig builds the embedding service from configuration. Without a
// Gemini API key the deterministic local embedder is used, which keeps
// development and tests network-free.
func NewFromConfig(cfg *common.Config, logger arbor.ILogger) (interfaces.EmbeddingService, error) {
	if cfg.Gemini.APIKey == "" {
		logger.Warn().Msg("No Gemini API key configured, using local deterministic embedder")
		return NewService(NewLocalEmbedder(cfg.Embedding.Dimensions), &cfg.Embedding, logger), nil
	}

	provider, err := NewGeminiEmbedder(&cfg.Gemini, &cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}
	return NewService(provider, &cfg.Embedding, logger), nil
}
