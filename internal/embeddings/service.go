// Package embeddings turns chunk text into vectors. The service batches
// provider calls and retries rate-limited sub-batches, so one throttled call
// never fails a whole build.
package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/llm"
	"github.com/ternarybob/arbor"
)

// batchEmbedder is the provider-side contract: embed one sub-batch, order
// preserved.
type batchEmbedder interface {
	embedBatch(ctx context.Context, texts []string) ([][]float32, error)
	modelName() string
	dimension() int
}

// Service implements EmbeddingService with batching and retry
type Service struct {
	provider  batchEmbedder
	batchSize int
	retry     *llm.RetryConfig
	logger    arbor.ILogger
}

// NewService creates an embedding service over the given provider
func NewService(provider batchEmbedder, cfg *common.EmbeddingConfig, logger arbor.ILogger) interfaces.EmbeddingService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Service{
		provider:  provider,
		batchSize: batchSize,
		retry:     llm.NewDefaultRetryConfig(),
		logger:    logger,
	}
}

// EmbedTexts embeds every text, order preserved. Inputs are split into
// provider-sized sub-batches; a rate-limited sub-batch is retried with
// backoff rather than failing the whole call. Identical input always yields
// identical output for a fixed model.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text at position %d is empty", i)
		}
	}

	start := time.Now()
	vectors := make([][]float32, 0, len(texts))

	for offset := 0; offset < len(texts); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedWithRetry(ctx, texts[offset:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at offset %d: %w", offset, err)
		}
		if len(batch) != end-offset {
			return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(batch), end-offset)
		}
		vectors = append(vectors, batch...)
	}

	s.logger.Debug().
		Int("texts", len(texts)).
		Int("batch_size", s.batchSize).
		Str("model", s.provider.modelName()).
		Dur("duration", time.Since(start)).
		Msg("Generated embeddings")

	return vectors, nil
}

// EmbedQuery embeds one query string
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}
	vectors, err := s.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("provider returned %d vectors for one query", len(vectors))
	}
	return vectors[0], nil
}

func (s *Service) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		vectors, apiErr = s.provider.embedBatch(ctx, texts)
		if apiErr == nil {
			return vectors, nil
		}
		if !llm.IsRateLimitError(apiErr) || attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt, llm.ExtractRetryDelay(apiErr))
		s.logger.Warn().
			Int("attempt", attempt+1).
			Int("batch_size", len(texts)).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Embedding batch rate limited, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, apiErr
}

// ModelName returns the provider's model name
func (s *Service) ModelName() string {
	return s.provider.modelName()
}

// Dimension returns the embedding dimension
func (s *Service) Dimension() int {
	return s.provider.dimension()
}
