package embeddings

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/llm"
	"github.com/ternarybob/arbor"
)

// countingEmbedder records batch sizes and can fail the first N calls with a
// rate limit error
type countingEmbedder struct {
	inner      *LocalEmbedder
	batchSizes []int
	failFirst  int
	calls      int
}

func (c *countingEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.batchSizes = append(c.batchSizes, len(texts))
	if c.calls <= c.failFirst {
		return nil, errors.New("Error 429, Message: quota exceeded, Please retry in 0.01s")
	}
	return c.inner.embedBatch(ctx, texts)
}

func (c *countingEmbedder) modelName() string { return "counting" }
func (c *countingEmbedder) dimension() int    { return c.inner.dimension() }

func testConfig(batchSize int) *common.EmbeddingConfig {
	return &common.EmbeddingConfig{BatchSize: batchSize, Dimensions: 8}
}

func fastRetryService(provider batchEmbedder, batchSize int) *Service {
	service := NewService(provider, testConfig(batchSize), arbor.NewLogger()).(*Service)
	service.retry = &llm.RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    0,
		MaxBackoff:        0,
		BackoffMultiplier: 1,
	}
	return service
}

func TestEmbedTexts_Batching(t *testing.T) {
	provider := &countingEmbedder{inner: NewLocalEmbedder(8)}
	service := fastRetryService(provider, 4)

	texts := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	vectors, err := service.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("Expected %d vectors, got %d", len(texts), len(vectors))
	}
	if !reflect.DeepEqual(provider.batchSizes, []int{4, 4, 2}) {
		t.Errorf("Expected sub-batches [4 4 2], got %v", provider.batchSizes)
	}
}

func TestEmbedTexts_Deterministic(t *testing.T) {
	service := fastRetryService(&countingEmbedder{inner: NewLocalEmbedder(8)}, 4)

	first, err := service.EmbedTexts(context.Background(), []string{"same input"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := service.EmbedTexts(context.Background(), []string{"same input"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical input to produce identical vectors")
	}
}

func TestEmbedTexts_RetriesRateLimit(t *testing.T) {
	provider := &countingEmbedder{inner: NewLocalEmbedder(8), failFirst: 2}
	service := fastRetryService(provider, 4)

	vectors, err := service.EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Expected retries to recover, got %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("Expected 2 vectors, got %d", len(vectors))
	}
	if provider.calls != 3 {
		t.Errorf("Expected 3 provider calls (2 throttled), got %d", provider.calls)
	}
}

func TestEmbedTexts_EmptyTextRejected(t *testing.T) {
	service := fastRetryService(&countingEmbedder{inner: NewLocalEmbedder(8)}, 4)

	if _, err := service.EmbedTexts(context.Background(), []string{"ok", ""}); err == nil {
		t.Error("Expected error for empty text in batch")
	}
}

func TestEmbedQuery(t *testing.T) {
	service := fastRetryService(&countingEmbedder{inner: NewLocalEmbedder(8)}, 4)

	vector, err := service.EmbedQuery(context.Background(), "what is chunking")
	if err != nil {
		t.Fatalf("EmbedQuery failed: %v", err)
	}
	if len(vector) != 8 {
		t.Errorf("Expected dimension 8, got %d", len(vector))
	}
}

func TestLocalEmbedder_UnitNorm(t *testing.T) {
	embedder := NewLocalEmbedder(16)
	vector := embedder.embed("hello")

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("Expected unit-length vector, squared norm %f", norm)
	}
}
