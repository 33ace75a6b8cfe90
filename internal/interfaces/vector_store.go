package interfaces

import (
	"context"

	"github.com/harborlight/inquiro/internal/filter"
	"github.com/harborlight/inquiro/internal/models"
)

// VectorStore holds embedded chunks per engine namespace. Search returns
// matches in ascending distance order with ties broken by insertion index;
// relevance thresholds are applied by the caller, not the store.
type VectorStore interface {
	// Upsert inserts or replaces records in the engine's namespace
	Upsert(ctx context.Context, engineID string, records []*models.VectorRecord) error

	// Search returns the k nearest records that satisfy the filter
	Search(ctx context.Context, engineID string, vector []float32, k int, expr filter.Expr) ([]*models.VectorMatch, error)

	// DeleteFrom removes records at or beyond fromIndex, trimming slots a
	// rebuild no longer fills
	DeleteFrom(ctx context.Context, engineID string, fromIndex int) error

	// Delete removes the engine's entire namespace
	Delete(ctx context.Context, engineID string) error

	Close() error
}
