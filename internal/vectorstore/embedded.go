// Package vectorstore provides the per-engine vector backends. The embedded
// store keeps rows in the local Badger database; the remote store talks to a
// managed vector index over HTTP. The backend is chosen once at engine
// creation and never re-selected per call.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/harborlight/inquiro/internal/filter"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// vectorRow is the persisted form of one embedded chunk vector
type vectorRow struct {
	Key      string `badgerhold:"key"`
	EngineID string `badgerhold:"index"`
	ChunkID  string
	Index    int
	Vector   []float32
	Metadata map[string]interface{}
}

// EmbeddedStore implements VectorStore on the local Badger database with
// brute-force cosine search. Fine for the embedded store's scale; engines
// needing more move to the remote backend.
type EmbeddedStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewEmbeddedStore creates a vector store backed by the shared Badger database
func NewEmbeddedStore(store *badgerhold.Store, logger arbor.ILogger) interfaces.VectorStore {
	return &EmbeddedStore{
		store:  store,
		logger: logger,
	}
}

// rowKey addresses the engine's index slot. Keying by index rather than
// chunk ID means a rebuild overwrites the slot in place.
func rowKey(engineID string, index int) string {
	return fmt.Sprintf("%s/%08d", engineID, index)
}

func (s *EmbeddedStore) Upsert(ctx context.Context, engineID string, records []*models.VectorRecord) error {
	for _, record := range records {
		if record.ChunkID == "" {
			return fmt.Errorf("vector record requires a chunk id")
		}
		row := &vectorRow{
			Key:      rowKey(engineID, record.Index),
			EngineID: engineID,
			ChunkID:  record.ChunkID,
			Index:    record.Index,
			Vector:   record.Vector,
			Metadata: record.Metadata,
		}
		if err := s.store.Upsert(row.Key, row); err != nil {
			return fmt.Errorf("failed to upsert vector: %w", err)
		}
	}
	return nil
}

// Search scans the engine's namespace and returns the k nearest rows that
// satisfy the filter, ascending by distance with ties broken by insertion
// index. Thresholding is the caller's concern.
func (s *EmbeddedStore) Search(ctx context.Context, engineID string, vector []float32, k int, expr filter.Expr) ([]*models.VectorMatch, error) {
	if k <= 0 {
		k = models.DefaultMaxResults
	}

	var rows []vectorRow
	if err := s.store.Find(&rows, badgerhold.Where("EngineID").Eq(engineID)); err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}

	matches := make([]*models.VectorMatch, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if !filter.Matches(expr, row.Metadata) {
			continue
		}
		matches = append(matches, &models.VectorMatch{
			ChunkID:  row.ChunkID,
			Index:    row.Index,
			Distance: CosineDistance(vector, row.Vector),
			Metadata: row.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Index < matches[j].Index
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteFrom removes rows at or beyond fromIndex, trimming slots a rebuild
// no longer fills
func (s *EmbeddedStore) DeleteFrom(ctx context.Context, engineID string, fromIndex int) error {
	query := badgerhold.Where("EngineID").Eq(engineID).And("Index").Ge(fromIndex)
	if err := s.store.DeleteMatching(&vectorRow{}, query); err != nil {
		return fmt.Errorf("failed to trim vector namespace: %w", err)
	}
	return nil
}

func (s *EmbeddedStore) Delete(ctx context.Context, engineID string) error {
	if err := s.store.DeleteMatching(&vectorRow{}, badgerhold.Where("EngineID").Eq(engineID)); err != nil {
		return fmt.Errorf("failed to delete vector namespace: %w", err)
	}
	s.logger.Debug().Str("engine_id", engineID).Msg("Vector namespace deleted")
	return nil
}

// Close is a no-op; the underlying database is owned by the storage manager
func (s *EmbeddedStore) Close() error {
	return nil
}

// CosineDistance returns 1 minus cosine similarity on the [0, 2] scale.
// Zero-magnitude or mismatched vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
