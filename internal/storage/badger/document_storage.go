package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.QueryDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) SaveDocuments(ctx context.Context, docs []*models.QueryDocument) error {
	for _, doc := range docs {
		if err := s.SaveDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.QueryDocument, error) {
	var doc models.QueryDocument
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFoundError("document", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc.DeletedAt != nil {
		return nil, models.NewNotFoundError("document", id)
	}
	return &doc, nil
}

func (s *DocumentStorage) GetDocumentsByEngine(ctx context.Context, engineID string) ([]*models.QueryDocument, error) {
	var docs []models.QueryDocument
	query := badgerhold.Where("QueryEngineID").Eq(engineID).SortBy("FirstIndex")
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	live := make([]*models.QueryDocument, 0, len(docs))
	for i := range docs {
		if docs[i].DeletedAt != nil {
			continue
		}
		live = append(live, &docs[i])
	}
	return live, nil
}

// SoftDeleteDocumentsByEngine tombstones every document of an engine. Rows
// stay in place so anything holding a document id can still tell it existed.
func (s *DocumentStorage) SoftDeleteDocumentsByEngine(ctx context.Context, engineID string) error {
	var docs []models.QueryDocument
	if err := s.db.Store().Find(&docs, badgerhold.Where("QueryEngineID").Eq(engineID)); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	now := time.Now()
	for i := range docs {
		if docs[i].DeletedAt != nil {
			continue
		}
		docs[i].DeletedAt = &now
		if err := s.db.Store().Upsert(docs[i].ID, &docs[i]); err != nil {
			return fmt.Errorf("failed to tombstone document: %w", err)
		}
	}
	return nil
}

func (s *DocumentStorage) CountDocumentsByEngine(ctx context.Context, engineID string) (int, error) {
	docs, err := s.GetDocumentsByEngine(ctx, engineID)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *DocumentStorage) SaveChunks(ctx context.Context, chunks []*models.QueryDocumentChunk) error {
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID is required")
		}
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to save chunk: %w", err)
		}
	}
	return nil
}

func (s *DocumentStorage) GetChunk(ctx context.Context, id string) (*models.QueryDocumentChunk, error) {
	var chunk models.QueryDocumentChunk
	if err := s.db.Store().Get(id, &chunk); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFoundError("chunk", id)
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	if chunk.DeletedAt != nil {
		return nil, models.NewNotFoundError("chunk", id)
	}
	return &chunk, nil
}

// GetChunksByIDs resolves search hits back to chunk records. Unknown ids are
// skipped, not errors; a stale vector row must not fail the whole query.
func (s *DocumentStorage) GetChunksByIDs(ctx context.Context, ids []string) ([]*models.QueryDocumentChunk, error) {
	chunks := make([]*models.QueryDocumentChunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := s.GetChunk(ctx, id)
		if err != nil {
			if _, ok := err.(*models.NotFoundError); ok {
				s.logger.Warn().Str("chunk_id", id).Msg("Search hit references missing chunk, skipping")
				continue
			}
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *DocumentStorage) GetChunksByDocument(ctx context.Context, documentID string) ([]*models.QueryDocumentChunk, error) {
	var chunks []models.QueryDocumentChunk
	query := badgerhold.Where("QueryDocumentID").Eq(documentID).SortBy("Index")
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	live := make([]*models.QueryDocumentChunk, 0, len(chunks))
	for i := range chunks {
		if chunks[i].DeletedAt != nil {
			continue
		}
		live = append(live, &chunks[i])
	}
	return live, nil
}

// SoftDeleteChunksByEngine tombstones every chunk of an engine
func (s *DocumentStorage) SoftDeleteChunksByEngine(ctx context.Context, engineID string) error {
	var chunks []models.QueryDocumentChunk
	if err := s.db.Store().Find(&chunks, badgerhold.Where("QueryEngineID").Eq(engineID)); err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	now := time.Now()
	for i := range chunks {
		if chunks[i].DeletedAt != nil {
			continue
		}
		chunks[i].DeletedAt = &now
		if err := s.db.Store().Upsert(chunks[i].ID, &chunks[i]); err != nil {
			return fmt.Errorf("failed to tombstone chunk: %w", err)
		}
	}
	return nil
}

// DeleteChunksFromIndex removes chunk rows at or beyond fromIndex. Used by
// rebuilds to trim slots the new corpus no longer fills; these rows are
// superseded build artifacts, not user-visible state, so the delete is
// physical.
func (s *DocumentStorage) DeleteChunksFromIndex(ctx context.Context, engineID string, fromIndex int) error {
	query := badgerhold.Where("QueryEngineID").Eq(engineID).And("Index").Ge(fromIndex)
	if err := s.db.Store().DeleteMatching(&models.QueryDocumentChunk{}, query); err != nil {
		return fmt.Errorf("failed to trim chunks: %w", err)
	}
	return nil
}

// CountChunksByEngine counts live chunks; tombstoned rows are excluded
func (s *DocumentStorage) CountChunksByEngine(ctx context.Context, engineID string) (int, error) {
	query := badgerhold.Where("QueryEngineID").Eq(engineID).And("DeletedAt").IsNil()
	count, err := s.db.Store().Count(&models.QueryDocumentChunk{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}
