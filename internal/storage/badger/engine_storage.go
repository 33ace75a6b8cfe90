package badger

import (
	"context"
	"fmt"

	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// EngineStorage implements the EngineStorage interface for Badger
type EngineStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEngineStorage creates a new EngineStorage instance
func NewEngineStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EngineStorage {
	return &EngineStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EngineStorage) SaveEngine(ctx context.Context, engine *models.QueryEngine) error {
	if engine.ID == "" {
		return fmt.Errorf("engine ID is required")
	}
	if err := s.db.Store().Upsert(engine.ID, engine); err != nil {
		return fmt.Errorf("failed to save engine: %w", err)
	}
	return nil
}

// GetEngine returns the engine by id. Soft-deleted engines resolve to not
// found so every caller sees the same tombstone semantics.
func (s *EngineStorage) GetEngine(ctx context.Context, id string) (*models.QueryEngine, error) {
	var engine models.QueryEngine
	if err := s.db.Store().Get(id, &engine); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFoundError("engine", id)
		}
		return nil, fmt.Errorf("failed to get engine: %w", err)
	}
	if engine.IsDeleted() {
		return nil, models.NewNotFoundError("engine", id)
	}
	return &engine, nil
}

func (s *EngineStorage) ListEngines(ctx context.Context, limit, offset int) ([]*models.QueryEngine, error) {
	// Tombstones are filtered in-memory; querying pointer fields with IsNil
	// can panic inside badgerhold's reflection.
	var engines []models.QueryEngine
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&engines, query); err != nil {
		return nil, fmt.Errorf("failed to list engines: %w", err)
	}

	live := make([]*models.QueryEngine, 0, len(engines))
	for i := range engines {
		if engines[i].IsDeleted() {
			continue
		}
		live = append(live, &engines[i])
	}

	return paginate(live, limit, offset), nil
}

func (s *EngineStorage) SoftDeleteEngine(ctx context.Context, id string) error {
	engine, err := s.GetEngine(ctx, id)
	if err != nil {
		return err
	}
	engine.MarkDeleted()
	if err := s.db.Store().Upsert(engine.ID, engine); err != nil {
		return fmt.Errorf("failed to delete engine: %w", err)
	}
	s.logger.Debug().Str("engine_id", id).Msg("Engine soft-deleted")
	return nil
}

func (s *EngineStorage) CountEngines(ctx context.Context) (int, error) {
	engines, err := s.ListEngines(ctx, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(engines), nil
}

// paginate applies limit/offset after in-memory filtering. Zero limit means
// no cap.
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
