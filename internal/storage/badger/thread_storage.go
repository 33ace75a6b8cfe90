package badger

import (
	"context"
	"fmt"

	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ThreadStorage implements the ThreadStorage interface for Badger
type ThreadStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewThreadStorage creates a new ThreadStorage instance
func NewThreadStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ThreadStorage {
	return &ThreadStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ThreadStorage) SaveThread(ctx context.Context, thread *models.UserQuery) error {
	if thread.ID == "" {
		return fmt.Errorf("thread ID is required")
	}
	if err := s.db.Store().Upsert(thread.ID, thread); err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

func (s *ThreadStorage) GetThread(ctx context.Context, id string) (*models.UserQuery, error) {
	var thread models.UserQuery
	if err := s.db.Store().Get(id, &thread); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFoundError("thread", id)
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	if thread.IsDeleted() {
		return nil, models.NewNotFoundError("thread", id)
	}
	return &thread, nil
}

func (s *ThreadStorage) ListThreads(ctx context.Context, userID string, limit, offset int) ([]*models.UserQuery, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if userID != "" {
		query = badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	}

	var threads []models.UserQuery
	if err := s.db.Store().Find(&threads, query); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	live := make([]*models.UserQuery, 0, len(threads))
	for i := range threads {
		if threads[i].IsDeleted() {
			continue
		}
		live = append(live, &threads[i])
	}

	return paginate(live, limit, offset), nil
}

func (s *ThreadStorage) SoftDeleteThread(ctx context.Context, id string) error {
	thread, err := s.GetThread(ctx, id)
	if err != nil {
		return err
	}
	thread.Archive()
	deleted := thread.UpdatedAt
	thread.DeletedAt = &deleted
	if err := s.db.Store().Upsert(thread.ID, thread); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	s.logger.Debug().Str("thread_id", id).Msg("Thread soft-deleted")
	return nil
}
