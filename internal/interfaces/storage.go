package interfaces

import (
	"context"
	"time"

	"github.com/harborlight/inquiro/internal/models"
)

// EngineStorage - interface for query engine persistence
type EngineStorage interface {
	SaveEngine(ctx context.Context, engine *models.QueryEngine) error
	GetEngine(ctx context.Context, id string) (*models.QueryEngine, error)
	ListEngines(ctx context.Context, limit, offset int) ([]*models.QueryEngine, error)
	SoftDeleteEngine(ctx context.Context, id string) error
	CountEngines(ctx context.Context) (int, error)
}

// DocumentStorage - interface for indexed document and chunk persistence
type DocumentStorage interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *models.QueryDocument) error
	SaveDocuments(ctx context.Context, docs []*models.QueryDocument) error
	GetDocument(ctx context.Context, id string) (*models.QueryDocument, error)
	GetDocumentsByEngine(ctx context.Context, engineID string) ([]*models.QueryDocument, error)
	SoftDeleteDocumentsByEngine(ctx context.Context, engineID string) error
	CountDocumentsByEngine(ctx context.Context, engineID string) (int, error)

	// Chunk operations
	SaveChunks(ctx context.Context, chunks []*models.QueryDocumentChunk) error
	GetChunk(ctx context.Context, id string) (*models.QueryDocumentChunk, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]*models.QueryDocumentChunk, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]*models.QueryDocumentChunk, error)
	SoftDeleteChunksByEngine(ctx context.Context, engineID string) error
	DeleteChunksFromIndex(ctx context.Context, engineID string, fromIndex int) error
	CountChunksByEngine(ctx context.Context, engineID string) (int, error)
}

// ThreadStorage - interface for conversation thread persistence
type ThreadStorage interface {
	SaveThread(ctx context.Context, thread *models.UserQuery) error
	GetThread(ctx context.Context, id string) (*models.UserQuery, error)
	ListThreads(ctx context.Context, userID string, limit, offset int) ([]*models.UserQuery, error)
	SoftDeleteThread(ctx context.Context, id string) error
}

// JobStorage - interface for batch job persistence
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.BatchJob) error
	GetJob(ctx context.Context, id string) (*models.BatchJob, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*models.BatchJob, error)
	ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.BatchJob, error)
	ListJobsByEngine(ctx context.Context, engineID string) ([]*models.BatchJob, error)
	ListStaleJobs(ctx context.Context, window time.Duration) ([]*models.BatchJob, error)
	CountJobs(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	EngineStorage() EngineStorage
	DocumentStorage() DocumentStorage
	ThreadStorage() ThreadStorage
	JobStorage() JobStorage
	DB() interface{}
	Close() error
}
