package engines

import (
	"context"
	"testing"
	"time"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/embeddings"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/harborlight/inquiro/internal/storage/badger"
	"github.com/harborlight/inquiro/internal/vectorstore"
	"github.com/ternarybob/arbor"
	badgerhold "github.com/timshannon/badgerhold/v4"
)

// fakeIngest records submissions without running builds
type fakeIngest struct {
	submitted []*models.BatchJob
}

func (f *fakeIngest) Submit(ctx context.Context, engine *models.QueryEngine) (*models.BatchJob, error) {
	job := models.NewBatchJob(common.NewJobID(), engine.ID)
	f.submitted = append(f.submitted, job)
	return job, nil
}

func (f *fakeIngest) Start(ctx context.Context) error { return nil }
func (f *fakeIngest) Stop()                           {}

type testEnv struct {
	storage    interfaces.StorageManager
	vectors    *vectorstore.Provider
	embedder   interfaces.EmbeddingService
	ingest     *fakeIngest
	registry   *Registry
	dispatcher *Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { storage.Close() })

	vectors := vectorstore.NewProvider(storage.DB().(*badgerhold.Store), &common.RemoteConfig{}, logger)
	embedder, err := embeddings.NewFromConfig(&common.Config{
		Embedding: common.EmbeddingConfig{BatchSize: 8, Dimensions: 8},
	}, logger)
	if err != nil {
		t.Fatal(err)
	}

	ingest := &fakeIngest{}
	return &testEnv{
		storage:    storage,
		vectors:    vectors,
		embedder:   embedder,
		ingest:     ingest,
		registry:   NewRegistry(storage, vectors, ingest, logger),
		dispatcher: NewDispatcher(storage, vectors, embedder, nil, logger),
	}
}

// indexCorpus installs a small searchable corpus for an engine: one document
// whose chunks are embedded with the same embedder the dispatcher uses.
func indexCorpus(t *testing.T, env *testEnv, engineID string, texts []string, metadata map[string]interface{}) {
	t.Helper()
	ctx := context.Background()

	document := &models.QueryDocument{
		ID:            common.NewDocumentID(),
		QueryEngineID: engineID,
		DocURL:        "https://corpus.example.com/doc",
		Title:         "Corpus",
		FirstIndex:    0,
		LastIndex:     len(texts) - 1,
		CreatedAt:     time.Now(),
	}
	if err := env.storage.DocumentStorage().SaveDocument(ctx, document); err != nil {
		t.Fatal(err)
	}

	vectors, err := env.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}

	chunks := make([]*models.QueryDocumentChunk, len(texts))
	records := make([]*models.VectorRecord, len(texts))
	for i, text := range texts {
		chunks[i] = &models.QueryDocumentChunk{
			ID:              common.NewChunkID(),
			QueryEngineID:   engineID,
			QueryDocumentID: document.ID,
			Index:           i,
			Modality:        models.ModalityText,
			Text:            text,
			CreatedAt:       time.Now(),
		}
		recordMeta := map[string]interface{}{"title": document.Title}
		for k, v := range metadata {
			recordMeta[k] = v
		}
		records[i] = &models.VectorRecord{
			ChunkID:  chunks[i].ID,
			EngineID: engineID,
			Index:    i,
			Vector:   vectors[i],
			Metadata: recordMeta,
		}
	}
	if err := env.storage.DocumentStorage().SaveChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	store, err := env.vectors.ForKind(models.VectorStoreEmbedded)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, engineID, records); err != nil {
		t.Fatal(err)
	}
}

func directEngine(name string) *models.QueryEngine {
	return &models.QueryEngine{
		Name:   name,
		Type:   models.EngineTypeDirectVector,
		DocURL: "https://docs.example.com",
	}
}
