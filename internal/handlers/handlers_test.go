package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/harborlight/inquiro/internal/chat"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/embeddings"
	"github.com/harborlight/inquiro/internal/engines"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/llm"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/harborlight/inquiro/internal/storage/badger"
	"github.com/harborlight/inquiro/internal/vectorstore"
	"github.com/ternarybob/arbor"
	badgerhold "github.com/timshannon/badgerhold/v4"
)

// fakeIngest enqueues jobs without running builds
type fakeIngest struct{}

func (f *fakeIngest) Submit(ctx context.Context, engine *models.QueryEngine) (*models.BatchJob, error) {
	job := models.NewBatchJob(common.NewJobID(), engine.ID)
	return job, nil
}
func (f *fakeIngest) Start(ctx context.Context) error { return nil }
func (f *fakeIngest) Stop()                           {}

type testStack struct {
	storage  interfaces.StorageManager
	registry *engines.Registry
	engine   *EngineHandler
	chat     *ChatHandler
	jobs     *JobHandler
	mux      *http.ServeMux
}

func newTestStack(t *testing.T) *testStack {
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

	registry := engines.NewRegistry(storage, vectors, &fakeIngest{}, logger)
	dispatcher := engines.NewDispatcher(storage, vectors, embedder, nil, logger)
	llms := llm.NewFactory(&common.Config{LLM: common.LLMConfig{DefaultProvider: "mock"}}, logger)
	chatManager := chat.NewManager(storage, dispatcher, llms, logger)

	stack := &testStack{
		storage:  storage,
		registry: registry,
		engine:   NewEngineHandler(registry, dispatcher, chatManager, storage, logger),
		chat:     NewChatHandler(chatManager, logger),
		jobs:     NewJobHandler(storage, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/query", stack.engine.HandleQueryList)
	mux.HandleFunc("/query/", stack.engine.HandleQueryRoutes)
	mux.HandleFunc("/chat", stack.chat.HandleThreads)
	mux.HandleFunc("/chat/", stack.chat.HandleThreadByID)
	mux.HandleFunc("/api/jobs", stack.jobs.HandleJobs)
	mux.HandleFunc("/api/jobs/", stack.jobs.HandleJobByID)
	stack.mux = mux
	return stack
}

// seedCorpus indexes one chunk so direct queries have something to match
func seedCorpus(t *testing.T, stack *testStack, engineID, text string) {
	t.Helper()
	ctx := context.Background()
	logger := arbor.NewLogger()

	embedder, err := embeddings.NewFromConfig(&common.Config{
		Embedding: common.EmbeddingConfig{BatchSize: 8, Dimensions: 8},
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	vectorSlices, err := embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		t.Fatal(err)
	}

	document := &models.QueryDocument{
		ID:            common.NewDocumentID(),
		QueryEngineID: engineID,
		DocURL:        "https://corpus.example.com/doc",
		Title:         "Corpus",
		FirstIndex:    0,
		LastIndex:     0,
		CreatedAt:     time.Now(),
	}
	if err := stack.storage.DocumentStorage().SaveDocument(ctx, document); err != nil {
		t.Fatal(err)
	}
	chunk := &models.QueryDocumentChunk{
		ID:              common.NewChunkID(),
		QueryEngineID:   engineID,
		QueryDocumentID: document.ID,
		Index:           0,
		Modality:        models.ModalityText,
		Text:            text,
		CreatedAt:       time.Now(),
	}
	if err := stack.storage.DocumentStorage().SaveChunks(ctx, []*models.QueryDocumentChunk{chunk}); err != nil {
		t.Fatal(err)
	}

	vectors := vectorstore.NewProvider(stack.storage.DB().(*badgerhold.Store), &common.RemoteConfig{}, logger)
	store, err := vectors.ForKind(models.VectorStoreEmbedded)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Upsert(ctx, engineID, []*models.VectorRecord{{
		ChunkID:  chunk.ID,
		EngineID: engineID,
		Index:    0,
		Vector:   vectorSlices[0],
		Metadata: map[string]interface{}{"title": "Corpus"},
	}})
	if err != nil {
		t.Fatal(err)
	}
}
