package badger

import (
	"context"
	"testing"
	"time"

	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func TestEngineStorage_SoftDelete(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewEngineStorage(db, logger)
	ctx := context.Background()

	engine := &models.QueryEngine{
		ID:        "eng_1",
		Name:      "payments",
		Type:      models.EngineTypeDirectVector,
		DocURL:    "https://docs.example.com",
		CreatedAt: time.Now(),
	}
	if err := storage.SaveEngine(ctx, engine); err != nil {
		t.Fatalf("Failed to save engine: %v", err)
	}

	loaded, err := storage.GetEngine(ctx, "eng_1")
	if err != nil {
		t.Fatalf("Failed to load engine: %v", err)
	}
	if loaded.Name != "payments" {
		t.Errorf("Expected name 'payments', got '%s'", loaded.Name)
	}

	if err := storage.SoftDeleteEngine(ctx, "eng_1"); err != nil {
		t.Fatalf("Failed to delete engine: %v", err)
	}

	if _, err := storage.GetEngine(ctx, "eng_1"); err == nil {
		t.Error("Expected deleted engine to resolve as not found")
	}

	engines, err := storage.ListEngines(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Failed to list engines: %v", err)
	}
	if len(engines) != 0 {
		t.Errorf("Expected deleted engine excluded from list, got %d engines", len(engines))
	}
}

func TestEngineStorage_ListOrder(t *testing.T) {
	db := newTestDB(t)
	storage := NewEngineStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"eng_a", "eng_b", "eng_c"} {
		engine := &models.QueryEngine{
			ID:        id,
			Name:      id,
			Type:      models.EngineTypeDirectVector,
			DocURL:    "https://docs.example.com",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.SaveEngine(ctx, engine); err != nil {
			t.Fatalf("Failed to save engine %s: %v", id, err)
		}
	}

	engines, err := storage.ListEngines(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Failed to list engines: %v", err)
	}
	if len(engines) != 3 {
		t.Fatalf("Expected 3 engines, got %d", len(engines))
	}
	if engines[0].ID != "eng_c" {
		t.Errorf("Expected newest engine first, got %s", engines[0].ID)
	}

	page, err := storage.ListEngines(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Failed to paginate engines: %v", err)
	}
	if len(page) != 1 || page[0].ID != "eng_b" {
		t.Errorf("Expected page [eng_b], got %+v", page)
	}
}

func TestDocumentStorage_ChunksByDocument(t *testing.T) {
	db := newTestDB(t)
	storage := NewDocumentStorage(db, arbor.NewLogger())
	ctx := context.Background()

	doc := &models.QueryDocument{
		ID:            "doc_1",
		QueryEngineID: "eng_1",
		DocURL:        "https://docs.example.com/a",
		FirstIndex:    0,
		LastIndex:     2,
		CreatedAt:     time.Now(),
	}
	if err := storage.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}

	chunks := []*models.QueryDocumentChunk{
		{ID: "chk_2", QueryEngineID: "eng_1", QueryDocumentID: "doc_1", Index: 2, Modality: models.ModalityText, Text: "c", CreatedAt: time.Now()},
		{ID: "chk_0", QueryEngineID: "eng_1", QueryDocumentID: "doc_1", Index: 0, Modality: models.ModalityText, Text: "a", CreatedAt: time.Now()},
		{ID: "chk_1", QueryEngineID: "eng_1", QueryDocumentID: "doc_1", Index: 1, Modality: models.ModalityText, Text: "b", CreatedAt: time.Now()},
	}
	if err := storage.SaveChunks(ctx, chunks); err != nil {
		t.Fatalf("Failed to save chunks: %v", err)
	}

	loaded, err := storage.GetChunksByDocument(ctx, "doc_1")
	if err != nil {
		t.Fatalf("Failed to load chunks: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(loaded))
	}
	for i, chunk := range loaded {
		if chunk.Index != i {
			t.Errorf("Expected chunks sorted by index, position %d has index %d", i, chunk.Index)
		}
	}

	count, err := storage.CountChunksByEngine(ctx, "eng_1")
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 chunks for engine, got %d", count)
	}
}

func TestDocumentStorage_GetChunksByIDsSkipsMissing(t *testing.T) {
	db := newTestDB(t)
	storage := NewDocumentStorage(db, arbor.NewLogger())
	ctx := context.Background()

	chunk := &models.QueryDocumentChunk{
		ID: "chk_1", QueryEngineID: "eng_1", QueryDocumentID: "doc_1",
		Index: 0, Modality: models.ModalityText, Text: "hello", CreatedAt: time.Now(),
	}
	if err := storage.SaveChunks(ctx, []*models.QueryDocumentChunk{chunk}); err != nil {
		t.Fatalf("Failed to save chunk: %v", err)
	}

	loaded, err := storage.GetChunksByIDs(ctx, []string{"chk_1", "chk_missing"})
	if err != nil {
		t.Fatalf("Failed to resolve chunk ids: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "chk_1" {
		t.Errorf("Expected missing id skipped, got %+v", loaded)
	}
}

func TestJobStorage_StatusAndStale(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	pending := models.NewBatchJob("job_1", "eng_1")
	if err := storage.SaveJob(ctx, pending); err != nil {
		t.Fatalf("Failed to save pending job: %v", err)
	}

	active := models.NewBatchJob("job_2", "eng_1")
	if err := active.MarkActive(); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-30 * time.Minute)
	active.Heartbeat = &old
	if err := storage.SaveJob(ctx, active); err != nil {
		t.Fatalf("Failed to save active job: %v", err)
	}

	pendingJobs, err := storage.ListJobsByStatus(ctx, models.JobStatusPending)
	if err != nil {
		t.Fatalf("Failed to list pending jobs: %v", err)
	}
	if len(pendingJobs) != 1 || pendingJobs[0].ID != "job_1" {
		t.Errorf("Expected [job_1] pending, got %+v", pendingJobs)
	}

	stale, err := storage.ListStaleJobs(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("Failed to list stale jobs: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "job_2" {
		t.Errorf("Expected [job_2] stale, got %+v", stale)
	}
}

func TestThreadStorage_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewThreadStorage(db, arbor.NewLogger())
	ctx := context.Background()

	thread := models.NewThread("qry_1", "eng_1", "user_1", "gemini", "Payments")
	thread.Append(models.Turn{Type: models.TurnHumanInput, Content: "hi"})
	if err := storage.SaveThread(ctx, thread); err != nil {
		t.Fatalf("Failed to save thread: %v", err)
	}

	loaded, err := storage.GetThread(ctx, "qry_1")
	if err != nil {
		t.Fatalf("Failed to load thread: %v", err)
	}
	if len(loaded.History) != 2 {
		t.Errorf("Expected 2 turns after round trip, got %d", len(loaded.History))
	}

	if err := storage.SoftDeleteThread(ctx, "qry_1"); err != nil {
		t.Fatalf("Failed to delete thread: %v", err)
	}
	if _, err := storage.GetThread(ctx, "qry_1"); err == nil {
		t.Error("Expected deleted thread to resolve as not found")
	}
}
