package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/harborlight/inquiro/internal/models"
	badgerhold "github.com/timshannon/badgerhold/v4"
)

func TestRegistry_CreateDirectVector(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	engine, job, err := env.registry.Create(ctx, directEngine("support-docs"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if engine.ID == "" {
		t.Error("Expected generated engine id")
	}
	if job == nil || job.QueryEngineID != engine.ID {
		t.Fatal("Expected build job enqueued for content engine")
	}
	if engine.Params.ChunkSize != models.DefaultChunkSize {
		t.Errorf("Expected default chunk size, got %d", engine.Params.ChunkSize)
	}
	if engine.Params.SimilarityThreshold != models.DefaultSimilarityThreshold {
		t.Errorf("Expected default threshold, got %f", engine.Params.SimilarityThreshold)
	}
	if engine.VectorStore != models.VectorStoreEmbedded {
		t.Errorf("Expected embedded vector store default, got %s", engine.VectorStore)
	}

	loaded, err := env.registry.Get(ctx, engine.ID)
	if err != nil {
		t.Fatalf("Get after create failed: %v", err)
	}
	if loaded.Name != "support-docs" {
		t.Errorf("Expected persisted name, got %q", loaded.Name)
	}
}

func TestRegistry_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		engine *models.QueryEngine
	}{
		{"missing name", &models.QueryEngine{Type: models.EngineTypeDirectVector, DocURL: "https://x"}},
		{"missing doc_url", &models.QueryEngine{Name: "x", Type: models.EngineTypeDirectVector}},
		{"bad type", &models.QueryEngine{Name: "x", Type: "mystery", DocURL: "https://x"}},
		{"integrated without children", &models.QueryEngine{Name: "x", Type: models.EngineTypeIntegrated}},
		{"children on non-integrated", &models.QueryEngine{
			Name: "x", Type: models.EngineTypeDirectVector, DocURL: "https://x",
			Params: models.EngineParams{AssociatedEngineIDs: []string{"eng_a"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.registry.Create(ctx, tt.engine)
			var validationErr *models.ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestRegistry_CreateIntegrated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	childA, _, err := env.registry.Create(ctx, directEngine("child-a"))
	if err != nil {
		t.Fatal(err)
	}
	childB, _, err := env.registry.Create(ctx, directEngine("child-b"))
	if err != nil {
		t.Fatal(err)
	}

	parent, job, err := env.registry.Create(ctx, &models.QueryEngine{
		Name: "everything",
		Type: models.EngineTypeIntegrated,
		Params: models.EngineParams{
			AssociatedEngineIDs: []string{childA.ID, childB.ID},
		},
	})
	if err != nil {
		t.Fatalf("Create integrated failed: %v", err)
	}
	if job != nil {
		t.Error("Expected no build job for integrated engine")
	}

	// Nesting integrated engines is rejected
	_, _, err = env.registry.Create(ctx, &models.QueryEngine{
		Name: "nested",
		Type: models.EngineTypeIntegrated,
		Params: models.EngineParams{
			AssociatedEngineIDs: []string{parent.ID},
		},
	})
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for nested integrated child, got %v", err)
	}

	// Unknown children are rejected
	_, _, err = env.registry.Create(ctx, &models.QueryEngine{
		Name: "dangling",
		Type: models.EngineTypeIntegrated,
		Params: models.EngineParams{
			AssociatedEngineIDs: []string{"eng_does_not_exist"},
		},
	})
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for missing child, got %v", err)
	}
}

func TestRegistry_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	engine, _, err := env.registry.Create(ctx, directEngine("docs"))
	if err != nil {
		t.Fatal(err)
	}

	description := "customer support knowledge base"
	updated, err := env.registry.Update(ctx, engine.ID, &UpdateRequest{
		Description: &description,
		Params: &models.EngineParams{
			ChunkSize:  200,
			MaxResults: 3,
		},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Description != description {
		t.Errorf("Expected description updated, got %q", updated.Description)
	}
	if updated.Params.ChunkSize != 200 || updated.Params.MaxResults != 3 {
		t.Errorf("Expected params updated, got %+v", updated.Params)
	}
	if updated.Params.SimilarityThreshold != models.DefaultSimilarityThreshold {
		t.Errorf("Expected zero params re-defaulted, got %f", updated.Params.SimilarityThreshold)
	}
	if updated.Name != "docs" {
		t.Error("Expected name immutable")
	}
}

func TestRegistry_UpdateMissingEngine(t *testing.T) {
	env := newTestEnv(t)
	description := "x"
	_, err := env.registry.Update(context.Background(), "eng_missing", &UpdateRequest{Description: &description})
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestRegistry_DeleteRemovesContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	engine, _, err := env.registry.Create(ctx, directEngine("doomed"))
	if err != nil {
		t.Fatal(err)
	}
	indexCorpus(t, env, engine.ID, []string{"some indexed text"}, nil)

	if err := env.registry.Delete(ctx, engine.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var notFound *models.NotFoundError
	if _, err := env.registry.Get(ctx, engine.ID); !errors.As(err, &notFound) {
		t.Errorf("Expected not found after delete, got %v", err)
	}

	store, err := env.vectors.ForKind(models.VectorStoreEmbedded)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := store.Search(ctx, engine.ID, make([]float32, 8), 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected vector namespace dropped, got %d matches", len(matches))
	}

	count, err := env.storage.DocumentStorage().CountChunksByEngine(ctx, engine.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected no live chunks, got %d", count)
	}

	// The cascade tombstones rather than erases: the rows stay in place with
	// deleted_at set so existing conversation references remain resolvable
	db := env.storage.DB().(*badgerhold.Store)
	var chunks []models.QueryDocumentChunk
	if err := db.Find(&chunks, badgerhold.Where("QueryEngineID").Eq(engine.ID)); err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("Expected tombstoned chunk rows to remain")
	}
	for _, chunk := range chunks {
		if chunk.DeletedAt == nil {
			t.Errorf("Expected chunk %s tombstoned, deleted_at is nil", chunk.ID)
		}
	}

	var docs []models.QueryDocument
	if err := db.Find(&docs, badgerhold.Where("QueryEngineID").Eq(engine.ID)); err != nil {
		t.Fatal(err)
	}
	if len(docs) == 0 {
		t.Fatal("Expected tombstoned document rows to remain")
	}
	for _, doc := range docs {
		if doc.DeletedAt == nil {
			t.Errorf("Expected document %s tombstoned, deleted_at is nil", doc.ID)
		}
	}
}

func TestRegistry_Rebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	engine, _, err := env.registry.Create(ctx, directEngine("docs"))
	if err != nil {
		t.Fatal(err)
	}

	job, err := env.registry.Rebuild(ctx, engine.ID)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if job.QueryEngineID != engine.ID {
		t.Error("Expected rebuild job for engine")
	}
	if len(env.ingest.submitted) != 2 {
		t.Errorf("Expected 2 submissions (create + rebuild), got %d", len(env.ingest.submitted))
	}
}
