package vectorstore

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/harborlight/inquiro/internal/filter"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStore(t *testing.T) *badgerhold.Store {
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
	return store
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("Expected zero distance for identical vectors, got %f", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("Expected distance 1 for orthogonal vectors, got %f", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Errorf("Expected distance 2 for opposite vectors, got %f", d)
	}
	if d := CosineDistance(nil, []float32{1}); d != 2.0 {
		t.Errorf("Expected max distance for empty vector, got %f", d)
	}
	if d := CosineDistance([]float32{0, 0}, []float32{1, 0}); d != 2.0 {
		t.Errorf("Expected max distance for zero-magnitude vector, got %f", d)
	}
	if d := CosineDistance([]float32{1}, []float32{1, 0}); d != 2.0 {
		t.Errorf("Expected max distance for mismatched lengths, got %f", d)
	}
}

func TestEmbeddedStore_SearchOrdering(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	records := []*models.VectorRecord{
		{ChunkID: "chk_far", Index: 0, Vector: []float32{0, 1}},
		{ChunkID: "chk_near", Index: 1, Vector: []float32{1, 0.1}},
		{ChunkID: "chk_exact", Index: 2, Vector: []float32{1, 0}},
	}
	if err := store.Upsert(ctx, "eng_1", records); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	if matches[0].ChunkID != "chk_exact" || matches[1].ChunkID != "chk_near" || matches[2].ChunkID != "chk_far" {
		t.Errorf("Unexpected order: %s, %s, %s", matches[0].ChunkID, matches[1].ChunkID, matches[2].ChunkID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Distance < matches[i-1].Distance {
			t.Error("Expected ascending distance order")
		}
	}
}

func TestEmbeddedStore_TieBreakByIndex(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	// Identical vectors, distance ties resolved by insertion index
	records := []*models.VectorRecord{
		{ChunkID: "chk_b", Index: 5, Vector: []float32{1, 0}},
		{ChunkID: "chk_a", Index: 2, Vector: []float32{1, 0}},
	}
	if err := store.Upsert(ctx, "eng_1", records); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if matches[0].ChunkID != "chk_a" {
		t.Errorf("Expected lower index first on tie, got %s", matches[0].ChunkID)
	}
}

func TestEmbeddedStore_KCap(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	records := make([]*models.VectorRecord, 20)
	for i := range records {
		records[i] = &models.VectorRecord{
			ChunkID: fmt.Sprintf("chk_%02d", i),
			Index:   i,
			Vector:  []float32{1, float32(i) * 0.01},
		}
	}
	if err := store.Upsert(ctx, "eng_1", records); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(matches) != 5 {
		t.Errorf("Expected 5 matches with k=5, got %d", len(matches))
	}
}

func TestEmbeddedStore_FilterAndNamespaces(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	if err := store.Upsert(ctx, "eng_1", []*models.VectorRecord{
		{ChunkID: "chk_1", Index: 0, Vector: []float32{1, 0}, Metadata: map[string]interface{}{"category": "payments"}},
		{ChunkID: "chk_2", Index: 1, Vector: []float32{1, 0}, Metadata: map[string]interface{}{"category": "billing"}},
	}); err != nil {
		t.Fatalf("Failed to upsert eng_1: %v", err)
	}
	if err := store.Upsert(ctx, "eng_2", []*models.VectorRecord{
		{ChunkID: "chk_3", Index: 0, Vector: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("Failed to upsert eng_2: %v", err)
	}

	expr, err := filter.Parse(`{"category": "payments"}`)
	if err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, expr)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(matches) != 1 || matches[0].ChunkID != "chk_1" {
		t.Errorf("Expected only filtered chunk from eng_1, got %+v", matches)
	}

	// Deleting one namespace leaves the other intact
	if err := store.Delete(ctx, "eng_1"); err != nil {
		t.Fatalf("Failed to delete namespace: %v", err)
	}
	empty, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Failed to search deleted namespace: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty namespace after delete, got %d matches", len(empty))
	}
	other, err := store.Search(ctx, "eng_2", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Failed to search eng_2: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("Expected eng_2 untouched, got %d matches", len(other))
	}
}

func TestEmbeddedStore_UpsertOverwritesIndexSlot(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	// A rebuild writes a different chunk into the same slot; the old row
	// must not survive alongside it
	if err := store.Upsert(ctx, "eng_1", []*models.VectorRecord{
		{ChunkID: "chk_old", Index: 0, Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "eng_1", []*models.VectorRecord{
		{ChunkID: "chk_new", Index: 0, Vector: []float32{1, 0}},
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 row after slot overwrite, got %d", len(matches))
	}
	if matches[0].ChunkID != "chk_new" {
		t.Errorf("Expected slot to hold the new chunk, got %s", matches[0].ChunkID)
	}
}

func TestEmbeddedStore_DeleteFrom(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	records := make([]*models.VectorRecord, 5)
	for i := range records {
		records[i] = &models.VectorRecord{
			ChunkID: fmt.Sprintf("chk_%d", i),
			Index:   i,
			Vector:  []float32{1, 0},
		}
	}
	if err := store.Upsert(ctx, "eng_1", records); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteFrom(ctx, "eng_1", 2); err != nil {
		t.Fatalf("DeleteFrom failed: %v", err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected rows 0 and 1 to survive, got %d rows", len(matches))
	}
	for _, match := range matches {
		if match.Index >= 2 {
			t.Errorf("Expected index %d trimmed", match.Index)
		}
	}
}

func TestEmbeddedStore_UpsertReplaces(t *testing.T) {
	store := NewEmbeddedStore(newTestStore(t), arbor.NewLogger())
	ctx := context.Background()

	if err := store.Upsert(ctx, "eng_1", []*models.VectorRecord{
		{ChunkID: "chk_1", Index: 0, Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "eng_1", []*models.VectorRecord{
		{ChunkID: "chk_1", Index: 0, Vector: []float32{1, 0}},
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, "eng_1", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match after replace, got %d", len(matches))
	}
	if matches[0].Distance > 1e-9 {
		t.Errorf("Expected replaced vector to match exactly, distance %f", matches[0].Distance)
	}
}
