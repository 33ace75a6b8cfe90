package models

import (
	"reflect"
	"testing"
)

func TestDedupeReferences_KeepsBestScore(t *testing.T) {
	refs := []QueryReference{
		{ChunkID: "chk_a", ChunkIndex: 0, Score: 0.4},
		{ChunkID: "chk_b", ChunkIndex: 1, Score: 0.2},
		{ChunkID: "chk_a", ChunkIndex: 0, Score: 0.1},
	}

	deduped := DedupeReferences(refs)

	if len(deduped) != 2 {
		t.Fatalf("Expected 2 references after dedupe, got %d", len(deduped))
	}

	// Ascending distance order: chk_a (0.1) before chk_b (0.2)
	if deduped[0].ChunkID != "chk_a" || deduped[0].Score != 0.1 {
		t.Errorf("Expected chk_a with score 0.1 first, got %s with %f", deduped[0].ChunkID, deduped[0].Score)
	}
	if deduped[1].ChunkID != "chk_b" {
		t.Errorf("Expected chk_b second, got %s", deduped[1].ChunkID)
	}
}

func TestDedupeReferences_Idempotent(t *testing.T) {
	refs := []QueryReference{
		{ChunkID: "chk_a", ChunkIndex: 2, Score: 0.3},
		{ChunkID: "chk_b", ChunkIndex: 0, Score: 0.3},
		{ChunkID: "chk_a", ChunkIndex: 2, Score: 0.5},
		{ChunkID: "chk_c", ChunkIndex: 7, Score: 0.05},
	}

	once := DedupeReferences(refs)
	twice := DedupeReferences(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Dedupe is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestDedupeReferences_TieBreakByChunkIndex(t *testing.T) {
	refs := []QueryReference{
		{ChunkID: "chk_b", ChunkIndex: 5, Score: 0.2},
		{ChunkID: "chk_a", ChunkIndex: 1, Score: 0.2},
	}

	deduped := DedupeReferences(refs)
	if deduped[0].ChunkIndex != 1 {
		t.Errorf("Expected earlier chunk index to win the tie, got index %d first", deduped[0].ChunkIndex)
	}
}

func TestDedupeReferences_Empty(t *testing.T) {
	deduped := DedupeReferences(nil)
	if len(deduped) != 0 {
		t.Errorf("Expected empty result, got %d references", len(deduped))
	}
}
