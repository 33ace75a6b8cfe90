package models

import (
	"testing"
)

func TestQueryEngine_Validate_DirectVector(t *testing.T) {
	engine := &QueryEngine{
		ID:     "eng_1",
		Name:   "docs",
		Type:   EngineTypeDirectVector,
		DocURL: "https://example.com/docs",
	}

	if err := engine.Validate(); err != nil {
		t.Fatalf("Expected valid engine, got error: %v", err)
	}
}

func TestQueryEngine_Validate_IntegratedRequiresChildren(t *testing.T) {
	engine := &QueryEngine{
		ID:   "eng_1",
		Name: "composite",
		Type: EngineTypeIntegrated,
	}

	err := engine.Validate()
	if err == nil {
		t.Fatal("Expected error for integrated engine without children")
	}

	vErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if vErr.Field != "associated_engine_ids" {
		t.Errorf("Expected field 'associated_engine_ids', got '%s'", vErr.Field)
	}
}

func TestQueryEngine_Validate_NonIntegratedRejectsChildren(t *testing.T) {
	engine := &QueryEngine{
		ID:     "eng_1",
		Name:   "docs",
		Type:   EngineTypeDirectVector,
		DocURL: "https://example.com/docs",
		Params: EngineParams{AssociatedEngineIDs: []string{"eng_2"}},
	}

	if err := engine.Validate(); err == nil {
		t.Fatal("Expected error for direct-vector engine naming children")
	}
}

func TestQueryEngine_Validate_InvalidType(t *testing.T) {
	engine := &QueryEngine{
		ID:     "eng_1",
		Name:   "docs",
		Type:   EngineType("super-search"),
		DocURL: "https://example.com",
	}

	if err := engine.Validate(); err == nil {
		t.Fatal("Expected error for unknown engine type")
	}
}

func TestEngineParams_ApplyDefaults(t *testing.T) {
	params := &EngineParams{}
	params.ApplyDefaults()

	if params.ChunkSize != 500 {
		t.Errorf("Expected chunk size 500, got %d", params.ChunkSize)
	}
	if params.DepthLimit != 0 {
		t.Errorf("Expected depth limit 0, got %d", params.DepthLimit)
	}
	if params.SimilarityThreshold != 0.7 {
		t.Errorf("Expected similarity threshold 0.7, got %f", params.SimilarityThreshold)
	}
	if params.MaxResults != 10 {
		t.Errorf("Expected max results 10, got %d", params.MaxResults)
	}

	// Explicit values survive
	params2 := &EngineParams{ChunkSize: 200, MaxResults: 5}
	params2.ApplyDefaults()
	if params2.ChunkSize != 200 || params2.MaxResults != 5 {
		t.Errorf("Expected explicit params to survive defaulting, got %+v", params2)
	}
}
