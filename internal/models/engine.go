package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// EngineType identifies how a query engine answers queries
type EngineType string

const (
	// EngineTypeDirectVector embeds the query and searches the engine's own vector namespace
	EngineTypeDirectVector EngineType = "direct-vector"
	// EngineTypeManagedSearch delegates the whole query to an external managed search backend
	EngineTypeManagedSearch EngineType = "managed-search"
	// EngineTypeIntegrated fans the query out to child engines and merges results
	EngineTypeIntegrated EngineType = "integrated"
)

// VectorStoreKind selects the vector store backend for an engine.
// Chosen once at creation time and never re-selected per call.
type VectorStoreKind string

const (
	VectorStoreEmbedded VectorStoreKind = "embedded"
	VectorStoreRemote   VectorStoreKind = "remote"
)

// Default engine parameters
const (
	DefaultChunkSize           = 500
	DefaultDepthLimit          = 0
	DefaultSimilarityThreshold = 0.7
	DefaultMaxResults          = 10
)

// EngineParams holds per-engine tuning. Mutable after creation (unlike the
// rest of the engine record).
type EngineParams struct {
	ChunkSize           int      `json:"chunk_size" validate:"omitempty,gt=0"`
	DepthLimit          int      `json:"depth_limit" validate:"omitempty,gte=0"`
	IsMultimodal        bool     `json:"is_multimodal"`
	SimilarityThreshold float64  `json:"similarity_threshold" validate:"omitempty,gte=0,lte=1"`
	MaxResults          int      `json:"max_results" validate:"omitempty,gt=0"`
	AssociatedEngineIDs []string `json:"associated_engine_ids,omitempty"`
	AgentIDs            []string `json:"agent_ids,omitempty"`
}

// ApplyDefaults fills zero-valued params with their defaults
func (p *EngineParams) ApplyDefaults() {
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.DepthLimit < 0 {
		p.DepthLimit = DefaultDepthLimit
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if p.MaxResults <= 0 {
		p.MaxResults = DefaultMaxResults
	}
}

// QueryEngine is a named, configured knowledge base exposing query and build
// operations. Only Description and Params are mutable after creation; the
// record is soft-deleted rather than removed while references exist.
type QueryEngine struct {
	ID            string          `json:"id" badgerhold:"key"`
	Name          string          `json:"name" validate:"required"`
	Type          EngineType      `json:"type" validate:"required,oneof=direct-vector managed-search integrated"`
	EmbeddingType string          `json:"embedding_type"`
	VectorStore   VectorStoreKind `json:"vector_store"`
	DocURL        string          `json:"doc_url"`
	Description   string          `json:"description"`
	CreatedBy     string          `json:"created_by"`
	IsPublic      bool            `json:"is_public"`
	Params        EngineParams    `json:"params"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

var engineValidator = validator.New()

// Validate checks structural invariants of the engine record. Referential
// checks (child existence) belong to the registry, which can see storage.
func (e *QueryEngine) Validate() error {
	if err := engineValidator.Struct(e); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return NewValidationError(errs[0].Field(), "invalid value")
		}
		return NewValidationError("", err.Error())
	}

	// associated_engine_ids is non-empty iff the engine is integrated
	if e.Type == EngineTypeIntegrated && len(e.Params.AssociatedEngineIDs) == 0 {
		return NewValidationError("associated_engine_ids", "integrated engine requires at least one child engine")
	}
	if e.Type != EngineTypeIntegrated && len(e.Params.AssociatedEngineIDs) > 0 {
		return NewValidationError("associated_engine_ids", "only integrated engines may name child engines")
	}

	if e.Type != EngineTypeIntegrated && e.DocURL == "" {
		return NewValidationError("doc_url", "source locator is required")
	}

	return nil
}

// IsDeleted reports whether the engine has been soft-deleted
func (e *QueryEngine) IsDeleted() bool {
	return e.DeletedAt != nil
}

// MarkDeleted tombstones the engine
func (e *QueryEngine) MarkDeleted() {
	now := time.Now()
	e.DeletedAt = &now
	e.UpdatedAt = now
}
