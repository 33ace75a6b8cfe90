// Package engines owns the query engine registry and the query dispatcher.
// The registry handles lifecycle (create, update, soft delete); the
// dispatcher routes queries by engine type.
package engines

import (
	"context"
	"fmt"
	"time"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/harborlight/inquiro/internal/vectorstore"
	"github.com/ternarybob/arbor"
)

// Registry manages query engine records and their backing resources
type Registry struct {
	storage interfaces.StorageManager
	vectors *vectorstore.Provider
	ingest  interfaces.IngestService
	logger  arbor.ILogger
}

// NewRegistry creates an engine registry
func NewRegistry(
	storage interfaces.StorageManager,
	vectors *vectorstore.Provider,
	ingest interfaces.IngestService,
	logger arbor.ILogger,
) *Registry {
	return &Registry{
		storage: storage,
		vectors: vectors,
		ingest:  ingest,
		logger:  logger,
	}
}

// Create validates and persists a new engine. Content-bearing engines get a
// build job enqueued immediately; integrated engines have no content of
// their own, so the returned job is nil for them.
func (r *Registry) Create(ctx context.Context, engine *models.QueryEngine) (*models.QueryEngine, *models.BatchJob, error) {
	if engine.ID == "" {
		engine.ID = common.NewEngineID()
	}
	if engine.VectorStore == "" {
		engine.VectorStore = models.VectorStoreEmbedded
	}
	engine.Params.ApplyDefaults()
	now := time.Now()
	engine.CreatedAt = now
	engine.UpdatedAt = now
	engine.DeletedAt = nil

	if err := engine.Validate(); err != nil {
		return nil, nil, err
	}

	if engine.Type == models.EngineTypeIntegrated {
		if err := r.validateChildren(ctx, engine); err != nil {
			return nil, nil, err
		}
	} else {
		// Fail creation up front when the configured backend is unusable
		if _, err := r.vectors.ForKind(engine.VectorStore); err != nil {
			return nil, nil, models.NewValidationError("vector_store", err.Error())
		}
	}

	if err := r.storage.EngineStorage().SaveEngine(ctx, engine); err != nil {
		return nil, nil, fmt.Errorf("failed to save engine: %w", err)
	}

	var job *models.BatchJob
	if engine.Type != models.EngineTypeIntegrated {
		var err error
		job, err = r.ingest.Submit(ctx, engine)
		if err != nil {
			return nil, nil, fmt.Errorf("engine saved but build enqueue failed: %w", err)
		}
	}

	r.logger.Info().
		Str("engine_id", engine.ID).
		Str("name", engine.Name).
		Str("type", string(engine.Type)).
		Msg("Engine created")
	return engine, job, nil
}

// validateChildren checks that every child of an integrated engine exists,
// is live, and is not itself integrated. Composition is one level deep.
func (r *Registry) validateChildren(ctx context.Context, engine *models.QueryEngine) error {
	for _, childID := range engine.Params.AssociatedEngineIDs {
		if childID == engine.ID {
			return models.NewValidationError("associated_engine_ids", "engine cannot reference itself")
		}
		child, err := r.storage.EngineStorage().GetEngine(ctx, childID)
		if err != nil {
			return models.NewValidationError("associated_engine_ids", fmt.Sprintf("child engine %s not found", childID))
		}
		if child.Type == models.EngineTypeIntegrated {
			return models.NewValidationError("associated_engine_ids", fmt.Sprintf("child engine %s is integrated; nesting is not allowed", childID))
		}
	}
	return nil
}

// Get returns a live engine by id
func (r *Registry) Get(ctx context.Context, id string) (*models.QueryEngine, error) {
	return r.storage.EngineStorage().GetEngine(ctx, id)
}

// List returns live engines, newest first
func (r *Registry) List(ctx context.Context, limit, offset int) ([]*models.QueryEngine, error) {
	return r.storage.EngineStorage().ListEngines(ctx, limit, offset)
}

// UpdateRequest carries the mutable engine fields. Nil means leave unchanged.
type UpdateRequest struct {
	Description *string              `json:"description,omitempty"`
	Params      *models.EngineParams `json:"params,omitempty"`
}

// Update modifies an engine's description and params. Name, type, source and
// vector store are fixed at creation; changing content requires a rebuild.
func (r *Registry) Update(ctx context.Context, id string, update *UpdateRequest) (*models.QueryEngine, error) {
	engine, err := r.storage.EngineStorage().GetEngine(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Description != nil {
		engine.Description = *update.Description
	}
	if update.Params != nil {
		params := *update.Params
		if engine.Type != models.EngineTypeIntegrated {
			params.AssociatedEngineIDs = nil
		}
		params.ApplyDefaults()
		engine.Params = params
	}
	engine.UpdatedAt = time.Now()

	if err := engine.Validate(); err != nil {
		return nil, err
	}
	if engine.Type == models.EngineTypeIntegrated {
		if err := r.validateChildren(ctx, engine); err != nil {
			return nil, err
		}
	}

	if err := r.storage.EngineStorage().SaveEngine(ctx, engine); err != nil {
		return nil, fmt.Errorf("failed to save engine: %w", err)
	}
	return engine, nil
}

// Rebuild enqueues a fresh build job for a content-bearing engine
func (r *Registry) Rebuild(ctx context.Context, id string) (*models.BatchJob, error) {
	engine, err := r.storage.EngineStorage().GetEngine(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.ingest.Submit(ctx, engine)
}

// Delete soft-deletes the engine and tombstones its documents and chunks;
// only the vector namespace is physically dropped. Conversations referencing
// the engine keep working against the tombstones; new queries against it
// return not found.
func (r *Registry) Delete(ctx context.Context, id string) error {
	engine, err := r.storage.EngineStorage().GetEngine(ctx, id)
	if err != nil {
		return err
	}

	if err := r.storage.EngineStorage().SoftDeleteEngine(ctx, id); err != nil {
		return fmt.Errorf("failed to delete engine: %w", err)
	}

	if engine.Type != models.EngineTypeIntegrated {
		if store, storeErr := r.vectors.ForKind(engine.VectorStore); storeErr == nil {
			if err := store.Delete(ctx, id); err != nil {
				r.logger.Warn().Err(err).Str("engine_id", id).Msg("Failed to drop vector namespace")
			}
		}
		if err := r.storage.DocumentStorage().SoftDeleteChunksByEngine(ctx, id); err != nil {
			r.logger.Warn().Err(err).Str("engine_id", id).Msg("Failed to tombstone chunks")
		}
		if err := r.storage.DocumentStorage().SoftDeleteDocumentsByEngine(ctx, id); err != nil {
			r.logger.Warn().Err(err).Str("engine_id", id).Msg("Failed to tombstone documents")
		}
	}

	r.logger.Info().Str("engine_id", id).Msg("Engine deleted")
	return nil
}
