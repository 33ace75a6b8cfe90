package engines

import (
	"context"
	"fmt"
	"time"

	"github.com/harborlight/inquiro/internal/filter"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/harborlight/inquiro/internal/vectorstore"
	"github.com/ternarybob/arbor"
)

// ManagedQuerier runs a query against the managed search backend
type ManagedQuerier interface {
	Query(ctx context.Context, engineID string, req *models.QueryRequest) (*models.QueryResult, error)
}

// Dispatcher routes queries to the retrieval path matching the engine type:
// direct-vector searches the engine's own namespace, managed-search delegates
// to the remote backend, integrated fans out to child engines and merges.
type Dispatcher struct {
	storage  interfaces.StorageManager
	vectors  *vectorstore.Provider
	embedder interfaces.EmbeddingService
	managed  ManagedQuerier
	logger   arbor.ILogger
}

var _ interfaces.SearchService = (*Dispatcher)(nil)

// NewDispatcher creates a query dispatcher. managed may be nil when no
// managed backend is configured; managed-search engines then fail queries
// with a configuration error.
func NewDispatcher(
	storage interfaces.StorageManager,
	vectors *vectorstore.Provider,
	embedder interfaces.EmbeddingService,
	managed ManagedQuerier,
	logger arbor.ILogger,
) *Dispatcher {
	return &Dispatcher{
		storage:  storage,
		vectors:  vectors,
		embedder: embedder,
		managed:  managed,
		logger:   logger,
	}
}

// Query runs one retrieval request against an engine. The filter is parsed
// and rejected before any backend work happens.
func (d *Dispatcher) Query(ctx context.Context, engineID string, req *models.QueryRequest) (*models.QueryResult, error) {
	engine, err := d.storage.EngineStorage().GetEngine(ctx, engineID)
	if err != nil {
		return nil, err
	}

	expr, err := filter.Parse(req.Filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var result *models.QueryResult
	switch engine.Type {
	case models.EngineTypeDirectVector:
		result, err = d.queryDirect(ctx, engine, req, expr)
	case models.EngineTypeManagedSearch:
		result, err = d.queryManaged(ctx, engine, req)
	case models.EngineTypeIntegrated:
		result, err = d.queryIntegrated(ctx, engine, req)
	default:
		return nil, fmt.Errorf("unknown engine type %q", engine.Type)
	}
	if err != nil {
		return nil, err
	}

	d.logger.Debug().
		Str("engine_id", engineID).
		Str("type", string(engine.Type)).
		Int("references", len(result.References)).
		Dur("elapsed", time.Since(start)).
		Msg("Query dispatched")
	return result, nil
}

// queryDirect embeds the query text and searches the engine's namespace.
// Matches beyond the similarity threshold are dropped before the result cap
// is applied.
func (d *Dispatcher) queryDirect(ctx context.Context, engine *models.QueryEngine, req *models.QueryRequest, expr filter.Expr) (*models.QueryResult, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = engine.Params.MaxResults
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = engine.Params.SimilarityThreshold
	}

	indexed, err := d.storage.DocumentStorage().CountChunksByEngine(ctx, engine.ID)
	if err != nil {
		return nil, err
	}
	if indexed == 0 {
		return nil, &models.NoDocumentsIndexedError{EngineID: engine.ID, Reason: "engine has no indexed content"}
	}

	vector, err := d.embedder.EmbedQuery(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	store, err := d.vectors.ForKind(engine.VectorStore)
	if err != nil {
		return nil, err
	}
	matches, err := store.Search(ctx, engine.ID, vector, maxResults, expr)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	// Similarity threshold t admits distances up to 1-t
	maxDistance := 1 - threshold
	kept := make([]*models.VectorMatch, 0, len(matches))
	for _, match := range matches {
		if match.Distance <= maxDistance {
			kept = append(kept, match)
		}
	}

	references, err := d.resolveReferences(ctx, engine.ID, kept)
	if err != nil {
		return nil, err
	}
	return &models.QueryResult{EngineID: engine.ID, References: references}, nil
}

// resolveReferences joins vector matches back to their catalog rows. A match
// whose chunk row has vanished is dropped with a warning rather than failing
// the query.
func (d *Dispatcher) resolveReferences(ctx context.Context, engineID string, matches []*models.VectorMatch) ([]models.QueryReference, error) {
	ids := make([]string, len(matches))
	for i, match := range matches {
		ids[i] = match.ChunkID
	}
	chunks, err := d.storage.DocumentStorage().GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]*models.QueryDocumentChunk, len(chunks))
	for _, chunk := range chunks {
		chunkByID[chunk.ID] = chunk
	}

	documents := make(map[string]*models.QueryDocument)
	references := make([]models.QueryReference, 0, len(matches))
	for _, match := range matches {
		chunk, ok := chunkByID[match.ChunkID]
		if !ok {
			d.logger.Warn().
				Str("engine_id", engineID).
				Str("chunk_id", match.ChunkID).
				Msg("Vector match has no catalog chunk, dropping")
			continue
		}

		document, ok := documents[chunk.QueryDocumentID]
		if !ok {
			document, err = d.storage.DocumentStorage().GetDocument(ctx, chunk.QueryDocumentID)
			if err != nil {
				d.logger.Warn().
					Err(err).
					Str("document_id", chunk.QueryDocumentID).
					Msg("Chunk references missing document, dropping")
				continue
			}
			documents[chunk.QueryDocumentID] = document
		}

		references = append(references, models.QueryReference{
			QueryEngineID: engineID,
			DocumentID:    document.ID,
			DocumentURL:   document.DocURL,
			ChunkID:       chunk.ID,
			ChunkIndex:    chunk.Index,
			Modality:      chunk.Modality,
			Page:          chunk.Page,
			Excerpt:       chunk.Excerpt(),
			Score:         match.Distance,
		})
	}
	return references, nil
}

func (d *Dispatcher) queryManaged(ctx context.Context, engine *models.QueryEngine, req *models.QueryRequest) (*models.QueryResult, error) {
	if d.managed == nil {
		return nil, fmt.Errorf("managed search backend is not configured")
	}

	resolved := *req
	if resolved.MaxResults <= 0 {
		resolved.MaxResults = engine.Params.MaxResults
	}
	if resolved.Threshold <= 0 {
		resolved.Threshold = engine.Params.SimilarityThreshold
	}
	return d.managed.Query(ctx, engine.ID, &resolved)
}

// queryIntegrated fans the request out to each live child and merges the
// deduplicated union. Children that are missing, deleted or themselves
// integrated are skipped and reported, never fatal.
func (d *Dispatcher) queryIntegrated(ctx context.Context, engine *models.QueryEngine, req *models.QueryRequest) (*models.QueryResult, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = engine.Params.MaxResults
	}

	merged := make([]models.QueryReference, 0)
	skipped := make([]string, 0)
	for _, childID := range engine.Params.AssociatedEngineIDs {
		child, err := d.storage.EngineStorage().GetEngine(ctx, childID)
		if err != nil || child.Type == models.EngineTypeIntegrated {
			skipped = append(skipped, childID)
			d.logger.Warn().
				Str("engine_id", engine.ID).
				Str("child_id", childID).
				Msg("Skipping unavailable child engine")
			continue
		}

		childResult, err := d.Query(ctx, childID, req)
		if err != nil {
			// A child with no content yet contributes nothing
			if _, empty := err.(*models.NoDocumentsIndexedError); empty {
				continue
			}
			skipped = append(skipped, childID)
			d.logger.Warn().
				Err(err).
				Str("engine_id", engine.ID).
				Str("child_id", childID).
				Msg("Child engine query failed")
			continue
		}
		merged = append(merged, childResult.References...)
	}

	references := models.DedupeReferences(merged)
	if len(references) > maxResults {
		references = references[:maxResults]
	}
	return &models.QueryResult{
		EngineID:        engine.ID,
		References:      references,
		SkippedChildren: skipped,
	}, nil
}
