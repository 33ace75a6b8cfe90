// Package ingest runs the asynchronous build pipeline. Submitting an engine
// build enqueues a batch job; pooled workers claim pending jobs and run
// discover, chunk, embed and vector upsert, heartbeating as they go.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harborlight/inquiro/internal/chunking"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/harborlight/inquiro/internal/vectorstore"
	"github.com/ternarybob/arbor"
)

const (
	defaultWorkers           = 2
	defaultHeartbeatInterval = 15 * time.Second
	defaultStaleAfter        = 5 * time.Minute
	pollInterval             = 2 * time.Second
)

// Pipeline implements the build pipeline worker pool
type Pipeline struct {
	storage  interfaces.StorageManager
	vectors  *vectorstore.Provider
	embedder interfaces.EmbeddingService
	crawler  interfaces.CrawlerService
	config   *common.IngestConfig
	logger   arbor.ILogger

	claimMu sync.Mutex
	wake    chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
	started bool
	notify  func(*models.BatchJob)
}

var _ interfaces.IngestService = (*Pipeline)(nil)

// NewPipeline creates a build pipeline
func NewPipeline(
	storage interfaces.StorageManager,
	vectors *vectorstore.Provider,
	embedder interfaces.EmbeddingService,
	crawler interfaces.CrawlerService,
	cfg *common.IngestConfig,
	logger arbor.ILogger,
) *Pipeline {
	return &Pipeline{
		storage:  storage,
		vectors:  vectors,
		embedder: embedder,
		crawler:  crawler,
		config:   cfg,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
}

// SetNotifier installs a hook invoked on every persisted job state change.
// Must be called before Start.
func (p *Pipeline) SetNotifier(notify func(*models.BatchJob)) {
	p.notify = notify
}

func (p *Pipeline) notifyJob(job *models.BatchJob) {
	if p.notify != nil {
		p.notify(job)
	}
}

// Submit enqueues a fresh build job for the engine. Every call creates a new
// pending job; prior jobs for the same engine are untouched.
func (p *Pipeline) Submit(ctx context.Context, engine *models.QueryEngine) (*models.BatchJob, error) {
	if engine.Type == models.EngineTypeIntegrated {
		return nil, fmt.Errorf("integrated engines have no content of their own to build")
	}

	job := models.NewBatchJob(common.NewJobID(), engine.ID)
	if err := p.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue build job: %w", err)
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("engine_id", engine.ID).
		Str("doc_url", engine.DocURL).
		Msg("Build job enqueued")

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return job, nil
}

// Start launches the worker pool. Workers run until Stop.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.started {
		return fmt.Errorf("pipeline already started")
	}
	p.started = true

	workers := p.config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	for i := 0; i < workers; i++ {
		worker := i
		p.wg.Add(1)
		common.SafeGo(p.logger, fmt.Sprintf("ingest-worker-%d", worker), func() {
			defer p.wg.Done()
			p.runWorker(ctx, worker)
		})
	}

	p.logger.Info().Int("workers", workers).Msg("Ingest pipeline started")
	return nil
}

// Stop drains the worker pool. In-flight jobs finish their current document
// loop and exit on the next context check.
func (p *Pipeline) Stop() {
	select {
	case <-p.quit:
	default:
		close(p.quit)
	}
	p.wg.Wait()
	p.logger.Info().Msg("Ingest pipeline stopped")
}

func (p *Pipeline) runWorker(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-p.wake:
		case <-time.After(pollInterval):
		}

		for {
			job := p.claimNext(ctx)
			if job == nil {
				break
			}
			p.processJob(ctx, job)
		}
	}
}

// claimNext atomically claims the oldest pending job by flipping it to
// active. The mutex keeps two workers from claiming the same job.
func (p *Pipeline) claimNext(ctx context.Context) *models.BatchJob {
	p.claimMu.Lock()
	defer p.claimMu.Unlock()

	pending, err := p.storage.JobStorage().ListJobsByStatus(ctx, models.JobStatusPending)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to list pending jobs")
		return nil
	}
	if len(pending) == 0 {
		return nil
	}

	// Oldest first so builds run in submission order
	job := pending[len(pending)-1]
	for _, candidate := range pending {
		if candidate.CreatedAt.Before(job.CreatedAt) {
			job = candidate
		}
	}

	if err := job.MarkActive(); err != nil {
		return nil
	}
	if err := p.storage.JobStorage().SaveJob(ctx, job); err != nil {
		p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to claim job")
		return nil
	}
	p.notifyJob(job)
	return job
}

func (p *Pipeline) processJob(ctx context.Context, job *models.BatchJob) {
	start := time.Now()
	logger := p.logger
	logger.Info().
		Str("job_id", job.ID).
		Str("engine_id", job.QueryEngineID).
		Msg("Build job started")

	stopHeartbeat := p.startHeartbeat(ctx, job)
	defer stopHeartbeat()

	err := p.runBuild(ctx, job)
	if err != nil {
		if failErr := job.MarkFailed(err.Error()); failErr == nil {
			if saveErr := p.storage.JobStorage().SaveJob(ctx, job); saveErr != nil {
				logger.Error().Err(saveErr).Str("job_id", job.ID).Msg("Failed to persist failed job")
			}
			p.notifyJob(job)
		}
		logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Str("engine_id", job.QueryEngineID).
			Dur("elapsed", time.Since(start)).
			Msg("Build job failed")
		return
	}

	if err := job.MarkSucceeded(); err == nil {
		if saveErr := p.storage.JobStorage().SaveJob(ctx, job); saveErr != nil {
			logger.Error().Err(saveErr).Str("job_id", job.ID).Msg("Failed to persist completed job")
		}
		p.notifyJob(job)
	}
	logger.Info().
		Str("job_id", job.ID).
		Str("engine_id", job.QueryEngineID).
		Int("docs_processed", job.DocsProcessed).
		Int("docs_failed", job.DocsFailed).
		Int("chunks_indexed", job.ChunksIndexed).
		Dur("elapsed", time.Since(start)).
		Msg("Build job complete")
}

// startHeartbeat refreshes the job heartbeat on an interval until the
// returned stop function is called
func (p *Pipeline) startHeartbeat(ctx context.Context, job *models.BatchJob) func() {
	interval := p.config.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}

	done := make(chan struct{})
	var once sync.Once
	common.SafeGo(p.logger, "job-heartbeat-"+job.ID, func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				job.Beat()
				if err := p.storage.JobStorage().SaveJob(ctx, job); err != nil {
					p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist heartbeat")
				}
				p.notifyJob(job)
			}
		}
	})
	return func() { once.Do(func() { close(done) }) }
}

// runBuild executes the discover, chunk, embed, upsert sequence for one job.
// Per-document failures increment DocsFailed and the build continues; the
// build itself fails only when nothing was indexed.
func (p *Pipeline) runBuild(ctx context.Context, job *models.BatchJob) error {
	engine, err := p.storage.EngineStorage().GetEngine(ctx, job.QueryEngineID)
	if err != nil {
		return fmt.Errorf("engine lookup failed: %w", err)
	}

	store, err := p.vectors.ForKind(engine.VectorStore)
	if err != nil {
		return err
	}

	discovery, err := p.crawler.Discover(ctx, engine.DocURL, engine.Params.DepthLimit, engine.Params.IsMultimodal)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	job.DocsFailed += len(discovery.Failures)

	// Prior build output, keyed by source URL so a rebuild reuses document
	// identity and overwrites index slots in place instead of appending
	priorDocs, err := p.storage.DocumentStorage().GetDocumentsByEngine(ctx, engine.ID)
	if err != nil {
		return fmt.Errorf("failed to list existing documents: %w", err)
	}
	priorByURL := make(map[string]*models.QueryDocument, len(priorDocs))
	for _, doc := range priorDocs {
		priorByURL[doc.DocURL] = doc
	}

	nextIndex := 0
	reindexed := make(map[string]bool)
	for _, source := range discovery.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		indexed, err := p.indexDocument(ctx, engine, store, source, priorByURL[source.URL], nextIndex)
		if err != nil {
			job.DocsFailed++
			p.logger.Warn().
				Err(err).
				Str("engine_id", engine.ID).
				Str("doc_url", source.URL).
				Msg("Failed to index document")
			continue
		}
		if indexed == 0 {
			continue
		}
		reindexed[source.URL] = true
		nextIndex += indexed
		job.DocsProcessed++
		job.ChunksIndexed += indexed
	}

	if job.DocsProcessed == 0 {
		reason := "discovery returned no indexable content"
		if len(discovery.Failures) > 0 {
			reason = fmt.Sprintf("all %d discovered documents failed", len(discovery.Failures)+job.DocsFailed)
		}
		return &models.NoDocumentsIndexedError{EngineID: engine.ID, Reason: reason}
	}

	return p.reconcile(ctx, engine.ID, store, priorDocs, reindexed, nextIndex)
}

// reconcile trims slots the finished build no longer fills and tombstones
// prior documents that disappeared from the source. Runs only after a
// successful build so a failed rebuild never shrinks the live index.
func (p *Pipeline) reconcile(
	ctx context.Context,
	engineID string,
	store interfaces.VectorStore,
	priorDocs []*models.QueryDocument,
	reindexed map[string]bool,
	liveCount int,
) error {
	if err := store.DeleteFrom(ctx, engineID, liveCount); err != nil {
		return fmt.Errorf("failed to trim vector namespace: %w", err)
	}
	if err := p.storage.DocumentStorage().DeleteChunksFromIndex(ctx, engineID, liveCount); err != nil {
		return fmt.Errorf("failed to trim chunks: %w", err)
	}

	now := time.Now()
	for _, doc := range priorDocs {
		if reindexed[doc.DocURL] {
			continue
		}
		doc.DeletedAt = &now
		if err := p.storage.DocumentStorage().SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to tombstone stale document: %w", err)
		}
		p.logger.Info().
			Str("engine_id", engineID).
			Str("doc_url", doc.DocURL).
			Msg("Document gone from source, tombstoned")
	}
	return nil
}

// indexDocument chunks, embeds and persists one source document. The
// document's chunks occupy the contiguous index range starting at firstIndex;
// chunk IDs and vector row keys derive from the index slot, so re-indexing
// the same source overwrites rather than duplicates. A prior document row for
// the same URL keeps its identity. Returns the number of chunks indexed.
func (p *Pipeline) indexDocument(
	ctx context.Context,
	engine *models.QueryEngine,
	store interfaces.VectorStore,
	source *models.SourceDocument,
	prior *models.QueryDocument,
	firstIndex int,
) (int, error) {
	drafts := chunking.BuildDrafts(source.Segments, engine.Params.ChunkSize, engine.Params.IsMultimodal)
	if len(drafts) == 0 {
		return 0, nil
	}

	document := &models.QueryDocument{
		ID:            common.NewDocumentID(),
		QueryEngineID: engine.ID,
		DocURL:        source.URL,
		Title:         source.Title,
		FirstIndex:    firstIndex,
		LastIndex:     firstIndex + len(drafts) - 1,
		Metadata:      source.Metadata,
		CreatedAt:     time.Now(),
	}
	if prior != nil {
		document.ID = prior.ID
		document.CreatedAt = prior.CreatedAt
	}

	chunks := make([]*models.QueryDocumentChunk, len(drafts))
	texts := make([]string, len(drafts))
	for i, draft := range drafts {
		chunk := &models.QueryDocumentChunk{
			ID:              common.ChunkIDAt(engine.ID, firstIndex+i),
			QueryEngineID:   engine.ID,
			QueryDocumentID: document.ID,
			Index:           firstIndex + i,
			Modality:        models.ModalityText,
			Text:            draft.Text,
			Page:            draft.Page,
			CreatedAt:       time.Now(),
		}
		if draft.IsImage {
			chunk.Modality = models.ModalityImage
			chunk.ChunkURL = draft.ImageURL
			chunk.Text = ""
		}
		chunks[i] = chunk
		texts[i] = chunk.Excerpt()
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}

	records := make([]*models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = &models.VectorRecord{
			ChunkID:  chunk.ID,
			EngineID: engine.ID,
			Index:    chunk.Index,
			Vector:   vectors[i],
			Metadata: chunkMetadata(document, chunk),
		}
	}
	if err := store.Upsert(ctx, engine.ID, records); err != nil {
		return 0, fmt.Errorf("vector upsert failed: %w", err)
	}

	// Vectors are live before the catalog rows so a query can never
	// reference a chunk that is missing from the store
	if err := p.storage.DocumentStorage().SaveDocument(ctx, document); err != nil {
		return 0, fmt.Errorf("failed to save document: %w", err)
	}
	if err := p.storage.DocumentStorage().SaveChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to save chunks: %w", err)
	}
	return len(chunks), nil
}

// chunkMetadata flattens document and chunk attributes into the filterable
// metadata stored alongside each vector
func chunkMetadata(document *models.QueryDocument, chunk *models.QueryDocumentChunk) map[string]interface{} {
	metadata := map[string]interface{}{
		"title":    document.Title,
		"doc_url":  document.DocURL,
		"modality": string(chunk.Modality),
	}
	if chunk.Page > 0 {
		metadata["page"] = chunk.Page
	}
	for key, value := range document.Metadata {
		if _, reserved := metadata[key]; !reserved {
			metadata[key] = value
		}
	}
	return metadata
}

// SweepStale fails active jobs whose heartbeat has expired. Wired to a cron
// schedule so crashed workers do not leave jobs active forever.
func (p *Pipeline) SweepStale(ctx context.Context) error {
	window := p.config.StaleAfter
	if window <= 0 {
		window = defaultStaleAfter
	}

	stale, err := p.storage.JobStorage().ListStaleJobs(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to list stale jobs: %w", err)
	}

	for _, job := range stale {
		if err := job.MarkFailed(fmt.Sprintf("heartbeat expired after %s", window)); err != nil {
			continue
		}
		if err := p.storage.JobStorage().SaveJob(ctx, job); err != nil {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist stale job")
			continue
		}
		p.notifyJob(job)
		p.logger.Warn().
			Str("job_id", job.ID).
			Str("engine_id", job.QueryEngineID).
			Msg("Stale job marked failed")
	}
	return nil
}
