package interfaces

import (
	"context"

	"github.com/harborlight/inquiro/internal/models"
)

// IngestService owns the build pipeline for content-bearing engines. Submit
// enqueues a fresh batch job; background workers claim pending jobs and run
// discover, chunk, embed and upsert.
type IngestService interface {
	// Submit creates a new pending job for the engine. Re-submission creates
	// a new job each time, never reuses a prior one.
	Submit(ctx context.Context, engine *models.QueryEngine) (*models.BatchJob, error)

	// Start launches the worker pool; Stop drains it
	Start(ctx context.Context) error
	Stop()
}

// CrawlerService discovers and extracts source documents for an engine
// build. Per-document failures are collected, not fatal.
type CrawlerService interface {
	Discover(ctx context.Context, seedURL string, depthLimit int, multimodal bool) (*models.DiscoveryResult, error)
}
