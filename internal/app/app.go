package app

import (
	"context"
	"fmt"

	"github.com/harborlight/inquiro/internal/chat"
	"github.com/harborlight/inquiro/internal/chunking"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/embeddings"
	"github.com/harborlight/inquiro/internal/engines"
	"github.com/harborlight/inquiro/internal/handlers"
	"github.com/harborlight/inquiro/internal/ingest"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/llm"
	"github.com/harborlight/inquiro/internal/search"
	"github.com/harborlight/inquiro/internal/storage/badger"
	"github.com/harborlight/inquiro/internal/vectorstore"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	badgerhold "github.com/timshannon/badgerhold/v4"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	VectorProvider *vectorstore.Provider
	Embedder       interfaces.EmbeddingService
	LLMFactory     *llm.Factory
	Crawler        interfaces.CrawlerService
	Pipeline       *ingest.Pipeline
	Registry       *engines.Registry
	Dispatcher     interfaces.SearchService
	ChatManager    interfaces.ChatService

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	EngineHandler *handlers.EngineHandler
	ChatHandler   *handlers.ChatHandler
	JobHandler    *handlers.JobHandler
	WSHandler     *handlers.WebSocketHandler

	sweeper *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// Workers claim pending jobs as soon as they start, so the notifier
	// hook must be installed before Start
	app.Pipeline.SetNotifier(app.WSHandler.NotifyJob)
	if err := app.Pipeline.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to start ingest pipeline: %w", err)
	}

	if err := app.startStaleSweeper(); err != nil {
		return nil, fmt.Errorf("failed to start stale job sweeper: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("ingest_workers", cfg.Ingest.Workers).
		Msg("Application initialization complete")

	return app, nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	store, ok := a.StorageManager.DB().(*badgerhold.Store)
	if !ok {
		return fmt.Errorf("storage manager is not backed by BadgerDB (got %T)", a.StorageManager.DB())
	}
	a.VectorProvider = vectorstore.NewProvider(store, &a.Config.Remote, a.Logger)

	a.Embedder, err = embeddings.NewFromConfig(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding service: %w", err)
	}

	a.LLMFactory = llm.NewFactory(a.Config, a.Logger)
	a.Crawler = chunking.NewCrawler(&a.Config.Crawler, a.Logger)

	a.Pipeline = ingest.NewPipeline(
		a.StorageManager,
		a.VectorProvider,
		a.Embedder,
		a.Crawler,
		&a.Config.Ingest,
		a.Logger,
	)

	a.Registry = engines.NewRegistry(a.StorageManager, a.VectorProvider, a.Pipeline, a.Logger)

	// Managed search is optional; without a configured backend,
	// managed-search engines fail queries with a configuration error
	var managed engines.ManagedQuerier
	if a.Config.Remote.SearchURL != "" {
		client, err := search.NewManagedClient(&a.Config.Remote, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize managed search client: %w", err)
		}
		managed = client
		a.Logger.Debug().Str("url", a.Config.Remote.SearchURL).Msg("Managed search client initialized")
	}

	a.Dispatcher = engines.NewDispatcher(a.StorageManager, a.VectorProvider, a.Embedder, managed, a.Logger)
	a.ChatManager = chat.NewManager(a.StorageManager, a.Dispatcher, a.LLMFactory, a.Logger)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.EngineHandler = handlers.NewEngineHandler(a.Registry, a.Dispatcher, a.ChatManager, a.StorageManager, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatManager, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.StorageManager, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(&a.Config.WebSocket, a.Logger)
}

// startStaleSweeper schedules the periodic pass that fails jobs whose
// worker stopped heartbeating
func (a *App) startStaleSweeper() error {
	a.sweeper = cron.New()
	_, err := a.sweeper.AddFunc(a.Config.Ingest.StaleSweepCron, func() {
		if err := a.Pipeline.SweepStale(context.Background()); err != nil {
			a.Logger.Warn().Err(err).Msg("Stale job sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid stale sweep schedule %q: %w", a.Config.Ingest.StaleSweepCron, err)
	}
	a.sweeper.Start()
	a.Logger.Debug().Str("schedule", a.Config.Ingest.StaleSweepCron).Msg("Stale job sweeper started")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.sweeper != nil {
		ctx := a.sweeper.Stop()
		<-ctx.Done()
		a.Logger.Info().Msg("Stale job sweeper stopped")
	}

	if a.Pipeline != nil {
		a.Pipeline.Stop()
		a.Logger.Info().Msg("Ingest pipeline stopped")
	}

	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
