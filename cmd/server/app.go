package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/conversation"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/events"
	"github.com/phrazzld/scry-chat/internal/generation"
	"github.com/phrazzld/scry-chat/internal/render"
	"github.com/phrazzld/scry-chat/internal/service"
	"github.com/phrazzld/scry-chat/internal/service/session"
	"github.com/phrazzld/scry-chat/internal/snapshot"
	"github.com/phrazzld/scry-chat/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Conversation state and its persistence
	provider      conversation.Provider
	snapshotStore snapshot.Store
	persister     *snapshot.Persister

	// Conversation change notifications
	eventEmitter *events.InMemoryEventEmitter

	// Job handling
	runner *task.Runner

	// Service interfaces
	chatService service.ChatService
	sessions    session.Service
}

// newApplication creates a new application instance with all dependencies
// initialized, connecting to the external services selected by cfg.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	b, err := newBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.Open(ctx, cfg.Snapshot, logger)
	if err != nil {
		// Persistence is optional; the service keeps running in memory
		logger.Error("failed to open snapshot store, conversations will not be persisted",
			"backend", cfg.Snapshot.Backend,
			"error", err)
		store = nil
	}

	return assembleApplication(ctx, cfg, logger, b, store)
}

// assembleApplication wires the application around already constructed
// backends and snapshot store. A nil store disables persistence.
func assembleApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	b backends,
	store snapshot.Store,
) (*application, error) {
	app := &application{
		config:        cfg,
		logger:        logger,
		snapshotStore: store,
	}

	catalog := domain.NewModelCatalog(cfg.Chat.Models)

	var err error
	app.provider, err = conversation.NewProvider(cfg.Chat.Scope, catalog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation provider: %w", err)
	}

	if cfg.Chat.Scope == conversation.ScopeSession {
		app.sessions, err = session.NewService(cfg.Chat)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session service: %w", err)
		}
		logger.Info("Session scoped conversations enabled",
			"session_lifetime", cfg.Chat.SessionLifetime)
	}

	app.persister = snapshot.NewPersister(store, app.provider, snapshot.PersisterConfig{
		Interval: cfg.Snapshot.Interval,
		Debounce: cfg.Snapshot.Debounce,
	}, logger)
	restored := app.persister.Load(ctx)
	logger.Info("Conversation snapshot loaded",
		"backend", cfg.Snapshot.Backend,
		"conversations", restored)

	// Every conversation change schedules a debounced snapshot
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.persister)

	app.runner = task.NewRunner(task.RunnerConfig{
		WorkerCount:         cfg.Task.WorkerCount,
		QueueSize:           cfg.Task.QueueSize,
		MaxPendingJobs:      cfg.Task.MaxPendingJobs,
		OrphanTTL:           cfg.Task.OrphanTTL,
		OrphanCheckInterval: cfg.Task.OrphanCheckInterval,
	}, logger.With("component", "task_runner"))

	app.chatService, err = service.NewChatService(service.ChatDeps{
		Provider:     app.provider,
		Dispatcher:   app.runner,
		Generator:    b.generator,
		Images:       b.images,
		ImageStore:   b.imageStore,
		Renderer:     render.NewMarkdown(),
		ImageParams:  imageParams(cfg.Image),
		Catalog:      catalog,
		ImagePrefix:  cfg.Chat.ImagePrefix,
		StrictModels: cfg.Chat.StrictModels,
		Reloader:     app.persister,
		Events:       app.eventEmitter,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat service: %w", err)
	}

	app.runner.Start()

	logger.Info("Application initialized successfully",
		"scope", cfg.Chat.Scope,
		"workers", cfg.Task.WorkerCount,
		"queue_size", cfg.Task.QueueSize)
	return app, nil
}

// imageParams converts the configured sampling parameters.
func imageParams(cfg config.ImageConfig) generation.ImageParams {
	return generation.ImageParams{
		NegativePrompt: cfg.NegativePrompt,
		Seed:           cfg.Seed,
		RandomizeSeed:  cfg.RandomizeSeed,
		Width:          cfg.Width,
		Height:         cfg.Height,
		GuidanceScale:  cfg.GuidanceScale,
		Steps:          cfg.Steps,
	}
}

// Run serves HTTP until ctx is canceled, then shuts down in order: the
// listener, the job runner, and finally the snapshot flush.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources held outside the serve loop.
func (app *application) cleanup() {
	if err := app.persister.Close(); err != nil {
		app.logger.Error("Error closing snapshot store", "error", err)
	}
	app.logger.Info("Application shutdown completed")
}
