package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/phrazzld/image-tagger/internal/analysis"
	"github.com/phrazzld/image-tagger/internal/api"
	"github.com/phrazzld/image-tagger/internal/config"
	"github.com/phrazzld/image-tagger/internal/events"
	"github.com/phrazzld/image-tagger/internal/metrics"
	"github.com/phrazzld/image-tagger/internal/platform/filesystem"
	"github.com/phrazzld/image-tagger/internal/platform/gemini"
	"github.com/phrazzld/image-tagger/internal/platform/ollama"
	"github.com/phrazzld/image-tagger/internal/platform/postgres"
	"github.com/phrazzld/image-tagger/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil for the file backend
	db *sql.DB

	// Queue and durability
	queue       *task.Queue
	persistence *task.Persistence
	snapshots   *task.SnapshotWriter

	// Processing
	analyzer task.Analyzer
	worker   *task.Worker

	// Observability
	emitter *events.InMemoryEventEmitter
	metrics *metrics.Recorder
	health  api.HealthInfo

	// stopWriter ends the background snapshot writer
	stopWriter context.CancelFunc
	writerDone chan struct{}
	closeOnce  sync.Once
}

// appOption customizes construction, mainly for tests
type appOption func(*application)

// withAnalyzer replaces the analyzer built from configuration.
func withAnalyzer(a task.Analyzer) appOption {
	return func(app *application) {
		app.analyzer = a
	}
}

// newApplication creates a new application instance with all dependencies
// initialized. The saved queue is restored, with crash recovery, before
// the worker is created.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		health: api.HealthInfo{
			Backend:  cfg.Queue.Backend,
			Provider: cfg.Analyzer.Provider,
			Model:    cfg.Analyzer.Model,
		},
	}
	for _, opt := range opts {
		opt(app)
	}

	store, err := app.newSnapshotStore(ctx)
	if err != nil {
		return nil, err
	}
	app.persistence = task.NewPersistence(store, logger)

	// Restore or start fresh
	app.queue = app.persistence.Load(ctx)
	if app.queue == nil {
		app.queue = task.NewQueue(task.WithLogger(logger))
	}

	app.snapshots = task.NewSnapshotWriter(app.persistence, app.queue, cfg.Queue.SaveInterval, logger)
	app.queue.Configure(task.WithOnChange(app.snapshots.Request))

	if app.analyzer == nil {
		app.analyzer, err = app.newAnalyzer(ctx)
		if err != nil {
			app.closeDB()
			return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
		}
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.metrics = metrics.NewRecorder(app.queue)
	app.emitter.RegisterHandler(app.metrics)

	app.worker = task.NewWorker(app.queue, app.analyzer,
		task.WithWorkerLogger(logger),
		task.WithSnapshotWriter(app.snapshots),
		task.WithEventEmitter(app.emitter),
	)

	// Background saves outlive the caller's context until shutdown
	writerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	app.stopWriter = cancel
	app.writerDone = make(chan struct{})
	go func() {
		defer close(app.writerDone)
		app.snapshots.Run(writerCtx)
	}()

	status := app.queue.Status()
	logger.Info("application initialized successfully",
		"pending", status.QueueLength,
		"history", status.HistoryLength)
	return app, nil
}

func (app *application) newSnapshotStore(ctx context.Context) (task.SnapshotStore, error) {
	switch app.config.Queue.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, app.config.Database.URL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.db = db
		return postgres.NewSnapshotStore(db, app.logger), nil

	default:
		store, err := filesystem.NewSnapshotStore(app.config.Queue.StateDir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare state directory: %w", err)
		}
		app.logger.Info("using file queue state", "path", store.Path())
		return store, nil
	}
}

func (app *application) newAnalyzer(ctx context.Context) (task.Analyzer, error) {
	cfg := app.config.Analyzer

	var runner analysis.StepRunner
	switch cfg.Provider {
	case config.ProviderGemini:
		r, err := gemini.NewRunner(ctx, gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		}, app.logger)
		if err != nil {
			return nil, err
		}
		runner = r

	case config.ProviderOllama:
		r, err := ollama.NewRunner(ollama.Config{
			Host:           cfg.OllamaHost,
			Model:          cfg.Model,
			ExpectedTokens: cfg.ExpectedTokens,
		}, &http.Client{}, app.logger)
		if err != nil {
			return nil, err
		}
		runner = r
		app.health.Pinger = r

	default:
		return nil, fmt.Errorf("%w: unknown analyzer provider %q", analysis.ErrInvalidConfig, cfg.Provider)
	}

	app.logger.Info("analyzer initialized", "provider", cfg.Provider, "model", cfg.Model)
	return analysis.NewImageAnalyzer(runner, app.logger, cfg.RequestTimeout)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if app.config.Server.AutoStart && app.queue.Status().QueueLength > 0 {
		if err := app.worker.Start(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, task.ErrAlreadyProcessing) {
			app.logger.Error("failed to auto-start processing", "error", err)
		}
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the worker after its current task, flushes the queue state
// and releases resources. It is safe to call more than once.
func (app *application) cleanup(ctx context.Context) {
	app.closeOnce.Do(func() {
		if err := app.worker.Stop(); err == nil {
			app.logger.Info("waiting for the current task to finish")
		}
		if err := app.worker.Wait(ctx); err != nil {
			// the loop is still analyzing; the next start recovers the task
			app.logger.Warn("worker did not stop before the shutdown deadline", "error", err)
		}

		app.stopWriter()
		<-app.writerDone
		app.snapshots.Flush(context.WithoutCancel(ctx))

		app.closeDB()
		app.logger.Info("application shutdown completed")
	})
}

func (app *application) closeDB() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database connection", "error", err)
	}
	app.db = nil
}

// runMigrations applies the schema for the postgres backend and exits.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Queue.Backend != config.BackendPostgres {
		logger.Info("no migrations to apply for backend", "backend", cfg.Queue.Backend)
		return nil
	}
	db, err := postgres.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return postgres.Migrate(ctx, db, logger)
}
