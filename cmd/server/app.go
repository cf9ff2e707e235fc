package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/curiolab/curio-api/internal/config"
	"github.com/curiolab/curio-api/internal/dispatch"
	"github.com/curiolab/curio-api/internal/events"
	"github.com/curiolab/curio-api/internal/generation"
	"github.com/curiolab/curio-api/internal/imagery"
	"github.com/curiolab/curio-api/internal/observability"
	"github.com/curiolab/curio-api/internal/platform/gemini"
	"github.com/curiolab/curio-api/internal/platform/postgres"
	"github.com/curiolab/curio-api/internal/platform/redisjobs"
	"github.com/curiolab/curio-api/internal/service"
	"github.com/curiolab/curio-api/internal/storage"
	"github.com/curiolab/curio-api/internal/store"
	"github.com/curiolab/curio-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger

	// Job document store (memory, postgres, or redis)
	jobStore store.JobStore

	// Asset storage for the generative image variant, nil when disabled
	fileStore *storage.FileStore

	// Service interfaces
	generator  generation.ConceptGenerator
	providers  task.ImageProviders
	jobService service.JobService

	// Dispatch plumbing
	tokens     *dispatch.TokenService
	dispatcher dispatch.Dispatcher

	// Event system (event dispatch mode only)
	eventEmitter events.EventEmitter

	// Task handling
	taskFactory *task.ConceptGenerationTaskFactory
	taskRunner  *task.TaskRunner

	// Observability
	metrics        *observability.Metrics
	metricsHandler http.Handler

	// closers run in reverse order during cleanup.
	closers []func()
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts the configuration and root logger that must be
// established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logr *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logr,
	}

	if err := app.setupJobStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize job store: %w", err)
	}
	logr.Info("Job store initialized", "driver", cfg.Store.Driver)

	var err error
	app.metrics, app.metricsHandler, err = observability.NewMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app.tokens, err = dispatch.NewTokenService(cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dispatch token service: %w", err)
	}
	logr.Info("Dispatch token service initialized",
		"token_lifetime_seconds", cfg.Dispatch.TokenLifetimeSeconds)

	app.generator, err = gemini.NewConceptGenerator(
		ctx,
		logr.With("component", "concept_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize concept generator: %w", err)
	}
	logr.Info("Concept generator initialized", "model", cfg.LLM.ModelName)

	app.providers, err = app.setupImageProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image providers: %w", err)
	}

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	app.taskFactory = task.NewConceptGenerationTaskFactory(
		app.jobStore,
		app.generator,
		app.providers,
		app.metrics,
		logr,
	)

	if err := app.setupDispatcher(); err != nil {
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	logr.Info("Dispatcher initialized", "mode", cfg.Dispatch.Mode)

	app.jobService, err = service.NewJobService(
		app.jobStore,
		app.dispatcher,
		app.metrics,
		logr,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	logr.Info("Application initialized successfully")
	return app, nil
}

// setupJobStore selects and connects the configured job store backend.
func (app *application) setupJobStore(ctx context.Context) error {
	switch app.config.Store.Driver {
	case "postgres":
		if err := postgres.RunMigrations(ctx, app.config.Store.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err := postgres.Connect(ctx, app.config.Store.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pgStore := postgres.NewPostgresJobStore(pool, app.logger)
		app.jobStore = pgStore
		app.closers = append(app.closers, pgStore.Close, pool.Close)
	case "redis":
		redisStore, err := redisjobs.NewRedisJobStore(app.config.Store.RedisURL, app.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.jobStore = redisStore
		app.closers = append(app.closers, func() {
			if err := redisStore.Close(); err != nil {
				app.logger.Error("Error closing redis store", "error", err)
			}
		})
	default:
		app.jobStore = store.NewMemoryJobStore(app.logger)
	}
	return nil
}

// setupImageProviders builds the stock provider and, when a generative model
// is configured, the generative provider with its backing blob store.
func (app *application) setupImageProviders(ctx context.Context) (task.ImageProviders, error) {
	stock, err := imagery.NewStockProvider(imagery.StockOptions{
		BaseURL: app.config.Image.StockBaseURL,
		APIKey:  app.config.Image.StockAPIKey,
		Logger:  app.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stock image provider: %w", err)
	}

	var generative imagery.Provider
	if app.config.Image.GenerativeModel != "" {
		app.fileStore, err = storage.NewFileStore(
			app.config.Storage.BasePath,
			app.config.Storage.PublicBaseURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create asset store: %w", err)
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  app.config.LLM.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create image generation client: %w", err)
		}

		generative, err = imagery.NewGenerativeProvider(imagery.GenerativeOptions{
			Client:  client,
			Model:   app.config.Image.GenerativeModel,
			Blobs:   app.fileStore,
			Timeout: time.Duration(app.config.Image.TimeoutSeconds) * time.Second,
			Logger:  app.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create generative image provider: %w", err)
		}
		app.logger.Info("Generative image provider initialized",
			"model", app.config.Image.GenerativeModel,
			"asset_path", app.fileStore.BasePath())
	}

	return imagery.NewRegistry(stock, generative)
}

// setupDispatcher wires the launcher-to-worker hand-off. Event mode keeps
// everything in process; http mode posts to a remote worker endpoint signed
// with a per-job dispatch token.
func (app *application) setupDispatcher() error {
	switch app.config.Dispatch.Mode {
	case "event":
		emitter := events.NewInMemoryEventEmitter(app.logger)
		emitter.RegisterHandler(task.NewTaskFactoryEventHandler(
			app.taskFactory,
			app.taskRunner,
			app.logger,
		))
		app.eventEmitter = emitter
		app.dispatcher = dispatch.NewEventDispatcher(emitter, app.logger)
	case "http":
		httpDispatcher, err := dispatch.NewHTTPDispatcher(dispatch.HTTPDispatcherOptions{
			WorkerURL: app.config.Dispatch.WorkerURL,
			Tokens:    app.tokens,
			Logger:    app.logger,
		})
		if err != nil {
			return err
		}
		app.dispatcher = httpDispatcher
	default:
		return fmt.Errorf("unsupported dispatch mode %q", app.config.Dispatch.Mode)
	}
	return nil
}

// setupTaskRunner initializes and starts the background task processor.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: app.config.Task.WorkerCount,
		QueueSize:   app.config.Task.QueueSize,
	}, app.logger)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	return taskRunner, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop task runner first so no task touches a closing store.
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}

	app.logger.Info("Application shutdown completed")
}
