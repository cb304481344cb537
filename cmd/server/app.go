package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	awspolly "github.com/aws/aws-sdk-go/service/polly"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/phrazzld/synth-api/internal/config"
	"github.com/phrazzld/synth-api/internal/events"
	"github.com/phrazzld/synth-api/internal/platform/awssession"
	"github.com/phrazzld/synth-api/internal/platform/polly"
	"github.com/phrazzld/synth-api/internal/platform/postgres"
	"github.com/phrazzld/synth-api/internal/platform/redis"
	"github.com/phrazzld/synth-api/internal/platform/s3"
	"github.com/phrazzld/synth-api/internal/platform/telemetry"
	"github.com/phrazzld/synth-api/internal/service/auth"
	"github.com/phrazzld/synth-api/internal/store"
	"github.com/phrazzld/synth-api/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	telemetry *telemetry.Providers
	redis     *goredis.Client

	taskStore  store.TaskRecordStore
	verifier   auth.Verifier
	engine     *task.Engine
	reconciler *task.Reconciler
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	dialect postgres.Dialect,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}
	initialized := false
	defer func() {
		if !initialized {
			app.closeClients(context.Background())
		}
	}()

	var err error
	app.verifier, err = auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	app.telemetry, err = telemetry.Setup(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := telemetry.NewMetrics(app.telemetry.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(metrics)

	sess, err := awssession.New(cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	s3API := awss3.New(sess)

	app.taskStore = postgres.NewTaskRecordStore(db, logger, postgres.WithDialect(dialect))

	deps := task.Dependencies{
		Store:    app.taskStore,
		Client:   polly.NewClient(awspolly.New(sess), cfg.Polly, logger),
		Issuer:   s3.NewPresigner(s3API, logger),
		Blobs:    s3.NewBlobStore(s3API, logger),
		Emitter:  emitter,
		Recorder: metrics,
	}

	if cfg.Redis.Enabled() {
		app.redis, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Index = redis.NewPendingIndex(app.redis, cfg.Redis.Key, logger)
		logger.Info("pending task index enabled", "key", cfg.Redis.Key)
	}

	app.engine, err = task.NewEngine(deps, task.EngineConfig{
		URLTTL:        cfg.Artifacts.URLTTL,
		Concurrency:   cfg.Reconciler.Concurrency,
		RecordTimeout: cfg.Reconciler.RecordTimeout,
		FullScanEvery: cfg.Reconciler.FullScanEvery,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task engine: %w", err)
	}

	app.reconciler = task.NewReconciler(app.engine, task.ReconcilerConfig{
		Interval: cfg.Reconciler.Interval,
	}, logger)

	initialized = true
	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the reconciler and the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	if err := app.reconciler.Start(); err != nil {
		app.cleanup(ctx)
		return fmt.Errorf("failed to start reconciler: %w", err)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
// The reconciler is stopped before the clients it uses are closed.
func (app *application) cleanup(ctx context.Context) {
	if app.reconciler != nil {
		app.reconciler.Stop()
	}

	app.closeClients(ctx)

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}

func (app *application) closeClients(ctx context.Context) {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
		app.redis = nil
	}
	if app.telemetry != nil {
		errs = append(errs, app.telemetry.Shutdown(ctx))
		app.telemetry = nil
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("Error closing clients", "error", err)
	}
}
