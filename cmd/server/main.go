// Package main implements the entry point for the synth API server, which
// tracks speech synthesis tasks per user, reconciles them with Amazon Polly
// and hands out presigned download URLs for finished audio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/phrazzld/synth-api/internal/config"
	"github.com/phrazzld/synth-api/internal/platform/logger"
	"github.com/phrazzld/synth-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String(
		"migrate",
		"",
		"Run a database migration command (up, down, status, version) and exit",
	)
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("synth-api: %v", err)
	}
}

// run loads configuration, sets up logging and the database, and then
// either runs the requested migration command or serves until shutdown.
func run(migrateCmd string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"redis_index", cfg.Redis.Enabled(),
		"metrics", cfg.Telemetry.MetricsEnabled)

	db, dialect, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return handleMigrations(ctx, db, dialect, migrateCmd, l)
	}

	app, err := newApplication(ctx, cfg, l, db, dialect)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
