package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/synth-api/internal/platform/postgres"
)

// handleMigrations runs the goose command named by migrateCmd against db.
func handleMigrations(
	ctx context.Context,
	db *sql.DB,
	dialect postgres.Dialect,
	migrateCmd string,
	logger *slog.Logger,
) error {
	logger.Info("Running database migrations", "command", migrateCmd, "dialect", dialect)

	if err := postgres.Migrate(ctx, db, dialect, migrateCmd, logger); err != nil {
		return fmt.Errorf("migration %q failed: %w", migrateCmd, err)
	}

	logger.Info("Database migrations completed", "command", migrateCmd)
	return nil
}
