package postgres_test

import (
	"context"
	"testing"

	"github.com/phrazzld/synth-api/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateUpAndDown(t *testing.T) {
	ctx := context.Background()
	db := openEmptyDB(t)

	require.NoError(t, postgres.Migrate(ctx, db, postgres.DialectSQLite, "up", nil))

	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('task_records', 'task_transitions')`,
	).Scan(&n))
	assert.Equal(t, 2, n)

	require.NoError(t, postgres.Migrate(ctx, db, postgres.DialectSQLite, "version", nil))
	require.NoError(t, postgres.Migrate(ctx, db, postgres.DialectSQLite, "down", nil))

	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'task_transitions'`,
	).Scan(&n))
	assert.Equal(t, 0, n, "down should revert the latest migration")
}

func TestMigrateUnknownCommand(t *testing.T) {
	db := openEmptyDB(t)

	err := postgres.Migrate(context.Background(), db, postgres.DialectSQLite, "sideways", nil)
	assert.ErrorContains(t, err, "unknown migration command")
}
