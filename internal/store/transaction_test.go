package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openCounterDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE counters (name TEXT PRIMARY KEY, value INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO counters (name, value) VALUES ('n', 0)`)
	require.NoError(t, err)

	return db
}

func counterValue(t *testing.T, db *sql.DB) int {
	t.Helper()

	var v int
	require.NoError(t, db.QueryRow(`SELECT value FROM counters WHERE name = 'n'`).Scan(&v))
	return v
}

func TestRunInTransaction_Commit(t *testing.T) {
	db := openCounterDB(t)

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE counters SET value = value + 1 WHERE name = 'n'`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, counterValue(t, db))
}

func TestRunInTransaction_RollbackOnError(t *testing.T) {
	db := openCounterDB(t)
	boom := errors.New("boom")

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE counters SET value = value + 1 WHERE name = 'n'`); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, counterValue(t, db))
}

func TestRunInTransaction_RollbackOnPanic(t *testing.T) {
	db := openCounterDB(t)

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `UPDATE counters SET value = value + 1 WHERE name = 'n'`)
			panic("unexpected")
		})
	})

	assert.Equal(t, 0, counterValue(t, db))
}
