package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/synth-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	t.Parallel()

	q := `UPDATE t SET a = ?, b = ? WHERE c = ?`
	assert.Equal(t, `UPDATE t SET a = $1, b = $2 WHERE c = $3`, rebind(DialectPostgres, q))
	assert.Equal(t, q, rebind(DialectSQLite, q))
}

func TestDriverFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		driver  string
		dsn     string
		dialect Dialect
	}{
		{"postgres://u:p@localhost:5432/db", "pgx", "postgres://u:p@localhost:5432/db", DialectPostgres},
		{"postgresql://localhost/db", "pgx", "postgresql://localhost/db", DialectPostgres},
		{"sqlite://synth.db", "sqlite", "synth.db", DialectSQLite},
		{"file:synth.db?mode=memory", "sqlite", "file:synth.db?mode=memory", DialectSQLite},
	}

	for _, tt := range tests {
		driver, dsn, dialect, err := driverFor(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.driver, driver)
		assert.Equal(t, tt.dsn, dsn)
		assert.Equal(t, tt.dialect, dialect)
	}

	_, _, _, err := driverFor("mysql://localhost/db")
	assert.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	db, dialect, err := Open(context.Background(), config.DatabaseConfig{URL: "file:open_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, DialectSQLite, dialect)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestTimestampScan(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 5, 1, 12, 30, 15, 250000000, time.UTC)

	tests := []struct {
		name string
		src  any
	}{
		{"time value", want.In(time.FixedZone("CEST", 2*60*60))},
		{"driver default text", want.String()},
		{"driver default text with monotonic suffix", want.String() + " m=+0.001234567"},
		{"sqlite time format", "2024-05-01 12:30:15.25+00:00"},
		{"rfc3339", []byte("2024-05-01T14:30:15.25+02:00")},
		{"naive text", "2024-05-01 12:30:15.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts timestamp
			require.NoError(t, ts.Scan(tt.src))
			assert.True(t, want.Equal(ts.Time), "got %s", ts.Time)
			assert.Equal(t, time.UTC, ts.Location())
		})
	}

	var ts timestamp
	assert.Error(t, ts.Scan(int64(42)))
	assert.Error(t, ts.Scan("yesterday"))
}
