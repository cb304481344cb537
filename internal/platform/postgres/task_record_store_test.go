package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/synth-api/internal/config"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/postgres"
	"github.com/phrazzld/synth-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var dbCounter atomic.Int64

func openEmptyDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:taskstore_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db := openEmptyDB(t)
	require.NoError(t, postgres.Migrate(context.Background(), db, postgres.DialectSQLite, "up", nil))

	return db
}

func newTestStore(t *testing.T) (*postgres.TaskRecordStore, *sql.DB) {
	t.Helper()

	db := openTestDB(t)
	return postgres.NewTaskRecordStore(db, nil, postgres.WithDialect(postgres.DialectSQLite)), db
}

func newRecord(t *testing.T, taskID, owner string, createdAt time.Time) *domain.TaskRecord {
	t.Helper()

	rec, err := domain.NewTaskRecord(taskID, owner, domain.SynthesisRequest{
		Text:      "hello",
		Voice:     "Joanna",
		Language:  "en-US",
		VoiceType: "neural",
	})
	require.NoError(t, err)
	rec.CreatedAt = createdAt
	rec.UpdatedAt = createdAt
	return rec
}

func countTransitions(t *testing.T, db *sql.DB, taskID string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_transitions WHERE task_id = ?`, taskID).Scan(&n))
	return n
}

func TestTaskRecordStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := newRecord(t, "T1", "u1", created)
	require.NoError(t, s.Create(ctx, rec))

	got, err := s.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.TaskID)
	assert.Equal(t, "u1", got.Owner)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)
	assert.Empty(t, got.ArtifactURL)
	assert.Equal(t, rec.Request, got.Request)
	assert.True(t, created.Equal(got.CreatedAt), "created_at should round-trip")
}

func TestTaskRecordStore_CreateDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))
	err := s.Create(ctx, newRecord(t, "T1", "u2", time.Now().UTC()))

	assert.ErrorIs(t, err, store.ErrTaskRecordExists)
	assert.True(t, store.IsDuplicateError(err))
}

func TestTaskRecordStore_CreateInvalid(t *testing.T) {
	s, _ := newTestStore(t)

	rec := newRecord(t, "T1", "u1", time.Now().UTC())
	rec.Status = domain.TaskStatusCompleted

	err := s.Create(context.Background(), rec)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestTaskRecordStore_GetNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestTaskRecordStore_ListByOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", base)))
	require.NoError(t, s.Create(ctx, newRecord(t, "T2", "u1", base.Add(time.Minute))))
	require.NoError(t, s.Create(ctx, newRecord(t, "T3", "u2", base.Add(2*time.Minute))))

	records, err := s.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "T2", records[0].TaskID, "newest first")
	assert.Equal(t, "T1", records[1].TaskID)

	none, err := s.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTaskRecordStore_ResolveCompleted(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))

	applied, err := s.Resolve(ctx, "T1", domain.TaskStatusCompleted, "https://example.com/T1.mp3?sig=1")
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "https://example.com/T1.mp3?sig=1", got.ArtifactURL)
	assert.Equal(t, 1, countTransitions(t, db, "T1"))

	pending, err := s.ListInProgress(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTaskRecordStore_ResolveGuardHolds(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))

	applied, err := s.Resolve(ctx, "T1", domain.TaskStatusFailed, "")
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = s.Resolve(ctx, "T1", domain.TaskStatusCompleted, "https://example.com/late.mp3")
	require.NoError(t, err)
	assert.False(t, applied, "a terminal record must not change again")

	got, err := s.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Empty(t, got.ArtifactURL)
	assert.Equal(t, 1, countTransitions(t, db, "T1"))
}

func TestTaskRecordStore_ResolveRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))

	_, err := s.Resolve(ctx, "T1", domain.TaskStatusInProgress, "")
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = s.Resolve(ctx, "T1", domain.TaskStatusCompleted, "")
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = s.Resolve(ctx, "T1", domain.TaskStatusFailed, "https://example.com/x")
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestTaskRecordStore_ResolveMissing(t *testing.T) {
	s, _ := newTestStore(t)

	applied, err := s.Resolve(context.Background(), "missing", domain.TaskStatusFailed, "")
	assert.False(t, applied)
	assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
}

func TestTaskRecordStore_ResolveConcurrentSingleWinner(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))

	const workers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var applied bool
			var err error
			if i%2 == 0 {
				applied, err = s.Resolve(ctx, "T1", domain.TaskStatusCompleted, fmt.Sprintf("https://example.com/%d", i))
			} else {
				applied, err = s.Resolve(ctx, "T1", domain.TaskStatusFailed, "")
			}
			assert.NoError(t, err)
			if applied {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, countTransitions(t, db, "T1"))

	got, err := s.Get(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, got.Status.IsTerminal())
	assert.NoError(t, got.Validate())
}

func TestTaskRecordStore_WithTx(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	applied, err := s.WithTx(tx).Resolve(ctx, "T1", domain.TaskStatusFailed, "")
	require.NoError(t, err)
	assert.True(t, applied)
	require.NoError(t, tx.Rollback())

	got, err := s.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status, "rolled back resolution must not persist")
}

func TestTaskRecordStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", time.Now().UTC())))

	require.NoError(t, s.Delete(ctx, "T1"))

	_, err := s.Get(ctx, "T1")
	assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "T1"), store.ErrTaskRecordNotFound)
}

func TestTaskRecordStore_MigratedSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	url := fmt.Sprintf("sqlite://file:taskstore_open_%d?mode=memory&cache=shared", dbCounter.Add(1))

	db, dialect, err := postgres.Open(ctx, config.DatabaseConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, postgres.Migrate(ctx, db, dialect, "up", nil))

	s := postgres.NewTaskRecordStore(db, nil, postgres.WithDialect(dialect))
	created := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, s.Create(ctx, newRecord(t, "T1", "u1", created)))

	got, err := s.Get(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt), "created_at should round-trip, got %s", got.CreatedAt)

	pending, err := s.ListInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	applied, err := s.Resolve(ctx, "T1", domain.TaskStatusFailed, "")
	require.NoError(t, err)
	assert.True(t, applied)

	owned, err := s.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, domain.TaskStatusFailed, owned[0].Status)
	assert.False(t, owned[0].UpdatedAt.IsZero())
}
