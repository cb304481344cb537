package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/logger"
	"github.com/phrazzld/synth-api/internal/store"
)

const taskRecordColumns = `task_id, owner, request_payload, status, artifact_url, created_at, updated_at`

// TaskRecordStore implements the store.TaskRecordStore interface
// using a SQL database as the storage backend.
type TaskRecordStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a TaskRecordStore.
type Option func(*TaskRecordStore)

// WithDialect selects the placeholder style. The default is DialectPostgres.
func WithDialect(d Dialect) Option {
	return func(s *TaskRecordStore) { s.dialect = d }
}

// WithClock overrides the time source used for updated_at and transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TaskRecordStore) { s.now = now }
}

// NewTaskRecordStore creates a new SQL implementation of the TaskRecordStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewTaskRecordStore(db store.DBTX, logger *slog.Logger, opts ...Option) *TaskRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &TaskRecordStore{
		db:      db,
		dialect: DialectPostgres,
		logger:  logger.With(slog.String("component", "task_record_store")),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure TaskRecordStore implements store.TaskRecordStore interface
var _ store.TaskRecordStore = (*TaskRecordStore)(nil)

// WithTx implements store.TaskRecordStore.WithTx
func (s *TaskRecordStore) WithTx(tx *sql.Tx) store.TaskRecordStore {
	return &TaskRecordStore{
		db:      tx,
		dialect: s.dialect,
		logger:  s.logger,
		now:     s.now,
	}
}

// Create implements store.TaskRecordStore.Create
func (s *TaskRecordStore) Create(ctx context.Context, rec *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("task record validation failed during create",
			"error", err,
			"task_id", rec.TaskID)
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	payload, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("%w: encode request payload: %v", store.ErrInvalidEntity, err)
	}

	query := rebind(s.dialect, `
		INSERT INTO task_records (`+taskRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = s.db.ExecContext(ctx, query,
		rec.TaskID,
		rec.Owner,
		string(payload),
		string(rec.Status),
		nullString(rec.ArtifactURL),
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("task record already exists", "task_id", rec.TaskID)
			return fmt.Errorf("%w: %s", store.ErrTaskRecordExists, rec.TaskID)
		}
		log.Error("failed to create task record",
			"error", err,
			"task_id", rec.TaskID)
		return MapError(err)
	}

	log.Debug("task record created",
		"task_id", rec.TaskID,
		"owner", rec.Owner)
	return nil
}

// Get implements store.TaskRecordStore.Get
func (s *TaskRecordStore) Get(ctx context.Context, taskID string) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := rebind(s.dialect, `SELECT `+taskRecordColumns+` FROM task_records WHERE task_id = ?`)

	rec, err := scanTaskRecord(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task record not found", "task_id", taskID)
			return nil, store.ErrTaskRecordNotFound
		}
		log.Error("failed to get task record",
			"error", err,
			"task_id", taskID)
		return nil, MapError(err)
	}

	return rec, nil
}

// ListByOwner implements store.TaskRecordStore.ListByOwner.
// Records are returned newest first.
func (s *TaskRecordStore) ListByOwner(ctx context.Context, owner string) ([]*domain.TaskRecord, error) {
	query := rebind(s.dialect, `
		SELECT `+taskRecordColumns+`
		FROM task_records
		WHERE owner = ?
		ORDER BY created_at DESC, task_id
	`)
	return s.list(ctx, "owner", query, owner)
}

// ListInProgress implements store.TaskRecordStore.ListInProgress
func (s *TaskRecordStore) ListInProgress(ctx context.Context) ([]*domain.TaskRecord, error) {
	query := rebind(s.dialect, `
		SELECT `+taskRecordColumns+`
		FROM task_records
		WHERE status = ?
		ORDER BY created_at ASC, task_id
	`)
	return s.list(ctx, "in_progress", query, string(domain.TaskStatusInProgress))
}

func (s *TaskRecordStore) list(ctx context.Context, kind, query string, args ...any) ([]*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query task records", "list", kind, "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.TaskRecord, 0)
	for rows.Next() {
		rec, err := scanTaskRecord(rows)
		if err != nil {
			log.Error("failed to scan task record row", "list", kind, "error", err)
			return nil, MapError(err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task record rows", "list", kind, "error", err)
		return nil, MapError(err)
	}

	return records, nil
}

// Resolve implements store.TaskRecordStore.Resolve.
// The guarded update and its transition log row are written in one transaction
// when the store is backed by a *sql.DB.
func (s *TaskRecordStore) Resolve(
	ctx context.Context,
	taskID string,
	status domain.TaskStatus,
	artifactURL string,
) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: cannot resolve to status %q", store.ErrInvalidEntity, status)
	}
	if (status == domain.TaskStatusCompleted) != (artifactURL != "") {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrArtifactURLMismatch)
	}

	db, ok := s.db.(*sql.DB)
	if !ok {
		return s.resolve(ctx, s.db, taskID, status, artifactURL)
	}

	var applied bool
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		applied, err = s.resolve(ctx, tx, taskID, status, artifactURL)
		return err
	})
	return applied, err
}

func (s *TaskRecordStore) resolve(
	ctx context.Context,
	db store.DBTX,
	taskID string,
	status domain.TaskStatus,
	artifactURL string,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	update := rebind(s.dialect, `
		UPDATE task_records
		SET status = ?, artifact_url = ?, updated_at = ?
		WHERE task_id = ? AND status = ?
	`)

	result, err := db.ExecContext(ctx, update,
		string(status),
		nullString(artifactURL),
		now,
		taskID,
		string(domain.TaskStatusInProgress),
	)
	if err != nil {
		log.Error("failed to resolve task record",
			"error", err,
			"task_id", taskID,
			"status", status)
		return false, MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskRecordNotFound); err != nil {
		if !errors.Is(err, store.ErrTaskRecordNotFound) {
			return false, err
		}
		return false, s.ensureExists(ctx, db, taskID)
	}

	insert := rebind(s.dialect, `
		INSERT INTO task_transitions (task_id, from_status, to_status, occurred_at)
		VALUES (?, ?, ?, ?)
	`)
	if _, err := db.ExecContext(ctx, insert,
		taskID,
		string(domain.TaskStatusInProgress),
		string(status),
		now,
	); err != nil {
		log.Error("failed to record task transition",
			"error", err,
			"task_id", taskID)
		return false, MapError(err)
	}

	return true, nil
}

// ensureExists distinguishes a lost guard from a missing record.
func (s *TaskRecordStore) ensureExists(ctx context.Context, db store.DBTX, taskID string) error {
	var one int
	query := rebind(s.dialect, `SELECT 1 FROM task_records WHERE task_id = ?`)
	err := db.QueryRowContext(ctx, query, taskID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrTaskRecordNotFound
	}
	return MapError(err)
}

// Delete implements store.TaskRecordStore.Delete
func (s *TaskRecordStore) Delete(ctx context.Context, taskID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := rebind(s.dialect, `DELETE FROM task_records WHERE task_id = ?`)

	result, err := s.db.ExecContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to delete task record",
			"error", err,
			"task_id", taskID)
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskRecordNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskRecord(row rowScanner) (*domain.TaskRecord, error) {
	var (
		rec         domain.TaskRecord
		payload     []byte
		status      string
		artifactURL sql.NullString
		createdAt   timestamp
		updatedAt   timestamp
	)

	if err := row.Scan(
		&rec.TaskID,
		&rec.Owner,
		&payload,
		&status,
		&artifactURL,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &rec.Request); err != nil {
		return nil, fmt.Errorf("decode request payload for %s: %w", rec.TaskID, err)
	}

	rec.Status = domain.TaskStatus(status)
	rec.ArtifactURL = artifactURL.String
	rec.CreatedAt = createdAt.Time
	rec.UpdatedAt = updatedAt.Time

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
