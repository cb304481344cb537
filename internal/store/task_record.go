package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/synth-api/internal/domain"
)

// TaskRecordStore defines the interface for task record persistence.
// Version: 1.0
type TaskRecordStore interface {
	// Create inserts a new record.
	// Returns ErrTaskRecordExists if a record with the same task ID exists.
	// Returns validation errors from the domain TaskRecord if data is invalid.
	Create(ctx context.Context, rec *domain.TaskRecord) error

	// Get retrieves a record by task ID.
	// Returns ErrTaskRecordNotFound if the record does not exist.
	Get(ctx context.Context, taskID string) (*domain.TaskRecord, error)

	// ListByOwner returns every record owned by owner, in no particular order.
	// Returns an empty slice if the owner has no records.
	ListByOwner(ctx context.Context, owner string) ([]*domain.TaskRecord, error)

	// ListInProgress returns every record whose status is inProgress.
	ListInProgress(ctx context.Context) ([]*domain.TaskRecord, error)

	// Resolve moves a record from inProgress to the terminal status, setting
	// artifactURL in the same write. The write only applies while the stored
	// status is still inProgress; applied reports whether it did.
	// Returns ErrTaskRecordNotFound if the record does not exist.
	Resolve(
		ctx context.Context,
		taskID string,
		status domain.TaskStatus,
		artifactURL string,
	) (applied bool, err error)

	// Delete removes a record by task ID.
	// Returns ErrTaskRecordNotFound if the record does not exist.
	Delete(ctx context.Context, taskID string) error

	// WithTx returns a new TaskRecordStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskRecordStore
}
