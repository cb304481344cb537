package task

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound indicates that no task record exists for the given id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotOwned indicates that the caller is not allowed to see or change the task.
	ErrNotOwned = errors.New("task not owned by caller")

	// ErrTransient indicates a recoverable failure of an external call or the
	// record store. The record is left untouched and may be retried.
	ErrTransient = errors.New("transient failure")

	// ErrAlreadyStarted is returned when a Reconciler is started twice.
	ErrAlreadyStarted = errors.New("reconciler already started")
)

// UntrackedTaskError reports an external job that was started but whose
// record could not be written. The job runs on without a record; TaskID
// names it for manual reconciliation.
type UntrackedTaskError struct {
	TaskID string
	Err    error
}

func (e *UntrackedTaskError) Error() string {
	return fmt.Sprintf("%s: task %s started but not recorded: %v", ErrTransient, e.TaskID, e.Err)
}

// Unwrap allows errors.Is(err, ErrTransient) and exposes the store error.
func (e *UntrackedTaskError) Unwrap() []error {
	return []error{ErrTransient, e.Err}
}
