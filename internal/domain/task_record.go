package domain

import (
	"errors"
	"time"
)

// TaskStatus represents the lifecycle state of a tracked synthesis task.
type TaskStatus string

// Possible task status values. inProgress is the only non-terminal state.
const (
	TaskStatusInProgress TaskStatus = "inProgress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Common validation errors for TaskRecord
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrEmptyOwner          = errors.New("task owner cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrArtifactURLMismatch = errors.New("artifact URL must be set if and only if the task is completed")
)

// TaskRecord tracks one synthesis job submitted to the external provider on
// behalf of an owner. TaskID, Owner, Request and CreatedAt never change once
// the record exists; Status and ArtifactURL change exactly once, together.
type TaskRecord struct {
	TaskID      string           `json:"taskId"`
	Owner       string           `json:"owner"`
	Request     SynthesisRequest `json:"request"`
	Status      TaskStatus       `json:"status"`
	ArtifactURL string           `json:"artifactUrl,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// NewTaskRecord creates an inProgress record for a task the provider accepted.
func NewTaskRecord(taskID, owner string, req SynthesisRequest) (*TaskRecord, error) {
	now := time.Now().UTC()
	rec := &TaskRecord{
		TaskID:    taskID,
		Owner:     owner,
		Request:   req,
		Status:    TaskStatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks the record's invariants.
func (r *TaskRecord) Validate() error {
	if r.TaskID == "" {
		return ErrEmptyTaskID
	}

	if r.Owner == "" {
		return ErrEmptyOwner
	}

	if !r.Status.IsValid() {
		return ErrInvalidTaskStatus
	}

	if (r.Status == TaskStatusCompleted) != (r.ArtifactURL != "") {
		return ErrArtifactURLMismatch
	}

	return nil
}

// IsOwnedBy reports whether owner may see and operate on the record.
func (r *TaskRecord) IsOwnedBy(owner string) bool {
	return owner != "" && r.Owner == owner
}

// TaskSnapshot is the status of a task as reported by the external provider.
// OutputURI is only meaningful when Status is completed.
type TaskSnapshot struct {
	TaskID    string
	Status    TaskStatus
	OutputURI string
	Reason    string
}
