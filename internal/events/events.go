package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/synth-api/internal/domain"
)

// Transition sources recorded on events.
const (
	SourceSweep  = "sweep"
	SourceCheck  = "check"
	SourceSubmit = "submit"
)

// TaskTransitionEvent records one applied status change of a task record.
// From is empty for the creation of a record.
type TaskTransitionEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	TaskID string            `json:"task_id"`
	Owner  string            `json:"owner"`
	From   domain.TaskStatus `json:"from,omitempty"`
	To     domain.TaskStatus `json:"to"`

	// Source names the operation that applied the transition
	Source string `json:"source"`

	// At is the time the transition was applied
	At time.Time `json:"at"`
}

// NewTaskTransitionEvent creates an event stamped with the current time.
func NewTaskTransitionEvent(
	taskID, owner string,
	from, to domain.TaskStatus,
	source string,
) *TaskTransitionEvent {
	return &TaskTransitionEvent{
		ID:     uuid.New(),
		TaskID: taskID,
		Owner:  owner,
		From:   from,
		To:     to,
		Source: source,
		At:     time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskTransitionEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskTransitionEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskTransitionEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the engine to publish transitions without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskTransitionEvent) error
}
