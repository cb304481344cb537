package task

import "github.com/phrazzld/synth-api/internal/domain"

// Scope decides whether a caller may operate on a record.
type Scope func(rec *domain.TaskRecord) bool

// OwnedBy admits only records owned by owner.
func OwnedBy(owner string) Scope {
	return func(rec *domain.TaskRecord) bool {
		return rec.IsOwnedBy(owner)
	}
}

// Unscoped admits every record. Used by internal callers such as the sweep.
func Unscoped() Scope {
	return func(*domain.TaskRecord) bool { return true }
}
