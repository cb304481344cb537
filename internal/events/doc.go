// Package events carries task state transitions from the lifecycle engine to
// interested observers without coupling the engine to them.
//
// The primary components are:
// - TaskTransitionEvent: a task moved from one status to another
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
