// Package task owns the lifecycle of speech synthesis tasks. The Engine records
// submissions, resolves in-progress records against the external task source
// and deletes records together with their artifacts. The Reconciler drives the
// periodic sweep for the lifetime of the process.
package task
