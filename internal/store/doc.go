// Package store defines interfaces for task record persistence.
// These interfaces keep the lifecycle engine independent of the concrete
// database; the SQL implementation lives in internal/platform/postgres.
package store
