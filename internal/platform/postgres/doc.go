// Package postgres provides the SQL implementation of store.TaskRecordStore
// together with the embedded schema migrations. Queries are written with `?`
// placeholders and rebound for PostgreSQL, so the same store also runs on
// SQLite for local development and tests.
package postgres
