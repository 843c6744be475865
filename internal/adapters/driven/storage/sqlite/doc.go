// Package sqlite implements the storage ports on SQLite.
//
// The store owns the transactional guarantees the engine delegates:
// upserts are keyed by (instance id, external id), so concurrent scopes
// can write independently with no engine-level locking, and re-committing
// a record updates in place instead of duplicating.
//
// Uses modernc.org/sqlite (pure Go, no CGO) with WAL mode for concurrent
// readers.
package sqlite
