// Package catalog holds the persisted data model of the drive catalog:
// drives, scan sessions, file records and recovery artifacts, together
// with the persistence operations the scan engine runs against them.
package catalog

import (
	"database/sql"
)

// Store provides catalog persistence on top of a SQL database.
// The scan engine owns at most one open transaction at a time; operations
// that must be atomic with the current batch take a *sql.Tx, everything
// else runs on the connection directly.
type Store struct {
	DB *sql.DB
}

// Querier is the read surface shared by *sql.DB and *sql.Tx. Per-entry
// lookups take one so they run inside the engine's batch transaction;
// the pool is capped at a single connection, a read on the DB handle
// while a transaction holds it would wait forever.
type Querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Counters are the running totals of one scan session. They are persisted
// on every checkpoint and finalization so an interrupted session resumes
// with its history intact.
type Counters struct {
	Scanned       int64
	Added         int64
	Updated       int64
	Deleted       int64
	Skipped       int64
	ThumbsCreated int64
	ThumbsFailed  int64
}
