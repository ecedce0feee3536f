// Package testutil provides shared helpers for package tests: an
// in-memory catalog database with the full schema applied, and ready-made
// drive and session fixtures.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/drivedex/drivedex/internal/catalog"
	"github.com/drivedex/drivedex/internal/db"
)

// NewTestDB opens a fresh on-disk SQLite database in the test's temp
// directory with all migrations applied. The file lives only as long as
// the test; WAL mode needs a real file, not :memory:.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	repo, err := db.NewRepository(dbPath)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo.DB
}

// NewTestStore opens a test database and wraps it in a catalog store.
func NewTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	return catalog.NewStore(NewTestDB(t))
}

// SeedDrive inserts a drive fixture and returns its id.
func SeedDrive(t *testing.T, store *catalog.Store, name, serial string) int64 {
	t.Helper()

	id, err := store.CreateDrive(name, "TestVendor", "TestModel", serial, "ext4", 1<<40)
	if err != nil {
		t.Fatalf("seeding drive: %v", err)
	}
	return id
}

// SeedSession opens a running session fixture for the drive.
func SeedSession(t *testing.T, store *catalog.Store, driveID int64, partition int) *catalog.Session {
	t.Helper()

	sess, err := store.CreateSession(driveID, partition)
	if err != nil {
		t.Fatalf("seeding session: %v", err)
	}
	return sess
}
