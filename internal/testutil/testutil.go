// Package testutil provides shared test helpers for setting up databases and
// attachment roots.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/notepress/internal/models"
	"github.com/starford/notepress/internal/storage"
	"github.com/starford/notepress/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notepress-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFiles creates a temporary attachment root.
func TestFiles(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// Record builds a record with placeholder content.
func Record(id, title, created, modified, body string) models.Record {
	return models.Record{
		ID:          id,
		Title:       title,
		CreatedAt:   created,
		ModifiedAt:  modified,
		Body:        body,
		Collection:  "Blog",
		Attachments: []models.Attachment{},
	}
}
