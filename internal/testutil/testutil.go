// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/starford/notetags/internal/index"
	"github.com/starford/notetags/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notetags-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNote writes a note with the given identity and body and indexes it.
func WriteNote(t *testing.T, store storage.Provider, db *index.DB, path, id, title, body string) []byte {
	t.Helper()
	data := []byte(fmt.Sprintf("---\nid: %s\ntitle: %s\n---\n\n%s", id, title, body))
	if err := store.Write(path, data); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := index.IndexFile(db, path, data); err != nil {
		t.Fatalf("index %s: %v", path, err)
	}
	return data
}
