// Package testutil provides shared test helpers for setting up document stores.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/biolink/internal/docstore"
	"github.com/starford/biolink/internal/seed"
)

// TestStore creates a temporary SQLite-backed store that is automatically cleaned up.
func TestStore(t *testing.T) docstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "biolink-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := docstore.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

// SeededStore returns a TestStore holding the default profile and links.
func SeededStore(t *testing.T) docstore.Store {
	t.Helper()
	store := TestStore(t)
	if _, err := seed.New(store, Logger()).EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	return store
}

// Logger discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
