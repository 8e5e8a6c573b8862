package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/prd"
)

// MustOpenStore opens a document store for the test configuration and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *prd.Store {
	t.Helper()

	store, err := prd.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// MustCreateDocument inserts a draft document and fails the test on error.
func MustCreateDocument(t testing.TB, store *prd.Store, title string) *prd.Document {
	t.Helper()

	doc, err := store.Create(context.Background(), title, "")
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

// MustSetStatus forces a document status, bypassing the engine. Tests use it
// to stage preconditions.
func MustSetStatus(t testing.TB, store *prd.Store, id int64, status prd.Status) {
	t.Helper()

	if err := store.SetStatus(context.Background(), id, status); err != nil {
		t.Fatalf("set status: %v", err)
	}
}
