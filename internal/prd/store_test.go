package prd_test

import (
	"context"
	"errors"
	"testing"

	"loom/internal/prd"
	"loom/internal/services"
	"loom/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	doc, err := store.Create(ctx, "Checkout flow", "## Overview")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if doc.ID == 0 {
		t.Fatal("expected document ID to be assigned")
	}
	if doc.Status != prd.StatusDraft {
		t.Fatalf("expected new document in draft, got %s", doc.Status)
	}

	fetched, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Checkout flow" {
		t.Fatalf("unexpected fetched document: %#v", fetched)
	}
	if fetched.Content != "## Overview" {
		t.Fatalf("unexpected content: %q", fetched.Content)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Create(context.Background(), "  ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.MustCreateDocument(t, store, "A")
	b := testsupport.MustCreateDocument(t, store, "B")
	testsupport.MustSetStatus(t, store, b.ID, prd.StatusApproved)

	approved, err := store.List(ctx, prd.StatusApproved)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != b.ID {
		t.Fatalf("expected only document B, got %#v", approved)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID {
		t.Fatalf("expected both documents in id order, got %#v", all)
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	doc := testsupport.MustCreateDocument(t, store, "A")
	if err := store.SetStatus(context.Background(), doc.ID, prd.Status("shipped")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.SetStatus(context.Background(), 9999, prd.StatusApproved)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArchiveSetsStatusAndFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.MustCreateDocument(t, store, "Old idea")
	if err := store.Archive(ctx, doc.ID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !fetched.Archived || fetched.Status != prd.StatusArchived {
		t.Fatalf("expected archived document, got %#v", fetched)
	}
}

func TestCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.MustCreateDocument(t, store, "A")
	b := testsupport.MustCreateDocument(t, store, "B")
	testsupport.MustSetStatus(t, store, b.ID, prd.StatusInProgress)

	summary, err := store.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if summary.Total != 2 || summary.Draft != 1 || summary.InProgress != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}
