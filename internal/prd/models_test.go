package prd_test

import (
	"testing"

	"loom/internal/prd"
)

func TestStatusOrderIsTotal(t *testing.T) {
	statuses := prd.AllStatuses()
	for i := 1; i < len(statuses); i++ {
		if !statuses[i-1].Before(statuses[i]) {
			t.Fatalf("expected %s to precede %s", statuses[i-1], statuses[i])
		}
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := prd.ParseStatus("  In_Review ")
	if !ok || status != prd.StatusInReview {
		t.Fatalf("expected in_review, got %q ok=%v", status, ok)
	}
	if _, ok := prd.ParseStatus("shipped"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestStatusLabel(t *testing.T) {
	if got := prd.StatusInProgress.Label(); got != "In Progress" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestUnknownStatusSortsFirst(t *testing.T) {
	if !prd.Status("bogus").Before(prd.StatusDraft) {
		t.Fatal("unknown status should sort before draft")
	}
}
