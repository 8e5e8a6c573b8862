package prd

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a requirement document.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInReview   Status = "in_review"
	StatusApproved   Status = "approved"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusArchived   Status = "archived"
)

var allStatuses = []Status{
	StatusDraft,
	StatusInReview,
	StatusApproved,
	StatusInProgress,
	StatusComplete,
	StatusArchived,
}

// statusOrdinals fixes the total order statuses advance through. The engine
// never commits a transition to a lower ordinal.
var statusOrdinals = func() map[Status]int {
	ordinals := make(map[Status]int, len(allStatuses))
	for i, status := range allStatuses {
		ordinals[status] = i
	}
	return ordinals
}()

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusOrdinals[status]
	return status, ok
}

// Ordinal returns the position of the status in the lifecycle order.
// Unknown statuses sort before draft.
func (s Status) Ordinal() int {
	if ord, ok := statusOrdinals[s]; ok {
		return ord
	}
	return -1
}

// Before reports whether s precedes other in the lifecycle order.
func (s Status) Before(other Status) bool {
	return s.Ordinal() < other.Ordinal()
}

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	_, ok := statusOrdinals[s]
	return ok
}

// Label renders the status for display ("in_review" -> "In Review").
func (s Status) Label() string {
	parts := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// Document is a requirement document persisted in SQLite. Status is mutated
// only through the engine's committed transitions or the administrative
// override path; no other component writes it.
type Document struct {
	ID        int64
	Title     string
	Status    Status
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Archived  bool
}

// CountSummary aggregates document counts per lifecycle status.
type CountSummary struct {
	Total      int
	Draft      int
	InReview   int
	Approved   int
	InProgress int
	Complete   int
	Archived   int
}
