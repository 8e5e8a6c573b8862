package services_test

import (
	"errors"
	"testing"

	"loom/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("daemon unavailable")
	err := services.Wrap(services.ErrAgentSpawn, "execute", "launch", "agent start", base)

	if !errors.Is(err, services.ErrAgentSpawn) {
		t.Fatalf("expected ErrAgentSpawn classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to remain reachable")
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "bad input", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation fallback, got %v", err)
	}
}

func TestRecoverable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"spawn", services.Wrap(services.ErrAgentSpawn, "plan", "launch", "boom", nil), true},
		{"locked", services.ErrStageLocked, false},
		{"executing", services.ErrAlreadyExecuting, false},
		{"no session", services.ErrNoActiveSession, false},
		{"no transition", services.ErrNoTransition, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Recoverable(tc.err); got != tc.want {
				t.Fatalf("Recoverable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
