package main

import (
	"testing"
)

func TestStageRunDoneLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"doc", "create", "Checkout"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("doc create: %v", err)
	}

	out, _, err := runCLI(t, []string{"stages", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	requireContains(t, out, "plan-feature")
	requireContains(t, out, "Available")
	requireContains(t, out, "Locked")

	out, _, err = runCLI(t, []string{"run", "1", "plan-feature"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Started plan-feature for document 1")

	if _, _, err := runCLI(t, []string{"run", "1", "plan-feature"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected second run to fail while executing")
	}

	out, _, err = runCLI(t, []string{"sessions"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, out, "plan-feature")

	out, _, err = runCLI(t, []string{"done", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	requireContains(t, out, "advanced to in_review")

	out, _, err = runCLI(t, []string{"sessions"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("sessions after done: %v", err)
	}
	requireContains(t, out, "No active sessions")
}

func TestStageCancelKeepsStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"doc", "create", "Checkout"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("doc create: %v", err)
	}
	if _, _, err := runCLI(t, []string{"run", "1", "plan-feature"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"cancel", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Cancelled session for document 1")

	out, _, err = runCLI(t, []string{"doc", "show", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("doc show: %v", err)
	}
	requireContains(t, out, "Status:   draft")
}

func TestSessionReset(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"doc", "create", "Checkout"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("doc create: %v", err)
	}
	if _, _, err := runCLI(t, []string{"run", "1", "plan-feature"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"reset"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "Cleared 1 session(s)")
}

func TestRunLockedStageFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"doc", "create", "Checkout"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("doc create: %v", err)
	}

	if _, _, err := runCLI(t, []string{"run", "1", "execute"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected run to fail for a locked stage")
	}
}
