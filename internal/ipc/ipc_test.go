package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loom/internal/agent"
	"loom/internal/daemon"
	"loom/internal/engine"
	"loom/internal/ipc"
	"loom/internal/logging"
	"loom/internal/prd"
	"loom/internal/session"
	"loom/internal/testsupport"
	"loom/internal/workflow"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedAgentScript("#!/bin/sh\nsleep 60\n"))
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	eng := engine.New(store, session.NewTracker(), agent.NewFromConfig(cfg), logger,
		engine.WithWorkdir(cfg.Paths.Workspace))
	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if !strings.HasSuffix(status.DocumentDBPath, "documents.db") {
		t.Fatalf("unexpected db path: %s", status.DocumentDBPath)
	}

	createResp, err := client.DocCreate("Checkout flow", "initial body")
	if err != nil {
		t.Fatalf("DocCreate failed: %v", err)
	}
	docID := createResp.Document.ID
	if createResp.Document.Status != string(prd.StatusDraft) {
		t.Fatalf("expected draft, got %s", createResp.Document.Status)
	}

	if _, err := client.DocCreate("   ", ""); err == nil {
		t.Fatal("expected DocCreate to reject a blank title")
	}

	listResp, err := client.DocList(nil)
	if err != nil {
		t.Fatalf("DocList failed: %v", err)
	}
	if len(listResp.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(listResp.Documents))
	}

	showResp, err := client.DocShow(docID)
	if err != nil {
		t.Fatalf("DocShow failed: %v", err)
	}
	if showResp.Document.Content != "initial body" {
		t.Fatalf("unexpected content %q", showResp.Document.Content)
	}
	if len(showResp.Stages) != len(workflow.Stages()) {
		t.Fatalf("expected %d stages, got %d", len(workflow.Stages()), len(showResp.Stages))
	}

	stageResp, err := client.StageList(docID)
	if err != nil {
		t.Fatalf("StageList failed: %v", err)
	}
	for _, stage := range stageResp.Stages {
		want := string(workflow.StateLocked)
		if stage.ID == workflow.StagePlanFeature {
			want = string(workflow.StateAvailable)
		}
		if stage.State != want {
			t.Fatalf("stage %s: expected %s, got %s", stage.ID, want, stage.State)
		}
	}

	runResp, err := client.StageRun(docID, workflow.StagePlanFeature)
	if err != nil {
		t.Fatalf("StageRun failed: %v", err)
	}
	if runResp.Session.StageID != workflow.StagePlanFeature {
		t.Fatalf("unexpected session stage %s", runResp.Session.StageID)
	}
	if runResp.Session.PID <= 0 {
		t.Fatal("expected a live agent pid")
	}

	if _, err := client.StageRun(docID, workflow.StagePlanFeature); err == nil {
		t.Fatal("expected second StageRun to fail while executing")
	}

	sessResp, err := client.SessionList()
	if err != nil {
		t.Fatalf("SessionList failed: %v", err)
	}
	if len(sessResp.Sessions) != 1 || sessResp.Sessions[0].DocumentID != docID {
		t.Fatalf("unexpected sessions: %#v", sessResp.Sessions)
	}

	doneResp, err := client.StageDone(docID)
	if err != nil {
		t.Fatalf("StageDone failed: %v", err)
	}
	if doneResp.Status != string(prd.StatusInReview) {
		t.Fatalf("expected in_review, got %s", doneResp.Status)
	}

	if _, err := client.StageRun(docID, workflow.StagePlan); err != nil {
		t.Fatalf("StageRun plan failed: %v", err)
	}
	if _, err := client.StageCancel(docID); err != nil {
		t.Fatalf("StageCancel failed: %v", err)
	}
	showResp, err = client.DocShow(docID)
	if err != nil {
		t.Fatalf("DocShow after cancel failed: %v", err)
	}
	if showResp.Document.Status != string(prd.StatusInReview) {
		t.Fatalf("cancel must not change status, got %s", showResp.Document.Status)
	}

	if _, err := client.DocSetStatus(docID, "approved"); err != nil {
		t.Fatalf("DocSetStatus failed: %v", err)
	}
	if _, err := client.DocSetStatus(docID, "bogus"); err == nil {
		t.Fatal("expected DocSetStatus to reject an unknown status")
	}

	filtered, err := client.DocList([]string{"approved"})
	if err != nil {
		t.Fatalf("DocList filtered failed: %v", err)
	}
	if len(filtered.Documents) != 1 || filtered.Documents[0].ID != docID {
		t.Fatalf("expected the approved document, got %#v", filtered.Documents)
	}

	if _, err := client.StageRun(docID, workflow.StageExecute); err != nil {
		t.Fatalf("StageRun execute failed: %v", err)
	}
	resetResp, err := client.SessionReset()
	if err != nil {
		t.Fatalf("SessionReset failed: %v", err)
	}
	if resetResp.Cleared != 1 {
		t.Fatalf("expected 1 cleared session, got %d", resetResp.Cleared)
	}

	if _, err := client.DocUpdate(docID, "", "revised body"); err != nil {
		t.Fatalf("DocUpdate failed: %v", err)
	}
	updatedResp, err := client.DocShow(docID)
	if err != nil {
		t.Fatalf("DocShow after update failed: %v", err)
	}
	if updatedResp.Document.Content != "revised body" {
		t.Fatalf("expected updated content, got %q", updatedResp.Document.Content)
	}
	if updatedResp.Document.Title == "" {
		t.Fatal("blank update title must keep the stored title")
	}
	if _, err := client.DocArchive(docID); err != nil {
		t.Fatalf("DocArchive failed: %v", err)
	}
	showResp, err = client.DocShow(docID)
	if err != nil {
		t.Fatalf("DocShow after archive failed: %v", err)
	}
	if !showResp.Document.Archived {
		t.Fatal("expected archived document")
	}

	logPath := d.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail: %#v", logResp.Lines)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
