package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"loom/internal/agent"
	"loom/internal/logging"
	"loom/internal/prd"
	"loom/internal/services"
	"loom/internal/session"
	"loom/internal/workflow"
)

// Engine is the workflow executor: the only writer of document status and
// session state. Eligibility is evaluated and the session slot reserved
// before any spawn request goes out, so racing execute calls for one
// document can never produce two processes.
type Engine struct {
	store    *prd.Store
	tracker  *session.Tracker
	launcher agent.Launcher
	logger   *slog.Logger
	workdir  string

	// mu serializes commits so no caller observes the status changed while
	// the session still reports executing, or vice versa.
	mu        sync.Mutex
	observers *observerRegistry
}

// Option configures optional engine behavior.
type Option func(*Engine)

// WithWorkdir sets the working directory agent processes launch in.
func WithWorkdir(dir string) Option {
	return func(e *Engine) {
		e.workdir = dir
	}
}

// New constructs an engine around an injected store, tracker, and launcher.
func New(store *prd.Store, tracker *session.Tracker, launcher agent.Launcher, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		tracker:   tracker,
		launcher:  launcher,
		logger:    logging.NewComponentLogger(logger, "engine"),
		observers: newObserverRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StageInfo pairs a stage definition with its resolved state for a document.
type StageInfo struct {
	ID    string
	Label string
	State workflow.StageState
}

// GetStageState resolves the visible state of one stage for a document.
func (e *Engine) GetStageState(ctx context.Context, docID int64, stageID string) (workflow.StageState, error) {
	stage, ok := workflow.StageByID(stageID)
	if !ok {
		return "", services.Wrap(services.ErrNotFound, stageID, "stage state", "unknown stage", nil)
	}
	doc, err := e.document(ctx, docID, stageID)
	if err != nil {
		return "", err
	}
	// Only the stage the session belongs to is executing; siblings resolve
	// from the status alone.
	sess := e.tracker.Get(docID)
	return workflow.Resolve(doc.Status, stage, sess != nil && sess.StageID == stageID), nil
}

// StageStates resolves every stage in catalog order for a document.
func (e *Engine) StageStates(ctx context.Context, docID int64) ([]StageInfo, error) {
	doc, err := e.document(ctx, docID, "")
	if err != nil {
		return nil, err
	}
	hasSession := e.tracker.Get(docID) != nil
	activeStage := ""
	if sess := e.tracker.Get(docID); sess != nil {
		activeStage = sess.StageID
	}

	infos := make([]StageInfo, 0, len(workflow.Stages()))
	for _, stage := range workflow.Stages() {
		// Only the stage that owns the session shows executing; the rest
		// resolve against the unchanged status.
		sessionHere := hasSession && stage.ID == activeStage
		infos = append(infos, StageInfo{
			ID:    stage.ID,
			Label: stage.Label,
			State: workflow.Resolve(doc.Status, stage, sessionHere),
		})
	}
	return infos, nil
}

// Execute runs a stage for a document: it verifies availability, reserves
// the session slot, then requests the external agent process. On spawn
// failure the reservation is released, the status is untouched, and the
// error is returned with the spawn message intact. Retry is simply calling
// Execute again.
func (e *Engine) Execute(ctx context.Context, docID int64, stageID string) (*session.Session, error) {
	stage, ok := workflow.StageByID(stageID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, stageID, "execute", "unknown stage", nil)
	}

	// Read, resolve, and reserve under the commit lock so eligibility is
	// judged against the status no concurrent commit can move; the spawn
	// itself happens outside the lock.
	e.mu.Lock()
	doc, err := e.document(ctx, docID, stageID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	state := workflow.Resolve(doc.Status, stage, e.tracker.Get(docID) != nil)
	switch state {
	case workflow.StateExecuting:
		e.mu.Unlock()
		return nil, services.Wrap(services.ErrAlreadyExecuting, stageID, "execute", "", nil)
	case workflow.StateAvailable:
	default:
		e.mu.Unlock()
		return nil, services.Wrap(services.ErrStageLocked, stageID, "execute",
			fmt.Sprintf("status %s does not admit stage", doc.Status), nil)
	}

	sess, err := e.tracker.Start(docID, stageID, nil)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	proc, err := e.launcher.Launch(ctx, agent.Request{
		DocumentID: docID,
		StageID:    stageID,
		Title:      doc.Title,
		Workdir:    e.workdir,
	})
	if err != nil {
		e.tracker.End(docID)
		e.logger.Warn("agent spawn failed",
			logging.Int64(logging.FieldDocID, docID),
			logging.String(logging.FieldStage, stageID),
			logging.String(logging.FieldEventType, "spawn_failed"),
			logging.String(logging.FieldErrorHint, "retry the stage once the agent binary is reachable"),
			logging.Error(err))
		return nil, err
	}

	e.tracker.Attach(docID, proc)

	// Route an agent exit that bypassed markDone to cancel; guard on the
	// session id so a later session for the same document is untouched.
	sessionID := sess.ID
	proc.OnExit(func(exitCode int) {
		e.cancelSession(docID, sessionID, exitCode)
	})

	e.logger.Info("stage started",
		logging.Int64(logging.FieldDocID, docID),
		logging.String(logging.FieldStage, stageID),
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("pid", proc.PID()))

	e.observers.notify(Event{DocumentID: docID, Kind: EventSessionStarted, StageID: stageID, Status: doc.Status})
	return sess, nil
}

// MarkDone completes the active session's stage: the transition table yields
// the next status, and the status write plus session clear commit as a
// single observable unit. An undefined transition fails without touching
// either.
func (e *Engine) MarkDone(ctx context.Context, docID int64) (prd.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.tracker.Get(docID)
	if sess == nil {
		e.logger.Warn("mark done without session",
			logging.Int64(logging.FieldDocID, docID),
			logging.String(logging.FieldEventType, "markdone_no_session"),
			logging.String(logging.FieldErrorHint, "the UI should only offer mark-done while executing"))
		return "", services.Wrap(services.ErrNoActiveSession, "", "mark done", "", nil)
	}

	doc, err := e.document(ctx, docID, sess.StageID)
	if err != nil {
		return "", err
	}

	next, defined := workflow.NextStatus(sess.StageID, doc.Status)
	if !defined {
		e.logger.Warn("no transition defined",
			logging.Int64(logging.FieldDocID, docID),
			logging.String(logging.FieldStage, sess.StageID),
			logging.String("status", string(doc.Status)),
			logging.String(logging.FieldEventType, "markdone_no_transition"),
			logging.String(logging.FieldErrorHint, "check the stage catalog against the document status"))
		return "", services.Wrap(services.ErrNoTransition, sess.StageID, "mark done",
			fmt.Sprintf("status %s", doc.Status), nil)
	}

	if next != doc.Status {
		if err := e.store.SetStatus(ctx, docID, next); err != nil {
			return "", fmt.Errorf("commit transition: %w", err)
		}
	}
	e.tracker.End(docID)

	e.logger.Info("stage completed",
		logging.Int64(logging.FieldDocID, docID),
		logging.String(logging.FieldStage, sess.StageID),
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(next)))

	e.observers.notify(Event{DocumentID: docID, Kind: EventStageCompleted, StageID: sess.StageID, Status: next})
	return next, nil
}

// Cancel clears the document's session with no status change, killing the
// agent process if it is still alive. Absent sessions are a no-op.
func (e *Engine) Cancel(ctx context.Context, docID int64) {
	e.mu.Lock()
	sess := e.tracker.End(docID)
	e.mu.Unlock()
	if sess == nil {
		return
	}
	e.reapSession(sess, "cancel requested")
}

// cancelSession is the process-exit path: it clears the session only when it
// is still the one the exited process belonged to.
func (e *Engine) cancelSession(docID int64, sessionID string, exitCode int) {
	e.mu.Lock()
	current := e.tracker.Get(docID)
	if current == nil || current.ID != sessionID {
		e.mu.Unlock()
		return
	}
	e.tracker.End(docID)
	e.mu.Unlock()

	e.logger.Info("agent exited without mark done",
		logging.Int64(logging.FieldDocID, docID),
		logging.String(logging.FieldStage, current.StageID),
		logging.String(logging.FieldEventType, "session_reaped"),
		logging.Int("exit_code", exitCode))

	e.observers.notify(Event{DocumentID: docID, Kind: EventSessionEnded, StageID: current.StageID})
}

// Reset force-clears every session with no status side effects. Used for
// environment reset.
func (e *Engine) Reset(ctx context.Context) int {
	e.mu.Lock()
	cleared := e.tracker.Clear()
	e.mu.Unlock()

	for _, sess := range cleared {
		e.reapSession(sess, "environment reset")
	}
	return len(cleared)
}

// OverrideStatus is the administrative escape hatch around the transition
// table. It still refuses while a session is active so the tracker and
// status never disagree about what the document is doing.
func (e *Engine) OverrideStatus(ctx context.Context, docID int64, status prd.Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker.Get(docID) != nil {
		return services.Wrap(services.ErrAlreadyExecuting, "", "override status", "cancel the session first", nil)
	}
	if err := e.store.SetStatus(ctx, docID, status); err != nil {
		return err
	}

	e.logger.Info("status overridden",
		logging.Int64(logging.FieldDocID, docID),
		logging.String(logging.FieldEventType, "status_override"),
		logging.String("status", string(status)))

	e.observers.notify(Event{DocumentID: docID, Kind: EventStatusOverridden, Status: status})
	return nil
}

// Archive marks a document archived. Refused while a session is active.
func (e *Engine) Archive(ctx context.Context, docID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker.Get(docID) != nil {
		return services.Wrap(services.ErrAlreadyExecuting, "", "archive", "cancel the session first", nil)
	}
	if err := e.store.Archive(ctx, docID); err != nil {
		return err
	}
	e.observers.notify(Event{DocumentID: docID, Kind: EventStatusOverridden, Status: prd.StatusArchived})
	return nil
}

// Subscribe registers a listener for a document's committed mutations. The
// returned func unsubscribes; listeners fire synchronously after each commit.
// A nil listener registers nothing and yields a no-op unsubscribe.
func (e *Engine) Subscribe(docID int64, listener Listener) func() {
	return e.observers.subscribe(docID, listener)
}

// Sessions returns the active sessions ordered by document id.
func (e *Engine) Sessions() []*session.Session {
	return e.tracker.Active()
}

func (e *Engine) reapSession(sess *session.Session, reason string) {
	if sess.Handle != nil {
		if err := sess.Handle.Kill(); err != nil {
			e.logger.Warn("failed to kill agent process",
				logging.Int64(logging.FieldDocID, sess.DocumentID),
				logging.String(logging.FieldStage, sess.StageID),
				logging.String(logging.FieldEventType, "session_kill_failed"),
				logging.String(logging.FieldErrorHint, "the agent process may need manual cleanup"),
				logging.Error(err))
		}
	}

	e.logger.Info("session ended",
		logging.Int64(logging.FieldDocID, sess.DocumentID),
		logging.String(logging.FieldStage, sess.StageID),
		logging.String(logging.FieldEventType, "session_ended"),
		logging.String("reason", reason))

	e.observers.notify(Event{DocumentID: sess.DocumentID, Kind: EventSessionEnded, StageID: sess.StageID})
}

func (e *Engine) document(ctx context.Context, docID int64, stage string) (*prd.Document, error) {
	doc, err := e.store.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, stage, "load document", fmt.Sprintf("document %d", docID), nil)
	}
	return doc, nil
}
