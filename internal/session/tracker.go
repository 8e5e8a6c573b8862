package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"loom/internal/services"
)

// Handle identifies the external process bound to a session and exposes the
// kill used during bulk clears. The agent package provides the concrete type.
type Handle interface {
	PID() int
	Kill() error
}

// Session binds a document to a running external process for one stage.
// Sessions are process-local and never persisted: a daemon restart clears
// them all.
type Session struct {
	ID         string
	DocumentID int64
	StageID    string
	Handle     Handle
	StartedAt  time.Time
}

// Tracker owns the map from document id to its single active session. It is
// the sole authority on "is this document currently executing". All mutation
// is serialized under one mutex so a racing second start observes the
// rejection synchronously, never a half-completed first start.
type Tracker struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Start registers a session for the document. It fails with
// services.ErrAlreadyExecuting when one exists, regardless of stage.
func (t *Tracker) Start(docID int64, stageID string, handle Handle) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.sessions[docID]; ok {
		return nil, services.Wrap(services.ErrAlreadyExecuting, existing.StageID, "start session", "", nil)
	}

	sess := &Session{
		ID:         uuid.NewString(),
		DocumentID: docID,
		StageID:    stageID,
		Handle:     handle,
		StartedAt:  t.now().UTC(),
	}
	t.sessions[docID] = sess
	return sess, nil
}

// Attach binds the process handle to the reserved session. The engine
// reserves the slot before the spawn request goes out, so the handle arrives
// after registration. Returns false when the session is gone.
func (t *Tracker) Attach(docID int64, handle Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[docID]
	if !ok {
		return false
	}
	sess.Handle = handle
	return true
}

// End removes the session for the document. Idempotent: ending an absent
// session is a no-op, not an error. Returns the removed session, if any.
func (t *Tracker) End(docID int64) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[docID]
	if !ok {
		return nil
	}
	delete(t.sessions, docID)
	return sess
}

// Get returns the active session for the document, or nil.
func (t *Tracker) Get(docID int64) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[docID]
}

// Active returns all active sessions ordered by document id.
func (t *Tracker) Active() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Session, 0, len(t.sessions))
	for _, sess := range t.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

// Clear force-removes every session and returns them. Used for environment
// reset; callers decide whether to kill the underlying processes.
func (t *Tracker) Clear() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Session, 0, len(t.sessions))
	for _, sess := range t.sessions {
		out = append(out, sess)
	}
	t.sessions = make(map[int64]*Session)
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

// Len reports the number of active sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
