package engine

import (
	"sync"

	"loom/internal/prd"
)

// EventKind classifies a committed engine mutation.
type EventKind string

const (
	// EventSessionStarted fires after a session is registered for a stage.
	EventSessionStarted EventKind = "session_started"
	// EventStageCompleted fires after markDone commits a status and clears
	// the session as one unit.
	EventStageCompleted EventKind = "stage_completed"
	// EventSessionEnded fires after a session is cleared with no status
	// change (cancel or bulk reset).
	EventSessionEnded EventKind = "session_ended"
	// EventStatusOverridden fires after an administrative status write.
	EventStatusOverridden EventKind = "status_overridden"
)

// Event describes one committed mutation for a document.
type Event struct {
	DocumentID int64
	Kind       EventKind
	StageID    string
	Status     prd.Status
}

// Listener receives engine events. Listeners run synchronously on the
// mutating goroutine; they must not call back into the engine.
type Listener func(Event)

// observerRegistry implements subscribe with unsubscribe tokens. It is
// deliberately framework-free so the engine contract stays observable in
// isolation.
type observerRegistry struct {
	mu        sync.Mutex
	nextToken int
	byDoc     map[int64]map[int]Listener
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{byDoc: make(map[int64]map[int]Listener)}
}

func (r *observerRegistry) subscribe(docID int64, listener Listener) func() {
	if listener == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextToken++
	token := r.nextToken
	listeners, ok := r.byDoc[docID]
	if !ok {
		listeners = make(map[int]Listener)
		r.byDoc[docID] = listeners
	}
	listeners[token] = listener
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if listeners, ok := r.byDoc[docID]; ok {
			delete(listeners, token)
			if len(listeners) == 0 {
				delete(r.byDoc, docID)
			}
		}
	}
}

func (r *observerRegistry) notify(event Event) {
	r.mu.Lock()
	listeners := make([]Listener, 0, len(r.byDoc[event.DocumentID]))
	for _, listener := range r.byDoc[event.DocumentID] {
		listeners = append(listeners, listener)
	}
	r.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}
