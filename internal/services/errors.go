package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStageLocked indicates a stage was invoked while the document status
	// does not admit it.
	ErrStageLocked = errors.New("stage locked")
	// ErrAlreadyExecuting indicates a session already exists for the document.
	ErrAlreadyExecuting = errors.New("already executing")
	// ErrAgentSpawn indicates the external agent process failed to start.
	// Non-fatal: the document remains available and may be retried immediately.
	ErrAgentSpawn = errors.New("agent spawn failed")
	// ErrNoActiveSession indicates a completion call arrived with no session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrNoTransition indicates the transition table has no entry for the
	// stage at the document's current status.
	ErrNoTransition = errors.New("no transition defined")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether the error leaves the engine in a state where
// the same call may simply be retried. Spawn failures leave no residual
// session, so they are always recoverable.
func Recoverable(err error) bool {
	return err == nil || errors.Is(err, ErrAgentSpawn)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
