package workflow

import (
	"loom/internal/prd"
)

// StageState is the derived visibility of a stage for a document. It is
// recomputed on demand from (status, session presence) and never stored.
type StageState string

const (
	// StateLocked means the document status does not admit the stage.
	StateLocked StageState = "locked"
	// StateAvailable means the stage may be executed now.
	StateAvailable StageState = "available"
	// StateExecuting means a session is running for the document.
	StateExecuting StageState = "executing"
	// StateCompleted means the document has advanced past the stage.
	StateCompleted StageState = "completed"
)

// Resolve computes a stage's visible state. Pure and total: identical inputs
// always yield identical output.
//
// Evaluation order matters. An active session takes precedence over
// everything; then the membership test against RequiredStatus; then the
// ordinal completion test. A stage whose RequiredStatus contains the current
// status is Available even when the ordinal comparison alone would call it
// completed; membership and ordinal logic are never conflated.
func Resolve(status prd.Status, stage StageDef, hasSession bool) StageState {
	if hasSession {
		return StateExecuting
	}
	if stage.Requires(status) {
		return StateAvailable
	}
	if status.Ordinal() > stage.maxRequiredOrdinal() {
		return StateCompleted
	}
	return StateLocked
}
