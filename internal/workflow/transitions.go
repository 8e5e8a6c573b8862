package workflow

import (
	"loom/internal/prd"
)

type transitionKey struct {
	stage  string
	status prd.Status
}

// statusTransitions maps (stage, current status) to the status committed when
// the stage is marked done. Absent entries are a legal no-transition outcome,
// not an error in the table. The execute re-entry and the advisory review row
// are deliberate no-ops.
var statusTransitions = map[transitionKey]prd.Status{
	{StagePlanFeature, prd.StatusDraft}:    prd.StatusInReview,
	{StagePlan, prd.StatusInReview}:        prd.StatusApproved,
	{StageExecute, prd.StatusApproved}:     prd.StatusInProgress,
	{StageExecute, prd.StatusInProgress}:   prd.StatusInProgress,
	{StageValidate, prd.StatusInProgress}:  prd.StatusComplete,
	{StageReview, prd.StatusInProgress}:    prd.StatusInProgress,
}

// NextStatus resolves the committed status for marking the stage done at the
// given current status. The second return is false when the table has no
// entry. A target that would regress the status ordinal collapses to the
// current status: completions must never move a document backward.
func NextStatus(stageID string, current prd.Status) (prd.Status, bool) {
	next, ok := statusTransitions[transitionKey{stage: stageID, status: current}]
	if !ok {
		return current, false
	}
	if next.Before(current) {
		return current, true
	}
	return next, true
}
