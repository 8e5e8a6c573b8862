package workflow_test

import (
	"testing"

	"loom/internal/prd"
	"loom/internal/workflow"
)

func TestNextStatusTable(t *testing.T) {
	cases := []struct {
		stage   string
		current prd.Status
		want    prd.Status
		defined bool
	}{
		{workflow.StagePlanFeature, prd.StatusDraft, prd.StatusInReview, true},
		{workflow.StagePlan, prd.StatusInReview, prd.StatusApproved, true},
		{workflow.StageExecute, prd.StatusApproved, prd.StatusInProgress, true},
		{workflow.StageExecute, prd.StatusInProgress, prd.StatusInProgress, true},
		{workflow.StageValidate, prd.StatusInProgress, prd.StatusComplete, true},
		{workflow.StageReview, prd.StatusInProgress, prd.StatusInProgress, true},
		{workflow.StagePlanFeature, prd.StatusApproved, prd.StatusApproved, false},
		{workflow.StageValidate, prd.StatusDraft, prd.StatusDraft, false},
	}
	for _, tc := range cases {
		got, defined := workflow.NextStatus(tc.stage, tc.current)
		if defined != tc.defined || got != tc.want {
			t.Fatalf("NextStatus(%s, %s) = (%s, %v), want (%s, %v)",
				tc.stage, tc.current, got, defined, tc.want, tc.defined)
		}
	}
}

func TestNextStatusNeverRegresses(t *testing.T) {
	for _, stage := range workflow.Stages() {
		for _, status := range prd.AllStatuses() {
			next, defined := workflow.NextStatus(stage.ID, status)
			if !defined {
				continue
			}
			if next.Before(status) {
				t.Fatalf("transition %s@%s regresses to %s", stage.ID, status, next)
			}
		}
	}
}
