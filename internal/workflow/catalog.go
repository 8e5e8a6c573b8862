package workflow

import (
	"loom/internal/prd"
)

// StageDef describes one node in the development lifecycle graph. Membership
// in RequiredStatus, not ordinal comparison, determines eligibility: a stage
// may legally re-enter for more than one status value.
type StageDef struct {
	ID             string
	Label          string
	RequiredStatus []prd.Status
	Planning       bool
}

// Requires reports whether the stage is invocable at the given status.
func (d StageDef) Requires(status prd.Status) bool {
	for _, s := range d.RequiredStatus {
		if s == status {
			return true
		}
	}
	return false
}

// maxRequiredOrdinal is the highest ordinal among the stage's required
// statuses, used by the completion test.
func (d StageDef) maxRequiredOrdinal() int {
	max := -1
	for _, s := range d.RequiredStatus {
		if ord := s.Ordinal(); ord > max {
			max = ord
		}
	}
	return max
}

// Stage ids in catalog order.
const (
	StagePlanFeature = "plan-feature"
	StagePlan        = "plan"
	StageExecute     = "execute"
	StageReview      = "review"
	StageValidate    = "validate"
)

var catalog = []StageDef{
	{
		ID:             StagePlanFeature,
		Label:          "Plan Feature",
		RequiredStatus: []prd.Status{prd.StatusDraft},
		Planning:       true,
	},
	{
		ID:             StagePlan,
		Label:          "Plan",
		RequiredStatus: []prd.Status{prd.StatusInReview},
		Planning:       true,
	},
	{
		ID:             StageExecute,
		Label:          "Execute",
		RequiredStatus: []prd.Status{prd.StatusApproved, prd.StatusInProgress},
	},
	{
		ID:             StageReview,
		Label:          "Review",
		RequiredStatus: []prd.Status{prd.StatusInProgress},
	},
	{
		ID:             StageValidate,
		Label:          "Validate",
		RequiredStatus: []prd.Status{prd.StatusInProgress},
	},
}

var catalogByID = func() map[string]StageDef {
	byID := make(map[string]StageDef, len(catalog))
	for _, def := range catalog {
		byID[def.ID] = def
	}
	return byID
}()

// Stages returns every stage definition in catalog order.
func Stages() []StageDef {
	out := make([]StageDef, len(catalog))
	copy(out, catalog)
	return out
}

// StageByID looks up a stage definition.
func StageByID(id string) (StageDef, bool) {
	def, ok := catalogByID[id]
	return def, ok
}
