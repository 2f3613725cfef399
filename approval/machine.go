/*
Package approval implements the multi-stage approval state machine.

PURPOSE:
  Every approval record holds one status per category. A status moves only
  along the allow-list below, keyed by the TARGET stage. The guard runs
  before the mutation; a rejected transition leaves the record untouched.

TRANSITIONS (target ← accepted current stages):
  ┌────────────────┬──────────────────────────────────────────┐
  │ SaveTemporary  │ NoInput, SaveTemporary, Rejected         │
  │ Submitted      │ NoInput, SaveTemporary, Rejected         │
  │ FirstApproval  │ Submitted                                │
  │ FinalApproval  │ FirstApproval                            │
  │ Rejected       │ Submitted, FirstApproval, FinalApproval  │
  └────────────────┴──────────────────────────────────────────┘

  NoInput is never a target. FinalApproval is terminal for the period
  until a rejection reopens it.

BULK:
  A bulk transition picks, from the candidate records, those whose period
  overlaps the date range and whose current status is an accepted
  predecessor. Records already at the target are not predecessors of it
  (except SaveTemporary), so running the same bulk twice updates N records
  and then 0.

FREEZE:
  A period whose attendance reached FinalApproval is frozen: its raw
  entries are read-only until the attendance is rejected. The record itself
  carries no flag; IsFrozen derives it and Service.SaveEntry enforces it.

SEE ALSO:
  - generic/status.go: per-category status codes over the shared stages
  - service.go: persistence, audit and notification around these rules
*/
package approval

import (
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// PREDECESSOR MAP
// =============================================================================

var predecessors = map[generic.Stage][]generic.Stage{
	generic.StageSaveTemporary: {generic.StageNoInput, generic.StageSaveTemporary, generic.StageRejected},
	generic.StageSubmitted:     {generic.StageNoInput, generic.StageSaveTemporary, generic.StageRejected},
	generic.StageFirstApproval: {generic.StageSubmitted},
	generic.StageFinalApproval: {generic.StageFirstApproval},
	generic.StageRejected:      {generic.StageSubmitted, generic.StageFirstApproval, generic.StageFinalApproval},
}

// Predecessors returns the stages from which target may be reached.
func Predecessors(target generic.Stage) []generic.Stage {
	return append([]generic.Stage(nil), predecessors[target]...)
}

// CanTransition reports whether current may move to target.
func CanTransition(current, target generic.Stage) bool {
	for _, p := range predecessors[target] {
		if p == current {
			return true
		}
	}
	return false
}

// =============================================================================
// SINGLE TRANSITION
// =============================================================================

// ApplyTransition moves the record's category to target. It returns the
// updated copy; the input record is never modified. Only the category's
// status changes.
func ApplyTransition(record generic.ApprovalRecord, category generic.Category, target generic.Status) (generic.ApprovalRecord, error) {
	targetStage, err := parseTarget(category, target)
	if err != nil {
		return record, err
	}

	current := record.Status(category)
	currentStage, ok := category.StageOf(current)
	if !ok || !CanTransition(currentStage, targetStage) {
		return record, &generic.InvalidTransitionError{
			Key:      record.Key(),
			Category: category,
			Current:  current,
			Target:   target,
		}
	}

	updated := record.Clone()
	updated.Statuses[category] = target
	return updated, nil
}

func parseTarget(category generic.Category, target generic.Status) (generic.Stage, error) {
	if _, err := category.ParseStatus(string(target)); err != nil {
		return 0, err
	}
	stage, _ := category.StageOf(target)
	return stage, nil
}

// IsFrozen reports whether the record's period no longer accepts raw entry
// writes.
func IsFrozen(record generic.ApprovalRecord) bool {
	stage, ok := record.Stage(generic.CategoryAttendance)
	return ok && stage == generic.StageFinalApproval
}

// =============================================================================
// BULK TRANSITION
// =============================================================================

// SelectEligible returns the records within dateRange whose current status
// for category may move to target.
func SelectEligible(records []generic.ApprovalRecord, category generic.Category, dateRange generic.DateRange, target generic.Status) ([]generic.ApprovalRecord, error) {
	targetStage, err := parseTarget(category, target)
	if err != nil {
		return nil, err
	}

	var eligible []generic.ApprovalRecord
	for _, r := range records {
		if !dateRange.Overlaps(r.Period) {
			continue
		}
		stage, ok := r.Stage(category)
		if ok && CanTransition(stage, targetStage) {
			eligible = append(eligible, r)
		}
	}
	return eligible, nil
}

// ApplyBulk applies target to every eligible record and returns the updated
// copies. Ineligible records are skipped, not reported as errors.
func ApplyBulk(records []generic.ApprovalRecord, category generic.Category, dateRange generic.DateRange, target generic.Status) ([]generic.ApprovalRecord, error) {
	eligible, err := SelectEligible(records, category, dateRange, target)
	if err != nil {
		return nil, err
	}

	updated := make([]generic.ApprovalRecord, 0, len(eligible))
	for _, r := range eligible {
		next, err := ApplyTransition(r, category, target)
		if err != nil {
			return nil, err
		}
		updated = append(updated, next)
	}
	return updated, nil
}
