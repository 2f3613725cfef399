package generic

import "time"

// =============================================================================
// APPROVAL RECORD - One per subject per period
// =============================================================================

// RecordKey identifies an approval record.
type RecordKey struct {
	SubjectID SubjectID
	Period    Period
}

func (k RecordKey) String() string { return string(k.SubjectID) + "@" + k.Period.String() }

// ApprovalRecord holds the current status of every category for one subject
// and one period, plus the period's total active hours.
//
// Records are created lazily with every category at its NoInput code and
// change only through approval.ApplyTransition.
type ApprovalRecord struct {
	SubjectID   SubjectID
	Period      Period
	Statuses    map[Category]Status
	TotalActive Hours
	UpdatedAt   time.Time
}

// NewApprovalRecord returns the default record for a subject and period.
func NewApprovalRecord(subjectID SubjectID, period Period) ApprovalRecord {
	statuses := make(map[Category]Status, len(vocabularies))
	for c := range vocabularies {
		statuses[c] = c.StatusFor(StageNoInput)
	}
	return ApprovalRecord{SubjectID: subjectID, Period: period, Statuses: statuses}
}

func (r ApprovalRecord) Key() RecordKey { return RecordKey{SubjectID: r.SubjectID, Period: r.Period} }

// Status returns the category's current code. Categories missing from the
// map (older rows) read as NoInput.
func (r ApprovalRecord) Status(c Category) Status {
	if s, ok := r.Statuses[c]; ok && s != "" {
		return s
	}
	return c.StatusFor(StageNoInput)
}

// Stage returns the category's current stage.
func (r ApprovalRecord) Stage(c Category) (Stage, bool) {
	return c.StageOf(r.Status(c))
}

// Clone returns a deep copy; the status map is not shared.
func (r ApprovalRecord) Clone() ApprovalRecord {
	out := r
	out.Statuses = make(map[Category]Status, len(r.Statuses))
	for c, s := range r.Statuses {
		out.Statuses[c] = s
	}
	return out
}

// =============================================================================
// TRANSITION EVENT - Audit trail of applied status changes
// =============================================================================

type TransitionEvent struct {
	ID        string
	SubjectID SubjectID
	Period    Period
	Category  Category
	From      Status
	To        Status
	ActorID   string
	Bulk      bool
	At        time.Time
}
