/*
status.go - Approval categories and their closed status enumerations

PURPOSE:
  Every approval record tracks one status per category. Each category has
  its own closed set of status codes, but all of them share the same six
  stages, so a single transition table (approval/machine.go) serves
  every category.

CATEGORIES AND CODES:
  ┌───────────────┬──────────┬────────────────┬───────────┬────────────────┬─────────────────┬────────────┐
  │ category      │ NoInput  │ SaveTemporary  │ Submitted │ FirstApproval  │ FinalApproval   │ Rejected   │
  ├───────────────┼──────────┼────────────────┼───────────┼────────────────┼─────────────────┼────────────┤
  │ attendance    │ no_input │ save_temporary │ submitted │ first_approval │ second_approval │ rejected   │
  │ settlement    │ no_input │ save_temporary │ submitted │ first_approval │ approved        │ unapproved │
  │ reimbursement │ no_input │ save_temporary │ submitted │ first_approval │ approved        │ unapproved │
  │ daily_report  │ no_input │ save_temporary │ submitted │ first_approval │ second_approval │ rejected   │
  │ cover_section │ no_input │ save_temporary │ submitted │ first_approval │ second_approval │ rejected   │
  └───────────────┴──────────┴────────────────┴───────────┴────────────────┴─────────────────┴────────────┘

  A code outside a category's row is rejected at parse time, so a stored
  "approved" can never appear on an attendance record.

SEE ALSO:
  - record.go: ApprovalRecord holds one Status per Category
  - approval/machine.go: predecessor sets keyed by target Stage
*/
package generic

import (
	"fmt"
	"sort"
)

// =============================================================================
// CATEGORY
// =============================================================================

type Category string

const (
	CategoryAttendance    Category = "attendance"
	CategorySettlement    Category = "settlement"
	CategoryReimbursement Category = "reimbursement"
	CategoryDailyReport   Category = "daily_report"
	CategoryCoverSection  Category = "cover_section"
)

// =============================================================================
// STAGE - The shared transition shape
// =============================================================================

type Stage int

const (
	StageNoInput Stage = iota
	StageSaveTemporary
	StageSubmitted
	StageFirstApproval
	StageFinalApproval
	StageRejected

	stageCount
)

var stageNames = [stageCount]string{
	"no_input", "save_temporary", "submitted", "first_approval", "final_approval", "rejected",
}

func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages returns every stage in lifecycle order.
func Stages() []Stage {
	out := make([]Stage, stageCount)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

// =============================================================================
// STATUS - Per-category status code
// =============================================================================

type Status string

const (
	StatusNoInput        Status = "no_input"
	StatusSaveTemporary  Status = "save_temporary"
	StatusSubmitted      Status = "submitted"
	StatusFirstApproval  Status = "first_approval"
	StatusSecondApproval Status = "second_approval"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusUnapproved     Status = "unapproved"
)

// Vocabulary maps each stage to the category's status code.
type Vocabulary [stageCount]Status

var (
	reviewVocabulary = Vocabulary{
		StatusNoInput, StatusSaveTemporary, StatusSubmitted,
		StatusFirstApproval, StatusSecondApproval, StatusRejected,
	}
	expenseVocabulary = Vocabulary{
		StatusNoInput, StatusSaveTemporary, StatusSubmitted,
		StatusFirstApproval, StatusApproved, StatusUnapproved,
	}

	vocabularies = map[Category]Vocabulary{
		CategoryAttendance:    reviewVocabulary,
		CategorySettlement:    expenseVocabulary,
		CategoryReimbursement: expenseVocabulary,
		CategoryDailyReport:   reviewVocabulary,
		CategoryCoverSection:  reviewVocabulary,
	}
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := vocabularies[c]
	return ok
}

// AppliesTo reports whether subjects of kind own this category's records.
// Daily reports are filed per room; everything else per employee.
func (c Category) AppliesTo(kind SubjectKind) bool {
	if c == CategoryDailyReport {
		return kind == SubjectRoom
	}
	return kind != SubjectRoom
}

// StatusFor returns the category's code for a stage.
func (c Category) StatusFor(stage Stage) Status {
	return vocabularies[c][stage]
}

// StageOf returns the stage a status code represents in this category.
func (c Category) StageOf(status Status) (Stage, bool) {
	vocab, ok := vocabularies[c]
	if !ok {
		return 0, false
	}
	for i, code := range vocab {
		if code == status {
			return Stage(i), true
		}
	}
	return 0, false
}

// ParseStatus validates a status code against the category's enumeration.
func (c Category) ParseStatus(s string) (Status, error) {
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
	if _, ok := c.StageOf(Status(s)); !ok {
		return "", &InvalidStatusError{Category: c, Status: Status(s)}
	}
	return Status(s), nil
}

// Statuses lists the category's codes in stage order.
func (c Category) Statuses() []Status {
	vocab := vocabularies[c]
	return append([]Status(nil), vocab[:]...)
}

// =============================================================================
// CATEGORY LOOKUP
// =============================================================================

// ParseCategory finds a category by its code.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// MustCategory parses s or panics. Use in tests and static tables only.
func MustCategory(s string) Category {
	c, err := ParseCategory(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Categories returns every category, sorted by code.
func Categories() []Category {
	out := make([]Category, 0, len(vocabularies))
	for c := range vocabularies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
