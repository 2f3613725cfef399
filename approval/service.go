package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/worktime"
)

// Notifier delivers best-effort messages; *notify.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, identifiers []string, text string) notify.Report
}

// =============================================================================
// SERVICE - Transitions against the persistence gateway
// =============================================================================

// Service applies the state machine to stored records. Status writes and
// their audit events commit in one transaction; notifications go out after
// the commit.
type Service struct {
	store    generic.TxStore
	engine   *worktime.Engine
	notifier Notifier
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. notifier may be nil, in which case notify
// requests are ignored.
func NewService(store generic.TxStore, engine *worktime.Engine, notifier Notifier, log zerolog.Logger) *Service {
	if engine == nil {
		engine = worktime.Default
	}
	return &Service{
		store:    store,
		engine:   engine,
		notifier: notifier,
		log:      log.With().Str("component", "approval").Logger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Engine returns the time engine used for totals.
func (s *Service) Engine() *worktime.Engine { return s.engine }

// =============================================================================
// SINGLE TRANSITION
// =============================================================================

type TransitionRequest struct {
	SubjectID generic.SubjectID
	Period    generic.Period
	Category  generic.Category
	Target    generic.Status
	ActorID   string

	// Notify sends Message (or the default status message) to the subject.
	Notify  bool
	Message string
}

// Transition loads (or lazily creates) the record, applies the transition
// and persists it with an audit event. The subject must exist and own the
// category. An attendance transition also refreshes the record's
// TotalActive from the period's entries.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (generic.ApprovalRecord, error) {
	var updated generic.ApprovalRecord
	var event generic.TransitionEvent

	err := s.store.WithTx(ctx, func(tx generic.Store) error {
		if err := owner(ctx, tx, req.SubjectID, req.Category); err != nil {
			return err
		}
		record, err := tx.LoadApprovalRecord(ctx, req.SubjectID, req.Period)
		if err != nil {
			return err
		}

		next, err := ApplyTransition(record, req.Category, req.Target)
		if err != nil {
			return err
		}
		if err := s.stamp(ctx, tx, &next, req.Category); err != nil {
			return err
		}

		event = s.event(record, next, req.Category, req.ActorID, false)
		if err := tx.WriteApprovalRecord(ctx, next); err != nil {
			return err
		}
		if err := tx.AppendTransitions(ctx, []generic.TransitionEvent{event}); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return generic.ApprovalRecord{}, err
	}

	s.log.Info().
		Str("subject_id", string(req.SubjectID)).
		Str("period", req.Period.String()).
		Str("category", string(req.Category)).
		Str("from", string(event.From)).
		Str("to", string(event.To)).
		Str("actor", req.ActorID).
		Msg("Status transition applied")

	if req.Notify {
		text := req.Message
		if text == "" {
			text = notify.StatusMessage(req.Category, req.Period, req.Target)
		}
		s.dispatch(ctx, []string{string(req.SubjectID)}, text)
	}
	return updated, nil
}

// =============================================================================
// BULK TRANSITION
// =============================================================================

type BulkRequest struct {
	Category generic.Category
	Range    generic.DateRange
	Target   generic.Status
	ActorID  string

	// Records are the caller's candidates. When nil, candidates are the
	// records of SubjectIDs (every subject owning the category when empty)
	// for each period the range touches, created lazily. The range may
	// touch at most generic.MaxRangePeriods periods.
	Records    []generic.ApprovalRecord
	SubjectIDs []generic.SubjectID

	// Notify sends Message (or the default status message) after commit to
	// Recipients, or to the updated subjects when Recipients is empty.
	Notify     bool
	Recipients []string
	Message    string
}

type BulkResult struct {
	UpdatedCount int                 `json:"updated_count"`
	Updated      []generic.RecordKey `json:"-"`
	Notification *notify.Report      `json:"-"`
}

// BulkTransition applies one target status to every eligible candidate as
// a single atomic write. Ineligible candidates are left untouched, so
// repeating a bulk transition updates nothing the second time.
func (s *Service) BulkTransition(ctx context.Context, req BulkRequest) (BulkResult, error) {
	if _, err := parseTarget(req.Category, req.Target); err != nil {
		return BulkResult{}, err
	}
	if err := req.Range.CheckSpan(generic.MaxRangePeriods); err != nil {
		return BulkResult{}, err
	}

	var result BulkResult
	err := s.store.WithTx(ctx, func(tx generic.Store) error {
		candidates := req.Records
		if candidates == nil {
			var err error
			if candidates, err = s.candidates(ctx, tx, req); err != nil {
				return err
			}
		}

		updated, err := ApplyBulk(candidates, req.Category, req.Range, req.Target)
		if err != nil {
			return err
		}
		if len(updated) == 0 {
			return nil
		}

		byKey := make(map[generic.RecordKey]generic.ApprovalRecord, len(candidates))
		for _, c := range candidates {
			byKey[c.Key()] = c
		}

		events := make([]generic.TransitionEvent, 0, len(updated))
		for i := range updated {
			if err := s.stamp(ctx, tx, &updated[i], req.Category); err != nil {
				return err
			}
			events = append(events, s.event(byKey[updated[i].Key()], updated[i], req.Category, req.ActorID, true))
		}

		if err := tx.WriteApprovalRecordsBulk(ctx, updated); err != nil {
			return err
		}
		if err := tx.AppendTransitions(ctx, events); err != nil {
			return err
		}

		result.UpdatedCount = len(updated)
		for _, r := range updated {
			result.Updated = append(result.Updated, r.Key())
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	s.log.Info().
		Str("category", string(req.Category)).
		Str("range", req.Range.String()).
		Str("target", string(req.Target)).
		Int("updated", result.UpdatedCount).
		Str("actor", req.ActorID).
		Msg("Bulk transition applied")

	if req.Notify && result.UpdatedCount > 0 {
		recipients := req.Recipients
		if len(recipients) == 0 {
			recipients = subjectIDs(result.Updated)
		}
		text := req.Message
		if text == "" {
			text = notify.StatusMessage(req.Category, bulkPeriod(result.Updated, req.Range), req.Target)
		}
		result.Notification = s.dispatch(ctx, recipients, text)
	}
	return result, nil
}

// candidates loads (lazily creating) the records for every requested
// subject and every period the range touches. Named subjects must exist and
// own the category; without names, subjects of other kinds are skipped.
func (s *Service) candidates(ctx context.Context, tx generic.Store, req BulkRequest) ([]generic.ApprovalRecord, error) {
	ids := req.SubjectIDs
	if len(ids) == 0 {
		subjects, err := tx.ListSubjects(ctx)
		if err != nil {
			return nil, err
		}
		for _, subj := range subjects {
			if req.Category.AppliesTo(subj.Kind) {
				ids = append(ids, subj.ID)
			}
		}
	} else {
		for _, id := range ids {
			if err := owner(ctx, tx, id, req.Category); err != nil {
				return nil, err
			}
		}
	}

	var records []generic.ApprovalRecord
	periods := req.Range.Periods()
	for _, id := range ids {
		for _, p := range periods {
			r, err := tx.LoadApprovalRecord(ctx, id, p)
			if err != nil {
				return nil, err
			}
			records = append(records, r)
		}
	}
	return records, nil
}

// =============================================================================
// ENTRIES & READS
// =============================================================================

// SaveEntry stores a raw entry unless its period is frozen.
func (s *Service) SaveEntry(ctx context.Context, subjectID generic.SubjectID, entry generic.RawEntry) error {
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: entry has no date", generic.ErrInvalidPeriod)
	}
	return s.store.WithTx(ctx, func(tx generic.Store) error {
		if _, err := tx.GetSubject(ctx, subjectID); err != nil {
			return err
		}
		record, err := tx.LoadApprovalRecord(ctx, subjectID, entry.Date.Period())
		if err != nil {
			return err
		}
		if IsFrozen(record) {
			return fmt.Errorf("%w: %s", generic.ErrPeriodLocked, record.Key())
		}
		return tx.SaveEntry(ctx, subjectID, entry)
	})
}

// Record returns the record, creating the default one on first access.
func (s *Service) Record(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		return generic.ApprovalRecord{}, err
	}
	return s.store.LoadApprovalRecord(ctx, subjectID, period)
}

// History returns the record's applied transitions, oldest first.
func (s *Service) History(ctx context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	return s.store.QueryTransitions(ctx, key)
}

// PeriodTimes is a period's computed rows with totals.
type PeriodTimes struct {
	SubjectID generic.SubjectID
	Period    generic.Period
	Rows      []worktime.Row
	Totals    worktime.Totals
	Frozen    bool
}

// PeriodTimes loads the period's entries and runs each through the engine.
func (s *Service) PeriodTimes(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (PeriodTimes, error) {
	entries, err := s.store.LoadEntries(ctx, subjectID, period)
	if err != nil {
		return PeriodTimes{}, err
	}
	record, err := s.Record(ctx, subjectID, period)
	if err != nil {
		return PeriodTimes{}, err
	}
	rows, totals := s.engine.Summarize(entries)
	return PeriodTimes{
		SubjectID: subjectID,
		Period:    period,
		Rows:      rows,
		Totals:    totals,
		Frozen:    IsFrozen(record),
	}, nil
}

// =============================================================================
// REMINDERS
// =============================================================================

// reminderStages are the stages of a period nobody has submitted yet.
var reminderStages = []generic.Stage{generic.StageNoInput, generic.StageSaveTemporary, generic.StageRejected}

// Outstanding returns the subjects whose category for period has not been
// submitted.
func (s *Service) Outstanding(ctx context.Context, category generic.Category, period generic.Period) ([]generic.Subject, error) {
	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}

	var pending []generic.Subject
	for _, subj := range subjects {
		if !category.AppliesTo(subj.Kind) {
			continue
		}
		record, err := s.store.LoadApprovalRecord(ctx, subj.ID, period)
		if err != nil {
			return nil, err
		}
		stage, _ := record.Stage(category)
		for _, st := range reminderStages {
			if stage == st {
				pending = append(pending, subj)
				break
			}
		}
	}
	return pending, nil
}

// RemindOutstanding sends a reminder to every outstanding subject. It
// returns the number of subjects reminded.
func (s *Service) RemindOutstanding(ctx context.Context, category generic.Category, period generic.Period) (int, error) {
	pending, err := s.Outstanding(ctx, category, period)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(pending))
	for _, subj := range pending {
		ids = append(ids, string(subj.ID))
	}
	s.dispatch(ctx, ids, notify.ReminderMessage(category, period))
	return len(pending), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// owner fails unless the subject exists and its kind owns category.
func owner(ctx context.Context, tx generic.Store, id generic.SubjectID, category generic.Category) error {
	subj, err := tx.GetSubject(ctx, id)
	if err != nil {
		return err
	}
	if !category.AppliesTo(subj.Kind) {
		return fmt.Errorf("%w: %s (%s) has no %s records",
			generic.ErrCategoryNotApplicable, id, subj.Kind, category)
	}
	return nil
}

// stamp sets UpdatedAt and, for attendance, refreshes TotalActive.
func (s *Service) stamp(ctx context.Context, tx generic.Store, record *generic.ApprovalRecord, category generic.Category) error {
	record.UpdatedAt = s.now()
	if category != generic.CategoryAttendance {
		return nil
	}
	entries, err := tx.LoadEntries(ctx, record.SubjectID, record.Period)
	if err != nil {
		return err
	}
	record.TotalActive = s.engine.TotalActive(entries)
	return nil
}

func (s *Service) event(before, after generic.ApprovalRecord, category generic.Category, actorID string, bulk bool) generic.TransitionEvent {
	return generic.TransitionEvent{
		ID:        s.newID(),
		SubjectID: after.SubjectID,
		Period:    after.Period,
		Category:  category,
		From:      before.Status(category),
		To:        after.Status(category),
		ActorID:   actorID,
		Bulk:      bulk,
		At:        after.UpdatedAt,
	}
}

func (s *Service) dispatch(ctx context.Context, identifiers []string, text string) *notify.Report {
	if s.notifier == nil {
		s.log.Debug().Msg("Notification requested but no notifier configured")
		return nil
	}
	report := s.notifier.Dispatch(ctx, identifiers, text)
	if !report.OK() {
		s.log.Warn().
			Int("failed", len(report.Failed)).
			AnErr("resolve_error", report.ResolveErr).
			Msg("Some notifications were not delivered")
	}
	return &report
}

func subjectIDs(keys []generic.RecordKey) []string {
	seen := make(map[generic.SubjectID]bool, len(keys))
	var ids []string
	for _, k := range keys {
		if !seen[k.SubjectID] {
			seen[k.SubjectID] = true
			ids = append(ids, string(k.SubjectID))
		}
	}
	return ids
}

// bulkPeriod names what a bulk message is about: the single period all
// updates share, or the whole range.
func bulkPeriod(keys []generic.RecordKey, r generic.DateRange) fmt.Stringer {
	for _, k := range keys[1:] {
		if k.Period != keys[0].Period {
			return r
		}
	}
	return keys[0].Period
}
