/*
store.go - Persistence gateway interfaces

PURPOSE:
  Defines the boundary between the engine and the database. The time
  arithmetic and the approval state machine are pure; everything they read
  or write passes through these interfaces.

KEY INTERFACES:
  EntryStore:    Raw clock entries, one per subject per day
  ApprovalStore: Approval records, one per subject per period
  SubjectStore:  Employees and rooms (owners of entries and records)
  AuditLog:      Append-only trail of applied transitions
  Store:         All of the above
  TxStore:       Store plus WithTx for atomic multi-write operations

LAZY RECORDS:
  LoadApprovalRecord never reports "not found". The first access to a
  (subject, period) creates the record with every category at its NoInput
  code and persists it.

ATOMIC BULK:
  WriteApprovalRecordsBulk writes all records or none. A bulk approval never
  leaves a period half-approved.

LAST WRITE WINS:
  Records carry no version token. Two concurrent writers to the same record
  race and the later write wins. ErrConflict is reserved for when a version
  token is added.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and the CLI dry-run
  - store/sqlite/sqlite.go: SQLite (default server backend)
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - approval/service.go: The only writer of approval records
*/
package generic

import "context"

// =============================================================================
// ENTRY STORE - Raw clock entries
// =============================================================================

type EntryStore interface {
	// LoadEntries returns the subject's entries within the period, ordered
	// by date.
	LoadEntries(ctx context.Context, subjectID SubjectID, period Period) ([]RawEntry, error)

	// SaveEntry inserts or replaces the subject's entry for entry.Date.
	SaveEntry(ctx context.Context, subjectID SubjectID, entry RawEntry) error
}

// =============================================================================
// APPROVAL STORE - One record per subject per period
// =============================================================================

type ApprovalStore interface {
	// LoadApprovalRecord returns the record, creating the default one if
	// it doesn't exist yet.
	LoadApprovalRecord(ctx context.Context, subjectID SubjectID, period Period) (ApprovalRecord, error)

	// WriteApprovalRecord overwrites the record.
	WriteApprovalRecord(ctx context.Context, record ApprovalRecord) error

	// WriteApprovalRecordsBulk overwrites every record atomically.
	WriteApprovalRecordsBulk(ctx context.Context, records []ApprovalRecord) error

	// ListApprovalRecords returns existing records matching the filter,
	// ordered by subject then period. It never creates records.
	ListApprovalRecords(ctx context.Context, filter RecordFilter) ([]ApprovalRecord, error)
}

// RecordFilter narrows ListApprovalRecords. Zero fields don't filter.
type RecordFilter struct {
	SubjectIDs []SubjectID
	From       Period
	To         Period
}

// Matches applies the filter in memory.
func (f RecordFilter) Matches(r ApprovalRecord) bool {
	if len(f.SubjectIDs) > 0 {
		found := false
		for _, id := range f.SubjectIDs {
			if id == r.SubjectID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && r.Period.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(r.Period) {
		return false
	}
	return true
}

// =============================================================================
// SUBJECT STORE
// =============================================================================

type SubjectStore interface {
	SaveSubject(ctx context.Context, subject Subject) error
	// GetSubject returns ErrSubjectNotFound if the subject doesn't exist.
	GetSubject(ctx context.Context, id SubjectID) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	// DeleteSubject removes the subject with its entries, approval records
	// and audit trail.
	DeleteSubject(ctx context.Context, id SubjectID) error
}

// =============================================================================
// AUDIT LOG - Append-only
// =============================================================================

type AuditLog interface {
	AppendTransitions(ctx context.Context, events []TransitionEvent) error
	// QueryTransitions returns the record's events, oldest first.
	QueryTransitions(ctx context.Context, key RecordKey) ([]TransitionEvent, error)
}

// =============================================================================
// STORE - Combined gateway
// =============================================================================

type Store interface {
	EntryStore
	ApprovalStore
	SubjectStore
	AuditLog
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
