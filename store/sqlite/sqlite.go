/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TxStore (entries, approval records, subjects, audit)
  using SQLite. store/postgres implements the same contract on PostgreSQL;
  the SQL differs only in placeholders and upsert syntax.

KEY TABLES:
  subjects:          Employees and rooms
  entries:           One raw clock entry per subject per day
  approval_records:  One row per subject per period, statuses as JSON
  transitions:       Append-only audit trail of status changes

LAZY RECORDS:
  LoadApprovalRecord inserts the default record with INSERT OR IGNORE and
  then reads it back, so the first reader creates it and concurrent first
  readers agree.

DATES:
  Days are stored as YYYY-MM-DD and periods as YYYY-MM. They are read back
  in the store's location (WithLocation, UTC by default) so weekday rules
  see the same calendar day that was written.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases shared across calls. There is no row version:
  concurrent writers to one record are last-write-wins.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db", sqlite.WithLocation(loc))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	loc *time.Location
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the location dates are read back in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		chat_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Raw clock entries, one per subject per day
	CREATE TABLE IF NOT EXISTS entries (
		subject_id TEXT NOT NULL,
		date TEXT NOT NULL,
		period TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		rest_minutes INTEGER NOT NULL DEFAULT 0,
		absence_code TEXT,
		work_style TEXT,
		note TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (subject_id, date)
	);

	-- Period loads (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_subject_period
		ON entries(subject_id, period);

	-- One record per subject per period; no version column (last write wins)
	CREATE TABLE IF NOT EXISTS approval_records (
		subject_id TEXT NOT NULL,
		period TEXT NOT NULL,
		statuses_json TEXT NOT NULL,
		total_active TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (subject_id, period)
	);

	CREATE INDEX IF NOT EXISTS idx_approval_records_period
		ON approval_records(period);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS transitions (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		period TEXT NOT NULL,
		category TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_id TEXT,
		bulk INTEGER NOT NULL DEFAULT 0,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_record
		ON transitions(subject_id, period, at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (s *Store) LoadEntries(ctx context.Context, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadEntries(ctx, s.db, subjectID, period)
}

func (s *Store) SaveEntry(ctx context.Context, subjectID generic.SubjectID, entry generic.RawEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEntry(ctx, s.db, subjectID, entry)
}

func (s *Store) loadEntries(ctx context.Context, q querier, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT date, start_time, end_time, rest_minutes, absence_code, work_style, note
		FROM entries
		WHERE subject_id = ? AND period = ?
		ORDER BY date ASC
	`, subjectID, period.String())
	if err != nil {
		return nil, generic.Persistence("load entries", err)
	}
	defer rows.Close()

	var entries []generic.RawEntry
	for rows.Next() {
		e, err := s.scanEntry(rows)
		if err != nil {
			return nil, generic.Persistence("load entries", err)
		}
		entries = append(entries, e)
	}
	return entries, generic.Persistence("load entries", rows.Err())
}

func (s *Store) scanEntry(rows *sql.Rows) (generic.RawEntry, error) {
	var (
		e                             generic.RawEntry
		date                          string
		start, end                    sql.NullString
		absence, workStyle, noteField sql.NullString
	)
	if err := rows.Scan(&date, &start, &end, &e.RestMinutes, &absence, &workStyle, &noteField); err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	d, err := generic.ParseDate(date, s.loc)
	if err != nil {
		return e, err
	}
	e.Date = d
	if e.Start, err = parseClock(start); err != nil {
		return e, err
	}
	if e.End, err = parseClock(end); err != nil {
		return e, err
	}
	e.AbsenceCode = absence.String
	e.WorkStyle = workStyle.String
	e.Note = noteField.String
	return e, nil
}

func (s *Store) saveEntry(ctx context.Context, q querier, subjectID generic.SubjectID, e generic.RawEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO entries
		(subject_id, date, period, start_time, end_time, rest_minutes, absence_code, work_style, note, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, date) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			rest_minutes = excluded.rest_minutes,
			absence_code = excluded.absence_code,
			work_style = excluded.work_style,
			note = excluded.note,
			updated_at = excluded.updated_at
	`,
		subjectID,
		e.Date.String(),
		e.Date.Period().String(),
		clockString(e.Start),
		clockString(e.End),
		e.RestMinutes,
		nullString(e.AbsenceCode),
		nullString(e.WorkStyle),
		nullString(e.Note),
		s.now().UTC().Format(time.RFC3339),
	)
	return generic.Persistence("save entry", err)
}

// =============================================================================
// APPROVAL STORE
// =============================================================================

// LoadApprovalRecord returns the record, creating the default if absent.
func (s *Store) LoadApprovalRecord(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecord(ctx, s.db, subjectID, period)
}

func (s *Store) WriteApprovalRecord(ctx context.Context, record generic.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRecord(ctx, s.db, record)
}

// WriteApprovalRecordsBulk writes every record in one transaction.
func (s *Store) WriteApprovalRecordsBulk(ctx context.Context, records []generic.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Persistence("begin bulk write", err)
	}
	defer sqlTx.Rollback()

	for _, r := range records {
		if err := s.writeRecord(ctx, sqlTx, r); err != nil {
			return err
		}
	}
	return generic.Persistence("commit bulk write", sqlTx.Commit())
}

func (s *Store) ListApprovalRecords(ctx context.Context, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRecords(ctx, s.db, filter)
}

func (s *Store) loadRecord(ctx context.Context, q querier, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	def := generic.NewApprovalRecord(subjectID, period)
	statusesJSON, err := json.Marshal(def.Statuses)
	if err != nil {
		return def, err
	}

	_, err = q.ExecContext(ctx, `
		INSERT OR IGNORE INTO approval_records (subject_id, period, statuses_json, total_active, updated_at)
		VALUES (?, ?, ?, NULL, ?)
	`, subjectID, period.String(), string(statusesJSON), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return def, generic.Persistence("create approval record", err)
	}

	row := q.QueryRowContext(ctx, `
		SELECT subject_id, period, statuses_json, total_active, updated_at
		FROM approval_records
		WHERE subject_id = ? AND period = ?
	`, subjectID, period.String())

	r, err := scanRecord(row)
	if err != nil {
		return def, generic.Persistence("load approval record", err)
	}
	return r, nil
}

func (s *Store) writeRecord(ctx context.Context, q querier, r generic.ApprovalRecord) error {
	statusesJSON, err := json.Marshal(r.Statuses)
	if err != nil {
		return fmt.Errorf("failed to encode statuses: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO approval_records (subject_id, period, statuses_json, total_active, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, period) DO UPDATE SET
			statuses_json = excluded.statuses_json,
			total_active = excluded.total_active,
			updated_at = excluded.updated_at
	`,
		r.SubjectID,
		r.Period.String(),
		string(statusesJSON),
		hoursString(r.TotalActive),
		updatedAt(r.UpdatedAt, s.now).Format(time.RFC3339Nano),
	)
	return generic.Persistence("write approval record", err)
}

func (s *Store) listRecords(ctx context.Context, q querier, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	query := `
		SELECT subject_id, period, statuses_json, total_active, updated_at
		FROM approval_records
		WHERE 1 = 1`
	var args []any
	if !filter.From.IsZero() {
		query += " AND period >= ?"
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		query += " AND period <= ?"
		args = append(args, filter.To.String())
	}
	query += " ORDER BY subject_id ASC, period ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, generic.Persistence("list approval records", err)
	}
	defer rows.Close()

	var records []generic.ApprovalRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, generic.Persistence("list approval records", err)
		}
		if filter.Matches(r) {
			records = append(records, r)
		}
	}
	return records, generic.Persistence("list approval records", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (generic.ApprovalRecord, error) {
	var (
		r            generic.ApprovalRecord
		subjectID    string
		period       string
		statusesJSON string
		totalActive  sql.NullString
		updated      string
	)
	if err := row.Scan(&subjectID, &period, &statusesJSON, &totalActive, &updated); err != nil {
		return r, fmt.Errorf("failed to scan approval record: %w", err)
	}

	p, err := generic.ParsePeriod(period)
	if err != nil {
		return r, err
	}
	r = generic.NewApprovalRecord(generic.SubjectID(subjectID), p)

	var stored map[generic.Category]generic.Status
	if err := json.Unmarshal([]byte(statusesJSON), &stored); err != nil {
		return r, fmt.Errorf("failed to decode statuses: %w", err)
	}
	for c, st := range stored {
		if c.Valid() {
			r.Statuses[c] = st
		}
	}

	if totalActive.Valid {
		d, err := decimal.NewFromString(totalActive.String)
		if err != nil {
			return r, fmt.Errorf("failed to decode total_active: %w", err)
		}
		r.TotalActive = generic.Hours{Value: d, Valid: true}
	}
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return r, nil
}

// =============================================================================
// SUBJECT STORE
// =============================================================================

func (s *Store) SaveSubject(ctx context.Context, subject generic.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSubject(ctx, s.db, subject)
}

func (s *Store) GetSubject(ctx context.Context, id generic.SubjectID) (generic.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSubject(ctx, s.db, id)
}

func (s *Store) ListSubjects(ctx context.Context) ([]generic.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSubjects(ctx, s.db)
}

// DeleteSubject removes the subject and cascades to its entries, records
// and audit trail in one transaction.
func (s *Store) DeleteSubject(ctx context.Context, id generic.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Persistence("begin delete subject", err)
	}
	defer sqlTx.Rollback()

	if err := deleteSubject(ctx, sqlTx, id); err != nil {
		return err
	}
	return generic.Persistence("commit delete subject", sqlTx.Commit())
}

func (s *Store) saveSubject(ctx context.Context, q querier, subject generic.Subject) error {
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = s.now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO subjects (id, kind, name, chat_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			chat_id = excluded.chat_id
	`, subject.ID, subject.Kind, subject.Name, nullString(subject.ChatID), subject.CreatedAt.UTC().Format(time.RFC3339))
	return generic.Persistence("save subject", err)
}

func getSubject(ctx context.Context, q querier, id generic.SubjectID) (generic.Subject, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, kind, name, chat_id, created_at FROM subjects WHERE id = ?", id)
	subject, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Subject{}, generic.ErrSubjectNotFound
	}
	if err != nil {
		return generic.Subject{}, generic.Persistence("get subject", err)
	}
	return subject, nil
}

func listSubjects(ctx context.Context, q querier) ([]generic.Subject, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, kind, name, chat_id, created_at FROM subjects ORDER BY id ASC")
	if err != nil {
		return nil, generic.Persistence("list subjects", err)
	}
	defer rows.Close()

	var subjects []generic.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, generic.Persistence("list subjects", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, generic.Persistence("list subjects", rows.Err())
}

func scanSubject(row scanner) (generic.Subject, error) {
	var (
		subject   generic.Subject
		chatID    sql.NullString
		createdAt string
	)
	if err := row.Scan(&subject.ID, &subject.Kind, &subject.Name, &chatID, &createdAt); err != nil {
		return subject, err
	}
	subject.ChatID = chatID.String
	subject.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return subject, nil
}

func deleteSubject(ctx context.Context, q querier, id generic.SubjectID) error {
	if _, err := getSubject(ctx, q, id); err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM entries WHERE subject_id = ?",
		"DELETE FROM approval_records WHERE subject_id = ?",
		"DELETE FROM transitions WHERE subject_id = ?",
		"DELETE FROM subjects WHERE id = ?",
	} {
		if _, err := q.ExecContext(ctx, stmt, id); err != nil {
			return generic.Persistence("delete subject", err)
		}
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendTransitions(ctx context.Context, events []generic.TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Persistence("begin append transitions", err)
	}
	defer sqlTx.Rollback()

	if err := appendTransitions(ctx, sqlTx, events); err != nil {
		return err
	}
	return generic.Persistence("commit append transitions", sqlTx.Commit())
}

func (s *Store) QueryTransitions(ctx context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryTransitions(ctx, s.db, key)
}

func appendTransitions(ctx context.Context, q querier, events []generic.TransitionEvent) error {
	for _, e := range events {
		_, err := q.ExecContext(ctx, `
			INSERT INTO transitions (id, subject_id, period, category, from_status, to_status, actor_id, bulk, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.SubjectID, e.Period.String(), e.Category, e.From, e.To, nullString(e.ActorID), e.Bulk,
			e.At.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return generic.Persistence("append transition", err)
		}
	}
	return nil
}

func queryTransitions(ctx context.Context, q querier, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, subject_id, period, category, from_status, to_status, actor_id, bulk, at
		FROM transitions
		WHERE subject_id = ? AND period = ?
		ORDER BY at ASC, rowid ASC
	`, key.SubjectID, key.Period.String())
	if err != nil {
		return nil, generic.Persistence("query transitions", err)
	}
	defer rows.Close()

	var events []generic.TransitionEvent
	for rows.Next() {
		var (
			e       generic.TransitionEvent
			period  string
			actorID sql.NullString
			at      string
		)
		if err := rows.Scan(&e.ID, &e.SubjectID, &period, &e.Category, &e.From, &e.To, &actorID, &e.Bulk, &at); err != nil {
			return nil, generic.Persistence("query transitions", err)
		}
		e.Period, _ = generic.ParsePeriod(period)
		e.ActorID = actorID.String
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		events = append(events, e)
	}
	return events, generic.Persistence("query transitions", rows.Err())
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Persistence("begin transaction", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx, parent: s}
	if err := fn(txStore); err != nil {
		return err
	}

	return generic.Persistence("commit transaction", sqlTx.Commit())
}

// txStore runs every call on the open transaction. The parent's mutex is
// already held by WithTx.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) LoadEntries(ctx context.Context, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	return ts.parent.loadEntries(ctx, ts.tx, subjectID, period)
}

func (ts *txStore) SaveEntry(ctx context.Context, subjectID generic.SubjectID, entry generic.RawEntry) error {
	return ts.parent.saveEntry(ctx, ts.tx, subjectID, entry)
}

func (ts *txStore) LoadApprovalRecord(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	return ts.parent.loadRecord(ctx, ts.tx, subjectID, period)
}

func (ts *txStore) WriteApprovalRecord(ctx context.Context, record generic.ApprovalRecord) error {
	return ts.parent.writeRecord(ctx, ts.tx, record)
}

func (ts *txStore) WriteApprovalRecordsBulk(ctx context.Context, records []generic.ApprovalRecord) error {
	for _, r := range records {
		if err := ts.parent.writeRecord(ctx, ts.tx, r); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) ListApprovalRecords(ctx context.Context, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	return ts.parent.listRecords(ctx, ts.tx, filter)
}

func (ts *txStore) SaveSubject(ctx context.Context, subject generic.Subject) error {
	return ts.parent.saveSubject(ctx, ts.tx, subject)
}

func (ts *txStore) GetSubject(ctx context.Context, id generic.SubjectID) (generic.Subject, error) {
	return getSubject(ctx, ts.tx, id)
}

func (ts *txStore) ListSubjects(ctx context.Context) ([]generic.Subject, error) {
	return listSubjects(ctx, ts.tx)
}

func (ts *txStore) DeleteSubject(ctx context.Context, id generic.SubjectID) error {
	return deleteSubject(ctx, ts.tx, id)
}

func (ts *txStore) AppendTransitions(ctx context.Context, events []generic.TransitionEvent) error {
	return appendTransitions(ctx, ts.tx, events)
}

func (ts *txStore) QueryTransitions(ctx context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	return queryTransitions(ctx, ts.tx, key)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func clockString(c *generic.ClockTime) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func parseClock(ns sql.NullString) (*generic.ClockTime, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	c, err := generic.ParseClockTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func hoursString(h generic.Hours) sql.NullString {
	if h.IsAbsent() {
		return sql.NullString{}
	}
	return sql.NullString{String: h.Value.String(), Valid: true}
}

func updatedAt(t time.Time, now func() time.Time) time.Time {
	if t.IsZero() {
		return now().UTC()
	}
	return t.UTC()
}
