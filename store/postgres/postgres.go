/*
Package postgres provides a PostgreSQL-backed implementation of the storage interfaces.

PURPOSE:
  Same contract as store/sqlite (generic.TxStore) for deployments that
  share one database across several server instances. Connections come
  from a pgxpool.Pool.

DIFFERENCES FROM SQLITE:
  - Days are DATE, timestamps are TIMESTAMPTZ, statuses are JSONB and
    total_active is NUMERIC. Values are passed as text and cast in SQL so
    the Go side only deals in strings, time.Time and ints.
  - No process-wide mutex: isolation comes from the database. Bulk writes
    and WithTx run in a single transaction.

SEE ALSO:
  - generic/store.go: Interface definitions
  - store/sqlite/sqlite.go: Embedded implementation
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/generic"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements all storage interfaces using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	loc  *time.Location
	now  func() time.Time
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

// New connects to dsn, checks the connection and creates the schema.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store := &Store{pool: pool, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		chat_id TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		subject_id TEXT NOT NULL,
		day DATE NOT NULL,
		period TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		rest_minutes INTEGER NOT NULL DEFAULT 0,
		absence_code TEXT,
		work_style TEXT,
		note TEXT,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (subject_id, day)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_subject_period ON entries(subject_id, period)`,
	`CREATE TABLE IF NOT EXISTS approval_records (
		subject_id TEXT NOT NULL,
		period TEXT NOT NULL,
		statuses JSONB NOT NULL,
		total_active NUMERIC,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (subject_id, period)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_approval_records_period ON approval_records(period)`,
	`CREATE TABLE IF NOT EXISTS transitions (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		subject_id TEXT NOT NULL,
		period TEXT NOT NULL,
		category TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_id TEXT,
		bulk BOOLEAN NOT NULL DEFAULT FALSE,
		at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transitions_record ON transitions(subject_id, period, at)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a view bound to one transaction. Returning an
// error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&view{q: tx, parent: s})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return generic.Persistence("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return generic.Persistence("commit transaction", tx.Commit(ctx))
}

// view implements generic.Store over a Querier. The Store itself delegates
// to a pool-backed view; WithTx hands out a transaction-backed one.
type view struct {
	q      Querier
	parent *Store
}

func (s *Store) pooled() *view { return &view{q: s.pool, parent: s} }

// =============================================================================
// ENTRY STORE
// =============================================================================

func (s *Store) LoadEntries(ctx context.Context, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	return s.pooled().LoadEntries(ctx, subjectID, period)
}

func (s *Store) SaveEntry(ctx context.Context, subjectID generic.SubjectID, entry generic.RawEntry) error {
	return s.pooled().SaveEntry(ctx, subjectID, entry)
}

func (v *view) LoadEntries(ctx context.Context, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	rows, err := v.q.Query(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD'), start_time, end_time, rest_minutes,
		       COALESCE(absence_code, ''), COALESCE(work_style, ''), COALESCE(note, '')
		FROM entries
		WHERE subject_id = $1 AND period = $2
		ORDER BY day ASC
	`, string(subjectID), period.String())
	if err != nil {
		return nil, generic.Persistence("load entries", err)
	}
	defer rows.Close()

	var entries []generic.RawEntry
	for rows.Next() {
		var (
			e          generic.RawEntry
			day        string
			start, end *string
		)
		if err := rows.Scan(&day, &start, &end, &e.RestMinutes, &e.AbsenceCode, &e.WorkStyle, &e.Note); err != nil {
			return nil, generic.Persistence("load entries", err)
		}
		if e.Date, err = generic.ParseDate(day, v.parent.loc); err != nil {
			return nil, generic.Persistence("load entries", err)
		}
		if e.Start, err = parseClock(start); err != nil {
			return nil, generic.Persistence("load entries", err)
		}
		if e.End, err = parseClock(end); err != nil {
			return nil, generic.Persistence("load entries", err)
		}
		entries = append(entries, e)
	}
	return entries, generic.Persistence("load entries", rows.Err())
}

func (v *view) SaveEntry(ctx context.Context, subjectID generic.SubjectID, e generic.RawEntry) error {
	_, err := v.q.Exec(ctx, `
		INSERT INTO entries
		(subject_id, day, period, start_time, end_time, rest_minutes, absence_code, work_style, note, updated_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)
		ON CONFLICT (subject_id, day) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			rest_minutes = EXCLUDED.rest_minutes,
			absence_code = EXCLUDED.absence_code,
			work_style = EXCLUDED.work_style,
			note = EXCLUDED.note,
			updated_at = EXCLUDED.updated_at
	`,
		string(subjectID), e.Date.String(), e.Date.Period().String(),
		clockString(e.Start), clockString(e.End), e.RestMinutes,
		e.AbsenceCode, e.WorkStyle, e.Note, v.parent.now(),
	)
	return generic.Persistence("save entry", err)
}

// =============================================================================
// APPROVAL STORE
// =============================================================================

func (s *Store) LoadApprovalRecord(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	return s.pooled().LoadApprovalRecord(ctx, subjectID, period)
}

func (s *Store) WriteApprovalRecord(ctx context.Context, record generic.ApprovalRecord) error {
	return s.pooled().WriteApprovalRecord(ctx, record)
}

// WriteApprovalRecordsBulk writes every record in one transaction.
func (s *Store) WriteApprovalRecordsBulk(ctx context.Context, records []generic.ApprovalRecord) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return (&view{q: tx, parent: s}).WriteApprovalRecordsBulk(ctx, records)
	})
}

func (s *Store) ListApprovalRecords(ctx context.Context, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	return s.pooled().ListApprovalRecords(ctx, filter)
}

const recordColumns = `subject_id, period, statuses::text, total_active::text, updated_at`

func (v *view) LoadApprovalRecord(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	def := generic.NewApprovalRecord(subjectID, period)
	statuses, err := json.Marshal(def.Statuses)
	if err != nil {
		return def, err
	}

	_, err = v.q.Exec(ctx, `
		INSERT INTO approval_records (subject_id, period, statuses, total_active, updated_at)
		VALUES ($1, $2, $3::jsonb, NULL, $4)
		ON CONFLICT (subject_id, period) DO NOTHING
	`, string(subjectID), period.String(), string(statuses), v.parent.now())
	if err != nil {
		return def, generic.Persistence("create approval record", err)
	}

	row := v.q.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM approval_records WHERE subject_id = $1 AND period = $2`,
		string(subjectID), period.String())
	r, err := scanRecord(row)
	if err != nil {
		return def, generic.Persistence("load approval record", err)
	}
	return r, nil
}

func (v *view) WriteApprovalRecord(ctx context.Context, r generic.ApprovalRecord) error {
	statuses, err := json.Marshal(r.Statuses)
	if err != nil {
		return fmt.Errorf("failed to encode statuses: %w", err)
	}
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = v.parent.now()
	}

	var total *string
	if !r.TotalActive.IsAbsent() {
		s := r.TotalActive.Value.String()
		total = &s
	}

	_, err = v.q.Exec(ctx, `
		INSERT INTO approval_records (subject_id, period, statuses, total_active, updated_at)
		VALUES ($1, $2, $3::jsonb, $4::numeric, $5)
		ON CONFLICT (subject_id, period) DO UPDATE SET
			statuses = EXCLUDED.statuses,
			total_active = EXCLUDED.total_active,
			updated_at = EXCLUDED.updated_at
	`, string(r.SubjectID), r.Period.String(), string(statuses), total, updated)
	return generic.Persistence("write approval record", err)
}

func (v *view) WriteApprovalRecordsBulk(ctx context.Context, records []generic.ApprovalRecord) error {
	for _, r := range records {
		if err := v.WriteApprovalRecord(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (v *view) ListApprovalRecords(ctx context.Context, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records WHERE TRUE`
	var args []any
	if len(filter.SubjectIDs) > 0 {
		ids := make([]string, len(filter.SubjectIDs))
		for i, id := range filter.SubjectIDs {
			ids[i] = string(id)
		}
		args = append(args, ids)
		query += fmt.Sprintf(" AND subject_id = ANY($%d)", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.String())
		query += fmt.Sprintf(" AND period >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.String())
		query += fmt.Sprintf(" AND period <= $%d", len(args))
	}
	query += " ORDER BY subject_id ASC, period ASC"

	rows, err := v.q.Query(ctx, query, args...)
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
		records = append(records, r)
	}
	return records, generic.Persistence("list approval records", rows.Err())
}

func scanRecord(row pgx.Row) (generic.ApprovalRecord, error) {
	var (
		subjectID, period, statuses string
		total                       *string
		updated                     time.Time
	)
	if err := row.Scan(&subjectID, &period, &statuses, &total, &updated); err != nil {
		return generic.ApprovalRecord{}, fmt.Errorf("failed to scan approval record: %w", err)
	}

	p, err := generic.ParsePeriod(period)
	if err != nil {
		return generic.ApprovalRecord{}, err
	}
	r := generic.NewApprovalRecord(generic.SubjectID(subjectID), p)

	var stored map[generic.Category]generic.Status
	if err := json.Unmarshal([]byte(statuses), &stored); err != nil {
		return r, fmt.Errorf("failed to decode statuses: %w", err)
	}
	for c, st := range stored {
		if c.Valid() {
			r.Statuses[c] = st
		}
	}
	if total != nil {
		d, err := decimal.NewFromString(*total)
		if err != nil {
			return r, fmt.Errorf("failed to decode total_active: %w", err)
		}
		r.TotalActive = generic.Hours{Value: d, Valid: true}
	}
	r.UpdatedAt = updated
	return r, nil
}

// =============================================================================
// SUBJECT STORE
// =============================================================================

func (s *Store) SaveSubject(ctx context.Context, subject generic.Subject) error {
	return s.pooled().SaveSubject(ctx, subject)
}

func (s *Store) GetSubject(ctx context.Context, id generic.SubjectID) (generic.Subject, error) {
	return s.pooled().GetSubject(ctx, id)
}

func (s *Store) ListSubjects(ctx context.Context) ([]generic.Subject, error) {
	return s.pooled().ListSubjects(ctx)
}

// DeleteSubject removes the subject with its entries, records and audit
// trail in one transaction.
func (s *Store) DeleteSubject(ctx context.Context, id generic.SubjectID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return (&view{q: tx, parent: s}).DeleteSubject(ctx, id)
	})
}

func (v *view) SaveSubject(ctx context.Context, subject generic.Subject) error {
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = v.parent.now()
	}
	_, err := v.q.Exec(ctx, `
		INSERT INTO subjects (id, kind, name, chat_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			chat_id = EXCLUDED.chat_id
	`, string(subject.ID), string(subject.Kind), subject.Name, subject.ChatID, subject.CreatedAt)
	return generic.Persistence("save subject", err)
}

const subjectColumns = `id, kind, name, COALESCE(chat_id, ''), created_at`

func (v *view) GetSubject(ctx context.Context, id generic.SubjectID) (generic.Subject, error) {
	row := v.q.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, string(id))
	subject, err := scanSubject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return generic.Subject{}, generic.ErrSubjectNotFound
	}
	if err != nil {
		return generic.Subject{}, generic.Persistence("get subject", err)
	}
	return subject, nil
}

func (v *view) ListSubjects(ctx context.Context) ([]generic.Subject, error) {
	rows, err := v.q.Query(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY id ASC`)
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

func scanSubject(row pgx.Row) (generic.Subject, error) {
	var id, kind string
	var subject generic.Subject
	if err := row.Scan(&id, &kind, &subject.Name, &subject.ChatID, &subject.CreatedAt); err != nil {
		return subject, err
	}
	subject.ID = generic.SubjectID(id)
	subject.Kind = generic.SubjectKind(kind)
	return subject, nil
}

func (v *view) DeleteSubject(ctx context.Context, id generic.SubjectID) error {
	if _, err := v.GetSubject(ctx, id); err != nil {
		return err
	}
	for _, stmt := range []string{
		`DELETE FROM entries WHERE subject_id = $1`,
		`DELETE FROM approval_records WHERE subject_id = $1`,
		`DELETE FROM transitions WHERE subject_id = $1`,
		`DELETE FROM subjects WHERE id = $1`,
	} {
		if _, err := v.q.Exec(ctx, stmt, string(id)); err != nil {
			return generic.Persistence("delete subject", err)
		}
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendTransitions(ctx context.Context, events []generic.TransitionEvent) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return (&view{q: tx, parent: s}).AppendTransitions(ctx, events)
	})
}

func (s *Store) QueryTransitions(ctx context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	return s.pooled().QueryTransitions(ctx, key)
}

func (v *view) AppendTransitions(ctx context.Context, events []generic.TransitionEvent) error {
	for _, e := range events {
		_, err := v.q.Exec(ctx, `
			INSERT INTO transitions (id, subject_id, period, category, from_status, to_status, actor_id, bulk, at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		`, e.ID, string(e.SubjectID), e.Period.String(), string(e.Category),
			string(e.From), string(e.To), e.ActorID, e.Bulk, e.At)
		if err != nil {
			return generic.Persistence("append transition", err)
		}
	}
	return nil
}

func (v *view) QueryTransitions(ctx context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	rows, err := v.q.Query(ctx, `
		SELECT id, subject_id, period, category, from_status, to_status, COALESCE(actor_id, ''), bulk, at
		FROM transitions
		WHERE subject_id = $1 AND period = $2
		ORDER BY at ASC, seq ASC
	`, string(key.SubjectID), key.Period.String())
	if err != nil {
		return nil, generic.Persistence("query transitions", err)
	}
	defer rows.Close()

	var events []generic.TransitionEvent
	for rows.Next() {
		var (
			e                                    generic.TransitionEvent
			subjectID, period, category, from, to string
		)
		if err := rows.Scan(&e.ID, &subjectID, &period, &category, &from, &to, &e.ActorID, &e.Bulk, &e.At); err != nil {
			return nil, generic.Persistence("query transitions", err)
		}
		e.SubjectID = generic.SubjectID(subjectID)
		e.Period, _ = generic.ParsePeriod(period)
		e.Category = generic.Category(category)
		e.From, e.To = generic.Status(from), generic.Status(to)
		events = append(events, e)
	}
	return events, generic.Persistence("query transitions", rows.Err())
}

// =============================================================================
// HELPERS
// =============================================================================

func clockString(c *generic.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

func parseClock(s *string) (*generic.ClockTime, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := generic.ParseClockTime(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
