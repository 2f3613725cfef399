// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	state
	now func() time.Time
}

// state is the raw data; callers hold Memory.mu.
type state struct {
	subjects map[generic.SubjectID]generic.Subject
	entries  map[generic.SubjectID]map[string]generic.RawEntry
	records  map[generic.RecordKey]generic.ApprovalRecord
	events   []generic.TransitionEvent
}

func NewMemory() *Memory {
	return &Memory{state: newState(), now: time.Now}
}

func newState() state {
	return state{
		subjects: make(map[generic.SubjectID]generic.Subject),
		entries:  make(map[generic.SubjectID]map[string]generic.RawEntry),
		records:  make(map[generic.RecordKey]generic.ApprovalRecord),
	}
}

// Entries

func (m *Memory) LoadEntries(_ context.Context, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadEntries(subjectID, period), nil
}

func (m *Memory) SaveEntry(_ context.Context, subjectID generic.SubjectID, entry generic.RawEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveEntry(subjectID, entry)
	return nil
}

// Approval records

func (m *Memory) LoadApprovalRecord(_ context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadRecord(subjectID, period, m.now()), nil
}

func (m *Memory) WriteApprovalRecord(_ context.Context, record generic.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeRecords([]generic.ApprovalRecord{record})
	return nil
}

// WriteApprovalRecordsBulk writes all records under one lock.
func (m *Memory) WriteApprovalRecordsBulk(_ context.Context, records []generic.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeRecords(records)
	return nil
}

func (m *Memory) ListApprovalRecords(_ context.Context, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRecords(filter), nil
}

// Subjects

func (m *Memory) SaveSubject(_ context.Context, subject generic.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = m.now()
	}
	m.subjects[subject.ID] = subject
	return nil
}

func (m *Memory) GetSubject(_ context.Context, id generic.SubjectID) (generic.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSubject(id)
}

func (m *Memory) ListSubjects(_ context.Context) ([]generic.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSubjects(), nil
}

// DeleteSubject cascades to entries, records and audit events.
func (m *Memory) DeleteSubject(_ context.Context, id generic.SubjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteSubject(id)
}

// Audit

func (m *Memory) AppendTransitions(_ context.Context, events []generic.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *Memory) QueryTransitions(_ context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryTransitions(key), nil
}

// =============================================================================
// STATE OPERATIONS - Shared by Memory and the transactional view
// =============================================================================

func (s *state) loadEntries(subjectID generic.SubjectID, period generic.Period) []generic.RawEntry {
	var result []generic.RawEntry
	for _, e := range s.entries[subjectID] {
		if period.Contains(e.Date) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

func (s *state) saveEntry(subjectID generic.SubjectID, entry generic.RawEntry) {
	days, ok := s.entries[subjectID]
	if !ok {
		days = make(map[string]generic.RawEntry)
		s.entries[subjectID] = days
	}
	days[entry.Date.String()] = entry
}

func (s *state) loadRecord(subjectID generic.SubjectID, period generic.Period, now time.Time) generic.ApprovalRecord {
	key := generic.RecordKey{SubjectID: subjectID, Period: period}
	if r, ok := s.records[key]; ok {
		return r.Clone()
	}
	r := generic.NewApprovalRecord(subjectID, period)
	r.UpdatedAt = now
	s.records[key] = r
	return r.Clone()
}

func (s *state) writeRecords(records []generic.ApprovalRecord) {
	for _, r := range records {
		s.records[r.Key()] = r.Clone()
	}
}

func (s *state) listRecords(filter generic.RecordFilter) []generic.ApprovalRecord {
	var result []generic.ApprovalRecord
	for _, r := range s.records {
		if filter.Matches(r) {
			result = append(result, r.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubjectID != result[j].SubjectID {
			return result[i].SubjectID < result[j].SubjectID
		}
		return result[i].Period.Before(result[j].Period)
	})
	return result
}

func (s *state) getSubject(id generic.SubjectID) (generic.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return generic.Subject{}, generic.ErrSubjectNotFound
	}
	return subject, nil
}

func (s *state) listSubjects() []generic.Subject {
	result := make([]generic.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		result = append(result, subject)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *state) deleteSubject(id generic.SubjectID) error {
	if _, err := s.getSubject(id); err != nil {
		return err
	}
	delete(s.subjects, id)
	delete(s.entries, id)
	for k := range s.records {
		if k.SubjectID == id {
			delete(s.records, k)
		}
	}
	kept := make([]generic.TransitionEvent, 0, len(s.events))
	for _, e := range s.events {
		if e.SubjectID != id {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

func (s *state) queryTransitions(key generic.RecordKey) []generic.TransitionEvent {
	var result []generic.TransitionEvent
	for _, e := range s.events {
		if e.SubjectID == key.SubjectID && e.Period == key.Period {
			result = append(result, e)
		}
	}
	return result
}

func (s *state) clone() state {
	c := newState()
	for k, v := range s.subjects {
		c.subjects[k] = v
	}
	for id, days := range s.entries {
		cp := make(map[string]generic.RawEntry, len(days))
		for d, e := range days {
			cp[d] = e
		}
		c.entries[id] = cp
	}
	for k, r := range s.records {
		c.records[k] = r.Clone()
	}
	c.events = append([]generic.TransitionEvent(nil), s.events...)
	return c
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.state.clone()
	view := &txMemoryView{state: &tm.state, now: tm.now}

	if err := fn(view); err != nil {
		tm.state = snapshot
		return err
	}
	return nil
}

// txMemoryView operates on the parent's state while WithTx holds its lock.
type txMemoryView struct {
	state *state
	now   func() time.Time
}

func (tv *txMemoryView) LoadEntries(_ context.Context, subjectID generic.SubjectID, period generic.Period) ([]generic.RawEntry, error) {
	return tv.state.loadEntries(subjectID, period), nil
}

func (tv *txMemoryView) SaveEntry(_ context.Context, subjectID generic.SubjectID, entry generic.RawEntry) error {
	tv.state.saveEntry(subjectID, entry)
	return nil
}

func (tv *txMemoryView) LoadApprovalRecord(_ context.Context, subjectID generic.SubjectID, period generic.Period) (generic.ApprovalRecord, error) {
	return tv.state.loadRecord(subjectID, period, tv.now()), nil
}

func (tv *txMemoryView) WriteApprovalRecord(_ context.Context, record generic.ApprovalRecord) error {
	tv.state.writeRecords([]generic.ApprovalRecord{record})
	return nil
}

func (tv *txMemoryView) WriteApprovalRecordsBulk(_ context.Context, records []generic.ApprovalRecord) error {
	tv.state.writeRecords(records)
	return nil
}

func (tv *txMemoryView) ListApprovalRecords(_ context.Context, filter generic.RecordFilter) ([]generic.ApprovalRecord, error) {
	return tv.state.listRecords(filter), nil
}

func (tv *txMemoryView) SaveSubject(_ context.Context, subject generic.Subject) error {
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = tv.now()
	}
	tv.state.subjects[subject.ID] = subject
	return nil
}

func (tv *txMemoryView) GetSubject(_ context.Context, id generic.SubjectID) (generic.Subject, error) {
	return tv.state.getSubject(id)
}

func (tv *txMemoryView) ListSubjects(_ context.Context) ([]generic.Subject, error) {
	return tv.state.listSubjects(), nil
}

func (tv *txMemoryView) DeleteSubject(_ context.Context, id generic.SubjectID) error {
	return tv.state.deleteSubject(id)
}

func (tv *txMemoryView) AppendTransitions(_ context.Context, events []generic.TransitionEvent) error {
	tv.state.events = append(tv.state.events, events...)
	return nil
}

func (tv *txMemoryView) QueryTransitions(_ context.Context, key generic.RecordKey) ([]generic.TransitionEvent, error) {
	return tv.state.queryTransitions(key), nil
}
