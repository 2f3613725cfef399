package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

var (
	march = generic.NewPeriod(2024, time.March)
	april = generic.NewPeriod(2024, time.April)
)

func newStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_Entries_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	s := newStore(t, sqlite.WithLocation(tokyo))

	// GIVEN: An overnight entry, an absence and an entry in the next period
	overnight := generic.RawEntry{
		Date:        generic.NewTimePoint(2024, time.March, 31, tokyo),
		Start:       generic.ClockAt(22, 0),
		End:         generic.ClockAt(7, 0),
		RestMinutes: 60,
		WorkStyle:   "office",
		Note:        "inventory",
	}
	absence := generic.RawEntry{
		Date:        generic.NewTimePoint(2024, time.March, 4, tokyo),
		AbsenceCode: "paid_leave",
	}
	require.NoError(t, s.SaveEntry(ctx, "emp-1", overnight))
	require.NoError(t, s.SaveEntry(ctx, "emp-1", absence))
	require.NoError(t, s.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: generic.NewTimePoint(2024, time.April, 1, tokyo)}))

	// WHEN
	entries, err := s.LoadEntries(ctx, "emp-1", march)

	// THEN: Ordered by day, clock values and location preserved
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].Date.Day())
	assert.Nil(t, entries[0].Start)
	assert.Equal(t, "paid_leave", entries[0].AbsenceCode)

	got := entries[1]
	assert.Equal(t, time.Sunday, got.Date.Weekday())
	assert.Equal(t, tokyo, got.Date.Location())
	require.NotNil(t, got.Start)
	require.NotNil(t, got.End)
	assert.Equal(t, "22:00", got.Start.String())
	assert.Equal(t, "07:00", got.End.String())
	assert.Equal(t, 60, got.RestMinutes)
	assert.Equal(t, "inventory", got.Note)
}

func TestSQLite_SaveEntry_Upserts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	day := generic.NewTimePoint(2024, time.March, 5, time.UTC)

	require.NoError(t, s.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: day, Start: generic.ClockAt(9, 0), End: generic.ClockAt(17, 0)}))
	require.NoError(t, s.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: day, Start: generic.ClockAt(10, 0), End: generic.ClockAt(19, 0)}))

	entries, err := s.LoadEntries(ctx, "emp-1", march)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10:00", entries[0].Start.String())
}

func TestSQLite_LoadApprovalRecord_CreatesDefault(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// WHEN: Loading a record that was never written
	r, err := s.LoadApprovalRecord(ctx, "emp-1", march)

	// THEN: Every category at no_input, and the record now exists
	require.NoError(t, err)
	for _, c := range generic.Categories() {
		assert.Equal(t, generic.StatusNoInput, r.Status(c), c)
	}
	assert.True(t, r.TotalActive.IsAbsent())

	records, err := s.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLite_WriteApprovalRecord_Persists(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	r, err := s.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	r.Statuses[generic.CategorySettlement] = generic.StatusApproved
	r.TotalActive = generic.HoursFromMinutes(9630)
	r.UpdatedAt = time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.WriteApprovalRecord(ctx, r))

	got, err := s.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusApproved, got.Status(generic.CategorySettlement))
	assert.Equal(t, generic.StatusNoInput, got.Status(generic.CategoryAttendance))
	assert.True(t, got.TotalActive.Equal(generic.NewHours(160.5)))
	assert.True(t, got.UpdatedAt.Equal(r.UpdatedAt))
}

func TestSQLite_ListApprovalRecords_Filter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, k := range []generic.RecordKey{
		{SubjectID: "emp-2", Period: march},
		{SubjectID: "emp-1", Period: april},
		{SubjectID: "emp-1", Period: march},
	} {
		_, err := s.LoadApprovalRecord(ctx, k.SubjectID, k.Period)
		require.NoError(t, err)
	}

	all, err := s.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "emp-1@2024-03", all[0].Key().String())
	assert.Equal(t, "emp-1@2024-04", all[1].Key().String())
	assert.Equal(t, "emp-2@2024-03", all[2].Key().String())

	filtered, err := s.ListApprovalRecords(ctx, generic.RecordFilter{
		SubjectIDs: []generic.SubjectID{"emp-1"},
		From:       april,
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, april, filtered[0].Period)
}

func TestSQLite_WriteApprovalRecordsBulk(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var records []generic.ApprovalRecord
	for _, id := range []generic.SubjectID{"emp-1", "emp-2", "emp-3"} {
		r := generic.NewApprovalRecord(id, march)
		r.Statuses[generic.CategoryAttendance] = generic.StatusSubmitted
		records = append(records, r)
	}
	require.NoError(t, s.WriteApprovalRecordsBulk(ctx, records))

	got, err := s.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, generic.StatusSubmitted, r.Status(generic.CategoryAttendance))
	}
}

func TestSQLite_Subjects(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetSubject(ctx, "emp-1")
	assert.ErrorIs(t, err, generic.ErrSubjectNotFound)

	require.NoError(t, s.SaveSubject(ctx, generic.Subject{ID: "room-1", Kind: generic.SubjectRoom, Name: "Ward A"}))
	require.NoError(t, s.SaveSubject(ctx, generic.Subject{ID: "emp-1", Kind: generic.SubjectEmployee, Name: "Sato", ChatID: "U123"}))

	got, err := s.GetSubject(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Sato", got.Name)
	assert.Equal(t, "U123", got.ChatID)
	assert.False(t, got.CreatedAt.IsZero())

	list, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generic.SubjectID("emp-1"), list[0].ID)
}

func TestSQLite_DeleteSubject_Cascades(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: A subject with an entry, a record and an audit event
	require.NoError(t, s.SaveSubject(ctx, generic.Subject{ID: "emp-1", Kind: generic.SubjectEmployee}))
	require.NoError(t, s.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: generic.NewTimePoint(2024, time.March, 1, time.UTC)}))
	_, err := s.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	require.NoError(t, s.AppendTransitions(ctx, []generic.TransitionEvent{{
		ID: "ev-1", SubjectID: "emp-1", Period: march,
		Category: generic.CategoryAttendance, From: generic.StatusNoInput, To: generic.StatusSubmitted,
		At: time.Now(),
	}}))

	// WHEN
	require.NoError(t, s.DeleteSubject(ctx, "emp-1"))

	// THEN: Nothing is left
	entries, err := s.LoadEntries(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.Empty(t, entries)
	records, err := s.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	events, err := s.QueryTransitions(ctx, generic.RecordKey{SubjectID: "emp-1", Period: march})
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, s.DeleteSubject(ctx, "emp-1"), generic.ErrSubjectNotFound)
}

func TestSQLite_QueryTransitions_Ordered(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendTransitions(ctx, []generic.TransitionEvent{
		{ID: "ev-2", SubjectID: "emp-1", Period: march, Category: generic.CategoryAttendance,
			From: generic.StatusSubmitted, To: generic.StatusFirstApproval, ActorID: "mgr-1", Bulk: true, At: base.Add(time.Hour)},
		{ID: "ev-1", SubjectID: "emp-1", Period: march, Category: generic.CategoryAttendance,
			From: generic.StatusNoInput, To: generic.StatusSubmitted, At: base},
		{ID: "ev-3", SubjectID: "emp-1", Period: april, Category: generic.CategoryAttendance,
			From: generic.StatusNoInput, To: generic.StatusSubmitted, At: base},
	}))

	events, err := s.QueryTransitions(ctx, generic.RecordKey{SubjectID: "emp-1", Period: march})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev-1", events[0].ID)
	assert.Equal(t, "ev-2", events[1].ID)
	assert.Equal(t, "mgr-1", events[1].ActorID)
	assert.True(t, events[1].Bulk)
	assert.Equal(t, march, events[1].Period)
}

func TestSQLite_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A record written inside a transaction that then fails
	ctx := context.Background()
	s := newStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx generic.Store) error {
		r, err := tx.LoadApprovalRecord(ctx, "emp-1", march)
		if err != nil {
			return err
		}
		r.Statuses[generic.CategoryAttendance] = generic.StatusSubmitted
		if err := tx.WriteApprovalRecord(ctx, r); err != nil {
			return err
		}
		return boom
	})

	// THEN: Neither the lazy default nor the write survives
	require.ErrorIs(t, err, boom)
	records, err := s.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLite_WithTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SaveSubject(ctx, generic.Subject{ID: "emp-1", Kind: generic.SubjectEmployee}); err != nil {
			return err
		}
		r := generic.NewApprovalRecord("emp-1", march)
		r.Statuses[generic.CategoryAttendance] = generic.StatusSubmitted
		if err := tx.WriteApprovalRecordsBulk(ctx, []generic.ApprovalRecord{r}); err != nil {
			return err
		}
		return tx.AppendTransitions(ctx, []generic.TransitionEvent{{
			ID: "ev-1", SubjectID: "emp-1", Period: march, Category: generic.CategoryAttendance,
			From: generic.StatusNoInput, To: generic.StatusSubmitted, At: time.Now(),
		}})
	})
	require.NoError(t, err)

	r, err := s.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusSubmitted, r.Status(generic.CategoryAttendance))
	events, err := s.QueryTransitions(ctx, r.Key())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
