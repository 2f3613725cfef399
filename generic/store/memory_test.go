package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
)

var march = generic.NewPeriod(2024, time.March)

func TestMemory_LoadApprovalRecord_CreatesLazily(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	records, err := m.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	r, err := m.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusNoInput, r.Status(generic.CategoryAttendance))

	records, err = m.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1, "first access persists the default record")
}

func TestMemory_LoadEntries_FiltersPeriodAndSorts(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	for _, d := range []int{20, 3, 11} {
		require.NoError(t, m.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: generic.NewTimePoint(2024, time.March, d, nil)}))
	}
	require.NoError(t, m.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: generic.NewTimePoint(2024, time.April, 1, nil)}))
	require.NoError(t, m.SaveEntry(ctx, "emp-2", generic.RawEntry{Date: generic.NewTimePoint(2024, time.March, 5, nil)}))

	entries, err := m.LoadEntries(ctx, "emp-1", march)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[0].Date.Day())
	assert.Equal(t, 20, entries[2].Date.Day())
}

func TestMemory_DeleteSubject_Cascades(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveSubject(ctx, generic.Subject{ID: "emp-1", Kind: generic.SubjectEmployee}))
	require.NoError(t, m.SaveEntry(ctx, "emp-1", generic.RawEntry{Date: generic.NewTimePoint(2024, time.March, 1, nil)}))
	_, err := m.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	require.NoError(t, m.AppendTransitions(ctx, []generic.TransitionEvent{{ID: "ev-1", SubjectID: "emp-1", Period: march}}))

	require.NoError(t, m.DeleteSubject(ctx, "emp-1"))

	_, err = m.GetSubject(ctx, "emp-1")
	assert.ErrorIs(t, err, generic.ErrSubjectNotFound)
	entries, _ := m.LoadEntries(ctx, "emp-1", march)
	assert.Empty(t, entries)
	records, _ := m.ListApprovalRecords(ctx, generic.RecordFilter{})
	assert.Empty(t, records)
	events, _ := m.QueryTransitions(ctx, generic.RecordKey{SubjectID: "emp-1", Period: march})
	assert.Empty(t, events)

	assert.ErrorIs(t, m.DeleteSubject(ctx, "emp-1"), generic.ErrSubjectNotFound)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A record written inside a transaction that then fails
	ctx := context.Background()
	m := store.NewTxMemory()

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx generic.Store) error {
		r, err := tx.LoadApprovalRecord(ctx, "emp-1", march)
		require.NoError(t, err)
		r.Statuses[generic.CategoryAttendance] = generic.StatusSubmitted
		require.NoError(t, tx.WriteApprovalRecordsBulk(ctx, []generic.ApprovalRecord{r}))
		return boom
	})

	// THEN: Nothing survives, not even the lazily created record
	assert.ErrorIs(t, err, boom)
	records, err := m.ListApprovalRecords(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTxMemory_CommitOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewTxMemory()

	err := m.WithTx(ctx, func(tx generic.Store) error {
		r, err := tx.LoadApprovalRecord(ctx, "emp-1", march)
		if err != nil {
			return err
		}
		r.Statuses[generic.CategoryAttendance] = generic.StatusSubmitted
		return tx.WriteApprovalRecord(ctx, r)
	})
	require.NoError(t, err)

	r, err := m.LoadApprovalRecord(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusSubmitted, r.Status(generic.CategoryAttendance))
}

func TestRecordFilter_Matches(t *testing.T) {
	r := generic.NewApprovalRecord("emp-1", march)

	assert.True(t, generic.RecordFilter{}.Matches(r))
	assert.True(t, generic.RecordFilter{SubjectIDs: []generic.SubjectID{"emp-2", "emp-1"}}.Matches(r))
	assert.False(t, generic.RecordFilter{SubjectIDs: []generic.SubjectID{"emp-2"}}.Matches(r))
	assert.True(t, generic.RecordFilter{From: march, To: march}.Matches(r))
	assert.False(t, generic.RecordFilter{From: march.Next()}.Matches(r))
	assert.False(t, generic.RecordFilter{To: march.Previous()}.Matches(r))
}
