package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/warp/attendance-engine/generic"
)

type fakeReminder struct {
	mu    sync.Mutex
	calls []generic.Category
	err   error
}

func (f *fakeReminder) RemindOutstanding(_ context.Context, category generic.Category, _ generic.Period) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, category)
	if f.err != nil && category == generic.CategoryDailyReport {
		return 0, f.err
	}
	return 2, nil
}

func schedulerAt(r Reminder, now time.Time) *ReminderScheduler {
	rs := NewReminderScheduler(r, time.UTC, zerolog.Nop())
	rs.now = func() time.Time { return now }
	return rs
}

func TestReminderScheduler_OutsideWindow(t *testing.T) {
	// GIVEN: The middle of the month
	r := &fakeReminder{}
	rs := schedulerAt(r, time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))

	// WHEN
	sent := rs.RunNow(context.Background())

	// THEN: Nothing is checked
	assert.Equal(t, 0, sent)
	assert.Empty(t, r.calls)
}

func TestReminderScheduler_OncePerDay(t *testing.T) {
	// GIVEN: Three days before the end of March
	r := &fakeReminder{}
	now := time.Date(2024, time.March, 28, 9, 0, 0, 0, time.UTC)
	rs := schedulerAt(r, now)

	// WHEN: Running twice on the same day, then the next day
	first := rs.RunNow(context.Background())
	second := rs.RunNow(context.Background())
	rs.now = func() time.Time { return now.Add(24 * time.Hour) }
	third := rs.RunNow(context.Background())

	// THEN
	assert.Equal(t, 4, first, "attendance and daily report")
	assert.Equal(t, 0, second)
	assert.Equal(t, 4, third)
	assert.Equal(t, []generic.Category{
		generic.CategoryAttendance, generic.CategoryDailyReport,
		generic.CategoryAttendance, generic.CategoryDailyReport,
	}, r.calls)
}

func TestReminderScheduler_ErrorsDoNotStopOtherCategories(t *testing.T) {
	r := &fakeReminder{err: errors.New("db down")}
	rs := schedulerAt(r, time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC))

	sent := rs.RunNow(context.Background())

	assert.Equal(t, 2, sent)
	assert.Len(t, r.calls, 2)
}

func TestReminderScheduler_DisabledDoesNotStart(t *testing.T) {
	rs := NewReminderScheduler(&fakeReminder{}, nil, zerolog.Nop())
	rs.CheckInterval = 0

	rs.Start()
	rs.Stop()

	assert.Nil(t, rs.ticker)
}
