/*
scheduler.go - Outstanding-submission reminder scheduler

PURPOSE:
  Near the end of each period, periodically reminds subjects whose
  attendance (employees) or daily report (rooms) has not been submitted.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only acts during the last DaysBeforeEnd days of the current period
  - Reminds at most once per calendar day per period
  - Notification failures are logged by the dispatcher; they never stop
    the scheduler

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - DaysBeforeEnd: Reminder window before period end (default: 3)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(service, loc, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - approval/service.go: Outstanding / RemindOutstanding
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/generic"
)

// Reminder is the part of approval.Service the scheduler drives.
type Reminder interface {
	RemindOutstanding(ctx context.Context, category generic.Category, period generic.Period) (int, error)
}

// reminderCategories are checked on every run.
var reminderCategories = []generic.Category{generic.CategoryAttendance, generic.CategoryDailyReport}

// ReminderScheduler sends outstanding-submission reminders.
type ReminderScheduler struct {
	Reminder      Reminder
	Location      *time.Location
	CheckInterval time.Duration
	DaysBeforeEnd int
	Enabled       bool

	log     zerolog.Logger
	now     func() time.Time
	lastRun map[generic.Period]generic.TimePoint

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(reminder Reminder, loc *time.Location, log zerolog.Logger) *ReminderScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderScheduler{
		Reminder:      reminder,
		Location:      loc,
		CheckInterval: 1 * time.Hour,
		DaysBeforeEnd: 3,
		Enabled:       true,
		log:           log.With().Str("component", "scheduler").Logger(),
		now:           time.Now,
		lastRun:       make(map[generic.Period]generic.TimePoint),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.log.Info().Msg("Scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.log.Info().Dur("interval", rs.CheckInterval).Int("days_before_end", rs.DaysBeforeEnd).Msg("Scheduler started")
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.log.Info().Msg("Scheduler stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow performs one check and returns the number of reminders sent.
func (rs *ReminderScheduler) RunNow(ctx context.Context) int {
	today := generic.TimePointOf(rs.now().In(rs.Location))
	period := today.Period()

	if !rs.due(today, period) {
		return 0
	}

	sent := 0
	for _, category := range reminderCategories {
		n, err := rs.Reminder.RemindOutstanding(ctx, category, period)
		if err != nil {
			rs.log.Error().Err(err).
				Str("category", string(category)).
				Str("period", period.String()).
				Msg("Reminder run failed")
			continue
		}
		sent += n
	}

	rs.mu.Lock()
	rs.lastRun[period] = today
	rs.mu.Unlock()

	if sent > 0 {
		rs.log.Info().Str("period", period.String()).Int("reminded", sent).Msg("Reminders sent")
	}
	return sent
}

// due reports whether today is inside the reminder window and no run has
// happened yet today.
func (rs *ReminderScheduler) due(today generic.TimePoint, period generic.Period) bool {
	windowStart := period.End(rs.Location).AddDays(-rs.DaysBeforeEnd)
	if today.Before(windowStart) {
		return false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	last, ok := rs.lastRun[period]
	return !ok || last.Before(today)
}

// NextRunTime returns when the next scheduled check will occur.
func (rs *ReminderScheduler) NextRunTime() time.Time {
	return rs.now().Add(rs.CheckInterval)
}
