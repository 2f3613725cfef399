package worktime_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/worktime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// saturday is 2024-03-30; sunday is the day after.
var (
	saturday = generic.NewTimePoint(2024, time.March, 30, time.UTC)
	sunday   = generic.NewTimePoint(2024, time.March, 31, time.UTC)
)

func entry(start, end string, rest int) generic.RawEntry {
	e := generic.RawEntry{Date: saturday, RestMinutes: rest}
	if start != "" {
		c := generic.MustClock(start)
		e.Start = &c
	}
	if end != "" {
		c := generic.MustClock(end)
		e.End = &c
	}
	return e
}

// =============================================================================
// ACTIVE HOURS
// =============================================================================

func TestActiveHours_SameDay(t *testing.T) {
	// GIVEN: For every end > start on a 30-minute grid and a rest below the span
	// THEN: active = (end - start) - rest
	for s := 0; s < generic.MinutesPerDay; s += 30 {
		for e := s + 30; e < generic.MinutesPerDay; e += 30 {
			rest := (e - s) / 3
			got := worktime.ActiveHours(generic.RawEntry{
				Date: saturday, Start: generic.ClockAt(0, s), End: generic.ClockAt(0, e), RestMinutes: rest,
			})
			require.False(t, got.IsAbsent())
			require.Equal(t, e-s-rest, got.Minutes(), "start=%d end=%d", s, e)
		}
	}
}

func TestActiveHours_Overnight(t *testing.T) {
	got := worktime.ActiveHours(entry("22:00", "02:00", 0))
	assert.True(t, generic.NewHours(4).Equal(got), "got %s", got)
}

func TestActiveHours_RestLongerThanShift_ClampsToZero(t *testing.T) {
	got := worktime.ActiveHours(entry("09:00", "10:00", 90))

	assert.False(t, got.IsAbsent())
	assert.Equal(t, 0, got.Minutes())
}

func TestActiveHours_StartEqualsEnd_IsFullDay(t *testing.T) {
	got := worktime.ActiveHours(entry("08:00", "08:00", 60))
	assert.Equal(t, 23*60, got.Minutes())
}

func TestDerivedTimes_MissingInput_AllAbsent(t *testing.T) {
	for _, e := range []generic.RawEntry{
		entry("", "18:00", 0),
		entry("09:00", "", 0),
		entry("", "", 0),
	} {
		e.Date = sunday
		got := worktime.Compute(e)

		assert.True(t, got.ActiveHours.IsAbsent())
		assert.True(t, got.OvertimeHours.IsAbsent())
		assert.True(t, got.LateNightOvertimeHours.IsAbsent())
		assert.True(t, got.LegalHolidayActiveHours.IsAbsent())
	}
}

// =============================================================================
// OVERTIME
// =============================================================================

func TestOvertimeHours(t *testing.T) {
	tests := []struct {
		name   string
		entry  generic.RawEntry
		absent bool
		want   int
	}{
		{"short day has no overtime", entry("09:00", "16:00", 0), true, 0},
		{"one minute short", entry("09:00", "17:59", 0), true, 0},
		{"exactly standard day", entry("09:00", "18:00", 60), false, 0},
		{"two hours over", entry("08:00", "19:00", 60), false, 120},
		{"overnight", entry("20:00", "07:00", 60), false, 120},
		{"missing end", entry("09:00", "", 0), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := worktime.OvertimeHours(tt.entry)
			assert.Equal(t, tt.absent, got.IsAbsent())
			if !tt.absent {
				assert.Equal(t, tt.want, got.Minutes())
			}
		})
	}
}

func TestOvertimeHours_AbsentWheneverActiveBelowStandard(t *testing.T) {
	for s := 0; s < generic.MinutesPerDay; s += 60 {
		for e := 0; e < generic.MinutesPerDay; e += 60 {
			for _, rest := range []int{0, 45, 60} {
				ent := generic.RawEntry{Date: saturday, Start: generic.ClockAt(0, s), End: generic.ClockAt(0, e), RestMinutes: rest}
				if worktime.ActiveHours(ent).Minutes() < 8*60 {
					require.True(t, worktime.OvertimeHours(ent).IsAbsent(), "start=%d end=%d rest=%d", s, e, rest)
				}
			}
		}
	}
}

// =============================================================================
// LATE NIGHT
// =============================================================================

func TestLateNightOvertimeHours_KnownShifts(t *testing.T) {
	tests := []struct {
		start, end string
		want       float64
	}{
		{"09:00", "18:00", 0},
		{"20:00", "23:00", 1},
		{"23:00", "06:00", 6},
		{"22:00", "02:00", 4},
		{"21:00", "05:00", 7},
		{"18:00", "03:00", 5},
		{"17:00", "22:00", 0},
		{"05:00", "22:00", 0},
		{"04:00", "12:00", 1},
		{"00:00", "08:00", 5},
		{"02:00", "23:00", 4},
		{"03:00", "02:00", 6},
		{"21:30", "23:45", 1.75},
		{"23:00", "22:59", 6},
		{"00:00", "00:00", worktime.FullDayNightHours},
		{"22:00", "22:00", worktime.FullDayNightHours},
		{"13:00", "13:00", worktime.FullDayNightHours},
	}
	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			got := worktime.LateNightOvertimeHours(entry(tt.start, tt.end, 0))
			require.False(t, got.IsAbsent())
			assert.Equal(t, int(tt.want*60), got.Minutes())
		})
	}
}

func TestLateNightOvertimeHours_RestIsNotDeducted(t *testing.T) {
	got := worktime.LateNightOvertimeHours(entry("22:00", "02:00", 60))
	assert.Equal(t, 4*60, got.Minutes())
}

// nightOracle counts night minutes one by one on the extended timeline.
func nightOracle(rules worktime.Rules, start, end int) int {
	n := 0
	nightEnd, nightStart := rules.NightEnd.Minutes(), rules.NightStart.Minutes()
	for t := start; t < end; t++ {
		if t < nightEnd || (t >= nightStart && t < generic.MinutesPerDay+nightEnd) {
			n++
		}
	}
	return n
}

func TestLateNightOvertimeHours_MatchesMinuteOracle(t *testing.T) {
	// GIVEN: Every (start, end) pair on a 15-minute grid
	// THEN: The overlap rule agrees with counting minutes one by one
	rules := worktime.DefaultRules()
	for s := 0; s < generic.MinutesPerDay; s += 15 {
		for e := 0; e < generic.MinutesPerDay; e += 15 {
			if s == e {
				continue
			}
			end := e
			if end <= s {
				end += generic.MinutesPerDay
			}
			ent := generic.RawEntry{Date: saturday, Start: generic.ClockAt(0, s), End: generic.ClockAt(0, e)}
			got := worktime.LateNightOvertimeHours(ent).Minutes()
			require.Equal(t, nightOracle(rules, s, end), got, "start=%s end=%s", generic.ClockTime(s), generic.ClockTime(e))
		}
	}
}

func TestNightOverlap_Additive(t *testing.T) {
	// GIVEN: A shift split into two disjoint adjacent parts at every grid point
	// THEN: overlap(A ∪ B) == overlap(A) + overlap(B)
	rules := worktime.DefaultRules()
	for s := 0; s < generic.MinutesPerDay; s += 30 {
		for length := 30; length < generic.MinutesPerDay; length += 90 {
			e := s + length
			whole := rules.NightOverlapMinutes(s, e)
			for m := s; m <= e; m += 15 {
				a := rules.NightOverlapMinutes(s, m)
				b := rules.NightOverlapMinutes(m, e)
				require.Equal(t, whole, a+b, "shift [%d,%d) split at %d", s, e, m)
			}
		}
	}
}

func TestLateNightOvertimeHours_CustomWindow(t *testing.T) {
	rules := worktime.DefaultRules()
	rules.NightStart = generic.MustClock("23:00")
	rules.NightEnd = generic.MustClock("04:00")
	engine := worktime.NewEngine(rules)

	got := engine.LateNightOvertimeHours(entry("22:00", "06:00", 0))
	assert.Equal(t, 5*60, got.Minutes())
}

// =============================================================================
// LEGAL HOLIDAY
// =============================================================================

func TestLegalHolidayActiveHours_OnlyOnSunday(t *testing.T) {
	// GIVEN: The same long shift on each day of one week
	// THEN: Only the Sunday reports legal-holiday hours
	for d := 25; d <= 31; d++ {
		e := entry("08:00", "20:00", 60)
		e.Date = generic.NewTimePoint(2024, time.March, d, time.UTC)

		got := worktime.LegalHolidayActiveHours(e)
		if e.Date.Weekday() == time.Sunday {
			assert.True(t, worktime.ActiveHours(e).Equal(got), "day %d", d)
		} else {
			assert.True(t, got.IsAbsent(), "day %d", d)
		}
	}
}

func TestLegalHolidayActiveHours_UsesEntryLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	e := entry("09:00", "12:00", 0)
	e.Date = generic.NewTimePoint(2024, time.March, 31, tokyo)

	assert.Equal(t, 3*60, worktime.LegalHolidayActiveHours(e).Minutes())
}

func TestCompute_Sunday(t *testing.T) {
	e := entry("20:00", "07:00", 60)
	e.Date = sunday

	got := worktime.Compute(e)

	assert.Equal(t, 10*60, got.ActiveHours.Minutes())
	assert.Equal(t, 2*60, got.OvertimeHours.Minutes())
	assert.Equal(t, 7*60, got.LateNightOvertimeHours.Minutes())
	assert.Equal(t, 10*60, got.LegalHolidayActiveHours.Minutes())
}

// =============================================================================
// RULES
// =============================================================================

func TestRules_Validate(t *testing.T) {
	require.NoError(t, worktime.DefaultRules().Validate())

	tests := []struct {
		name   string
		mutate func(*worktime.Rules)
	}{
		{"zero standard day", func(r *worktime.Rules) { r.StandardDayMinutes = 0 }},
		{"night does not wrap", func(r *worktime.Rules) { r.NightStart, r.NightEnd = generic.MustClock("01:00"), generic.MustClock("05:00") }},
		{"negative full day", func(r *worktime.Rules) { r.FullDayNightMinutes = -1 }},
		{"bad weekday", func(r *worktime.Rules) { r.LegalHoliday = 7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := worktime.DefaultRules()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func ExampleEngine_Compute() {
	start, end := generic.MustClock("23:00"), generic.MustClock("06:00")
	got := worktime.Compute(generic.RawEntry{
		Date:        generic.NewTimePoint(2024, time.March, 30, time.UTC),
		Start:       &start,
		End:         &end,
		RestMinutes: 60,
	})
	fmt.Println(got.ActiveHours, got.OvertimeHours, got.LateNightOvertimeHours, got.LegalHolidayActiveHours)
	// Output: 6 - 6 -
}
