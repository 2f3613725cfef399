/*
Package worktime derives worked, overtime, late-night and legal-holiday hours
from one day's raw clock-in/clock-out values.

PURPOSE:
  Every function here is pure: a RawEntry and a Rules value in, an optional
  Hours value out. Nothing is stored between calls and nothing returns an
  error. A missing start or end time yields absent Hours, which callers
  must keep distinct from zero when rendering totals.

TIMELINE:
  All arithmetic happens in minutes on an extended timeline that starts at
  midnight of the entry's date. A shift whose end is at or before its start
  ends on the following day, so its end is moved 24h forward:

    0h          5h                 22h      24h       29h
    ├───night───┤                  ├────night──────────┤
    │           │     ┌───── worked [S, E) ─────┐      │
                        S=09:00 ...       E=02:00+24h

  The night windows on this timeline are [00:00, 05:00) and [22:00, 29:00).
  Late-night hours are the sum of the overlaps of [S, E) with both windows.

FULL-DAY SHIFTS:
  start == end is read as a 24h shift. Its night figure is the fixed
  FullDayNightHours constant (7h), not the overlap.

SEE ALSO:
  - engine.go: the four derived figures
  - summary.go: period totals
  - factory/rules.go: loading Rules from a YAML document
*/
package worktime

import (
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

const (
	// StandardDayHours is the daily threshold above which hours count as overtime.
	StandardDayHours = 8

	// FullDayNightHours is the late-night figure reported for a shift whose
	// start equals its end. It is a compatibility constant; it is not
	// derived from the night window.
	FullDayNightHours = 7
)

var (
	DefaultNightStart = generic.MustClock("22:00")
	DefaultNightEnd   = generic.MustClock("05:00")
)

// =============================================================================
// RULES
// =============================================================================

// Rules parameterises the engine. The zero value is not usable; start from
// DefaultRules.
type Rules struct {
	StandardDayMinutes  int               `json:"standard_day_minutes"`
	NightStart          generic.ClockTime `json:"night_start"`
	NightEnd            generic.ClockTime `json:"night_end"`
	FullDayNightMinutes int               `json:"full_day_night_minutes"`
	LegalHoliday        time.Weekday      `json:"legal_holiday"`
}

// DefaultRules is the business policy: 8h day, night 22:00-05:00, Sunday
// as the legal holiday.
func DefaultRules() Rules {
	return Rules{
		StandardDayMinutes:  StandardDayHours * generic.MinutesPerHour,
		NightStart:          DefaultNightStart,
		NightEnd:            DefaultNightEnd,
		FullDayNightMinutes: FullDayNightHours * generic.MinutesPerHour,
		LegalHoliday:        time.Sunday,
	}
}

// Validate checks the rules are internally consistent.
func (r Rules) Validate() error {
	if r.StandardDayMinutes <= 0 || r.StandardDayMinutes > generic.MinutesPerDay {
		return fmt.Errorf("standard day must be within (0, 24h], got %d minutes", r.StandardDayMinutes)
	}
	if r.NightEnd >= r.NightStart {
		return fmt.Errorf("night window must wrap midnight, got %s-%s", r.NightStart, r.NightEnd)
	}
	if r.FullDayNightMinutes < 0 || r.FullDayNightMinutes > generic.MinutesPerDay {
		return fmt.Errorf("full-day night figure must be within [0, 24h], got %d minutes", r.FullDayNightMinutes)
	}
	if r.LegalHoliday < time.Sunday || r.LegalHoliday > time.Saturday {
		return fmt.Errorf("invalid legal holiday weekday %d", r.LegalHoliday)
	}
	return nil
}

// nightWindows returns the two night windows on the extended timeline.
func (r Rules) nightWindows() [2][2]int {
	return [2][2]int{
		{0, r.NightEnd.Minutes()},
		{r.NightStart.Minutes(), generic.MinutesPerDay + r.NightEnd.Minutes()},
	}
}
