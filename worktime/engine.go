package worktime

import (
	"github.com/warp/attendance-engine/generic"
)

// DerivedTimes is the computed row for one RawEntry. Every field may be absent.
type DerivedTimes struct {
	ActiveHours             generic.Hours `json:"active_hours"`
	OvertimeHours           generic.Hours `json:"overtime_hours"`
	LateNightOvertimeHours  generic.Hours `json:"late_night_overtime_hours"`
	LegalHolidayActiveHours generic.Hours `json:"legal_holiday_active_hours"`
}

// Engine binds the derivation functions to a set of rules.
type Engine struct {
	Rules Rules
}

// NewEngine returns an engine using the given rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{Rules: rules}
}

// Default is an engine with DefaultRules.
var Default = NewEngine(DefaultRules())

// =============================================================================
// DERIVED FIGURES
// =============================================================================

// Compute returns all four derived figures for the entry.
func (e *Engine) Compute(entry generic.RawEntry) DerivedTimes {
	return DerivedTimes{
		ActiveHours:             e.ActiveHours(entry),
		OvertimeHours:           e.OvertimeHours(entry),
		LateNightOvertimeHours:  e.LateNightOvertimeHours(entry),
		LegalHolidayActiveHours: e.LegalHolidayActiveHours(entry),
	}
}

// ActiveHours is the worked span minus rest, never negative.
func (e *Engine) ActiveHours(entry generic.RawEntry) generic.Hours {
	return toHours(e.activeMinutes(entry))
}

// OvertimeHours is active hours beyond the standard day. Days shorter than
// the standard day have no overtime figure at all.
func (e *Engine) OvertimeHours(entry generic.RawEntry) generic.Hours {
	return toHours(e.overtimeMinutes(entry))
}

// LateNightOvertimeHours is the overlap of the worked interval with the
// night windows.
func (e *Engine) LateNightOvertimeHours(entry generic.RawEntry) generic.Hours {
	return toHours(e.lateNightMinutes(entry))
}

// LegalHolidayActiveHours is the active hours of an entry dated on the legal
// holiday weekday; absent on every other day.
func (e *Engine) LegalHolidayActiveHours(entry generic.RawEntry) generic.Hours {
	return toHours(e.legalHolidayMinutes(entry))
}

// =============================================================================
// MINUTE ARITHMETIC
// =============================================================================

// shift returns the worked interval [S, E) on the extended timeline.
func shift(entry generic.RawEntry) (start, end int, ok bool) {
	if !entry.HasClockTimes() {
		return 0, 0, false
	}
	start, end = entry.Start.Minutes(), entry.End.Minutes()
	if end <= start {
		end += generic.MinutesPerDay
	}
	return start, end, true
}

func (e *Engine) activeMinutes(entry generic.RawEntry) (int, bool) {
	start, end, ok := shift(entry)
	if !ok {
		return 0, false
	}
	return max(0, end-start-max(0, entry.RestMinutes)), true
}

func (e *Engine) overtimeMinutes(entry generic.RawEntry) (int, bool) {
	active, ok := e.activeMinutes(entry)
	if !ok || active < e.Rules.StandardDayMinutes {
		return 0, false
	}
	return active - e.Rules.StandardDayMinutes, true
}

func (e *Engine) lateNightMinutes(entry generic.RawEntry) (int, bool) {
	start, end, ok := shift(entry)
	if !ok {
		return 0, false
	}
	if end-start == generic.MinutesPerDay {
		return e.Rules.FullDayNightMinutes, true
	}
	return e.Rules.NightOverlapMinutes(start, end), true
}

func (e *Engine) legalHolidayMinutes(entry generic.RawEntry) (int, bool) {
	if entry.Date.IsZero() || entry.Date.Weekday() != e.Rules.LegalHoliday {
		return 0, false
	}
	return e.activeMinutes(entry)
}

// NightOverlapMinutes returns how many minutes of [from, to) on the extended
// timeline fall inside the night windows. Rest is not deducted.
func (r Rules) NightOverlapMinutes(from, to int) int {
	total := 0
	for _, w := range r.nightWindows() {
		total += max(0, min(to, w[1])-max(from, w[0]))
	}
	return total
}

func toHours(minutes int, ok bool) generic.Hours {
	if !ok {
		return generic.NoHours()
	}
	return generic.HoursFromMinutes(minutes)
}

// =============================================================================
// PACKAGE-LEVEL HELPERS - DefaultRules
// =============================================================================

func Compute(entry generic.RawEntry) DerivedTimes { return Default.Compute(entry) }

func ActiveHours(entry generic.RawEntry) generic.Hours { return Default.ActiveHours(entry) }

func OvertimeHours(entry generic.RawEntry) generic.Hours { return Default.OvertimeHours(entry) }

func LateNightOvertimeHours(entry generic.RawEntry) generic.Hours {
	return Default.LateNightOvertimeHours(entry)
}

func LegalHolidayActiveHours(entry generic.RawEntry) generic.Hours {
	return Default.LegalHolidayActiveHours(entry)
}
