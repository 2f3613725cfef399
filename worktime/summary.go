package worktime

import (
	"github.com/warp/attendance-engine/generic"
)

// Row pairs an entry with its derived figures.
type Row struct {
	Entry generic.RawEntry
	DerivedTimes
}

// Totals aggregates a period's rows. A total is absent only when every
// contribution to it was absent.
type Totals struct {
	ActiveHours             generic.Hours `json:"active_hours"`
	OvertimeHours           generic.Hours `json:"overtime_hours"`
	LateNightOvertimeHours  generic.Hours `json:"late_night_overtime_hours"`
	LegalHolidayActiveHours generic.Hours `json:"legal_holiday_active_hours"`
	WorkDays                int           `json:"work_days"`
	AbsenceDays             int           `json:"absence_days"`
}

// minuteSum accumulates optional minutes so totals convert to Hours once.
type minuteSum struct {
	minutes int
	present bool
}

func (s *minuteSum) add(m int, ok bool) {
	if ok {
		s.minutes += m
		s.present = true
	}
}

func (s minuteSum) hours() generic.Hours { return toHours(s.minutes, s.present) }

// Summarize computes every row of a period and its totals.
func (e *Engine) Summarize(entries []generic.RawEntry) ([]Row, Totals) {
	rows := make([]Row, 0, len(entries))
	var active, overtime, night, holiday minuteSum
	var totals Totals

	for _, entry := range entries {
		rows = append(rows, Row{Entry: entry, DerivedTimes: e.Compute(entry)})

		active.add(e.activeMinutes(entry))
		overtime.add(e.overtimeMinutes(entry))
		night.add(e.lateNightMinutes(entry))
		holiday.add(e.legalHolidayMinutes(entry))

		if entry.HasClockTimes() {
			totals.WorkDays++
		}
		if entry.AbsenceCode != "" {
			totals.AbsenceDays++
		}
	}

	totals.ActiveHours = active.hours()
	totals.OvertimeHours = overtime.hours()
	totals.LateNightOvertimeHours = night.hours()
	totals.LegalHolidayActiveHours = holiday.hours()
	return rows, totals
}

// TotalActive is the period's active-hours total, as stored on approval records.
func (e *Engine) TotalActive(entries []generic.RawEntry) generic.Hours {
	var active minuteSum
	for _, entry := range entries {
		active.add(e.activeMinutes(entry))
	}
	return active.hours()
}
