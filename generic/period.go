package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The unit of approval (one calendar month)
// =============================================================================

// Period identifies a calendar month. Approval records are keyed by
// (subject, period); raw entries are loaded a period at a time.
type Period struct {
	Year  int
	Month time.Month
}

const PeriodLayout = "2006-01"

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses a YYYY-MM period.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q (use YYYY-MM)", ErrInvalidPeriod, s)
	}
	return NewPeriod(t.Year(), t.Month()), nil
}

func (p Period) IsZero() bool   { return p.Year == 0 && p.Month == 0 }
func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// Start returns the first day of the month in loc.
func (p Period) Start(loc *time.Location) TimePoint { return NewTimePoint(p.Year, p.Month, 1, loc) }

// End returns the last day of the month in loc.
func (p Period) End(loc *time.Location) TimePoint {
	return NewTimePoint(p.Year, p.Month+1, 1, loc).AddDays(-1)
}

// Range returns the whole month as a DateRange.
func (p Period) Range(loc *time.Location) DateRange {
	return DateRange{From: p.Start(loc), To: p.End(loc)}
}

// Contains reports whether tp falls in this month.
func (p Period) Contains(tp TimePoint) bool {
	return tp.Year() == p.Year && tp.Month() == p.Month
}

func (p Period) Next() Period {
	t := time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return NewPeriod(t.Year(), t.Month())
}

func (p Period) Previous() Period {
	t := time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC)
	return NewPeriod(t.Year(), t.Month())
}

func (p Period) Before(other Period) bool {
	return p.Year < other.Year || (p.Year == other.Year && p.Month < other.Month)
}

func (p Period) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// =============================================================================
// DATE RANGE - Inclusive day range used to scope bulk operations
// =============================================================================

// MaxRangePeriods bounds how many periods a bulk range may touch.
const MaxRangePeriods = 12

type DateRange struct {
	From TimePoint
	To   TimePoint
}

// NewDateRange returns [from, to], rejecting ranges that end before they start.
func NewDateRange(from, to TimePoint) (DateRange, error) {
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, from, to)
	}
	return DateRange{From: from, To: to}, nil
}

// Contains returns true if the day is within [From, To].
func (r DateRange) Contains(t TimePoint) bool {
	return t.AfterOrEqual(r.From) && t.BeforeOrEqual(r.To)
}

// Overlaps reports whether any day of the period lies within the range.
func (r DateRange) Overlaps(p Period) bool {
	loc := r.From.Location()
	return !p.End(loc).Before(r.From) && !p.Start(loc).After(r.To)
}

// Periods returns every period the range touches, in order.
func (r DateRange) Periods() []Period {
	var periods []Period
	last := r.To.Period()
	for p := r.From.Period(); !last.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// CheckSpan rejects ranges touching more than limit periods.
func (r DateRange) CheckSpan(limit int) error {
	from, to := r.From.Period(), r.To.Period()
	n := (to.Year-from.Year)*12 + int(to.Month-from.Month) + 1
	if n > limit {
		return fmt.Errorf("%w: %s spans %d periods (max %d)", ErrInvalidPeriod, r, n, limit)
	}
	return nil
}

// Days returns every day in the range.
func (r DateRange) Days() []TimePoint {
	var days []TimePoint
	for current := r.From; current.BeforeOrEqual(r.To); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}
