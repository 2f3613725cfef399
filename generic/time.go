package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - A calendar day pinned to an explicit location
// =============================================================================

// TimePoint is a calendar day. The underlying time is always midnight in the
// location it was constructed with; comparisons use the calendar date only,
// so two TimePoints built in different locations compare by their Y-M-D.
//
// Build TimePoints once at the system boundary (ParseDate, Today) with the
// configured location. Nothing below the boundary coerces to UTC.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int, loc *time.Location) TimePoint {
	if loc == nil {
		loc = time.UTC
	}
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// TimePointOf truncates t to its calendar day in t's own location.
func TimePointOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day(), t.Location())
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) TimePoint {
	if loc == nil {
		loc = time.UTC
	}
	return TimePointOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (TimePoint, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return TimePoint{Time: t}, nil
}

const DateLayout = "2006-01-02"

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.dayKey() < other.dayKey() }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.dayKey() == other.dayKey() }
func (tp TimePoint) After(other TimePoint) bool         { return tp.dayKey() > other.dayKey() }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) dayKey() int {
	return tp.Time.Year()*10000 + int(tp.Time.Month())*100 + tp.Time.Day()
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePointOf(tp.Time.AddDate(0, 0, n)) }

// Properties
func (tp TimePoint) Year() int                  { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month          { return tp.Time.Month() }
func (tp TimePoint) Day() int                   { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday      { return tp.Time.Weekday() }
func (tp TimePoint) Location() *time.Location   { return tp.Time.Location() }
func (tp TimePoint) IsZero() bool               { return tp.Time.IsZero() }
func (tp TimePoint) Period() Period             { return NewPeriod(tp.Year(), tp.Month()) }
func (tp TimePoint) String() string             { return tp.Time.Format(DateLayout) }
func (tp TimePoint) MarshalText() ([]byte, error) { return []byte(tp.String()), nil }

// UnmarshalText parses a YYYY-MM-DD date in UTC. Callers that need another
// location should use ParseDate instead.
func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b), time.UTC)
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// CLOCK TIME - Time of day with minute precision
// =============================================================================

// ClockTime is a time of day expressed as minutes since midnight (0..1439).
type ClockTime int

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
)

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %02d:%02d", hour, minute)
	}
	return ClockTime(hour*MinutesPerHour + minute), nil
}

// ParseClockTime parses "HH:MM" (seconds, if present, are dropped).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (use HH:MM): %w", s, err)
	}
	return NewClockTime(t.Hour(), t.Minute())
}

// MustClock parses s or panics. Use in tests and static tables only.
func MustClock(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockAt returns a pointer to the clock time hour:minute.
// Out-of-range values are wrapped onto the 24h dial.
func ClockAt(hour, minute int) *ClockTime {
	c := ClockTime(((hour*MinutesPerHour+minute)%MinutesPerDay + MinutesPerDay) % MinutesPerDay)
	return &c
}

func (c ClockTime) Hour() int      { return int(c) / MinutesPerHour }
func (c ClockTime) Minute() int    { return int(c) % MinutesPerHour }
func (c ClockTime) Minutes() int   { return int(c) }
func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
