/*
Package generic provides the shared value types of the attendance engine.

PURPOSE:
  This package holds the vocabulary every other package speaks: calendar
  days and clock times with an explicit location, approval periods, the
  optional Hours quantity, raw clock entries, approval records and their
  per-category status codes, and the persistence interfaces.

  It contains no business rules. Hour arithmetic lives in worktime/,
  transition rules live in approval/.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: an OPTIONAL quantity of hours. Absent is not zero.
  - RawEntry: one day's clock-in/clock-out as typed by the employee
  - Subject: an employee or a room that owns entries and approval records

DESIGN PRINCIPLES:
  1. Absence is structural: a missing clock time yields absent Hours,
     never 0 and never an error.
  2. Precision: Hours uses decimal.Decimal so period totals add up exactly.
  3. Type Safety: SubjectID, Category and Status are distinct types.

SEE ALSO:
  - time.go: TimePoint and ClockTime
  - period.go: Period and DateRange
  - status.go: Category, Stage, Status
  - store.go: Persistence gateway interfaces
*/
package generic

import (
	"bytes"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Optional quantity of hours
// =============================================================================

// Hours is a quantity of hours that may be absent ("not applicable").
// The zero value is absent.
type Hours struct {
	Value decimal.Decimal
	Valid bool
}

var sixty = decimal.NewFromInt(MinutesPerHour)

// HoursFromMinutes returns present Hours equal to m minutes.
func HoursFromMinutes(m int) Hours {
	return Hours{Value: decimal.NewFromInt(int64(m)).Div(sixty), Valid: true}
}

// NewHours returns present Hours equal to h.
func NewHours(h float64) Hours { return Hours{Value: decimal.NewFromFloat(h), Valid: true} }

// NoHours returns absent Hours.
func NoHours() Hours { return Hours{} }

func (h Hours) IsAbsent() bool  { return !h.Valid }
func (h Hours) Float64() float64 { return h.Value.InexactFloat64() }

// Minutes returns the value in whole minutes; 0 when absent.
func (h Hours) Minutes() int {
	if !h.Valid {
		return 0
	}
	return int(h.Value.Mul(sixty).Round(0).IntPart())
}

// Add sums two optional quantities. Absent + absent stays absent;
// absent + x is x.
func (h Hours) Add(other Hours) Hours {
	switch {
	case !h.Valid:
		return other
	case !other.Valid:
		return h
	default:
		return Hours{Value: h.Value.Add(other.Value), Valid: true}
	}
}

// Equal compares presence and value.
func (h Hours) Equal(other Hours) bool {
	if h.Valid != other.Valid {
		return false
	}
	return !h.Valid || h.Value.Equal(other.Value)
}

func (h Hours) String() string {
	if !h.Valid {
		return "-"
	}
	return h.Value.Round(2).String()
}

// MarshalJSON encodes absent Hours as null and present Hours as a number
// rounded to two decimals.
func (h Hours) MarshalJSON() ([]byte, error) {
	if !h.Valid {
		return []byte("null"), nil
	}
	return []byte(h.Value.Round(2).String()), nil
}

func (h *Hours) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*h = Hours{}
		return nil
	}
	s := string(b)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*h = Hours{Value: d, Valid: true}
	return nil
}

// =============================================================================
// IDENTIFIERS & SUBJECTS
// =============================================================================

type SubjectID string

type SubjectKind string

const (
	SubjectEmployee SubjectKind = "employee"
	SubjectRoom     SubjectKind = "room" // owner of daily-report records
)

// Subject owns raw entries and approval records. ChatID is the recipient
// id used by the notification gateway (e.g. a Slack member id).
type Subject struct {
	ID        SubjectID
	Kind      SubjectKind
	Name      string
	ChatID    string
	CreatedAt time.Time
}

// =============================================================================
// RAW ENTRY - One day's clock values as entered
// =============================================================================

// RawEntry is one day of attendance input. Start and End are optional;
// when either is missing every derived duration is absent.
type RawEntry struct {
	Date        TimePoint
	Start       *ClockTime
	End         *ClockTime
	RestMinutes int
	AbsenceCode string // empty when the day is not an absence
	WorkStyle   string
	Note        string
}

// HasClockTimes reports whether both clock values are present.
func (e RawEntry) HasClockTimes() bool { return e.Start != nil && e.End != nil }
