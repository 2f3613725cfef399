/*
Package factory converts rules documents into engine configuration.

PURPOSE:
  Work rules (standard day, night window, legal holiday, timezone) change
  per site and per contract. They are kept in a YAML document so they can
  be edited without code changes; the factory validates the document and
  builds worktime.Rules and the *time.Location every date is built in.

DOCUMENT:
  timezone: Asia/Tokyo
  standard_day_hours: 8
  night_window:
    start: "22:00"
    end: "05:00"
  full_day_night_hours: 7
  legal_holiday: sunday

  Every field is optional; missing fields keep worktime.DefaultRules.
  JSON is valid YAML, so the same document may be written as JSON.

USAGE:
  settings, err := factory.LoadRulesFile("rules.yaml")
  engine := worktime.NewEngine(settings.Rules)
  day, err := generic.ParseDate("2024-03-31", settings.Location)

SEE ALSO:
  - worktime/rules.go: Rules and its validation
  - config/config.go: RULES_FILE and TIMEZONE settings
*/
package factory

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/worktime"
)

// =============================================================================
// DOCUMENT SCHEMA
// =============================================================================

// RulesDocument is the YAML representation of the work rules.
type RulesDocument struct {
	Timezone          string       `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	StandardDayHours  *float64     `yaml:"standard_day_hours,omitempty" json:"standard_day_hours,omitempty"`
	NightWindow       *NightWindow `yaml:"night_window,omitempty" json:"night_window,omitempty"`
	FullDayNightHours *float64     `yaml:"full_day_night_hours,omitempty" json:"full_day_night_hours,omitempty"`
	LegalHoliday      string       `yaml:"legal_holiday,omitempty" json:"legal_holiday,omitempty"`
}

type NightWindow struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Settings is the result of a parsed document.
type Settings struct {
	Rules    worktime.Rules
	Location *time.Location
}

// DefaultSettings is DefaultRules in UTC.
func DefaultSettings() Settings {
	return Settings{Rules: worktime.DefaultRules(), Location: time.UTC}
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRules parses a YAML (or JSON) rules document.
func ParseRules(data []byte) (Settings, error) {
	var doc RulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("invalid rules document: %w", err)
	}
	return doc.Settings()
}

// LoadRulesFile reads and parses a rules document.
func LoadRulesFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// Settings applies the document over the defaults and validates the result.
func (d RulesDocument) Settings() (Settings, error) {
	s := DefaultSettings()

	if d.Timezone != "" {
		loc, err := time.LoadLocation(d.Timezone)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
		}
		s.Location = loc
	}

	if d.StandardDayHours != nil {
		s.Rules.StandardDayMinutes = hoursToMinutes(*d.StandardDayHours)
	}
	if d.FullDayNightHours != nil {
		s.Rules.FullDayNightMinutes = hoursToMinutes(*d.FullDayNightHours)
	}

	if d.NightWindow != nil {
		start, err := generic.ParseClockTime(d.NightWindow.Start)
		if err != nil {
			return Settings{}, fmt.Errorf("night_window.start: %w", err)
		}
		end, err := generic.ParseClockTime(d.NightWindow.End)
		if err != nil {
			return Settings{}, fmt.Errorf("night_window.end: %w", err)
		}
		s.Rules.NightStart, s.Rules.NightEnd = start, end
	}

	if d.LegalHoliday != "" {
		wd, err := parseWeekday(d.LegalHoliday)
		if err != nil {
			return Settings{}, err
		}
		s.Rules.LegalHoliday = wd
	}

	if err := s.Rules.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid rules: %w", err)
	}
	return s, nil
}

// Document renders settings back into a document.
func (s Settings) Document() RulesDocument {
	standard := float64(s.Rules.StandardDayMinutes) / generic.MinutesPerHour
	fullDay := float64(s.Rules.FullDayNightMinutes) / generic.MinutesPerHour
	return RulesDocument{
		Timezone:          s.Location.String(),
		StandardDayHours:  &standard,
		NightWindow:       &NightWindow{Start: s.Rules.NightStart.String(), End: s.Rules.NightEnd.String()},
		FullDayNightHours: &fullDay,
		LegalHoliday:      strings.ToLower(s.Rules.LegalHoliday.String()),
	}
}

// Marshal renders settings as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s.Document())
}

func hoursToMinutes(h float64) int {
	return int(math.Round(h * generic.MinutesPerHour))
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid legal_holiday %q (use a weekday name)", s)
}
