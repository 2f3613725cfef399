/*
Package config loads process configuration from the environment.

PURPOSE:
  One place that reads environment variables (optionally seeded from a
  .env file) and validates them before any component is built. The
  server's command-line flags override these values.

VARIABLES:
  PORT                     HTTP listen port (default 8080)
  DB_DRIVER                sqlite | postgres (default sqlite)
  DB_PATH                  SQLite file (default ./data/attendance.db)
  DATABASE_URL             PostgreSQL DSN, required when DB_DRIVER=postgres
  RULES_FILE               YAML/JSON work rules document (optional)
  TIMEZONE                 IANA zone entries are interpreted in (overrides the rules file)
  LOG_LEVEL                zerolog level (default info)
  SLACK_BOT_TOKEN          enables Slack notifications when set
  REMINDER_INTERVAL        how often outstanding attendance is checked (0 disables)
  REMINDER_DAYS_BEFORE_END start reminding this many days before period end

SEE ALSO:
  - factory/rules.go: The rules document
  - cmd/server/main.go: Flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/factory"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Rules    RulesConfig
	Notify   NotifyConfig
	Reminder ReminderConfig
}

type DatabaseConfig struct {
	Driver string
	Path   string
	URL    string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	LogLevel string
}

type RulesConfig struct {
	File     string
	Timezone string
}

type NotifyConfig struct {
	SlackToken string
}

// ReminderConfig drives the outstanding-attendance reminder scheduler.
type ReminderConfig struct {
	Interval      time.Duration
	DaysBeforeEnd int
}

// Load reads the given .env files (".env" when none are named) and then
// the environment. A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	config.App = AppConfig{
		Port:     appPort,
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.Database = DatabaseConfig{
		Driver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		Path:   getEnv("DB_PATH", "./data/attendance.db"),
		URL:    getEnv("DATABASE_URL", ""),
	}

	config.Rules = RulesConfig{
		File:     getEnv("RULES_FILE", ""),
		Timezone: getEnv("TIMEZONE", ""),
	}

	config.Notify = NotifyConfig{
		SlackToken: getEnv("SLACK_BOT_TOKEN", ""),
	}

	interval, err := time.ParseDuration(getEnv("REMINDER_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_INTERVAL: %w", err)
	}
	daysBefore, err := strconv.Atoi(getEnv("REMINDER_DAYS_BEFORE_END", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_DAYS_BEFORE_END: %w", err)
	}
	config.Reminder = ReminderConfig{Interval: interval, DaysBeforeEnd: daysBefore}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.App.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Reminder.Interval < 0 {
		return fmt.Errorf("REMINDER_INTERVAL must not be negative")
	}
	if c.Reminder.DaysBeforeEnd < 0 {
		return fmt.Errorf("REMINDER_DAYS_BEFORE_END must not be negative")
	}
	return nil
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.App.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Settings loads the rules document (or the defaults) and applies the
// TIMEZONE override.
func (c *Config) Settings() (factory.Settings, error) {
	settings := factory.DefaultSettings()
	if c.Rules.File != "" {
		loaded, err := factory.LoadRulesFile(c.Rules.File)
		if err != nil {
			return settings, err
		}
		settings = loaded
	}
	if c.Rules.Timezone != "" {
		loc, err := time.LoadLocation(c.Rules.Timezone)
		if err != nil {
			return settings, fmt.Errorf("invalid TIMEZONE %q: %w", c.Rules.Timezone, err)
		}
		settings.Location = loc
	}
	return settings, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
