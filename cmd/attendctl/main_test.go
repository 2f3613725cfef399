package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestHoursCommand(t *testing.T) {
	out, err := run(t, "hours", "--date", "2024-03-31", "--start", "22:00", "--end", "07:00", "--rest", "60")

	require.NoError(t, err)
	assert.Contains(t, out, "active:        8\n")
	assert.Contains(t, out, "overtime:      0\n")
	assert.Contains(t, out, "late night:    7\n")
	assert.Contains(t, out, "legal holiday: 8\n")
}

func TestHoursCommand_MissingEndIsAbsent(t *testing.T) {
	out, err := run(t, "hours", "--date", "2024-03-30", "--start", "09:00")

	require.NoError(t, err)
	assert.Contains(t, out, "active:        -\n")
}

func TestHoursCommand_BadClock(t *testing.T) {
	_, err := run(t, "hours", "--date", "2024-03-30", "--start", "9am", "--end", "17:00")
	assert.Error(t, err)
}

func TestRulesCommand_UsesRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("standard_day_hours: 7.5\nlegal_holiday: saturday\n"), 0o600))

	out, err := run(t, "rules", "--rules", path)

	require.NoError(t, err)
	assert.Contains(t, out, "standard_day_hours: 7.5")
	assert.Contains(t, out, "legal_holiday: saturday")
}

func TestBulkCommand(t *testing.T) {
	// GIVEN: A database with two employees
	dbPath := filepath.Join(t.TempDir(), "attendance.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)

	ctx := context.Background()
	backend, err := store.Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, Path: dbPath}, time.UTC)
	require.NoError(t, err)
	for _, id := range []generic.SubjectID{"emp-1", "emp-2"} {
		require.NoError(t, backend.SaveSubject(ctx, generic.Subject{ID: id, Kind: generic.SubjectEmployee}))
	}
	require.NoError(t, backend.Close())

	args := []string{"bulk", "--category", "attendance", "--from", "2024-03-01", "--to", "2024-03-31", "--status", "submitted"}

	// WHEN: Running the same bulk submit twice
	first, err := run(t, args...)
	require.NoError(t, err)
	second, err := run(t, args...)
	require.NoError(t, err)

	// THEN
	assert.Contains(t, first, "updated 2 record(s)")
	assert.Contains(t, first, "emp-1@2024-03")
	assert.Contains(t, second, "updated 0 record(s)")
}
