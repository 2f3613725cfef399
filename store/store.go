// Package store selects a persistence backend from configuration.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/postgres"
	"github.com/warp/attendance-engine/store/sqlite"
)

// Backend is a transactional store that owns a connection.
type Backend interface {
	generic.TxStore
	io.Closer
}

// Open opens the configured backend. Dates are read back in loc.
func Open(ctx context.Context, cfg config.DatabaseConfig, loc *time.Location) (Backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.URL, postgres.WithLocation(loc))
	case config.DriverSQLite, "":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.New(cfg.Path, sqlite.WithLocation(loc))
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
