// Package db stores inpainting generation history in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// pure Go driver, registers "sqlite"
	_ "modernc.org/sqlite"
)

// ErrPathRequired is returned when no database path is configured.
var ErrPathRequired = errors.New("db: database path is required")

// ConnectionConfig holds SQLite connection settings.
type ConnectionConfig struct {
	Path string

	// BusyTimeout is how long a writer waits on a lock.
	BusyTimeout time.Duration

	// MaxOpenConns is 1 by default; SQLite serialises writers anyway.
	MaxOpenConns int
}

// DefaultConnectionConfig returns WAL-friendly defaults for path.
func DefaultConnectionConfig(path string) ConnectionConfig {
	return ConnectionConfig{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

// OpenSQLite opens path with WAL journaling, a busy timeout and foreign keys
// enabled, and verifies WAL took effect.
func OpenSQLite(ctx context.Context, cfg ConnectionConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, ErrPathRequired
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	var mode string
	if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read journal mode: %w", err)
	}
	if mode != "wal" {
		conn.Close()
		return nil, fmt.Errorf("WAL mode not enabled, got %s", mode)
	}
	return conn, nil
}
