package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// Database owns the history connection.
//
// Usage:
//
//	database, err := db.Open(ctx, "inpaint_history.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	repo := db.NewRepository(database)
type Database struct {
	conn *sql.DB
	path string
}

// Open creates the parent directory, applies migrations and opens the
// connection used by repositories.
func Open(ctx context.Context, path string) (*Database, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// The migrator closes its own connection, so it gets a separate one.
	if err := MigrateUp(ctx, path); err != nil {
		return nil, err
	}

	conn, err := OpenSQLite(ctx, DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, path: path}, nil
}

// DB returns the underlying connection. Do not close it directly.
func (d *Database) DB() *sql.DB {
	return d.conn
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Close closes the connection. It is safe to call more than once.
func (d *Database) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
