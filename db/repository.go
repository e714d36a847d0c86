package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Generation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultListLimit applies when ListRecent is given a non-positive limit.
const DefaultListLimit = 20

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("db: generation not found")

// GenerationRecord is one row of generation_history.
type GenerationRecord struct {
	ID            int64
	CorrelationID string
	ModelName     string
	Backend       string
	Sampler       string
	Seed          int64
	Steps         int
	GuidanceScale float64
	MaskBlur      int
	Width         int
	Height        int
	DurationMS    int64
	Status        string
	ErrorMessage  string
	CreatedAt     time.Time
}

// Repository reads and writes generation history.
type Repository struct {
	db  *Database
	now func() time.Time
}

// NewRepository returns a Repository over database.
func NewRepository(database *Database) *Repository {
	return &Repository{db: database, now: time.Now}
}

func (r *Repository) conn() (*sql.DB, error) {
	if r.db == nil || r.db.conn == nil {
		return nil, errors.New("db: database connection is nil")
	}
	return r.db.conn, nil
}

// InsertGeneration stores rec and returns its row ID. A zero CreatedAt is
// set to the current time.
func (r *Repository) InsertGeneration(ctx context.Context, rec GenerationRecord) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO generation_history (
			correlation_id, model_name, backend, sampler, seed, steps,
			guidance_scale, mask_blur, width, height, duration_ms,
			status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CorrelationID, rec.ModelName, rec.Backend, rec.Sampler, rec.Seed, rec.Steps,
		rec.GuidanceScale, rec.MaskBlur, rec.Width, rec.Height, rec.DurationMS,
		rec.Status, rec.ErrorMessage, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert generation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

const selectColumns = `
	SELECT id, correlation_id, model_name, backend, sampler, seed, steps,
	       guidance_scale, mask_blur, width, height, duration_ms,
	       status, error_message, created_at
	FROM generation_history`

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(s scanner) (GenerationRecord, error) {
	var rec GenerationRecord
	var createdMS int64
	err := s.Scan(
		&rec.ID, &rec.CorrelationID, &rec.ModelName, &rec.Backend, &rec.Sampler,
		&rec.Seed, &rec.Steps, &rec.GuidanceScale, &rec.MaskBlur, &rec.Width,
		&rec.Height, &rec.DurationMS, &rec.Status, &rec.ErrorMessage, &createdMS,
	)
	if err != nil {
		return GenerationRecord{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdMS)
	return rec, nil
}

// GetGeneration returns the record with correlationID, or ErrNotFound.
func (r *Repository) GetGeneration(ctx context.Context, correlationID string) (GenerationRecord, error) {
	conn, err := r.conn()
	if err != nil {
		return GenerationRecord{}, err
	}

	row := conn.QueryRowContext(ctx, selectColumns+` WHERE correlation_id = ?`, correlationID)
	rec, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GenerationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, correlationID)
	}
	if err != nil {
		return GenerationRecord{}, fmt.Errorf("failed to query generation: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit records, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	conn, err := r.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := conn.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		rec, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}
	return out, nil
}

// PruneOlderThan deletes records created before now minus age and returns
// how many were removed.
func (r *Repository) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}
	cutoff := r.now().Add(-age).UnixMilli()

	res, err := conn.ExecContext(ctx, `DELETE FROM generation_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune generations: %w", err)
	}
	return res.RowsAffected()
}
