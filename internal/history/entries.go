package history

import (
	"context"
	"fmt"
	"time"

	"vidbatch/internal/encoding"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// timestampLayout keeps a fixed width so completed_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded conversion.
type Entry struct {
	ID               int64         `json:"id"`
	BatchID          string        `json:"batch_id"`
	SourcePath       string        `json:"source_path"`
	SourceName       string        `json:"source_name"`
	OutputPath       string        `json:"output_path"`
	OutputName       string        `json:"output_name"`
	InputBytes       int64         `json:"input_bytes"`
	OutputBytes      int64         `json:"output_bytes"`
	ReductionPercent float64       `json:"reduction_percent"`
	Resolution       int           `json:"resolution"`
	FPS              int           `json:"fps"`
	Elapsed          time.Duration `json:"elapsed"`
	CompletedAt      time.Time     `json:"completed_at"`
}

// Record appends a finished conversion and returns the stored entry.
func (s *Store) Record(ctx context.Context, batchID string, result encoding.Result) (Entry, error) {
	completed := result.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	completed = completed.UTC()

	res, err := s.exec(ctx, `INSERT INTO conversions (
        batch_id, source_path, source_name, output_path, output_name,
        input_bytes, output_bytes, reduction_percent, resolution, fps,
        elapsed_ms, completed_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batchID,
		result.SourcePath,
		result.SourceName,
		result.OutputPath,
		result.OutputName,
		result.InputBytes,
		result.OutputBytes,
		result.ReductionPercent,
		result.Resolution,
		result.FPS,
		result.Elapsed.Milliseconds(),
		completed.Format(timestampLayout),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert conversion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("read conversion id: %w", err)
	}
	return Entry{
		ID:               id,
		BatchID:          batchID,
		SourcePath:       result.SourcePath,
		SourceName:       result.SourceName,
		OutputPath:       result.OutputPath,
		OutputName:       result.OutputName,
		InputBytes:       result.InputBytes,
		OutputBytes:      result.OutputBytes,
		ReductionPercent: result.ReductionPercent,
		Resolution:       result.Resolution,
		FPS:              result.FPS,
		Elapsed:          time.Duration(result.Elapsed.Milliseconds()) * time.Millisecond,
		CompletedAt:      completed,
	}, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx = orBackground(ctx)
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, batch_id, source_path, source_name, output_path, output_name,
        input_bytes, output_bytes, reduction_percent, resolution, fps, elapsed_ms, completed_at
        FROM conversions ORDER BY completed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded conversions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(orBackground(ctx), "SELECT COUNT(1) FROM conversions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count conversions: %w", err)
	}
	return n, nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM conversions")
	if err != nil {
		return 0, fmt.Errorf("clear conversions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared conversions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry     Entry
		elapsedMS int64
		completed string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.BatchID,
		&entry.SourcePath,
		&entry.SourceName,
		&entry.OutputPath,
		&entry.OutputName,
		&entry.InputBytes,
		&entry.OutputBytes,
		&entry.ReductionPercent,
		&entry.Resolution,
		&entry.FPS,
		&elapsedMS,
		&completed,
	); err != nil {
		return Entry{}, fmt.Errorf("scan conversion: %w", err)
	}
	entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	ts, err := time.Parse(timestampLayout, completed)
	if err != nil {
		return Entry{}, fmt.Errorf("parse completed_at %q: %w", completed, err)
	}
	entry.CompletedAt = ts
	return entry, nil
}
