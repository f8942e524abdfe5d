package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

// Interval sources recorded alongside each row.
const (
	SourceManual   = "manual"
	SourceApproval = "approval"
	SourceImport   = "import"
)

// IntervalsBetween returns committed intervals overlapping [from, to),
// satisfying schedule.IntervalSource. Timestamps are stored as UTC RFC3339
// text, so range comparisons work lexicographically.
func (db *DB) IntervalsBetween(ctx context.Context, from, to time.Time) ([]schedule.Interval, error) {
	return db.queryIntervals(ctx,
		`SELECT id, task_id, title, start_time, end_time FROM intervals
		 WHERE start_time < ? AND end_time > ?
		 ORDER BY start_time ASC`,
		to.UTC().Format(time.RFC3339), from.UTC().Format(time.RFC3339))
}

// ListIntervals returns every committed interval, earliest first.
func (db *DB) ListIntervals(ctx context.Context) ([]schedule.Interval, error) {
	return db.queryIntervals(ctx,
		`SELECT id, task_id, title, start_time, end_time FROM intervals ORDER BY start_time ASC`)
}

// Book inserts a new committed interval in one immediate transaction,
// rejecting any insert that overlaps an existing row. It satisfies
// schedule.IntervalBooker: the overlap check and the insert share the
// transaction, so at most one of two racing overlapping bookings commits.
func (db *DB) Book(ctx context.Context, iv schedule.Interval) (schedule.Interval, error) {
	startStr := iv.Start.UTC().Format(time.RFC3339)
	endStr := iv.End.UTC().Format(time.RFC3339)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return schedule.Interval{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var clashes int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM intervals WHERE start_time < ? AND end_time > ?",
		endStr, startStr).Scan(&clashes)
	if err != nil {
		return schedule.Interval{}, fmt.Errorf("checking for overlap: %w", err)
	}
	if clashes > 0 {
		return schedule.Interval{}, fmt.Errorf("%w: %s–%s already booked", schedule.ErrConflict, startStr, endStr)
	}

	var taskID any
	if iv.TaskID != 0 {
		taskID = iv.TaskID
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO intervals (task_id, title, start_time, end_time, source)
		 VALUES (?, ?, ?, ?, ?)`,
		taskID, iv.Title, startStr, endStr, SourceApproval)
	if err != nil {
		return schedule.Interval{}, fmt.Errorf("inserting interval: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return schedule.Interval{}, err
	}
	if err := tx.Commit(); err != nil {
		return schedule.Interval{}, fmt.Errorf("committing booking: %w", err)
	}

	iv.ID = id
	return iv, nil
}

// CreateInterval inserts a manual or imported calendar entry without the
// overlap guard — external commitments may legitimately overlap each other.
func (db *DB) CreateInterval(ctx context.Context, iv schedule.Interval, source string) (int64, error) {
	var taskID any
	if iv.TaskID != 0 {
		taskID = iv.TaskID
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO intervals (task_id, title, start_time, end_time, source)
		 VALUES (?, ?, ?, ?, ?)`,
		taskID, iv.Title,
		iv.Start.UTC().Format(time.RFC3339),
		iv.End.UTC().Format(time.RFC3339),
		source)
	if err != nil {
		return 0, fmt.Errorf("inserting interval: %w", err)
	}
	return result.LastInsertId()
}

func (db *DB) DeleteInterval(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM intervals WHERE id = ?", id)
	return err
}

func (db *DB) queryIntervals(ctx context.Context, query string, args ...any) ([]schedule.Interval, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying intervals: %w", err)
	}
	defer rows.Close()

	var intervals []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		var taskID sql.NullInt64
		var startStr, endStr string
		if err := rows.Scan(&iv.ID, &taskID, &iv.Title, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scanning interval: %w", err)
		}
		iv.TaskID = int(taskID.Int64)
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			iv.Start = t
		}
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			iv.End = t
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}
