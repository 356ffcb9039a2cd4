package history

import (
	"fmt"
	"strings"
	"time"
)

// Run is one recorded test outcome.
type Run struct {
	ID            int64
	Test          string
	Passed        bool
	CommandFailed bool
	Unmatched     int
	Relaxed       bool
	Duration      time.Duration
	RanAt         time.Time
}

// RecordRun inserts a run. RanAt defaults to now when unset.
func (db *DB) RecordRun(r Run) error {
	ranAt := r.RanAt
	if ranAt.IsZero() {
		ranAt = time.Now().UTC()
	}
	_, err := db.Exec(`
		INSERT INTO runs (test, passed, command_failed, unmatched, relaxed, duration_ms, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Test, boolInt(r.Passed), boolInt(r.CommandFailed), r.Unmatched,
		boolInt(r.Relaxed), r.Duration.Milliseconds(), ranAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListOptions specifies filters for listing runs.
type ListOptions struct {
	Test       string // Filter by test name (exact match)
	FailedOnly bool   // Only runs that did not pass
	Limit      int    // Most recent N runs; 0 means no limit
}

// ListRuns returns runs matching the filters, most recent first.
func (db *DB) ListRuns(opts ListOptions) ([]Run, error) {
	query := `
		SELECT id, test, passed, command_failed, unmatched, relaxed, duration_ms, ran_at
		FROM runs
	`

	var conditions []string
	var args []any

	if opts.Test != "" {
		conditions = append(conditions, "test = ?")
		args = append(args, opts.Test)
	}
	if opts.FailedOnly {
		conditions = append(conditions, "passed = 0")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY ran_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var passed, cmdFailed, relaxed int
		var durationMS int64
		var ranAt string
		if err := rows.Scan(&r.ID, &r.Test, &passed, &cmdFailed, &r.Unmatched, &relaxed, &durationMS, &ranAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Passed = passed != 0
		r.CommandFailed = cmdFailed != 0
		r.Relaxed = relaxed != 0
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339, ranAt); err == nil {
			r.RanAt = t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// CountRuns returns the number of matching runs.
func (db *DB) CountRuns(opts ListOptions) (int, error) {
	query := "SELECT COUNT(*) FROM runs"

	var conditions []string
	var args []any
	if opts.Test != "" {
		conditions = append(conditions, "test = ?")
		args = append(args, opts.Test)
	}
	if opts.FailedOnly {
		conditions = append(conditions, "passed = 0")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
