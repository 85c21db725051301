package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by ReadRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, name, subject, expectation, options, equivalent, usage_error, recorded_at, subject_doc, expectation_doc`

// ReadRun returns one run with its mismatches.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run.Mismatches, err = s.readMismatches(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListFilter narrows ListRuns.
type ListFilter struct {
	// Name keeps only runs with this name.
	Name string

	// FailedOnly keeps only runs that were not equivalent.
	FailedOnly bool

	// Limit keeps the most recent runs; zero means all.
	Limit int
}

// ListRuns returns runs ordered by seq ascending, without mismatches.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	var args []any
	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if filter.FailedOnly {
		query += ` AND equivalent = 0`
	}
	query += ` ORDER BY seq DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// newest-first for LIMIT, oldest-first for callers
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

// LastSeq returns the sequence number of the most recent run, or 0.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func (s *Store) readMismatches(ctx context.Context, runID string) ([]MismatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, message
		FROM run_mismatches
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query mismatches: %w", err)
	}
	defer rows.Close()

	mismatches := []MismatchRecord{}
	for rows.Next() {
		var m MismatchRecord
		if err := rows.Scan(&m.Path, &m.Message); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		mismatches = append(mismatches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mismatches: %w", err)
	}
	return mismatches, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		options    string
		equivalent int
		recordedAt string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Name,
		&run.Subject,
		&run.Expectation,
		&options,
		&equivalent,
		&run.UsageError,
		&recordedAt,
		&run.SubjectDoc,
		&run.ExpectationDoc,
	)
	if err != nil {
		return Run{}, err
	}

	run.Options = json.RawMessage(options)
	run.Equivalent = equivalent == 1
	run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	return run, nil
}
