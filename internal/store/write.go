package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Run is one recorded comparison.
type Run struct {
	ID          string
	Seq         int64
	Name        string
	Subject     string // where the subject came from, e.g. a file path
	Expectation string
	Options     json.RawMessage
	Equivalent  bool
	UsageError  string
	Mismatches  []MismatchRecord
	RecordedAt  time.Time

	// SubjectDoc and ExpectationDoc are the compared documents as canonical
	// JSON, kept so the run can be replayed. Empty when not recorded.
	SubjectDoc     string
	ExpectationDoc string
}

// MismatchRecord is a stored mismatch.
type MismatchRecord struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// WriteRun records a run and its mismatches in one transaction.
//
// ID, Seq and RecordedAt are assigned by the store; the stored values are
// returned.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	if run.RecordedAt.IsZero() {
		run.RecordedAt = s.clock.Now()
	}
	if len(run.Options) == 0 {
		run.Options = json.RawMessage("{}")
	}
	if !json.Valid(run.Options) {
		return Run{}, fmt.Errorf("write run: options are not valid JSON")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, name, subject, expectation, options, equivalent, usage_error, recorded_at, subject_doc, expectation_doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Name,
		run.Subject,
		run.Expectation,
		string(run.Options),
		boolToInt(run.Equivalent),
		run.UsageError,
		run.RecordedAt.UTC().Format(time.RFC3339Nano),
		run.SubjectDoc,
		run.ExpectationDoc,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	if err := writeMismatches(ctx, tx, run.ID, run.Mismatches); err != nil {
		return Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

func writeMismatches(ctx context.Context, tx *sql.Tx, runID string, mismatches []MismatchRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_mismatches (run_id, ordinal, path, message)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write mismatches: %w", err)
	}
	defer stmt.Close()

	for i, m := range mismatches {
		if _, err := stmt.ExecContext(ctx, runID, i, m.Path, m.Message); err != nil {
			return fmt.Errorf("write mismatch %d: %w", i, err)
		}
	}
	return nil
}

// DeleteRun removes a run and its mismatches. Deleting an unknown run is
// not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
