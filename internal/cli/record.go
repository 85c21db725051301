package cli

import (
	"context"
	"os"

	"github.com/roach88/equiv/internal/scenario"
	"github.com/roach88/equiv/internal/store"
)

// runRecord describes one comparison to be written to the history.
type runRecord struct {
	name        string
	subject     string
	expectation string
	options     scenario.Options
	result      *scenario.Result
}

// recordRun writes rec to the history store and returns the run ID.
func recordRun(ctx context.Context, st *store.Store, rec runRecord) (string, error) {
	run := store.Run{
		Name:           rec.name,
		Subject:        rec.subject,
		Expectation:    rec.expectation,
		Options:        rec.options.JSON(),
		Equivalent:     rec.result.Equivalent,
		SubjectDoc:     string(rec.result.SubjectDoc),
		ExpectationDoc: string(rec.result.ExpectationDoc),
	}
	if u := rec.result.UsageError; u != nil {
		run.UsageError = string(u.Code) + ": " + u.Message
	}
	for _, m := range rec.result.Mismatches {
		run.Mismatches = append(run.Mismatches, store.MismatchRecord{Path: m.Path, Message: m.Message})
	}

	written, err := st.WriteRun(ctx, run)
	if err != nil {
		return "", err
	}
	return written.ID, nil
}

// openHistory opens an existing history database. Unlike store.Open it
// refuses to create a new file, so a mistyped --db is a command error.
func openHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, "database not found: "+path)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
