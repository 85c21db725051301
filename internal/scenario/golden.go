package scenario

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/equiv/internal/document"
)

// Snapshot is the canonical form of a result stored in golden files.
// Documents are left out so a golden file only changes when the outcome
// does.
func (r *Result) Snapshot() ([]byte, error) {
	mismatches := make([]any, len(r.Mismatches))
	for i, m := range r.Mismatches {
		mismatches[i] = map[string]any{
			"path":    m.Path,
			"message": m.Message,
		}
	}

	snapshot := map[string]any{
		"name":       r.Name,
		"equivalent": r.Equivalent,
		"mismatches": mismatches,
	}
	if r.UsageError != nil {
		snapshot["usage_error"] = map[string]any{
			"code":    string(r.UsageError.Code),
			"message": r.UsageError.Message,
		}
	}
	return document.Render(snapshot)
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
//
// Returns an error if the scenario cannot be loaded. A snapshot that
// differs from the golden file fails t through goldie.
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := result.Snapshot()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
