package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/equiv/equivalency"
	"github.com/roach88/equiv/internal/scenario"
	"github.com/roach88/equiv/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario name filter (glob pattern)
	Record string // history database, empty to skip recording
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name       string                 `json:"name"`
	Pass       bool                   `json:"pass"`
	Equivalent bool                   `json:"equivalent"`
	Mismatches equivalency.Mismatches `json:"mismatches,omitempty"`
	Errors     []string               `json:"errors,omitempty"`
	RunID      string                 `json:"run_id,omitempty"`
}

// VerifyResult holds the overall verify result.
type VerifyResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <scenarios-dir>",
		Short: "Run equivalence scenarios",
		Long: `Run every scenario file in a directory.

A scenario passes when the comparison turns out as its expect block says
and, if <scenarios-dir>/golden/<name>.golden exists, the result snapshot
matches it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios, etc.)

Examples:
  equiv verify ./scenarios
  equiv verify ./scenarios --filter "orders_*"
  equiv verify ./scenarios --update
  equiv verify ./scenarios --record history.db --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), opts, args[0], cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob pattern")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record every run in this history database")

	return cmd
}

func runVerify(ctx context.Context, opts *VerifyOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	all, err := scenario.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	var scenarios []*scenario.Scenario
	for _, s := range all {
		if opts.Filter != "" {
			if matched, _ := filepath.Match(opts.Filter, s.Name); !matched {
				continue
			}
		}
		scenarios = append(scenarios, s)
	}

	var st *store.Store
	if opts.Record != "" {
		st, err = store.Open(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer st.Close()
	}

	runner := scenario.NewRunner(opts.Logger(out.GetErrWriter()))
	result := VerifyResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarios)),
		Total:     len(scenarios),
	}

	for _, s := range scenarios {
		sr, err := verifyScenario(ctx, runner, st, s, opts)
		if err != nil {
			return err
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := out.Result(result.Failed == 0, result, verifyText(result)); err != nil {
		return err
	}
	if result.Failed > 0 {
		return reportedFailure(fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

// verifyScenario runs one scenario. Scenario failures are part of the
// returned result; the error is reserved for command errors.
func verifyScenario(ctx context.Context, runner *scenario.Runner, st *store.Store, s *scenario.Scenario, opts *VerifyOptions) (ScenarioResult, error) {
	result, err := runner.Run(ctx, s)
	if err != nil {
		return ScenarioResult{
			Name:   s.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}, nil
	}

	sr := ScenarioResult{
		Name:       s.Name,
		Pass:       result.Pass,
		Equivalent: result.Equivalent,
		Mismatches: result.Mismatches,
		Errors:     result.Errors,
	}

	snapshot, err := result.Snapshot()
	if err != nil {
		return ScenarioResult{}, WrapExitError(ExitCommandError, "failed to render snapshot for "+s.Name, err)
	}
	goldenPath := goldenFilePath(s)

	if opts.Update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			return ScenarioResult{}, WrapExitError(ExitCommandError, "failed to update golden file for "+s.Name, err)
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, snapshot) {
			sr.Pass = false
			sr.Errors = append(sr.Errors, "result does not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		return ScenarioResult{}, WrapExitError(ExitCommandError, "failed to read golden file", err)
	}

	if st != nil {
		sr.RunID, err = recordRun(ctx, st, runRecord{
			name:        s.Name,
			subject:     s.Subject.Describe(),
			expectation: s.Expectation.Describe(),
			options:     s.Options,
			result:      result,
		})
		if err != nil {
			return ScenarioResult{}, WrapExitError(ExitCommandError, "failed to record run for "+s.Name, err)
		}
	}
	return sr, nil
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(s *scenario.Scenario) string {
	return filepath.Join(filepath.Dir(s.Path), "golden", s.Name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func verifyText(r VerifyResult) string {
	if r.Total == 0 {
		return "No scenarios found."
	}

	var buf bytes.Buffer
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		fmt.Fprintf(&buf, "%s %s\n", mark, s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&buf, "  %s\n", e)
		}
	}
	fmt.Fprintf(&buf, "\n%d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return buf.String()
}
