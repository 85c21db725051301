package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/equiv/equivalency"
	"github.com/roach88/equiv/internal/document"
	"github.com/roach88/equiv/internal/scenario"
	"github.com/roach88/equiv/internal/store"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	scenario.Options
	Record string // history database, empty to skip recording
	Name   string // run name in the history
}

// CompareResult is the payload of the compare command.
type CompareResult struct {
	Subject     string                 `json:"subject"`
	Expectation string                 `json:"expectation"`
	Equivalent  bool                   `json:"equivalent"`
	Mismatches  equivalency.Mismatches `json:"mismatches"`
	RunID       string                 `json:"run_id,omitempty"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <subject> <expectation>",
		Short: "Compare two documents",
		Long: `Compare a subject document with an expectation document.

Documents may be JSON, YAML or CUE; the format is taken from the file
extension. Every member of the expectation must be present in the subject
with an equivalent value. All mismatches are reported.

Exit codes:
  0 - Documents are equivalent
  1 - Documents are not equivalent
  2 - Command error (unreadable document, invalid options, etc.)

Examples:
  equiv compare actual.json expected.yaml
  equiv compare actual.json expected.cue --excluding id --ignore-case
  equiv compare actual.json expected.json --record history.db --name nightly`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), opts, args[0], args[1], cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindEngineFlags(cmd, &opts.Options)
	cmd.Flags().StringVar(&opts.Record, "record", "", "record the run in this history database")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run name in the history (defaults to the subject file name)")

	return cmd
}

// bindEngineFlags exposes the engine options shared by compare and replay
// overrides.
func bindEngineFlags(cmd *cobra.Command, o *scenario.Options) {
	f := cmd.Flags()
	f.StringSliceVar(&o.Including, "including", nil, "compare only these member paths")
	f.StringSliceVar(&o.Excluding, "excluding", nil, "skip these member paths")
	f.BoolVar(&o.IgnoreCase, "ignore-case", false, "compare strings case-insensitively")
	f.BoolVar(&o.NormalizeUnicode, "normalize-unicode", false, "compare strings after NFC normalization")
	f.BoolVar(&o.ExcludeMissingMembers, "exclude-missing", false, "skip subject members the expectation lacks")
	f.BoolVar(&o.ExcludeNilExpectations, "exclude-nil", false, "skip members whose expected value is null")
	f.BoolVar(&o.NoRecursion, "no-recursion", false, "compare nested values directly instead of member by member")
	f.IntVar(&o.MaxDepth, "max-depth", 0, "maximum nesting depth (0 means unlimited)")
	f.StringVar(&o.Because, "because", "", "reason appended to every mismatch")
}

func runCompare(ctx context.Context, opts *CompareOptions, subjectPath, expectationPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts.RootOptions, cmd)

	if opts.MaxDepth < 0 {
		return NewExitError(ExitCommandError, "--max-depth must be non-negative")
	}

	subject, err := document.Load(subjectPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load subject", err)
	}
	expectation, err := document.Load(expectationPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load expectation", err)
	}

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(subjectPath), filepath.Ext(subjectPath))
	}

	out.VerboseLog("comparing %s with %s", subjectPath, expectationPath)
	result, err := scenario.Compare(name, subject, expectation, opts.Options,
		equivalency.WithLogger(opts.Logger(out.GetErrWriter())))
	if err != nil {
		return WrapExitError(ExitCommandError, "comparison failed", err)
	}

	payload := CompareResult{
		Subject:     subjectPath,
		Expectation: expectationPath,
		Equivalent:  result.Equivalent,
		Mismatches:  result.Mismatches,
	}

	if opts.Record != "" {
		st, err := store.Open(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer st.Close()

		payload.RunID, err = recordRun(ctx, st, runRecord{
			name:        name,
			subject:     subjectPath,
			expectation: expectationPath,
			options:     opts.Options,
			result:      result,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		out.VerboseLog("recorded run %s", payload.RunID)
	}

	if u := result.UsageError; u != nil {
		if err := out.Error(string(u.Code), u.Message, u.Path); err != nil {
			return err
		}
		return &ExitError{Code: ExitCommandError, Message: u.Message, Err: u, Reported: true}
	}

	if err := out.Result(result.Equivalent, payload, compareText(result)); err != nil {
		return err
	}
	if !result.Equivalent {
		return reportedFailure(fmt.Sprintf("%d mismatch(es)", len(result.Mismatches)))
	}
	return nil
}

func compareText(r *scenario.Result) string {
	if r.Equivalent {
		return "✓ equivalent"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ not equivalent (%d mismatch(es))", len(r.Mismatches))
	for _, m := range r.Mismatches {
		b.WriteString("\n  - ")
		b.WriteString(m.Message)
	}
	return b.String()
}
