package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/equiv/equivalency"
	"github.com/roach88/equiv/internal/document"
	"github.com/roach88/equiv/internal/scenario"
	"github.com/roach88/equiv/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	ID       string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Skipped       bool     `json:"skipped,omitempty"`
	Deterministic bool     `json:"deterministic"`
	Differences   []string `json:"differences,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	Skipped          int               `json:"skipped"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded comparisons and verify determinism",
		Long: `Re-run recorded comparisons from their stored documents and options.

Each run must produce the same outcome and the same mismatch messages, in
the same order, as when it was recorded. Runs recorded without documents
are skipped.

Exit codes:
  0 - All runs reproduce
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  equiv replay --db history.db
  equiv replay --db history.db --id 01890a5d-ac96-774b-bcce-b302099a8057
  equiv replay --db history.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to history database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ID, "id", "", "replay a specific run only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts.RootOptions, cmd)

	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.ID != "" {
		run, err := st.ReadRun(ctx, opts.ID)
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.ID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		listed, err := st.ListRuns(ctx, store.ListFilter{})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range listed {
			run, err := st.ReadRun(ctx, r.ID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read run", err)
			}
			runs = append(runs, run)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}
	logger := opts.Logger(out.GetErrWriter())

	for _, run := range runs {
		rr, err := replayRun(run, equivalency.WithLogger(logger.With("run", run.ID)))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		if rr.Skipped {
			result.Skipped++
		} else if !rr.Deterministic {
			result.AllDeterministic = false
		}
		out.VerboseLog("replayed %s: deterministic=%t skipped=%t", run.ID, rr.Deterministic, rr.Skipped)
		result.Runs = append(result.Runs, rr)
	}

	if err := out.Result(result.AllDeterministic, result, replayText(result)); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return reportedFailure("replay produced different results")
	}
	return nil
}

// replayRun compares the stored documents again and diffs the outcome
// against what was recorded.
func replayRun(run store.Run, extra ...equivalency.Option) (ReplayRunResult, error) {
	rr := ReplayRunResult{ID: run.ID, Name: run.Name}
	if run.SubjectDoc == "" || run.ExpectationDoc == "" {
		rr.Skipped = true
		rr.Deterministic = true
		return rr, nil
	}

	var opts scenario.Options
	if err := json.Unmarshal(run.Options, &opts); err != nil {
		return rr, fmt.Errorf("decode options: %w", err)
	}
	subject, err := document.Parse([]byte(run.SubjectDoc), document.FormatJSON, "subject")
	if err != nil {
		return rr, err
	}
	expectation, err := document.Parse([]byte(run.ExpectationDoc), document.FormatJSON, "expectation")
	if err != nil {
		return rr, err
	}

	again, err := scenario.Compare(run.Name, subject, expectation, opts, extra...)
	if err != nil {
		return rr, err
	}

	if again.Equivalent != run.Equivalent {
		rr.Differences = append(rr.Differences, fmt.Sprintf("equivalent: recorded %t, replayed %t", run.Equivalent, again.Equivalent))
	}

	usage := ""
	if u := again.UsageError; u != nil {
		usage = string(u.Code) + ": " + u.Message
	}
	if usage != run.UsageError {
		rr.Differences = append(rr.Differences, fmt.Sprintf("usage error: recorded %q, replayed %q", run.UsageError, usage))
	}

	recorded := make([]string, len(run.Mismatches))
	for i, m := range run.Mismatches {
		recorded[i] = m.Message
	}
	replayed := make([]string, len(again.Mismatches))
	for i, m := range again.Mismatches {
		replayed[i] = m.Message
	}
	if !slices.Equal(recorded, replayed) {
		rr.Differences = append(rr.Differences, fmt.Sprintf("mismatches: recorded %d, replayed %d, messages differ", len(recorded), len(replayed)))
	}

	rr.Deterministic = len(rr.Differences) == 0
	return rr, nil
}

func decodeOptions(raw json.RawMessage) map[string]any {
	opts := map[string]any{}
	if len(raw) > 0 {
		// stored options were validated on write
		_ = json.Unmarshal(raw, &opts)
	}
	return opts
}

func replayText(r ReplayResult) string {
	if r.TotalRuns == 0 {
		return "No runs recorded."
	}

	var b strings.Builder
	for _, run := range r.Runs {
		switch {
		case run.Skipped:
			fmt.Fprintf(&b, "- %s %s (no documents recorded)\n", run.ID, run.Name)
		case run.Deterministic:
			fmt.Fprintf(&b, "✓ %s %s\n", run.ID, run.Name)
		default:
			fmt.Fprintf(&b, "✗ %s %s\n", run.ID, run.Name)
			for _, d := range run.Differences {
				fmt.Fprintf(&b, "  %s\n", d)
			}
		}
	}
	if r.AllDeterministic {
		fmt.Fprintf(&b, "\nAll %d run(s) reproduce.", r.TotalRuns-r.Skipped)
	} else {
		b.WriteString("\nReplay produced different results.")
	}
	return b.String()
}
