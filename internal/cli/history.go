package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/equiv/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	ID       string // show one run in detail
	Name     string
	Failed   bool
	Limit    int
}

// RunSummary is one line of the history listing.
type RunSummary struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Expectation string    `json:"expectation"`
	Equivalent  bool      `json:"equivalent"`
	UsageError  string    `json:"usage_error,omitempty"`
	Mismatches  int       `json:"mismatches"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// RunDetail is a single run with its mismatches.
type RunDetail struct {
	RunSummary
	Options    map[string]any         `json:"options"`
	Mismatches []store.MismatchRecord `json:"mismatches"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded comparison runs",
		Long: `List the runs recorded with --record, oldest first.

Examples:
  equiv history --db history.db
  equiv history --db history.db --failed --limit 10
  equiv history --db history.db --id 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to history database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single run with its mismatches")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only runs with this name")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only runs that were not equivalent")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent N runs")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.ID != "" {
		run, err := st.ReadRun(ctx, opts.ID)
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.ID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		detail := runDetail(run)
		return out.Result(true, detail, detailText(detail))
	}

	runs, err := st.ListRuns(ctx, store.ListFilter{
		Name:       opts.Name,
		FailedOnly: opts.Failed,
		Limit:      opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		s := summarize(run)
		// ListRuns leaves mismatches unloaded
		s.Mismatches, err = countMismatches(ctx, st, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count mismatches", err)
		}
		summaries = append(summaries, s)
	}
	return out.Result(true, summaries, historyText(summaries))
}

func countMismatches(ctx context.Context, st *store.Store, id string) (int, error) {
	records, err := st.Records(ctx, `SELECT COUNT(*) AS n FROM run_mismatches WHERE run_id = ?`, id)
	if err != nil {
		return 0, err
	}
	n, _ := records[0]["n"].(int64)
	return int(n), nil
}

func summarize(run store.Run) RunSummary {
	return RunSummary{
		ID:          run.ID,
		Seq:         run.Seq,
		Name:        run.Name,
		Subject:     run.Subject,
		Expectation: run.Expectation,
		Equivalent:  run.Equivalent,
		UsageError:  run.UsageError,
		Mismatches:  len(run.Mismatches),
		RecordedAt:  run.RecordedAt,
	}
}

func runDetail(run store.Run) RunDetail {
	detail := RunDetail{
		RunSummary: summarize(run),
		Options:    decodeOptions(run.Options),
		Mismatches: run.Mismatches,
	}
	return detail
}

func status(equivalent bool, usageError string) string {
	switch {
	case usageError != "":
		return "error"
	case equivalent:
		return "equivalent"
	}
	return "mismatch"
}

func historyText(runs []RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d  %s  %-10s  %s", r.Seq, r.RecordedAt.Format(time.RFC3339), status(r.Equivalent, r.UsageError), r.Name)
		if r.Mismatches > 0 {
			fmt.Fprintf(&b, " (%d mismatch(es))", r.Mismatches)
		}
	}
	return b.String()
}

func detailText(d RunDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (#%d)\n", d.ID, d.Seq)
	fmt.Fprintf(&b, "  Name:        %s\n", d.Name)
	fmt.Fprintf(&b, "  Subject:     %s\n", d.Subject)
	fmt.Fprintf(&b, "  Expectation: %s\n", d.Expectation)
	fmt.Fprintf(&b, "  Recorded:    %s\n", d.RecordedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Status:      %s", status(d.Equivalent, d.UsageError))
	if d.UsageError != "" {
		fmt.Fprintf(&b, "\n  Error:       %s", d.UsageError)
	}
	for _, m := range d.Mismatches {
		fmt.Fprintf(&b, "\n  - %s", m.Message)
	}
	return b.String()
}
