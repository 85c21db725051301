package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/equiv/equivalency"
	"github.com/roach88/equiv/internal/document"
	"github.com/roach88/equiv/internal/store"
)

// Result is the outcome of running one scenario.
type Result struct {
	Name string `json:"name"`

	// Pass is true when the comparison outcome matches the scenario's
	// expect block.
	Pass bool `json:"pass"`

	Equivalent bool                   `json:"equivalent"`
	Mismatches equivalency.Mismatches `json:"mismatches"`
	UsageError *equivalency.UsageError `json:"usage_error,omitempty"`

	// Errors explains why Pass is false.
	Errors []string `json:"errors,omitempty"`

	// SubjectDoc and ExpectationDoc are the compared documents as
	// canonical JSON.
	SubjectDoc     []byte `json:"-"`
	ExpectationDoc []byte `json:"-"`
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Runner evaluates scenarios.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{logger: logger}
}

// Run executes a scenario with a discarding logger.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	return NewRunner(nil).Run(ctx, s)
}

// Run loads both sides of the scenario, compares them and checks the
// outcome against the expect block.
//
// The returned error covers loading problems only. A comparison that does
// not turn out as expected is reported through Result.Pass.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	logger := r.logger.With("scenario", s.Name)
	if s.Expect.Equivalent == nil {
		return nil, fmt.Errorf("scenario %s: expect.equivalent is required", s.Name)
	}

	subject, err := s.load(ctx, s.Subject)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: subject: %w", s.Name, err)
	}
	expectation, err := s.load(ctx, s.Expectation)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: expectation: %w", s.Name, err)
	}

	result, err := Compare(s.Name, subject, expectation, s.Options, equivalency.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result.Pass = true
	result.check(s.Expect)

	logger.Debug("scenario finished",
		"pass", result.Pass,
		"equivalent", result.Equivalent,
		"mismatches", len(result.Mismatches),
	)
	return result, nil
}

// Compare runs the engine on two documents. It is the single path shared
// by scenarios and the compare command. The returned error is set only
// when a document cannot be rendered.
func Compare(name string, subject, expectation any, opts Options, extra ...equivalency.Option) (*Result, error) {
	result := &Result{Name: name, Mismatches: equivalency.Mismatches{}}

	var err error
	if result.SubjectDoc, err = document.Render(subject); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if result.ExpectationDoc, err = document.Render(expectation); err != nil {
		return nil, fmt.Errorf("render expectation: %w", err)
	}

	cmpErr := equivalency.Compare(subject, expectation, append(opts.Equivalency(), extra...)...)

	var usage *equivalency.UsageError
	switch {
	case cmpErr == nil:
		result.Equivalent = true
	case errors.As(cmpErr, &usage):
		result.UsageError = usage
	default:
		ms, ok := equivalency.AsMismatches(cmpErr)
		if !ok {
			return nil, cmpErr
		}
		result.Mismatches = ms
	}
	return result, nil
}

func (r *Result) check(expect Expect) {
	want := *expect.Equivalent

	if expect.UsageError != "" {
		switch {
		case r.UsageError == nil:
			r.addError("expected usage error %s, but the comparison ran", expect.UsageError)
		case string(r.UsageError.Code) != expect.UsageError:
			r.addError("expected usage error %s, got %s: %s", expect.UsageError, r.UsageError.Code, r.UsageError.Message)
		}
		return
	}

	if r.UsageError != nil {
		r.addError("unexpected usage error: %s", r.UsageError.Error())
		return
	}

	if r.Equivalent != want {
		if want {
			r.addError("expected equivalent, got %d mismatch(es)", len(r.Mismatches))
		} else {
			r.addError("expected mismatches, but the documents are equivalent")
		}
		return
	}

	if len(expect.Mismatches) > 0 {
		got := r.Mismatches.Paths()
		if !slices.Equal(got, expect.Mismatches) {
			r.addError("mismatch paths: expected %q, got %q", expect.Mismatches, got)
		}
	}
}

// load produces the normalized document for one side.
func (s *Scenario) load(ctx context.Context, src Source) (any, error) {
	switch {
	case src.Value != nil:
		var raw any
		if err := src.Value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode inline value: %w", err)
		}
		return document.Normalize(raw)

	case src.File != "":
		return document.Load(s.resolve(src.File))

	case src.Query != nil:
		return s.query(ctx, src.Query)
	}
	return nil, fmt.Errorf("no source")
}

func (s *Scenario) query(ctx context.Context, q *Query) (any, error) {
	db, err := store.OpenSource(s.resolve(q.DB))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records, err := db.Records(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}

	rows := make([]any, len(records))
	for i, record := range records {
		rows[i] = record
	}
	return document.Normalize(rows)
}
