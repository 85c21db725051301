package equivalency

// Step is one strategy of the comparison pipeline.
//
// A step either declines a context (CanHandle returns false), takes full
// responsibility for it (Outcome.Handled), or lets the next step continue,
// optionally proposing a replacement subject (Outcome.Replaced). Steps hold no
// per-call state; one value serves every comparison.
type Step interface {
	CanHandle(ctx *Context) bool

	// Handle compares ctx, reporting mismatches through ctx and recursing
	// into children through parent. A returned error is a usage error and
	// aborts the whole comparison.
	Handle(ctx *Context, parent Parent) (Outcome, error)
}

// Parent is the orchestrator as seen from a step.
type Parent interface {
	AssertEqualityUsing(ctx *Context) error
}

// Outcome is what a step did with a context.
type Outcome struct {
	// Handled stops the pipeline for this context.
	Handled bool

	// Replaced asks the orchestrator to continue with Replacement as the
	// subject. Only one replacement is allowed per context.
	Replaced    bool
	Replacement any
}

var (
	// Continue passes the context on to the next step.
	Continue = Outcome{}

	// Handled stops the pipeline for the context.
	Handled = Outcome{Handled: true}
)

// Replace continues with v as the subject.
func Replace(v any) Outcome {
	return Outcome{Replaced: true, Replacement: v}
}
