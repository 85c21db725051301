package equivalency

import (
	"fmt"
	"reflect"
)

// DefaultSteps returns the standard pipeline. Conversion runs before any
// shape dispatch, and sequences are recognized before complex types.
func DefaultSteps() []Step {
	return []Step{
		TryConversion{},
		CustomEquality{},
		Enumerable{},
		Map{},
		ComplexType{},
	}
}

// Validator drives the step pipeline. It holds no per-call state, so one
// Validator can serve any number of comparisons.
type Validator struct {
	steps []Step
}

// NewValidator creates a validator with the given steps, in order.
// Without steps it uses DefaultSteps.
func NewValidator(steps ...Step) *Validator {
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	return &Validator{steps: steps}
}

// AssertEquality compares a root context and everything below it.
// Mismatches go to the context's reporter; the returned error is a usage
// error and means the comparison was aborted.
func (v *Validator) AssertEquality(ctx *Context) error {
	if ctx == nil || !ctx.IsRoot {
		return &UsageError{Code: ErrCodeInvalidStep, Message: "AssertEquality requires a root context"}
	}
	if err := ctx.Config.Err(); err != nil {
		return err
	}
	ctx.Logger().Debug("comparison starting",
		"subject", typeName(reflect.TypeOf(ctx.Subject)),
		"expectation", typeName(reflect.TypeOf(ctx.Expectation)))
	return v.AssertEqualityUsing(ctx)
}

// AssertEqualityUsing compares one node: it enforces the depth limit and the
// cycle policy, then offers the context to each step until one handles it.
// A context no step handles is compared by direct equality.
func (v *Validator) AssertEqualityUsing(ctx *Context) error {
	if limit := ctx.Config.MaxDepth; limit > 0 && ctx.depth > limit {
		ctx.Fail("The maximum recursion depth of %d was reached at %s%s.",
			ctx.Config.MaxDepth, ctx.Description(), ctx.Reason())
		return nil
	}
	if ctx.cyclic() {
		if ctx.Config.IgnoreCycles {
			ctx.Logger().Debug("skipping cyclic reference", "path", ctx.Path().String())
			return nil
		}
		ctx.Fail("Expected %s to be %s%s, but it contains a cyclic reference.",
			ctx.Description(), Format(ctx.Expectation), ctx.Reason())
		return nil
	}

	for _, step := range v.steps {
		if !step.CanHandle(ctx) {
			continue
		}
		out, err := step.Handle(ctx, v)
		if err != nil {
			return err
		}
		if out.Replaced {
			if ctx.coerced {
				return &UsageError{
					Code:    ErrCodeInvalidStep,
					Message: fmt.Sprintf("%T replaced a subject that was already replaced", step),
					Path:    ctx.Path().String(),
				}
			}
			ctx = ctx.withSubject(out.Replacement)
		}
		if out.Handled {
			ctx.Logger().Debug("step handled", "path", ctx.Path().String(), "step", fmt.Sprintf("%T", step))
			return nil
		}
	}

	assertDirectEquality(ctx)
	return nil
}

// assertDirectEquality is the base case for scalars and value types.
func assertDirectEquality(ctx *Context) {
	if directEqual(ctx.Subject, ctx.Expectation) {
		return
	}
	s, e := valueOf(ctx.Subject), valueOf(ctx.Expectation)
	if s.IsValid() && e.IsValid() && s.Kind() == reflect.String && e.Kind() == reflect.String {
		ctx.Fail("%s", describeStringMismatch(ctx.Description(), ctx.Reason(), s.String(), e.String()))
		return
	}
	ctx.FailExpected()
}
