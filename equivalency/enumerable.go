package equivalency

import (
	"strings"
	"unicode"
)

// Enumerable compares slices and arrays position by position. Sequences with
// the same elements in a different order are not equivalent.
type Enumerable struct{}

func (Enumerable) CanHandle(ctx *Context) bool {
	return isCollection(valueOf(ctx.Subject))
}

func (Enumerable) Handle(ctx *Context, parent Parent) (Outcome, error) {
	e := valueOf(ctx.Expectation)
	if !e.IsValid() {
		if ctx.IsRoot {
			return Handled, newNilExpectationError(ctx)
		}
		ctx.FailExpected()
		return Handled, nil
	}
	if !isCollection(e) {
		ctx.Fail("%s is a collection and cannot be compared with a non-collection type.", capitalize(ctx.Description()))
		return Handled, nil
	}

	subject, expectation := elements(valueOf(ctx.Subject)), elements(e)
	if len(subject) != len(expectation) {
		ctx.Fail("Expected %s to be a collection with %d item(s)%s, but found %d.",
			ctx.Description(), len(expectation), ctx.Reason(), len(subject))
		return Handled, nil
	}

	if ctx.IsRoot || ctx.Config.Recursive {
		if sequenceEqual(subject, expectation) {
			return Handled, nil
		}
		for i := range subject {
			if err := parent.AssertEqualityUsing(ctx.CreateForCollectionItem(i, subject[i], expectation[i])); err != nil {
				return Handled, err
			}
		}
		return Handled, nil
	}

	for i := range subject {
		if !directEqual(subject[i], expectation[i]) {
			ctx.Fail("Expected %s to be equal to %s%s, but %s differs at index %d.",
				ctx.Description(), Format(ctx.Expectation), ctx.Reason(), Format(ctx.Subject), i)
			break
		}
	}
	return Handled, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + strings.TrimPrefix(s, string(r[0]))
}
