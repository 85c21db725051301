// Package should reports structural equivalence failures through testify.
//
//	should.BeEquivalentTo(t, got, want, equivalency.Excluding("ID"))
//
// Every mismatch of a comparison is listed in one failure; a misconfigured
// comparison is reported as such rather than as a mismatch.
package should

import (
	"fmt"
	"reflect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/equiv/equivalency"
)

type tHelper interface {
	Helper()
}

// BeEquivalentTo asserts that subject is structurally equivalent to
// expectation.
func BeEquivalentTo(t assert.TestingT, subject, expectation any, opts ...equivalency.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return report(t, equivalency.Compare(subject, expectation, opts...))
}

// NotBeEquivalentTo asserts that subject differs from expectation in at
// least one selected member.
func NotBeEquivalentTo(t assert.TestingT, subject, expectation any, opts ...equivalency.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	err := equivalency.Compare(subject, expectation, opts...)
	if err == nil {
		return assert.Fail(t, "Should not be equivalent",
			fmt.Sprintf("Did not expect subject to be equivalent to %s.", equivalency.Format(expectation)))
	}
	if equivalency.IsUsageError(err) {
		return assert.Fail(t, "Invalid equivalency comparison", err.Error())
	}
	return true
}

// AllBeEquivalentTo asserts that every element of the collection subjects is
// equivalent to expectation. Mismatch paths start with the element index.
func AllBeEquivalentTo(t assert.TestingT, subjects, expectation any, opts ...equivalency.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	v := reflect.ValueOf(subjects)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return assert.Fail(t, "Invalid equivalency comparison",
			fmt.Sprintf("AllBeEquivalentTo requires a collection, got %T", subjects))
	}
	expectations := make([]any, v.Len())
	for i := range expectations {
		expectations[i] = expectation
	}
	return report(t, equivalency.Compare(subjects, expectations, opts...))
}

// RequireEquivalent is BeEquivalentTo that stops the test on failure.
func RequireEquivalent(t require.TestingT, subject, expectation any, opts ...equivalency.Option) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !BeEquivalentTo(t, subject, expectation, opts...) {
		t.FailNow()
	}
}

func report(t assert.TestingT, err error) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if err == nil {
		return true
	}
	if equivalency.IsUsageError(err) {
		return assert.Fail(t, "Invalid equivalency comparison", err.Error())
	}
	return assert.Fail(t, "Not equivalent", err.Error())
}
