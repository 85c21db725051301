package equivalency

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// stringComparer builds the string predicate for IgnoringCase and
// NormalizingUnicode.
func stringComparer(fold, normalize bool) func(subject, expectation string) bool {
	return func(subject, expectation string) bool {
		return canonicalString(subject, fold, normalize) == canonicalString(expectation, fold, normalize)
	}
}

func canonicalString(s string, fold, normalize bool) string {
	if normalize {
		s = norm.NFC.String(s)
	}
	if fold {
		// a Caser is stateful, so one per call
		s = cases.Fold().String(s)
	}
	return s
}

// describeStringMismatch words a string difference the way a reader needs it:
// trailing whitespace first, then length, then the first differing index.
func describeStringMismatch(desc, reason, subject, expectation string) string {
	if len(expectation) > len(subject) && strings.TrimRight(expectation, " \t\r\n") == subject {
		return fmt.Sprintf("Expected %s to be %q%s, but it misses some extra whitespace at the end.", desc, expectation, reason)
	}
	if len(subject) > len(expectation) && strings.TrimRight(subject, " \t\r\n") == expectation {
		return fmt.Sprintf("Expected %s to be %q%s, but it has unexpected whitespace at the end.", desc, expectation, reason)
	}
	if len(subject) != len(expectation) {
		return fmt.Sprintf("Expected %s to be %q with a length of %d%s, but %q has a length of %d.",
			desc, expectation, len(expectation), reason, subject, len(subject))
	}
	i := indexOfFirstMismatch(subject, expectation)
	return fmt.Sprintf("Expected %s to be %q%s, but %q differs near %s.", desc, expectation, reason, subject, segmentAt(subject, i))
}

// indexOfFirstMismatch returns the byte index at which subject stops matching
// expectation, or -1.
func indexOfFirstMismatch(subject, expectation string) int {
	for i := 0; i < len(subject); i++ {
		if i >= len(expectation) || subject[i] != expectation[i] {
			return i
		}
	}
	return -1
}

// segmentAt quotes up to three characters of s starting at index.
func segmentAt(s string, index int) string {
	if index < 0 || index >= len(s) {
		return fmt.Sprintf("%q (index %d)", "", index)
	}
	end := index + 3
	if end > len(s) {
		end = len(s)
	}
	return fmt.Sprintf("%q (index %d)", s[index:end], index)
}
