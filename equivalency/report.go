package equivalency

import (
	"fmt"
	"strings"
)

// Mismatch is one difference found during a comparison.
type Mismatch struct {
	// Path locates the node, e.g. Address.City ("" for the root).
	Path string `json:"path"`

	// Message is the complete, human-readable failure text.
	Message string `json:"message"`

	// Subject and Expectation are the values at the node.
	Subject     any `json:"-"`
	Expectation any `json:"-"`
}

// Reporter receives mismatches as they are found.
//
// The engine keeps evaluating siblings after every report; whether a
// reporter aggregates or stops at the first failure is its own decision.
type Reporter interface {
	Report(m Mismatch)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(m Mismatch)

// Report implements Reporter.
func (f ReporterFunc) Report(m Mismatch) { f(m) }

// Collector aggregates every reported mismatch.
type Collector struct {
	mismatches Mismatches
}

// Report implements Reporter.
func (c *Collector) Report(m Mismatch) {
	c.mismatches = append(c.mismatches, m)
}

// Mismatches returns the collected mismatches in report order.
func (c *Collector) Mismatches() Mismatches {
	return c.mismatches
}

// Err returns nil when nothing was reported, otherwise the Mismatches.
func (c *Collector) Err() error {
	if len(c.mismatches) == 0 {
		return nil
	}
	return c.mismatches
}

// diagnostic is the human-supplied explanation of a comparison. One value is
// shared by every node of a call and rendered only when a mismatch occurs.
type diagnostic struct {
	reason string
	args   []any
}

// String renders " because ..." or "". The word "because" is prepended when
// the reason does not start with it.
func (d *diagnostic) String() string {
	if d == nil || d.reason == "" {
		return ""
	}
	text := d.reason
	if len(d.args) > 0 {
		text = fmt.Sprintf(d.reason, d.args...)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(text), "because") {
		text = "because " + text
	}
	return " " + text
}
