package equivalency

import (
	"errors"
	"fmt"
)

// UsageError represents a misconfigured comparison.
//
// Usage errors include:
//   - No members selected: the root object has nothing to compare
//   - Nil expectation: a collection was compared against <nil> at the root
//   - Invalid config: an option received an unusable value
//   - Invalid step: a custom step broke the pipeline contract
//
// Usage errors abort the whole comparison; they are never reported as
// mismatches.
type UsageError struct {
	// Code identifies the error category.
	Code UsageErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Path is the node at which the error was detected ("" for the root).
	Path string `json:"path,omitempty"`
}

// UsageErrorCode categorizes usage errors.
type UsageErrorCode string

const (
	// ErrCodeNoMembers indicates the member selection at the root is empty.
	ErrCodeNoMembers UsageErrorCode = "NO_MEMBERS"

	// ErrCodeNilExpectation indicates a collection was compared with <nil>.
	ErrCodeNilExpectation UsageErrorCode = "NIL_EXPECTATION"

	// ErrCodeInvalidConfig indicates an option value cannot be used.
	ErrCodeInvalidConfig UsageErrorCode = "INVALID_CONFIG"

	// ErrCodeInvalidStep indicates a step violated the pipeline contract.
	ErrCodeInvalidStep UsageErrorCode = "INVALID_STEP"
)

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUsageError returns true if err is (or wraps) a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// UsageErrorCodeOf returns the code of a wrapped *UsageError, or "".
func UsageErrorCodeOf(err error) UsageErrorCode {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

func newNoMembersError(ctx *Context) *UsageError {
	return &UsageError{
		Code:    ErrCodeNoMembers,
		Message: fmt.Sprintf("no members of %s are selected for comparison; include at least one", typeName(ctx.selectionType())),
		Path:    ctx.Path().String(),
	}
}

func newMemberDeclarationError(ctx *Context, err error) *UsageError {
	return &UsageError{
		Code:    ErrCodeInvalidConfig,
		Message: err.Error(),
		Path:    ctx.Path().String(),
	}
}

func newNilExpectationError(ctx *Context) *UsageError {
	return &UsageError{
		Code:    ErrCodeNilExpectation,
		Message: "cannot compare a collection with <nil>",
		Path:    ctx.Path().String(),
	}
}

// Mismatches is the aggregated outcome of a failed comparison.
// It implements error so Compare can return it directly.
type Mismatches []Mismatch

// Error lists every mismatch on its own line.
func (ms Mismatches) Error() string {
	switch len(ms) {
	case 0:
		return ""
	case 1:
		return ms[0].Message
	}
	buf := []byte(fmt.Sprintf("%d mismatches:", len(ms)))
	for _, m := range ms {
		buf = append(buf, "\n  - "...)
		buf = append(buf, m.Message...)
	}
	return string(buf)
}

// Paths returns the path of every mismatch in report order.
func (ms Mismatches) Paths() []string {
	paths := make([]string, len(ms))
	for i, m := range ms {
		paths[i] = m.Path
	}
	return paths
}

// AsMismatches extracts Mismatches from an error using errors.As.
func AsMismatches(err error) (Mismatches, bool) {
	if err == nil {
		return nil, false
	}
	var ms Mismatches
	if errors.As(err, &ms) {
		return ms, true
	}
	return nil, false
}
