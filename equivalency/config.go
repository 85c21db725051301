package equivalency

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
)

// DefaultMaxDepth is the depth limit when WithMaxDepth is not given. Zero
// means the walk is unbounded; cycle detection alone ends it.
const DefaultMaxDepth = 0

// Config is the policy of one comparison call. It is built once by NewConfig
// and never mutated during the walk; every context shares it by reference.
type Config struct {
	// Recursive enables structural comparison below the first level. Without
	// it nested members and collections compare by direct equality.
	Recursive bool

	// MaxDepth bounds the depth of the walk. Zero means no bound.
	MaxDepth int

	// IgnoreCycles skips cyclic references instead of reporting them.
	IgnoreCycles bool

	// ExcludeMissingMembers skips subject members the expectation does not
	// have, instead of reporting them.
	ExcludeMissingMembers bool

	// ExcludeNilExpectations skips members whose expected value is nil.
	ExcludeNilExpectations bool

	// Members is the introspection capability.
	Members MemberProvider

	includes     []string
	excludes     []string
	excludeFuncs []func(MemberInfo) bool
	equalities   map[reflect.Type]func(subject, expectation any) bool
	interfaces   []reflect.Type // interface keys of equalities, in registration order
	stringEq     func(subject, expectation any) bool
	ignoreCase   bool
	normalize    bool
	steps        []Step
	diag         *diagnostic
	logger       *slog.Logger
	errs         []error
}

// Option configures a comparison.
type Option func(*Config)

// NewConfig builds a frozen configuration. The default is recursive with
// no depth limit, cycles reported and missing members reported.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Recursive:  true,
		MaxDepth:   DefaultMaxDepth,
		Members:    DefaultMemberProvider(),
		equalities: map[reflect.Type]func(subject, expectation any) bool{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.ignoreCase || cfg.normalize {
		if _, custom := cfg.equalities[stringType]; !custom {
			eq := stringComparer(cfg.ignoreCase, cfg.normalize)
			cfg.stringEq = func(s, e any) bool {
				return eq(reflect.ValueOf(s).String(), reflect.ValueOf(e).String())
			}
			cfg.equalities[stringType] = cfg.stringEq
		}
	}
	return cfg
}

var stringType = reflect.TypeFor[string]()

// Err returns the first invalid option, if any.
func (c *Config) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs[0]
}

// Logger returns the logger the engine writes debug output to.
func (c *Config) Logger() *slog.Logger {
	return c.logger
}

// Steps returns the pipeline configured with WithSteps, or nil.
func (c *Config) Steps() []Step {
	return c.steps
}

// Equality returns the predicate registered for t: an exact registration
// first, then one registered for an interface t implements, then the string
// options when t is a string kind.
func (c *Config) Equality(t reflect.Type) (func(subject, expectation any) bool, bool) {
	if eq, ok := c.equalities[t]; ok {
		return eq, true
	}
	for _, it := range c.interfaces {
		if t.Implements(it) {
			return c.equalities[it], true
		}
	}
	if t.Kind() == reflect.String && c.stringEq != nil {
		return c.stringEq, true
	}
	return nil, false
}

// equality finds the predicate for a subject and expectation of different
// types. Only an interface registration both implement qualifies.
func (c *Config) equality(subject, expectation reflect.Type) (func(subject, expectation any) bool, bool) {
	if subject == expectation {
		return c.Equality(expectation)
	}
	for _, it := range c.interfaces {
		if subject.Implements(it) && expectation.Implements(it) {
			return c.equalities[it], true
		}
	}
	return nil, false
}

func (c *Config) invalid(format string, args ...any) {
	c.errs = append(c.errs, &UsageError{Code: ErrCodeInvalidConfig, Message: fmt.Sprintf(format, args...)})
}

// selects reports whether the member at path is part of the comparison.
func (c *Config) selects(info MemberInfo) bool {
	for _, ex := range c.excludes {
		if matchesPath(ex, info) {
			return false
		}
	}
	for _, fn := range c.excludeFuncs {
		if fn(info) {
			return false
		}
	}
	if len(c.includes) == 0 {
		return true
	}
	return slices.ContainsFunc(c.includes, func(in string) bool {
		return matchesPath(in, info) || isAncestor(info.Pattern, in) || isAncestor(in, info.Pattern)
	})
}

func matchesPath(selector string, info MemberInfo) bool {
	return selector == info.Path || selector == info.Pattern
}

// isAncestor reports whether path a is a strict prefix of path b.
func isAncestor(a, b string) bool {
	return a != "" && strings.HasPrefix(b, a) && len(b) > len(a) && (b[len(a)] == '.' || b[len(a)] == '[')
}

// Recursive enables structural comparison of nested members and collections.
// It is the default.
func Recursive() Option {
	return func(c *Config) { c.Recursive = true }
}

// WithoutRecursion compares nested members and collections by direct
// equality; only the root is compared member by member.
func WithoutRecursion() Option {
	return func(c *Config) { c.Recursive = false }
}

// Including restricts the comparison to the given member paths, their
// ancestors and everything below them. Paths may omit indices.
func Including(paths ...string) Option {
	return func(c *Config) {
		for _, p := range paths {
			c.includes = append(c.includes, stripIndices(p))
		}
	}
}

// Excluding removes the given member paths from the comparison.
// "Orders.ID" excludes the ID of every order; "Orders[0].ID" only the first.
func Excluding(paths ...string) Option {
	return func(c *Config) { c.excludes = append(c.excludes, paths...) }
}

// ExcludingFunc removes every member for which fn returns true.
func ExcludingFunc(fn func(MemberInfo) bool) Option {
	return func(c *Config) {
		if fn == nil {
			c.invalid("ExcludingFunc requires a predicate")
			return
		}
		c.excludeFuncs = append(c.excludeFuncs, fn)
	}
}

// Using replaces equality for values of type T with eq.
func Using[T any](eq func(subject, expectation T) bool) Option {
	return func(c *Config) {
		if eq == nil {
			c.invalid("Using[%s] requires a predicate", reflect.TypeFor[T]())
			return
		}
		t := reflect.TypeFor[T]()
		if _, seen := c.equalities[t]; !seen && t.Kind() == reflect.Interface {
			c.interfaces = append(c.interfaces, t)
		}
		c.equalities[t] = func(s, e any) bool {
			return eq(s.(T), e.(T))
		}
	}
}

// IgnoringCase compares strings with Unicode case folding.
func IgnoringCase() Option {
	return func(c *Config) { c.ignoreCase = true }
}

// NormalizingUnicode compares strings in NFC form.
func NormalizingUnicode() Option {
	return func(c *Config) { c.normalize = true }
}

// ExcludingMissingMembers skips subject members the expectation lacks.
func ExcludingMissingMembers() Option {
	return func(c *Config) { c.ExcludeMissingMembers = true }
}

// ExcludingNilExpectations skips members whose expected value is nil.
func ExcludingNilExpectations() Option {
	return func(c *Config) { c.ExcludeNilExpectations = true }
}

// IgnoringCyclicReferences skips references back to an ancestor.
func IgnoringCyclicReferences() Option {
	return func(c *Config) { c.IgnoreCycles = true }
}

// WithMaxDepth bounds the depth of the walk.
func WithMaxDepth(n int) Option {
	return func(c *Config) {
		if n < 1 {
			c.invalid("max depth must be positive, got %d", n)
			return
		}
		c.MaxDepth = n
	}
}

// WithMemberProvider replaces the introspection capability.
func WithMemberProvider(p MemberProvider) Option {
	return func(c *Config) {
		if p == nil {
			c.invalid("WithMemberProvider requires a provider")
			return
		}
		c.Members = p
	}
}

// WithSteps replaces the step pipeline used by Compare.
func WithSteps(steps ...Step) Option {
	return func(c *Config) { c.steps = steps }
}

// WithLogger sets the logger for debug output (step dispatch, skipped
// members, coercions).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Because explains why the comparison is needed. The explanation is cited by
// every mismatch; "because" is prepended when missing.
func Because(reason string, args ...any) Option {
	return func(c *Config) { c.diag = &diagnostic{reason: reason, args: args} }
}
