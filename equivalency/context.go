package equivalency

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// Context is one node of a comparison: a subject, the expectation it must
// match, and where in the graph the pair was found.
//
// Contexts are created by the orchestrator and by steps deriving children;
// they are never modified after creation. The conversion step proposes a
// replacement subject and the orchestrator continues with a copy.
type Context struct {
	// Subject is the actual value at this node.
	Subject any

	// Expectation is the value Subject must be equivalent to.
	Expectation any

	// CompileTimeType is the declared type at this node. It selects the
	// members to compare; interface types defer to the subject's runtime type.
	CompileTimeType reflect.Type

	// IsRoot is true only for the context a comparison starts from.
	IsRoot bool

	// Config is shared by every node of the call.
	Config *Config

	path    *Path
	depth   int
	coerced bool
	trail   *ancestor
	call    *call
}

// call is the state of one comparison call, referenced by every node.
type call struct {
	reporter Reporter
	diag     *diagnostic
	logger   *slog.Logger
}

// ancestor is one link of the chain of referenced values above a node.
type ancestor struct {
	ref    reference
	parent *ancestor
}

func (a *ancestor) contains(ref reference) bool {
	for x := a; x != nil; x = x.parent {
		if x.ref == ref {
			return true
		}
	}
	return false
}

// NewRootContext creates the context a comparison starts from. Mismatches
// found anywhere below it are handed to reporter.
func NewRootContext(subject, expectation any, cfg *Config, reporter Reporter) *Context {
	if cfg == nil {
		cfg = NewConfig()
	}
	if reporter == nil {
		reporter = &Collector{}
	}
	return &Context{
		Subject:         subject,
		Expectation:     expectation,
		CompileTimeType: reflect.TypeOf(subject),
		IsRoot:          true,
		Config:          cfg,
		call: &call{
			reporter: reporter,
			diag:     cfg.diag,
			logger:   cfg.logger,
		},
	}
}

// Path returns the location of this node. The root has a nil path.
func (c *Context) Path() *Path {
	return c.path
}

// Depth returns the number of levels below the root.
func (c *Context) Depth() int {
	return c.depth
}

// Coerced reports whether the subject was replaced by a conversion.
func (c *Context) Coerced() bool {
	return c.coerced
}

// Description names the node in failure messages: "subject" for the root,
// the path otherwise.
func (c *Context) Description() string {
	p := c.path.String()
	if p == "" {
		return "subject"
	}
	if strings.HasPrefix(p, "[") {
		return "subject" + p
	}
	return p
}

// Reason renders the caller's explanation as " because ...", or "".
func (c *Context) Reason() string {
	return c.call.diag.String()
}

// Logger returns the logger of the current call.
func (c *Context) Logger() *slog.Logger {
	return c.call.logger
}

// Fail reports a mismatch at this node.
func (c *Context) Fail(format string, args ...any) {
	c.call.reporter.Report(Mismatch{
		Path:        c.path.String(),
		Message:     fmt.Sprintf(format, args...),
		Subject:     c.Subject,
		Expectation: c.Expectation,
	})
}

// FailExpected reports the standard "Expected <x> to be <e>, but found <s>."
// mismatch.
func (c *Context) FailExpected() {
	c.Fail("Expected %s to be %s%s, but found %s.",
		c.Description(), Format(c.Expectation), c.Reason(), Format(c.Subject))
}

// SelectedMembers returns the members of the selection type that survive the
// include and exclude policy, in declaration (or key) order.
func (c *Context) SelectedMembers() []Member {
	t := c.selectionType()
	if t == nil {
		return nil
	}
	all := c.Config.Members.Members(t, valueOf(c.Subject))
	selected := make([]Member, 0, len(all))
	for _, m := range all {
		if c.Config.selects(c.memberInfo(m)) {
			selected = append(selected, m)
		}
	}
	return selected
}

func (c *Context) checkMembers() error {
	checker, ok := c.Config.Members.(MemberChecker)
	if !ok {
		return nil
	}
	t := c.selectionType()
	if t == nil {
		return nil
	}
	if err := checker.CheckMembers(t); err != nil {
		return newMemberDeclarationError(c, err)
	}
	return nil
}

// selectionType is the type whose members are compared: the compile-time
// type, or the runtime type when it is unknown or an interface.
func (c *Context) selectionType() reflect.Type {
	t := c.CompileTimeType
	if t == nil || derefType(t).Kind() == reflect.Interface {
		t = reflect.TypeOf(c.Subject)
	}
	return derefType(t)
}

func (c *Context) memberInfo(m Member) MemberInfo {
	p := c.path.Member(m.Name)
	return MemberInfo{
		Name:          m.Name,
		Path:          p.String(),
		Pattern:       p.Pattern(),
		Type:          m.Type,
		DeclaringType: c.selectionType(),
	}
}

// CreateForNestedMember derives the context comparing member m of the subject
// with the member of the same name on the expectation.
//
// It returns false when the pair is skipped: the expectation lacks the member
// (reported as a mismatch unless missing members are excluded) or the
// expected value is nil and nil expectations are excluded.
func (c *Context) CreateForNestedMember(m Member) (*Context, bool) {
	path := c.path.Member(m.Name)

	var subject any
	if sv, ok := m.Get(reflect.ValueOf(c.Subject)); ok {
		subject = interfaceOf(sv)
	}

	ev, found := c.Config.Members.Lookup(reflect.ValueOf(c.Expectation), m.Name)
	if !found {
		if c.Config.ExcludeMissingMembers {
			c.Logger().Debug("skipping member missing on expectation", "path", path.String())
			return nil, false
		}
		c.call.reporter.Report(Mismatch{
			Path:    path.String(),
			Message: fmt.Sprintf("Expectation has no member %s%s.", path, c.Reason()),
			Subject: subject,
		})
		return nil, false
	}
	if c.Config.ExcludeNilExpectations && isNilValue(ev) {
		c.Logger().Debug("skipping nil expectation", "path", path.String())
		return nil, false
	}

	return &Context{
		Subject:         subject,
		Expectation:     interfaceOf(ev),
		CompileTimeType: m.Type,
		Config:          c.Config,
		path:            path,
		depth:           c.depth + 1,
		trail:           c.childTrail(),
		call:            c.call,
	}, true
}

// CreateForCollectionItem derives the context comparing the elements at
// index of two sequences.
func (c *Context) CreateForCollectionItem(index int, subject, expectation any) *Context {
	var elem reflect.Type
	if t := c.selectionType(); t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		elem = t.Elem()
	}
	return &Context{
		Subject:         subject,
		Expectation:     expectation,
		CompileTimeType: elem,
		Config:          c.Config,
		path:            c.path.Index(index),
		depth:           c.depth + 1,
		trail:           c.childTrail(),
		call:            c.call,
	}
}

// CreateForMapEntry derives the context comparing the values stored under
// key in two maps. String keys extend the path like members, others as
// [key].
func (c *Context) CreateForMapEntry(key reflect.Value, subject, expectation any) *Context {
	var elem reflect.Type
	if t := c.selectionType(); t != nil && t.Kind() == reflect.Map {
		elem = t.Elem()
	}
	return &Context{
		Subject:         subject,
		Expectation:     expectation,
		CompileTimeType: elem,
		Config:          c.Config,
		path:            c.entryPath(key),
		depth:           c.depth + 1,
		trail:           c.childTrail(),
		call:            c.call,
	}
}

func (c *Context) entryPath(key reflect.Value) *Path {
	if k := indirect(key); k.IsValid() && k.Kind() == reflect.String {
		return c.path.Member(k.String())
	}
	return c.path.Key(interfaceOf(key))
}

// withSubject returns a copy of c comparing replacement instead of the
// original subject.
func (c *Context) withSubject(replacement any) *Context {
	next := *c
	next.Subject = replacement
	next.coerced = true
	return &next
}

func (c *Context) childTrail() *ancestor {
	if ref, ok := identity(c.Subject); ok {
		return &ancestor{ref: ref, parent: c.trail}
	}
	return c.trail
}

// cyclic reports whether the subject is a reference already being compared
// further up the same branch.
func (c *Context) cyclic() bool {
	ref, ok := identity(c.Subject)
	return ok && c.trail.contains(ref)
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
