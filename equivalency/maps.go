package equivalency

import (
	"fmt"
	"reflect"
	"sort"
)

// Map compares two maps entry by entry. Keys are matched by their rendered
// form, so map[string]any and map[Name]int can be compared.
type Map struct{}

func (Map) CanHandle(ctx *Context) bool {
	return isMap(valueOf(ctx.Subject)) && isMap(valueOf(ctx.Expectation)) &&
		(ctx.IsRoot || ctx.Config.Recursive)
}

func (Map) Handle(ctx *Context, parent Parent) (Outcome, error) {
	s, e := valueOf(ctx.Subject), valueOf(ctx.Expectation)
	subjectKeys := indexKeys(s)
	expectedKeys := sortedKeys(e)

	selected := 0
	seen := make(map[string]bool, len(expectedKeys))
	for _, k := range expectedKeys {
		name := fmt.Sprint(k.Interface())
		seen[name] = true
		if !ctx.selectsEntry(k) {
			continue
		}
		selected++

		ev := e.MapIndex(k)
		if ctx.Config.ExcludeNilExpectations && isNilValue(ev) {
			ctx.Logger().Debug("skipping nil expectation", "path", ctx.entryPath(k).String())
			continue
		}
		sk, ok := subjectKeys[name]
		if !ok {
			ctx.Fail("Expected %s to contain key %s%s, but it does not.",
				ctx.Description(), Format(k.Interface()), ctx.Reason())
			continue
		}
		child := ctx.CreateForMapEntry(k, interfaceOf(s.MapIndex(sk)), interfaceOf(ev))
		if err := parent.AssertEqualityUsing(child); err != nil {
			return Handled, err
		}
	}

	for _, k := range sortedKeys(s) {
		name := fmt.Sprint(k.Interface())
		if seen[name] || !ctx.selectsEntry(k) {
			continue
		}
		selected++
		if ctx.Config.ExcludeMissingMembers {
			ctx.Logger().Debug("skipping key missing on expectation", "path", ctx.entryPath(k).String())
			continue
		}
		ctx.Fail("Expected %s not to contain key %s%s, but it does.",
			ctx.Description(), Format(k.Interface()), ctx.Reason())
	}

	if ctx.IsRoot && selected == 0 && (s.Len() > 0 || e.Len() > 0) {
		return Handled, newNoMembersError(ctx)
	}
	return Handled, nil
}

func (c *Context) selectsEntry(key reflect.Value) bool {
	p := c.entryPath(key)
	info := MemberInfo{
		Name:    fmt.Sprint(key.Interface()),
		Path:    p.String(),
		Pattern: p.Pattern(),
	}
	if t := c.selectionType(); t != nil && t.Kind() == reflect.Map {
		info.Type, info.DeclaringType = t.Elem(), t
	}
	return c.Config.selects(info)
}

func indexKeys(m reflect.Value) map[string]reflect.Value {
	keys := make(map[string]reflect.Value, m.Len())
	for _, k := range m.MapKeys() {
		keys[fmt.Sprint(k.Interface())] = k
	}
	return keys
}

func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
