package equivalency

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Member describes one comparable member of a type: a struct field or a map
// key.
type Member struct {
	// Name is the member name used in paths and to look the member up on the
	// expectation.
	Name string

	// Type is the declared type of the member.
	Type reflect.Type

	// Get reads the member off an instance of the declaring type.
	// It reports false when the member cannot be read (nil embedded pointer).
	Get func(v reflect.Value) (reflect.Value, bool)
}

// MemberInfo is what selection predicates see about a member.
type MemberInfo struct {
	Name          string
	Path          string // full path, e.g. Orders[2].ID
	Pattern       string // path without indices, e.g. Orders.ID
	Type          reflect.Type
	DeclaringType reflect.Type
}

// MemberProvider is the only place the engine touches type introspection.
type MemberProvider interface {
	// Members returns the ordered comparable members of t. v is the instance
	// being compared; providers that describe dynamic types (maps) use it.
	Members(t reflect.Type, v reflect.Value) []Member

	// Lookup reads the named member off v.
	Lookup(v reflect.Value, name string) (reflect.Value, bool)
}

// MemberChecker is implemented by providers that can reject a type's member
// declaration. The engine reports the error as INVALID_CONFIG.
type MemberChecker interface {
	CheckMembers(t reflect.Type) error
}

// Describer lets a type declare the names of its comparable members.
// The method is called once on the zero value and the result is cached.
type Describer interface {
	EquivalencyMembers() []string
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type][]string{}
)

// RegisterMembers declares the comparable members of T explicitly.
// Registration takes precedence over Describer and over exported fields.
func RegisterMembers[T any](names ...string) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = append([]string(nil), names...)
	defaultMembers.cache.Delete(t)
}

func registeredMembers(t reflect.Type) ([]string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names, ok := registry[t]
	return names, ok
}

// DefaultMemberProvider returns the process-wide provider that resolves struct
// members once per type and map members per instance.
func DefaultMemberProvider() MemberProvider {
	return defaultMembers
}

var defaultMembers = &reflectMembers{}

// reflectMembers resolves struct members from registrations, Describer, or
// exported fields, in that order. The tag `equiv:"-"` excludes a field.
type reflectMembers struct {
	cache sync.Map // reflect.Type -> resolvedMembers
}

type resolvedMembers struct {
	members []Member
	err     error
}

var describerType = reflect.TypeFor[Describer]()

func (p *reflectMembers) Members(t reflect.Type, v reflect.Value) []Member {
	t = derefType(t)
	switch t.Kind() {
	case reflect.Struct:
		return p.resolve(t).members
	case reflect.Map:
		return mapMembers(t, indirect(v))
	}
	return nil
}

// CheckMembers reports a registration or Describer naming a field t does not
// export. Members skips such names.
func (p *reflectMembers) CheckMembers(t reflect.Type) error {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil
	}
	return p.resolve(t).err
}

func (p *reflectMembers) resolve(t reflect.Type) resolvedMembers {
	if cached, ok := p.cache.Load(t); ok {
		return cached.(resolvedMembers)
	}
	members, err := structMembers(t)
	actual, _ := p.cache.LoadOrStore(t, resolvedMembers{members: members, err: err})
	return actual.(resolvedMembers)
}

func (p *reflectMembers) Lookup(v reflect.Value, name string) (reflect.Value, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	switch v.Kind() {
	case reflect.Struct:
		f, ok := v.Type().FieldByName(name)
		if !ok || !f.IsExported() || !exportedPath(v.Type(), f.Index) {
			return reflect.Value{}, false
		}
		fv, err := v.FieldByIndexErr(f.Index)
		if err != nil {
			return reflect.Value{}, false
		}
		return fv, true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return reflect.Value{}, false
		}
		return mv, true
	}
	return reflect.Value{}, false
}

func structMembers(t reflect.Type) ([]Member, error) {
	if names, ok := registeredMembers(t); ok {
		return namedMembers(t, names)
	}
	if reflect.PointerTo(t).Implements(describerType) || t.Implements(describerType) {
		d, ok := reflect.New(t).Interface().(Describer)
		if ok {
			return namedMembers(t, d.EquivalencyMembers())
		}
	}

	var members []Member
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Tag.Get("equiv") == "-" {
			continue
		}
		if f.Anonymous && derefType(f.Type).Kind() == reflect.Struct {
			// promoted fields are listed individually
			continue
		}
		if !exportedPath(t, f.Index) {
			continue
		}
		members = append(members, fieldMember(f))
	}
	return members, nil
}

func namedMembers(t reflect.Type, names []string) ([]Member, error) {
	members := make([]Member, 0, len(names))
	var unknown []string
	for _, name := range names {
		f, ok := t.FieldByName(name)
		if !ok || !f.IsExported() {
			unknown = append(unknown, name)
			continue
		}
		members = append(members, fieldMember(f))
	}
	if len(unknown) > 0 {
		return members, fmt.Errorf("%s has no exported field %s", t, strings.Join(quoteAll(unknown), ", "))
	}
	return members, nil
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return quoted
}

func fieldMember(f reflect.StructField) Member {
	index := f.Index
	return Member{
		Name: f.Name,
		Type: f.Type,
		Get: func(v reflect.Value) (reflect.Value, bool) {
			v = indirect(v)
			if !v.IsValid() || v.Kind() != reflect.Struct {
				return reflect.Value{}, false
			}
			fv, err := v.FieldByIndexErr(index)
			if err != nil {
				return reflect.Value{}, false
			}
			return fv, true
		},
	}
}

// exportedPath reports whether every embedded field on the way to a promoted
// field is exported; values read through unexported embeddings cannot be
// turned back into interfaces.
func exportedPath(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		if !t.FieldByIndex(index[:i]).IsExported() {
			return false
		}
	}
	return true
}

func mapMembers(t reflect.Type, v reflect.Value) []Member {
	if !v.IsValid() || v.Kind() != reflect.Map || t.Key().Kind() != reflect.String {
		return nil
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	members := make([]Member, 0, len(keys))
	for _, k := range keys {
		key := k
		members = append(members, Member{
			Name: key.String(),
			Type: t.Elem(),
			Get: func(m reflect.Value) (reflect.Value, bool) {
				m = indirect(m)
				if !m.IsValid() || m.Kind() != reflect.Map {
					return reflect.Value{}, false
				}
				mv := m.MapIndex(key)
				return mv, mv.IsValid()
			},
		})
	}
	return members
}
