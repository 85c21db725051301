package equivalency

import (
	"encoding"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

var (
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	allUnexported     = cmp.Exporter(func(reflect.Type) bool { return true })
)

// indirect dereferences pointers and interfaces until it reaches a concrete
// value. A nil pointer yields the invalid Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func derefType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func valueOf(v any) reflect.Value {
	return indirect(reflect.ValueOf(v))
}

// interfaceOf converts a reflected value back into an any, keeping nil
// pointers, maps and slices as untyped nil.
func interfaceOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
	}
	if !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

func isNil(v any) bool {
	return !valueOf(v).IsValid()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// isValueType reports whether values of t compare as a single scalar even
// though their kind is composite: types with an Equal method (time.Time) and
// types with a text form (uuid.UUID, net.IP).
func isValueType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return true
	}
	if m, ok := t.MethodByName("Equal"); ok {
		mt := m.Type
		if mt.NumIn() == 2 && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool && mt.In(1) == t {
			return true
		}
	}
	return false
}

// isCollection reports whether v is a non-string sequence.
func isCollection(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return !isValueType(v.Type())
	}
	return false
}

func isMap(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Map && !isValueType(v.Type())
}

func isStruct(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Struct && !isValueType(v.Type())
}

// isComplex reports whether v compares member by member.
func isComplex(v reflect.Value) bool {
	return isStruct(v) || isMap(v)
}

func elements(v reflect.Value) []any {
	if !v.IsValid() {
		return nil
	}
	items := make([]any, v.Len())
	for i := range items {
		items[i] = interfaceOf(v.Index(i))
	}
	return items
}

// directEqual is the base case of the pipeline: both nil, or deeply equal
// including unexported fields. Types with an Equal method use it.
func directEqual(subject, expectation any) bool {
	sv, ev := valueOf(subject), valueOf(expectation)
	if !sv.IsValid() || !ev.IsValid() {
		return sv.IsValid() == ev.IsValid()
	}
	return cmp.Equal(sv.Interface(), ev.Interface(), allUnexported)
}

// sequenceEqual compares two element lists positionally with directEqual.
func sequenceEqual(subject, expectation []any) bool {
	if len(subject) != len(expectation) {
		return false
	}
	for i := range subject {
		if !directEqual(subject[i], expectation[i]) {
			return false
		}
	}
	return true
}

// identity returns a key for values that can form reference cycles.
func identity(v any) (reference, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reference{}, false
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return reference{}, false
		}
		return reference{ptr: rv.Pointer(), typ: rv.Type()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 {
			return reference{}, false
		}
		return reference{ptr: rv.Pointer(), typ: rv.Type(), n: rv.Len()}, true
	}
	return reference{}, false
}

type reference struct {
	ptr uintptr
	typ reflect.Type
	n   int
}
