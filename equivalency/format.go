package equivalency

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Format renders a value for failure messages: strings are quoted, nil is
// <nil>, value types use their text form and composites are dumped inline.
func Format(v any) string {
	rv := valueOf(v)
	if !rv.IsValid() {
		return "<nil>"
	}
	switch x := rv.Interface().(type) {
	case string:
		return strconv.Quote(x)
	case time.Time:
		return "<" + x.Format(time.RFC3339Nano) + ">"
	case time.Duration:
		return x.String()
	case encoding.TextMarshaler:
		if text, err := x.MarshalText(); err == nil {
			return string(text)
		}
	case fmt.Stringer:
		if rv.Kind() != reflect.Struct {
			return x.String()
		}
	}
	switch rv.Kind() {
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return printer.Sprintf("%+v", rv.Interface())
	}
	return fmt.Sprintf("%v", rv.Interface())
}
