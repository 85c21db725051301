package equivalency

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

var (
	timeType       = reflect.TypeFor[time.Time]()
	durationType   = reflect.TypeFor[time.Duration]()
	uuidType       = reflect.TypeFor[uuid.UUID]()
	jsonNumberType = reflect.TypeFor[json.Number]()
)

// TryConversion coerces the subject to the expectation's type before shape
// dispatch, so 5 and int64(5) or "42" and 42 compare equal. It never handles
// a context; failed conversions leave the pair unchanged.
type TryConversion struct{}

func (TryConversion) CanHandle(*Context) bool { return true }

func (TryConversion) Handle(ctx *Context, _ Parent) (Outcome, error) {
	s, e := valueOf(ctx.Subject), valueOf(ctx.Expectation)
	if !s.IsValid() || !e.IsValid() || s.Type().AssignableTo(e.Type()) {
		return Continue, nil
	}
	converted, ok := convert(s, e.Type())
	if !ok {
		ctx.Logger().Debug("conversion skipped",
			"path", ctx.Path().String(),
			"from", s.Type().String(),
			"to", e.Type().String())
		return Continue, nil
	}
	ctx.Logger().Debug("subject converted",
		"path", ctx.Path().String(),
		"from", s.Type().String(),
		"to", e.Type().String())
	return Replace(converted), nil
}

// convert returns v as a value of type target when the conversion is exact.
// Only scalar targets are considered.
func convert(v reflect.Value, target reflect.Type) (any, bool) {
	if v.Type() == jsonNumberType {
		v = reflect.ValueOf(v.String())
	}

	switch target {
	case timeType:
		if v.Kind() != reflect.String {
			return nil, false
		}
		t, err := cast.ToTimeE(v.String())
		if err != nil {
			return nil, false
		}
		return t, true
	case uuidType:
		if v.Kind() != reflect.String {
			return nil, false
		}
		id, err := uuid.Parse(v.String())
		if err != nil {
			return nil, false
		}
		return id, true
	case durationType:
		if v.Kind() == reflect.String {
			d, err := cast.ToDurationE(v.String())
			if err != nil {
				return nil, false
			}
			return d, true
		}
	}

	if isValueType(target) {
		return nil, false
	}

	switch target.Kind() {
	case reflect.String:
		return convertToString(v, target)
	case reflect.Bool:
		return convertToBool(v, target)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return convertToNumber(v, target)
	}
	return nil, false
}

func convertToString(v reflect.Value, target reflect.Type) (any, bool) {
	var s string
	if v.Kind() == reflect.String {
		s = v.String()
	} else {
		if isComplex(v) || isCollection(v) {
			return nil, false
		}
		var err error
		if s, err = cast.ToStringE(v.Interface()); err != nil {
			return nil, false
		}
	}
	return reflect.ValueOf(s).Convert(target).Interface(), true
}

func convertToBool(v reflect.Value, target reflect.Type) (any, bool) {
	var src any
	switch v.Kind() {
	case reflect.Bool:
		src = v.Bool()
	case reflect.String:
		src = v.String()
	default:
		return nil, false
	}
	b, err := cast.ToBoolE(src)
	if err != nil {
		return nil, false
	}
	return reflect.ValueOf(b).Convert(target).Interface(), true
}

// convertToNumber converts between numeric kinds without losing precision or
// sign, and parses numeric strings.
func convertToNumber(v reflect.Value, target reflect.Type) (any, bool) {
	if v.Kind() == reflect.String {
		parsed, ok := parseNumber(v.String(), target)
		if !ok {
			return nil, false
		}
		v = parsed
	}

	out := reflect.New(target).Elem()
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.Int()
		switch {
		case isSigned(target):
			if out.OverflowInt(n) {
				return nil, false
			}
			out.SetInt(n)
		case isUnsigned(target):
			if n < 0 || out.OverflowUint(uint64(n)) {
				return nil, false
			}
			out.SetUint(uint64(n))
		default:
			f := float64(n)
			if int64(f) != n || out.OverflowFloat(f) {
				return nil, false
			}
			out.SetFloat(f)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		switch {
		case isSigned(target):
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return nil, false
			}
			out.SetInt(int64(u))
		case isUnsigned(target):
			if out.OverflowUint(u) {
				return nil, false
			}
			out.SetUint(u)
		default:
			f := float64(u)
			if uint64(f) != u || out.OverflowFloat(f) {
				return nil, false
			}
			out.SetFloat(f)
		}
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case isSigned(target):
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return nil, false
			}
			out.SetInt(int64(f))
		case isUnsigned(target):
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return nil, false
			}
			out.SetUint(uint64(f))
		default:
			if out.OverflowFloat(f) {
				return nil, false
			}
			out.SetFloat(f)
			if out.Float() != f {
				return nil, false
			}
		}
	default:
		return nil, false
	}
	return out.Interface(), true
}

// parseNumber parses s as a decimal literal with the widest parser matching
// target's kind. Base prefixes, digit separators and leading-zero octal are
// not numbers here: "010" is ten.
func parseNumber(s string, target reflect.Type) (reflect.Value, bool) {
	s = strings.TrimSpace(s)
	if !decimalLiteral.MatchString(s) {
		return reflect.Value{}, false
	}
	switch {
	case isSigned(target):
		n, err := strconv.ParseInt(s, 10, 64)
		return reflect.ValueOf(n), err == nil
	case isUnsigned(target):
		n, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 64)
		return reflect.ValueOf(n), err == nil
	default:
		f, err := cast.ToFloat64E(s)
		return reflect.ValueOf(f), err == nil
	}
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func isSigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
