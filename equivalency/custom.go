package equivalency

import "reflect"

// CustomEquality compares values with the predicate registered for the
// expectation's type through Using, IgnoringCase or NormalizingUnicode.
type CustomEquality struct{}

func (CustomEquality) CanHandle(ctx *Context) bool {
	_, _, ok := customPair(ctx)
	return ok
}

func (CustomEquality) Handle(ctx *Context, _ Parent) (Outcome, error) {
	pair, eq, ok := customPair(ctx)
	if !ok {
		return Continue, nil
	}
	if !eq(pair[0].Interface(), pair[1].Interface()) {
		ctx.FailExpected()
	}
	return Handled, nil
}

func customPair(ctx *Context) ([2]reflect.Value, func(any, any) bool, bool) {
	s, e := valueOf(ctx.Subject), valueOf(ctx.Expectation)
	if !s.IsValid() || !e.IsValid() {
		return [2]reflect.Value{}, nil, false
	}
	eq, ok := ctx.Config.equality(s.Type(), e.Type())
	if !ok || !s.CanInterface() || !e.CanInterface() {
		return [2]reflect.Value{}, nil, false
	}
	return [2]reflect.Value{s, e}, eq, true
}
