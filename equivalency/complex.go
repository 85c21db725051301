package equivalency

// ComplexType compares structs member by member. A map compared against a
// struct is treated the same way, its keys standing in for members.
//
// Below the root the step only runs when the comparison is recursive;
// otherwise nested structs fall through to direct equality.
type ComplexType struct{}

func (ComplexType) CanHandle(ctx *Context) bool {
	s := valueOf(ctx.Subject)
	if !(isStruct(s) || isMap(s)) {
		return false
	}
	return ctx.IsRoot || ctx.Config.Recursive
}

func (ComplexType) Handle(ctx *Context, parent Parent) (Outcome, error) {
	e := valueOf(ctx.Expectation)
	if !isComplex(e) {
		ctx.FailExpected()
		return Handled, nil
	}

	if err := ctx.checkMembers(); err != nil {
		return Handled, err
	}
	members := ctx.SelectedMembers()
	if ctx.IsRoot && len(members) == 0 {
		return Handled, newNoMembersError(ctx)
	}
	for _, m := range members {
		child, ok := ctx.CreateForNestedMember(m)
		if !ok {
			continue
		}
		if err := parent.AssertEqualityUsing(child); err != nil {
			return Handled, err
		}
	}
	return Handled, nil
}
