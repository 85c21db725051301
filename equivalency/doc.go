// Package equivalency implements structural equivalence checks between two
// arbitrary object graphs.
//
// A comparison starts at a root pair of values (subject, expectation) and is
// expanded into a tree of sub-comparisons, one per selected member or
// collection element. Every node runs through an ordered pipeline of steps
// until one of them takes full responsibility for it:
//
//  1. TryConversion coerces the subject to the expectation's scalar type
//     (int vs int64, "5" vs 5, string vs uuid.UUID) and never handles a node.
//  2. CustomEquality applies per-type predicates registered with Using.
//  3. Enumerable compares slices and arrays positionally.
//  4. Map compares Go maps key by key.
//  5. ComplexType compares structs member by member.
//
// A node no step claims falls back to direct equality.
//
// # Reporting
//
// Mismatches are reported through a Reporter with a path-qualified message
// such as:
//
//	Expected Orders[2].Customer.Name to be "Ann", but found "Bob".
//
// A mismatch never stops sibling comparisons, so a single call surfaces every
// differing member. Usage errors (no members selected at the root, a nil
// expectation for a collection) abort the call and are returned as
// *UsageError.
//
// # Usage
//
//	err := equivalency.Compare(actual, expected,
//	    equivalency.Excluding("ID"),
//	    equivalency.IgnoringCase(),
//	    equivalency.Because("the API lower-cases %s", "names"),
//	)
//	if err != nil {
//	    t.Fatal(err)
//	}
//
// # Cycles
//
// Every context remembers the references (pointers, maps, slices) of its
// ancestors. Re-entering one of them on the same branch is reported as a
// cyclic reference, or skipped with IgnoringCyclicReferences. The depth of the
// walk is unbounded unless WithMaxDepth sets a limit.
package equivalency
