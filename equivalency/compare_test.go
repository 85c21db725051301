package equivalency

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	Street string
	City   string
}

type person struct {
	Name    string
	Age     int
	Address *address
	Tags    []string
}

type customer struct {
	Name string
}

type order struct {
	ID       int
	Customer customer
}

type account struct {
	Orders []order
}

type node struct {
	Name string
	Next *node
}

func newPerson() person {
	return person{
		Name:    "Ann",
		Age:     41,
		Address: &address{Street: "Main St 1", City: "Paris"},
		Tags:    []string{"admin", "ops"},
	}
}

func requireMismatches(t *testing.T, err error) Mismatches {
	t.Helper()
	require.Error(t, err)
	ms, ok := AsMismatches(err)
	require.True(t, ok, "expected Mismatches, got %T: %v", err, err)
	return ms
}

// =============================================================================
// Reflexivity and idempotence
// =============================================================================

func TestCompare_Reflexive(t *testing.T) {
	graphs := []any{
		newPerson(),
		&account{Orders: []order{{ID: 1, Customer: customer{Name: "a"}}, {ID: 2}}},
		map[string]any{"x": 1, "y": []any{1, "two", map[string]any{"z": 3.5}}},
		[]int{1, 2, 3},
		"text",
		42,
	}
	for _, g := range graphs {
		assert.NoError(t, Compare(g, g), "%#v", g)
	}
}

func TestCompare_Idempotent(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Name = "Bob"
	expectation.Address.City = "Lyon"

	first := requireMismatches(t, Compare(subject, expectation))
	second := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, first.Paths(), second.Paths())
	assert.Equal(t, first.Error(), second.Error())
}

// =============================================================================
// Scalars
// =============================================================================

func TestCompare_ScalarLeaves(t *testing.T) {
	assert.NoError(t, Compare(5, 5))
	assert.NoError(t, Compare("a", "a"))

	ms := requireMismatches(t, Compare(5, 6))
	require.Len(t, ms, 1)
	assert.Equal(t, "", ms[0].Path)
	assert.Equal(t, "Expected subject to be 6, but found 5.", ms[0].Message)
}

func TestCompare_BothNil(t *testing.T) {
	assert.NoError(t, Compare(nil, nil))

	ms := requireMismatches(t, Compare(nil, 3))
	assert.Equal(t, "Expected subject to be 3, but found <nil>.", ms[0].Message)
}

func TestCompare_StringMismatchWording(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		expectation string
		want        string
	}{
		{
			name:        "differs",
			subject:     "abc",
			expectation: "abd",
			want:        `Expected subject to be "abd", but "abc" differs near "c" (index 2).`,
		},
		{
			name:        "length",
			subject:     "ab",
			expectation: "abc",
			want:        `Expected subject to be "abc" with a length of 3, but "ab" has a length of 2.`,
		},
		{
			name:        "missing trailing whitespace",
			subject:     "abc",
			expectation: "abc  ",
			want:        `Expected subject to be "abc  ", but it misses some extra whitespace at the end.`,
		},
		{
			name:        "unexpected trailing whitespace",
			subject:     "abc\n",
			expectation: "abc",
			want:        `Expected subject to be "abc", but it has unexpected whitespace at the end.`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := requireMismatches(t, Compare(tt.subject, tt.expectation))
			require.Len(t, ms, 1)
			assert.Equal(t, tt.want, ms[0].Message)
		})
	}
}

// =============================================================================
// Collections
// =============================================================================

func TestCompare_LengthMismatchIsHardFailure(t *testing.T) {
	for _, opt := range []Option{Recursive(), WithoutRecursion()} {
		ms := requireMismatches(t, Compare([]int{1, 2, 3}, []int{1, 2}, opt))
		require.Len(t, ms, 1)
		assert.Equal(t, "Expected subject to be a collection with 2 item(s), but found 3.", ms[0].Message)
	}
}

func TestCompare_OrderMatters(t *testing.T) {
	ms := requireMismatches(t, Compare([]int{1, 2, 3}, []int{3, 2, 1}))
	assert.Equal(t, []string{"[0]", "[2]"}, ms.Paths())
	assert.Equal(t, "Expected subject[0] to be 3, but found 1.", ms[0].Message)
}

func TestCompare_CollectionAgainstScalar(t *testing.T) {
	ms := requireMismatches(t, Compare([]int{1}, 5))
	require.Len(t, ms, 1)
	assert.Equal(t, "Subject is a collection and cannot be compared with a non-collection type.", ms[0].Message)
}

func TestCompare_NestedCollectionAgainstScalar(t *testing.T) {
	subject := map[string]any{"items": []int{1}}
	expectation := map[string]any{"items": "one"}

	ms := requireMismatches(t, Compare(subject, expectation))
	require.Len(t, ms, 1)
	assert.Equal(t, "Items is a collection and cannot be compared with a non-collection type.", ms[0].Message)
	assert.Equal(t, "items", ms[0].Path)
}

func TestCompare_NilCollectionExpectationAtRoot(t *testing.T) {
	err := Compare([]int{1}, nil)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
	assert.Equal(t, ErrCodeNilExpectation, UsageErrorCodeOf(err))
}

func TestCompare_NilCollectionExpectationNested(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Tags = nil

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"Tags"}, ms.Paths())
	assert.Contains(t, ms[0].Message, "Expected Tags to be a collection with 0 item(s), but found 2.")
}

func TestCompare_NilAndEmptySlicesAreEquivalent(t *testing.T) {
	assert.NoError(t, Compare([]int(nil), []int{}))
}

func TestCompare_NestedListCount(t *testing.T) {
	subject := map[string]any{"x": 1, "y": []int{1, 2}}
	expectation := map[string]any{"x": 1, "y": []int{1, 2, 3}}

	ms := requireMismatches(t, Compare(subject, expectation))
	require.Len(t, ms, 1)
	assert.Equal(t, "y", ms[0].Path)
	assert.Equal(t, "Expected y to be a collection with 3 item(s), but found 2.", ms[0].Message)
}

func TestCompare_NonRecursiveSequenceReportsFirstIndex(t *testing.T) {
	type bag struct{ Items []int }

	ms := requireMismatches(t, Compare(bag{Items: []int{1, 2, 3}}, bag{Items: []int{1, 5, 4}}, WithoutRecursion()))
	require.Len(t, ms, 1)
	assert.Equal(t, "Items", ms[0].Path)
	assert.Contains(t, ms[0].Message, "Expected Items to be equal to ")
	assert.Contains(t, ms[0].Message, "differs at index 1.")
}

func TestCompare_ElementsOfStructs(t *testing.T) {
	subject := account{Orders: []order{{ID: 1, Customer: customer{Name: "a"}}, {ID: 2, Customer: customer{Name: "b"}}}}
	expectation := account{Orders: []order{{ID: 1, Customer: customer{Name: "a"}}, {ID: 2, Customer: customer{Name: "c"}}}}

	ms := requireMismatches(t, Compare(subject, expectation))
	require.Len(t, ms, 1)
	assert.Equal(t, "Orders[1].Customer.Name", ms[0].Path)
	assert.Equal(t, `Expected Orders[1].Customer.Name to be "c", but "b" differs near "b" (index 0).`, ms[0].Message)
}

// =============================================================================
// Complex types
// =============================================================================

func TestCompare_NestedPropertyDescent(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Address = &address{Street: "Main St 1", City: "Lyon"}

	ms := requireMismatches(t, Compare(subject, expectation))
	require.Len(t, ms, 1)
	assert.Equal(t, "Address.City", ms[0].Path)
	assert.Equal(t, `Expected Address.City to be "Lyon" with a length of 4, but "Paris" has a length of 5.`, ms[0].Message)
}

func TestCompare_ReportsEveryMismatch(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Name = "Bob"
	expectation.Age = 40
	expectation.Address = &address{Street: "Main St 2", City: "Paris"}

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"Name", "Age", "Address.Street"}, ms.Paths())
	assert.Contains(t, ms.Error(), "3 mismatches:")
}

func TestCompare_WithoutRecursionComparesNestedDirectly(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Address = &address{Street: "Main St 1", City: "Lyon"}

	ms := requireMismatches(t, Compare(subject, expectation, WithoutRecursion()))
	assert.Equal(t, []string{"Address"}, ms.Paths())
}

func TestCompare_EmptySelectionAtRootIsUsageError(t *testing.T) {
	err := Compare(customer{Name: "a"}, customer{Name: "b"}, Excluding("Name"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeNoMembers, UsageErrorCodeOf(err))

	err = Compare(struct{}{}, struct{}{})
	assert.Equal(t, ErrCodeNoMembers, UsageErrorCodeOf(err))
}

func TestCompare_MissingMemberOnExpectation(t *testing.T) {
	subject := person{Name: "Ann", Age: 41}
	expectation := customer{Name: "Ann"}

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"Age", "Address", "Tags"}, ms.Paths())
	assert.Equal(t, "Expectation has no member Age.", ms[0].Message)

	assert.NoError(t, Compare(subject, expectation, ExcludingMissingMembers()))
}

func TestCompare_ExcludingNilExpectations(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Address = nil

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"Address"}, ms.Paths())
	assert.Contains(t, ms[0].Message, "Expected Address to be <nil>, but found ")

	assert.NoError(t, Compare(subject, expectation, ExcludingNilExpectations()))
}

func TestCompare_ExcludingNilExpectations_MapEntries(t *testing.T) {
	subject := map[string]any{"a": 1, "b": "x"}
	expectation := map[string]any{"a": nil, "b": "x"}

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"a"}, ms.Paths())

	assert.NoError(t, Compare(subject, expectation, ExcludingNilExpectations()))

	// a nil expectation is skipped even when the subject lacks the key
	assert.NoError(t, Compare(map[string]any{"b": "x"}, expectation, ExcludingNilExpectations()))

	nested := map[string]any{"inner": map[string]*int{"p": nil}}
	assert.NoError(t, Compare(map[string]any{"inner": map[string]*int{}}, nested, ExcludingNilExpectations()))
}

func TestCompare_StructAgainstMap(t *testing.T) {
	subject := customer{Name: "Ann"}
	assert.NoError(t, Compare(subject, map[string]any{"Name": "Ann"}))

	ms := requireMismatches(t, Compare(subject, map[string]any{"Name": "Bob"}))
	assert.Equal(t, []string{"Name"}, ms.Paths())
}

func TestCompare_StructAgainstScalar(t *testing.T) {
	ms := requireMismatches(t, Compare(customer{Name: "Ann"}, 5))
	require.Len(t, ms, 1)
	assert.Equal(t, "", ms[0].Path)
}

// =============================================================================
// Maps
// =============================================================================

func TestCompare_MapKeys(t *testing.T) {
	subject := map[string]int{"a": 1, "b": 2, "extra": 3}
	expectation := map[string]int{"a": 1, "b": 5, "c": 4}

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"b", "", ""}, ms.Paths())
	assert.Equal(t, "Expected b to be 5, but found 2.", ms[0].Message)
	assert.Equal(t, `Expected subject to contain key "c", but it does not.`, ms[1].Message)
	assert.Equal(t, `Expected subject not to contain key "extra", but it does.`, ms[2].Message)
}

func TestCompare_MapExtraKeysExcluded(t *testing.T) {
	subject := map[string]int{"a": 1, "extra": 3}
	expectation := map[string]int{"a": 1}

	assert.NoError(t, Compare(subject, expectation, ExcludingMissingMembers()))
}

func TestCompare_NonStringMapKeys(t *testing.T) {
	subject := map[int]string{1: "one", 2: "two"}
	expectation := map[int]string{1: "one", 2: "deux"}

	ms := requireMismatches(t, Compare(subject, expectation))
	assert.Equal(t, []string{"[2]"}, ms.Paths())
}

// =============================================================================
// Conversion
// =============================================================================

func TestCompare_CoercionTolerance(t *testing.T) {
	assert.NoError(t, Compare(5, int64(5)))
	assert.NoError(t, Compare(int64(5), 5))
	assert.NoError(t, Compare("42", 42))
	assert.NoError(t, Compare(42, "42"))

	var err error
	assert.NotPanics(t, func() { err = Compare("abc", 5) })
	ms := requireMismatches(t, err)
	assert.Equal(t, `Expected subject to be 5, but found "abc".`, ms[0].Message)
}

func TestCompare_ConvertsDocumentValues(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.NoError(t, Compare(id.String(), id))
	assert.NoError(t, Compare("2024-01-02T03:04:05Z", when))
	assert.NoError(t, Compare("1m30s", 90*time.Second))
	assert.NoError(t, Compare(float64(3), 3))
}

// =============================================================================
// Selection
// =============================================================================

func TestCompare_Including(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Name = "Bob"
	expectation.Address.Street = "Elsewhere"

	assert.NoError(t, Compare(subject, expectation, Including("Address.City", "Age")))

	ms := requireMismatches(t, Compare(subject, expectation, Including("Address")))
	assert.Equal(t, []string{"Address.Street"}, ms.Paths())
}

func TestCompare_ExcludingByPattern(t *testing.T) {
	subject := account{Orders: []order{{ID: 1}, {ID: 2}}}
	expectation := account{Orders: []order{{ID: 10}, {ID: 20}}}

	assert.NoError(t, Compare(subject, expectation, Excluding("Orders.ID")))

	ms := requireMismatches(t, Compare(subject, expectation, Excluding("Orders[0].ID")))
	assert.Equal(t, []string{"Orders[1].ID"}, ms.Paths())
}

func TestCompare_ExcludingFunc(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Age = 12

	assert.NoError(t, Compare(subject, expectation, ExcludingFunc(func(m MemberInfo) bool {
		return m.Type.Kind() == reflect.Int
	})))
}

// =============================================================================
// Custom equality
// =============================================================================

func TestCompare_CaseInsensitiveList(t *testing.T) {
	subject := []string{"ONE", "TWO"}
	expectation := []string{"one", "two"}

	assert.NoError(t, Compare(subject, expectation, Using(strings.EqualFold)))
	assert.NoError(t, Compare(subject, expectation, IgnoringCase()))
	requireMismatches(t, Compare(subject, expectation))
}

func TestCompare_NormalizingUnicode(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	requireMismatches(t, Compare(composed, decomposed))
	assert.NoError(t, Compare(composed, decomposed, NormalizingUnicode()))
}

func TestCompare_UsingTolerance(t *testing.T) {
	near := Using(func(s, e float64) bool { return s-e < 0.01 && e-s < 0.01 })

	assert.NoError(t, Compare(map[string]float64{"pi": 3.1415}, map[string]float64{"pi": 3.14}, near))
	ms := requireMismatches(t, Compare(map[string]float64{"pi": 3.2}, map[string]float64{"pi": 3.14}, near))
	assert.Equal(t, []string{"pi"}, ms.Paths())
}

// =============================================================================
// Cycles and depth
// =============================================================================

func cyclicNode(name string) *node {
	n := &node{Name: name}
	n.Next = n
	return n
}

func TestCompare_CyclicGraphTerminates(t *testing.T) {
	ms := requireMismatches(t, Compare(cyclicNode("a"), cyclicNode("a")))
	require.Len(t, ms, 1)
	assert.Equal(t, "Next", ms[0].Path)
	assert.Contains(t, ms[0].Message, "but it contains a cyclic reference.")

	assert.NoError(t, Compare(cyclicNode("a"), cyclicNode("a"), IgnoringCyclicReferences()))
}

func TestCompare_SharedReferenceIsNotACycle(t *testing.T) {
	type pair struct {
		Left, Right *address
	}
	shared := &address{City: "Paris"}

	assert.NoError(t, Compare(pair{Left: shared, Right: shared}, pair{Left: shared, Right: shared}))
}

func TestCompare_MaxDepth(t *testing.T) {
	chain := &node{Name: "a", Next: &node{Name: "b", Next: &node{Name: "c"}}}

	ms := requireMismatches(t, Compare(chain, chain, WithMaxDepth(2)))
	assert.Equal(t, []string{"Next.Next.Name", "Next.Next.Next"}, ms.Paths())
	assert.Equal(t, "The maximum recursion depth of 2 was reached at Next.Next.Name.", ms[0].Message)

	assert.NoError(t, Compare(chain, chain, WithMaxDepth(3)))
}

func TestCompare_DeepChainHasNoDefaultLimit(t *testing.T) {
	type link struct {
		N    int
		Next *link
	}
	build := func() *link {
		var head *link
		for i := 100; i > 0; i-- {
			head = &link{N: i, Next: head}
		}
		return head
	}

	assert.NoError(t, Compare(build(), build()))

	other := build()
	tail := other
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.N = -1
	ms := requireMismatches(t, Compare(build(), other))
	require.Len(t, ms, 1)
	assert.Equal(t, strings.Repeat("Next.", 99)+"N", ms[0].Path)
}

// =============================================================================
// Configuration and pipeline errors
// =============================================================================

func TestCompare_InvalidConfig(t *testing.T) {
	err := Compare(1, 1, WithMaxDepth(0))
	assert.Equal(t, ErrCodeInvalidConfig, UsageErrorCodeOf(err))

	err = Compare(1, 1, ExcludingFunc(nil))
	assert.Equal(t, ErrCodeInvalidConfig, UsageErrorCodeOf(err))
}

type replacingStep struct{}

func (replacingStep) CanHandle(*Context) bool { return true }

func (replacingStep) Handle(*Context, Parent) (Outcome, error) {
	return Replace("x"), nil
}

func TestCompare_SecondReplacementIsInvalid(t *testing.T) {
	err := Compare(1, 1, WithSteps(replacingStep{}, replacingStep{}))
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidStep, UsageErrorCodeOf(err))
}

func TestCompare_Because(t *testing.T) {
	ms := requireMismatches(t, Compare(5, 6, Because("the %s says so", "contract")))
	assert.Equal(t, "Expected subject to be 6 because the contract says so, but found 5.", ms[0].Message)

	ms = requireMismatches(t, Compare([]int{1}, []int{}, Because("because it is empty")))
	assert.Equal(t, "Expected subject to be a collection with 0 item(s) because it is empty, but found 1.", ms[0].Message)
}

func TestCompareWith_ReporterSeesEveryMismatch(t *testing.T) {
	var seen []string
	reporter := ReporterFunc(func(m Mismatch) { seen = append(seen, m.Path) })

	err := CompareWith([]int{1, 2, 3}, []int{0, 2, 0}, NewConfig(), reporter)
	require.NoError(t, err)
	assert.Equal(t, []string{"[0]", "[2]"}, seen)
}
