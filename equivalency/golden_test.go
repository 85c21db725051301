package equivalency

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// To regenerate: go test ./equivalency -run TestGolden -update
func TestGolden_PersonReport(t *testing.T) {
	subject := newPerson()
	expectation := newPerson()
	expectation.Name = "Bob"
	expectation.Age = 40
	expectation.Address.Street = "Main St 2"
	expectation.Tags = []string{"admin"}

	ms := requireMismatches(t, Compare(subject, expectation))
	newGoldie(t).Assert(t, "person_report", []byte(ms.Error()))
}

func TestGolden_ReasonReport(t *testing.T) {
	subject := map[string]any{"x": 1, "y": []int{1, 2}, "z": "abc"}
	expectation := map[string]any{"x": 2, "y": []int{1, 2, 3}, "w": true}

	err := Compare(subject, expectation, Because("the %s fixture changed", "orders"))
	ms := requireMismatches(t, err)
	require.Len(t, ms, 4)
	newGoldie(t).Assert(t, "reason_report", []byte(ms.Error()))
}
