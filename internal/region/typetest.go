package region

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/regionck/internal/position"
)

// TypeSubject is the type side of a type test or promoted requirement:
// a display name plus the region variables occurring inside the type.
// The engine never inspects type structure beyond its regions; how
// types are represented is the type checker's concern.
type TypeSubject struct {
	Name    string
	Regions []VarID
}

func (t TypeSubject) String() string {
	return t.Name
}

// TypeTest is an obligation that a type outlives a region, such as
// "T: 'x". Type tests do not influence inference; they are evaluated
// once against the solved region values.
type TypeTest struct {
	// Subject is the type T that must outlive the region.
	Subject TypeSubject

	// LowerBound is the region 'x the subject must outlive.
	LowerBound VarID

	// Span is where the obligation arose, for blame.
	Span position.Span

	// Test proves the obligation when it evaluates to true against
	// the solved values.
	Test RegionTest
}

// RegionTestKind discriminates the predicate tree nodes.
type RegionTestKind int

const (
	// TestOutlivedByAny holds if some region in the set outlives the
	// subject. Arises from bounds like "T: 'a + 'b": proving 'a: 'x
	// or 'b: 'x proves T: 'x.
	TestOutlivedByAny RegionTestKind = iota

	// TestOutlivedByAll holds if every region in the set outlives the
	// subject. Arises from projections that must outlive each of
	// their input regions.
	TestOutlivedByAll

	// TestAny holds if at least one child test holds.
	TestAny

	// TestAll holds if every child test holds.
	TestAll
)

// RegionTest is a small logical tree over region comparisons, applied
// to a type test's lower bound. It is a closed tagged union evaluated
// by structural recursion: leaf kinds use Regions, interior kinds use
// Tests.
type RegionTest struct {
	Kind    RegionTestKind
	Regions []VarID
	Tests   []RegionTest
}

// OutlivedByAny builds a leaf requiring some region in the set to
// outlive the subject.
func OutlivedByAny(regions ...VarID) RegionTest {
	return RegionTest{Kind: TestOutlivedByAny, Regions: regions}
}

// OutlivedByAll builds a leaf requiring every region in the set to
// outlive the subject.
func OutlivedByAll(regions ...VarID) RegionTest {
	return RegionTest{Kind: TestOutlivedByAll, Regions: regions}
}

// AnyTest builds a disjunction of child tests.
func AnyTest(tests ...RegionTest) RegionTest {
	return RegionTest{Kind: TestAny, Tests: tests}
}

// AllTest builds a conjunction of child tests.
func AllTest(tests ...RegionTest) RegionTest {
	return RegionTest{Kind: TestAll, Tests: tests}
}

func (t RegionTest) String() string {
	switch t.Kind {
	case TestOutlivedByAny, TestOutlivedByAll:
		parts := make([]string, len(t.Regions))
		for i, r := range t.Regions {
			parts[i] = r.String()
		}
		if t.Kind == TestOutlivedByAny {
			return "outlived-by-any(" + strings.Join(parts, ", ") + ")"
		}
		return "outlived-by-all(" + strings.Join(parts, ", ") + ")"
	case TestAny, TestAll:
		parts := make([]string, len(t.Tests))
		for i, c := range t.Tests {
			parts[i] = c.String()
		}
		if t.Kind == TestAny {
			return "any(" + strings.Join(parts, ", ") + ")"
		}
		return "all(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("invalid-test(%d)", int(t.Kind))
	}
}

// EvalRegionTest evaluates test against the solved value of the lower
// bound region.
func (cx *InferContext) EvalRegionTest(lowerBound VarID, test RegionTest) bool {
	switch test.Kind {
	case TestOutlivedByAll:
		for _, r := range test.Regions {
			if !cx.EvalOutlives(r, lowerBound) {
				return false
			}
		}
		return true

	case TestOutlivedByAny:
		for _, r := range test.Regions {
			if cx.EvalOutlives(r, lowerBound) {
				return true
			}
		}
		return false

	case TestAny:
		for _, child := range test.Tests {
			if cx.EvalRegionTest(lowerBound, child) {
				return true
			}
		}
		return false

	case TestAll:
		for _, child := range test.Tests {
			if !cx.EvalRegionTest(lowerBound, child) {
				return false
			}
		}
		return true

	default:
		panic(fmt.Sprintf("region: invalid region test kind %d", int(test.Kind)))
	}
}
