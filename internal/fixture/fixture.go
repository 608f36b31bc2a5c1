// Package fixture loads region inference inputs from YAML documents.
// Fixtures describe one body's variables, constraints, liveness facts,
// relations, and type tests; the region-solve tool and the scenario
// test suite drive the solver through them.
package fixture

import (
	"fmt"
	"os"

	semver "github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"

	"github.com/orizon-lang/regionck/internal/cfg"
	"github.com/orizon-lang/regionck/internal/position"
	"github.com/orizon-lang/regionck/internal/region"
)

// SupportedFormats is the semver constraint on a fixture's format
// field. Bump the major version when the schema changes incompatibly.
const SupportedFormats = "^1.0"

// Fixture is the YAML document shape.
type Fixture struct {
	Format    string     `yaml:"format"`
	Body      Body       `yaml:"body"`
	Variables []Variable `yaml:"variables"`
	Universal Universal  `yaml:"universal"`
	Closure   bool       `yaml:"closure"`
	Relations []Relation `yaml:"relations"`

	Constraints []Constraint `yaml:"constraints"`
	Liveness    []Liveness   `yaml:"liveness"`
	TypeTests   []TypeTest   `yaml:"type_tests"`
}

// Body gives the statement slot count of each basic block.
type Body struct {
	Blocks []int `yaml:"blocks"`
}

// Variable declares one region variable, in index order. Universal
// (free and bound) variables must form a prefix of the list.
type Variable struct {
	Origin   string `yaml:"origin"` // free | bound | existential
	Universe int    `yaml:"universe"`
	Name     string `yaml:"name"`
}

// Universal designates the special universal regions.
type Universal struct {
	Static int  `yaml:"static"`
	FnBody int  `yaml:"fn_body"`
	Locals *int `yaml:"first_local"` // optional; default: no local regions
}

// Relation is one declared outlives fact between universal regions.
type Relation struct {
	Sup int `yaml:"sup"`
	Sub int `yaml:"sub"`
}

// Constraint is one outlives constraint with its blame location.
type Constraint struct {
	Sup int  `yaml:"sup"`
	Sub int  `yaml:"sub"`
	At  Spot `yaml:"at"`
}

// Spot is a simplified source location.
type Spot struct {
	File string `yaml:"file"`
	Line int    `yaml:"line"`
}

// Span converts the spot to a position span covering the whole line.
func (s Spot) Span() position.Span {
	if s.Line == 0 {
		return position.Span{}
	}
	return position.NewSpan(s.File, s.Line, 1, 80)
}

// Liveness lists the live points of one variable.
type Liveness struct {
	Var    int     `yaml:"var"`
	Points []Range `yaml:"points"`
}

// Range names statement slots within one block.
type Range struct {
	Block      int   `yaml:"block"`
	Statements []int `yaml:"statements"`
}

// TypeTest is one type-outlives obligation.
type TypeTest struct {
	Subject    Subject `yaml:"subject"`
	LowerBound int     `yaml:"lower_bound"`
	At         Spot    `yaml:"at"`
	Test       Test    `yaml:"test"`
}

// Subject is the type side of a test.
type Subject struct {
	Name    string `yaml:"name"`
	Regions []int  `yaml:"regions"`
}

// Test is a recursive region test node. Exactly one field may be set.
type Test struct {
	Any           []Test `yaml:"any"`
	All           []Test `yaml:"all"`
	OutlivedByAny []int  `yaml:"outlived_by_any"`
	OutlivedByAll []int  `yaml:"outlived_by_all"`
}

// Load reads and decodes a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	return Decode(data)
}

// Decode parses fixture YAML and validates its format version.
func Decode(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}

	if f.Format == "" {
		return nil, fmt.Errorf("fixture: missing format field")
	}
	ver, err := semver.NewVersion(f.Format)
	if err != nil {
		return nil, fmt.Errorf("fixture: bad format version %q: %w", f.Format, err)
	}
	con, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	if !con.Check(ver) {
		return nil, fmt.Errorf("fixture: format %s outside supported range %s", f.Format, SupportedFormats)
	}

	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	if len(f.Body.Blocks) == 0 {
		return fmt.Errorf("fixture: body needs at least one block")
	}
	for b, n := range f.Body.Blocks {
		if n < 1 {
			return fmt.Errorf("fixture: block %d needs at least one statement slot", b)
		}
	}

	numUniversal := 0
	sawExistential := false
	for i, v := range f.Variables {
		switch v.Origin {
		case "free", "bound":
			if sawExistential {
				return fmt.Errorf("fixture: variable %d: universal regions must precede existential ones", i)
			}
			numUniversal++
		case "existential":
			sawExistential = true
		default:
			return fmt.Errorf("fixture: variable %d: unknown origin %q", i, v.Origin)
		}
		if v.Universe < 0 {
			return fmt.Errorf("fixture: variable %d: negative universe", i)
		}
	}
	if numUniversal == 0 {
		return fmt.Errorf("fixture: need at least one universal region")
	}
	if f.Universal.Static >= numUniversal || f.Universal.FnBody >= numUniversal {
		return fmt.Errorf("fixture: static and fn_body must index universal regions")
	}
	if f.Universal.Locals != nil && (*f.Universal.Locals < 0 || *f.Universal.Locals > numUniversal) {
		return fmt.Errorf("fixture: first_local out of range")
	}

	checkVar := func(what string, v int) error {
		if v < 0 || v >= len(f.Variables) {
			return fmt.Errorf("fixture: %s references unknown variable %d", what, v)
		}
		return nil
	}
	for _, r := range f.Relations {
		if r.Sup < 0 || r.Sup >= numUniversal || r.Sub < 0 || r.Sub >= numUniversal {
			return fmt.Errorf("fixture: relation %d: %d must name universal regions", r.Sup, r.Sub)
		}
	}
	for _, c := range f.Constraints {
		if err := checkVar("constraint", c.Sup); err != nil {
			return err
		}
		if err := checkVar("constraint", c.Sub); err != nil {
			return err
		}
	}
	for _, l := range f.Liveness {
		if err := checkVar("liveness", l.Var); err != nil {
			return err
		}
		for _, r := range l.Points {
			if r.Block < 0 || r.Block >= len(f.Body.Blocks) {
				return fmt.Errorf("fixture: liveness for variable %d names unknown block %d", l.Var, r.Block)
			}
			for _, stmt := range r.Statements {
				if stmt < 0 || stmt >= f.Body.Blocks[r.Block] {
					return fmt.Errorf("fixture: liveness for variable %d: statement %d out of range for block %d", l.Var, stmt, r.Block)
				}
			}
		}
	}
	for _, t := range f.TypeTests {
		if err := checkVar("type test", t.LowerBound); err != nil {
			return err
		}
		for _, r := range t.Subject.Regions {
			if err := checkVar("type test subject", r); err != nil {
				return err
			}
		}
	}
	return nil
}

// NumUniversal returns the count of free and bound variables.
func (f *Fixture) NumUniversal() int {
	n := 0
	for _, v := range f.Variables {
		if v.Origin == "free" || v.Origin == "bound" {
			n++
		}
	}
	return n
}

// Build assembles a ready-to-solve inference context from the fixture.
func (f *Fixture) Build() (*region.InferContext, error) {
	body := cfg.NewBody(f.Body.Blocks)

	numUniversal := f.NumUniversal()
	firstLocal := numUniversal
	if f.Universal.Locals != nil {
		firstLocal = *f.Universal.Locals
	}

	universals := region.NewUniversalRegions(
		numUniversal,
		region.VarID(f.Universal.Static),
		region.VarID(f.Universal.FnBody),
		region.VarID(firstLocal),
	)

	maxUniverse := region.RootUniverse
	varInfos := make([]region.VarInfo, len(f.Variables))
	for i, v := range f.Variables {
		var origin region.Origin
		switch v.Origin {
		case "free":
			origin = region.OriginFree
		case "bound":
			origin = region.OriginBound
		case "existential":
			origin = region.OriginExistential
		}
		universe := region.UniverseIndex(v.Universe)
		varInfos[i] = region.VarInfo{Universe: universe, Origin: origin}
		if universe > maxUniverse {
			maxUniverse = universe
		}
		if v.Name != "" {
			universals.SetName(region.VarID(i), v.Name)
		}
	}

	var facts []region.OutlivesFact
	for _, r := range f.Relations {
		facts = append(facts, region.OutlivesFact{
			Sup: region.VarID(r.Sup),
			Sub: region.VarID(r.Sub),
		})
	}
	relations := region.NewUniversalRegionRelations(universals, facts)

	elements := region.NewElements(body, numUniversal, maxUniverse)

	constraints := region.NewConstraintSet()
	for _, c := range f.Constraints {
		constraints.Push(region.OutlivesConstraint{
			Sup:  region.VarID(c.Sup),
			Sub:  region.VarID(c.Sub),
			Span: c.At.Span(),
		})
	}

	liveness := region.NewLivenessValues(elements)
	for _, l := range f.Liveness {
		for _, r := range l.Points {
			for _, stmt := range r.Statements {
				liveness.AddPoint(region.VarID(l.Var), cfg.Location{
					Block:     cfg.BlockID(r.Block),
					Statement: stmt,
				})
			}
		}
	}

	typeTests := make([]region.TypeTest, 0, len(f.TypeTests))
	for _, t := range f.TypeTests {
		test, err := t.Test.build()
		if err != nil {
			return nil, err
		}
		regions := make([]region.VarID, len(t.Subject.Regions))
		for i, r := range t.Subject.Regions {
			regions[i] = region.VarID(r)
		}
		typeTests = append(typeTests, region.TypeTest{
			Subject:    region.TypeSubject{Name: t.Subject.Name, Regions: regions},
			LowerBound: region.VarID(t.LowerBound),
			Span:       t.At.Span(),
			Test:       test,
		})
	}

	return region.NewInferContext(
		varInfos, universals, relations, elements, constraints, typeTests, liveness,
	), nil
}

func (t Test) build() (region.RegionTest, error) {
	set := 0
	if len(t.Any) > 0 {
		set++
	}
	if len(t.All) > 0 {
		set++
	}
	if len(t.OutlivedByAny) > 0 {
		set++
	}
	if len(t.OutlivedByAll) > 0 {
		set++
	}
	if set != 1 {
		return region.RegionTest{}, fmt.Errorf("fixture: region test node must set exactly one field")
	}

	toVars := func(in []int) []region.VarID {
		out := make([]region.VarID, len(in))
		for i, v := range in {
			out[i] = region.VarID(v)
		}
		return out
	}

	switch {
	case len(t.OutlivedByAny) > 0:
		return region.OutlivedByAny(toVars(t.OutlivedByAny)...), nil
	case len(t.OutlivedByAll) > 0:
		return region.OutlivedByAll(toVars(t.OutlivedByAll)...), nil
	case len(t.Any) > 0:
		children := make([]region.RegionTest, len(t.Any))
		for i, c := range t.Any {
			child, err := c.build()
			if err != nil {
				return region.RegionTest{}, err
			}
			children[i] = child
		}
		return region.AnyTest(children...), nil
	default:
		children := make([]region.RegionTest, len(t.All))
		for i, c := range t.All {
			child, err := c.build()
			if err != nil {
				return region.RegionTest{}, err
			}
			children[i] = child
		}
		return region.AllTest(children...), nil
	}
}
