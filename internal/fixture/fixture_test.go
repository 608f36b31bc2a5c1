package fixture

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/orizon-lang/regionck/internal/diag"
	"github.com/orizon-lang/regionck/internal/region"
)

const chainFixture = `
format: "1.0"
body:
  blocks: [2, 1]
variables:
  - {origin: free, name: "'static"}
  - {origin: free, name: "'a"}
  - {origin: existential}
universal:
  static: 0
  fn_body: 1
relations:
  - {sup: 0, sub: 1}
constraints:
  - {sup: 2, sub: 1, at: {file: main.oriz, line: 3}}
liveness:
  - var: 2
    points:
      - {block: 0, statements: [0, 1]}
`

func TestDecode_WellFormedFixture(t *testing.T) {
	f, err := Decode([]byte(chainFixture))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := &Fixture{
		Format: "1.0",
		Body:   Body{Blocks: []int{2, 1}},
		Variables: []Variable{
			{Origin: "free", Name: "'static"},
			{Origin: "free", Name: "'a"},
			{Origin: "existential"},
		},
		Universal: Universal{Static: 0, FnBody: 1},
		Relations: []Relation{{Sup: 0, Sub: 1}},
		Constraints: []Constraint{
			{Sup: 2, Sub: 1, At: Spot{File: "main.oriz", Line: 3}},
		},
		Liveness: []Liveness{
			{Var: 2, Points: []Range{{Block: 0, Statements: []int{0, 1}}}},
		},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("decoded fixture mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_FormatGate(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing format",
			doc:     "body:\n  blocks: [1]\n",
			wantErr: "missing format",
		},
		{
			name:    "unparseable format",
			doc:     "format: \"one\"\nbody:\n  blocks: [1]\n",
			wantErr: "bad format version",
		},
		{
			name:    "unsupported major",
			doc:     "format: \"2.0\"\nbody:\n  blocks: [1]\n",
			wantErr: "outside supported range",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Decode error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}

	// A later minor version of the same major is accepted.
	doc := strings.Replace(chainFixture, `format: "1.0"`, `format: "1.3"`, 1)
	if _, err := Decode([]byte(doc)); err != nil {
		t.Errorf("format 1.3 should be accepted: %v", err)
	}
}

func TestDecode_ValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "empty body",
			doc:     "format: \"1.0\"\nbody:\n  blocks: []\nvariables:\n  - {origin: free}\n",
			wantErr: "at least one block",
		},
		{
			name:    "no universal regions",
			doc:     "format: \"1.0\"\nbody:\n  blocks: [1]\nvariables:\n  - {origin: existential}\n",
			wantErr: "at least one universal region",
		},
		{
			name: "universal after existential",
			doc: "format: \"1.0\"\nbody:\n  blocks: [1]\nvariables:\n" +
				"  - {origin: free}\n  - {origin: existential}\n  - {origin: bound, universe: 1}\n",
			wantErr: "must precede",
		},
		{
			name:    "unknown origin",
			doc:     "format: \"1.0\"\nbody:\n  blocks: [1]\nvariables:\n  - {origin: static}\n",
			wantErr: "unknown origin",
		},
		{
			name: "dangling constraint",
			doc: "format: \"1.0\"\nbody:\n  blocks: [1]\nvariables:\n  - {origin: free}\n" +
				"constraints:\n  - {sup: 0, sub: 5}\n",
			wantErr: "unknown variable 5",
		},
		{
			name: "fn_body outside universal prefix",
			doc: "format: \"1.0\"\nbody:\n  blocks: [1]\nvariables:\n  - {origin: free}\n" +
				"universal:\n  static: 0\n  fn_body: 3\n",
			wantErr: "static and fn_body",
		},
		{
			name:    "block without a terminator slot",
			doc:     "format: \"1.0\"\nbody:\n  blocks: [1, 0]\nvariables:\n  - {origin: free}\n",
			wantErr: "at least one statement slot",
		},
		{
			name: "relation outside universal prefix",
			doc: "format: \"1.0\"\nbody:\n  blocks: [1]\nvariables:\n" +
				"  - {origin: free}\n  - {origin: existential}\n" +
				"relations:\n  - {sup: 0, sub: 1}\n",
			wantErr: "must name universal regions",
		},
		{
			name: "liveness in unknown block",
			doc: "format: \"1.0\"\nbody:\n  blocks: [2]\nvariables:\n  - {origin: free}\n" +
				"liveness:\n  - var: 0\n    points:\n      - {block: 3, statements: [0]}\n",
			wantErr: "unknown block 3",
		},
		{
			name: "liveness past the end of a block",
			doc: "format: \"1.0\"\nbody:\n  blocks: [2]\nvariables:\n  - {origin: free}\n" +
				"liveness:\n  - var: 0\n    points:\n      - {block: 0, statements: [5]}\n",
			wantErr: "statement 5 out of range",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Decode error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestBuild_SolvesChainFixture(t *testing.T) {
	f, err := Decode([]byte(chainFixture))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cx, err := f.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	buf := diag.NewBuffer()
	if crr := cx.Solve(f.Closure, buf); crr != nil {
		t.Errorf("plain function body should not promote requirements: %v", crr)
	}
	if buf.HasErrors() {
		t.Fatalf("chain fixture should solve cleanly: %v", buf.All())
	}

	// '?2 outlives the body region, so after propagation it covers
	// every point '?1 covers.
	if !cx.EvalOutlives(2, 1) {
		t.Error("'?2 should outlive '?1 after propagation")
	}

	// Names survive into the solver.
	if v, ok := cx.ToRegionVid("'a"); !ok || v != 1 {
		t.Errorf("ToRegionVid('a) = %v, %v", v, ok)
	}
}

func TestBuild_TypeTestFailureSurfacesDiagnostic(t *testing.T) {
	doc := `
format: "1.0"
body:
  blocks: [1]
variables:
  - {origin: free, name: "'static"}
  - {origin: free, name: "'a"}
  - {origin: free, name: "'b"}
universal:
  static: 0
  fn_body: 1
type_tests:
  - subject: {name: "T"}
    lower_bound: 2
    at: {file: main.oriz, line: 9}
    test:
      outlived_by_any: [1]
`
	f, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cx, err := f.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	buf := diag.NewBuffer()
	cx.Solve(false, buf)
	if !buf.HasErrors() {
		t.Fatal("'a does not outlive 'b; the type test should fail")
	}
	d := buf.All()[0]
	if d.Category != diag.CategoryTypeTest {
		t.Errorf("category = %s, want type-test", d.Category)
	}
	if !strings.Contains(d.Message, "`T`") {
		t.Errorf("message should name the subject type: %q", d.Message)
	}
}

func TestTest_BuildRejectsAmbiguousNodes(t *testing.T) {
	amb := Test{Any: []Test{{OutlivedByAny: []int{0}}}, OutlivedByAll: []int{1}}
	if _, err := amb.build(); err == nil {
		t.Error("a node with two fields set must be rejected")
	}

	empty := Test{}
	if _, err := empty.build(); err == nil {
		t.Error("a node with no fields set must be rejected")
	}

	nested := Test{All: []Test{
		{OutlivedByAny: []int{0, 1}},
		{Any: []Test{{OutlivedByAll: []int{2}}}},
	}}
	rt, err := nested.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := region.AllTest(
		region.OutlivedByAny(0, 1),
		region.AnyTest(region.OutlivedByAll(2)),
	)
	if rt.String() != want.String() {
		t.Errorf("built test = %s, want %s", rt, want)
	}
}
