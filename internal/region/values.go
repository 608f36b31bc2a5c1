package region

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/regionck/internal/cfg"
)

// bitSet is a fixed-capacity dense bit set. Region values are unions
// over the shared element index space, so a flat word array keeps the
// per-SCC storage compact and union cheap.
type bitSet []uint64

func newBitSet(capacity int) bitSet {
	return make(bitSet, (capacity+63)/64)
}

// add sets bit i and reports whether the set changed.
func (s bitSet) add(i int) bool {
	word, mask := i/64, uint64(1)<<(i%64)
	if s[word]&mask != 0 {
		return false
	}
	s[word] |= mask
	return true
}

func (s bitSet) contains(i int) bool {
	return s[i/64]&(uint64(1)<<(i%64)) != 0
}

// unionWith ors other into s and reports whether s changed.
func (s bitSet) unionWith(other bitSet) bool {
	changed := false
	for w := range other {
		old := s[w]
		s[w] |= other[w]
		if s[w] != old {
			changed = true
		}
	}
	return changed
}

// containsAll reports whether every bit of other in [0, limit) is set
// in s.
func (s bitSet) containsAll(other bitSet, limit int) bool {
	full, rem := limit/64, limit%64
	for w := 0; w < full; w++ {
		if other[w]&^s[w] != 0 {
			return false
		}
	}
	if rem != 0 {
		mask := uint64(1)<<rem - 1
		if other[full]&mask&^s[full] != 0 {
			return false
		}
	}
	return true
}

// LivenessValues records, per region variable, the CFG points at which
// a value with that region was observed live by the upstream liveness
// pass. Rows exist only for variables with at least one live point.
type LivenessValues struct {
	elements *Elements
	rows     map[VarID]bitSet
	order    []VarID // row creation order, for deterministic iteration
}

// NewLivenessValues creates an empty liveness table over the given
// element space.
func NewLivenessValues(elements *Elements) *LivenessValues {
	return &LivenessValues{
		elements: elements,
		rows:     make(map[VarID]bitSet),
	}
}

func (lv *LivenessValues) row(v VarID) bitSet {
	r, ok := lv.rows[v]
	if !ok {
		r = newBitSet(lv.elements.NumPoints())
		lv.rows[v] = r
		lv.order = append(lv.order, v)
	}
	return r
}

// AddPoint records that v is live at the given location.
func (lv *LivenessValues) AddPoint(v VarID, loc cfg.Location) {
	lv.row(v).add(int(lv.elements.Body().PointFrom(loc)))
}

// AddAllPoints records that v is live at every point of the body.
func (lv *LivenessValues) AddAllPoints(v VarID) {
	r := lv.row(v)
	for p := 0; p < lv.elements.NumPoints(); p++ {
		r.add(p)
	}
}

// Contains reports whether v is live at the given point.
func (lv *LivenessValues) Contains(v VarID, p cfg.PointIndex) bool {
	r, ok := lv.rows[v]
	return ok && r.contains(int(p))
}

// Rows returns the variables with at least one live point, in the
// order their rows were created.
func (lv *LivenessValues) Rows() []VarID {
	return lv.order
}

// RegionValues stores one region value per SCC of the constraint
// graph. A value is a set of elements addressed through the shared
// index space. Values only ever grow: every operation is a union and
// no operation removes an element.
type RegionValues struct {
	elements *Elements
	values   []bitSet
}

// NewRegionValues creates empty values for numSCCs equivalence classes.
func NewRegionValues(elements *Elements, numSCCs int) *RegionValues {
	rv := &RegionValues{
		elements: elements,
		values:   make([]bitSet, numSCCs),
	}
	for i := range rv.values {
		rv.values[i] = newBitSet(elements.Len())
	}
	return rv
}

// AddElement adds a single element to the value of scc and reports
// whether the value changed.
func (rv *RegionValues) AddElement(scc SCCID, el Element) bool {
	return rv.values[scc].add(rv.elements.Index(el))
}

// AddAllPoints adds every CFG point to the value of scc.
func (rv *RegionValues) AddAllPoints(scc SCCID) {
	v := rv.values[scc]
	for p := 0; p < rv.elements.NumPoints(); p++ {
		v.add(p)
	}
}

// AddRegion unions the value of from into the value of to. Union is
// idempotent and commutative, so repeated application is harmless.
func (rv *RegionValues) AddRegion(to, from SCCID) bool {
	return rv.values[to].unionWith(rv.values[from])
}

// MergeLiveness unions the liveness row of v into the value of scc.
func (rv *RegionValues) MergeLiveness(scc SCCID, v VarID, liveness *LivenessValues) {
	if row, ok := liveness.rows[v]; ok {
		rv.values[scc].unionWith(row)
	}
}

// Contains reports whether the value of scc contains the element.
func (rv *RegionValues) Contains(scc SCCID, el Element) bool {
	return rv.values[scc].contains(rv.elements.Index(el))
}

// ContainsPoints reports whether every CFG point in sub's value is
// also in sup's value. Non-point elements are ignored.
func (rv *RegionValues) ContainsPoints(sup, sub SCCID) bool {
	return rv.values[sup].containsAll(rv.values[sub], rv.elements.NumPoints())
}

// UniversalRegionsOutlivedBy returns the universal (free or
// placeholder) regions contained in the value of scc, in ascending
// variable order.
func (rv *RegionValues) UniversalRegionsOutlivedBy(scc SCCID) []VarID {
	var out []VarID
	base := rv.elements.NumPoints()
	for i := 0; i < rv.elements.NumUniversals(); i++ {
		if rv.values[scc].contains(base + i) {
			out = append(out, VarID(i))
		}
	}
	return out
}

// SubUniversesContainedIn returns the universe tags contained in the
// value of scc, in ascending order.
func (rv *RegionValues) SubUniversesContainedIn(scc SCCID) []UniverseIndex {
	var out []UniverseIndex
	base := rv.elements.NumPoints() + rv.elements.NumUniversals()
	for i := base; i < rv.elements.Len(); i++ {
		if rv.values[scc].contains(i) {
			out = append(out, UniverseIndex(i-base))
		}
	}
	return out
}

// ElementsContainedIn returns every element in the value of scc, in
// index order: points, then regions, then universes.
func (rv *RegionValues) ElementsContainedIn(scc SCCID) []Element {
	var out []Element
	for i := 0; i < rv.elements.Len(); i++ {
		if rv.values[scc].contains(i) {
			out = append(out, rv.elements.Element(i))
		}
	}
	return out
}

// ValueString renders the value of scc for debugging, collapsing runs
// of consecutive points within a block into ranges.
func (rv *RegionValues) ValueString(scc SCCID) string {
	body := rv.elements.Body()
	var parts []string

	// Points, grouped per block into contiguous ranges.
	run := -1
	prev := cfg.Location{Block: -1}
	flush := func(end cfg.Location) {
		if run < 0 {
			return
		}
		if run == end.Statement {
			parts = append(parts, fmt.Sprintf("bb%d[%d]", end.Block, run))
		} else {
			parts = append(parts, fmt.Sprintf("bb%d[%d..=%d]", end.Block, run, end.Statement))
		}
	}
	for p := 0; p < rv.elements.NumPoints(); p++ {
		if !rv.values[scc].contains(p) {
			continue
		}
		loc := body.LocationFrom(cfg.PointIndex(p))
		if run >= 0 && loc.Block == prev.Block && loc.Statement == prev.Statement+1 {
			prev = loc
			continue
		}
		flush(prev)
		run = loc.Statement
		prev = loc
	}
	flush(prev)

	for i := rv.elements.NumPoints(); i < rv.elements.Len(); i++ {
		if rv.values[scc].contains(i) {
			parts = append(parts, rv.elements.Element(i).String())
		}
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
