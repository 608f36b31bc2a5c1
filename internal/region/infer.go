package region

import (
	"fmt"

	"github.com/orizon-lang/regionck/internal/cfg"
	"github.com/orizon-lang/regionck/internal/diag"
)

// definition holds what the solver knows about one region variable.
type definition struct {
	origin       Origin
	universe     UniverseIndex
	externalName string
}

// InferContext owns the constraint graph, its SCC condensation, and
// the per-SCC region values for one analyzed body. It is created in
// the Initialized state and moves to Solved by the one and only call
// to Solve; queries on the solved values panic before that.
type InferContext struct {
	definitions []definition

	// Per-variable liveness seeded by the upstream liveness pass; kept
	// after construction for blame recovery.
	liveness *LivenessValues

	constraints *ConstraintSet
	graph       *Graph
	sccs        *SCCs

	// sccUniverses[scc] is the minimum universe over the SCC's
	// members. Whatever value the SCC takes must be visible to every
	// member, so the narrowest universe governs.
	sccUniverses []UniverseIndex

	sccValues *RegionValues

	typeTests []TypeTest

	universalRegions *UniversalRegions
	relations        *UniversalRegionRelations

	solved bool
}

// NewInferContext creates a region inference context for one body.
// varInfos defines the variable index space; the first
// universalRegions.Len() entries must be the universal regions. All
// inputs are consumed exactly once and must not be mutated afterwards.
func NewInferContext(
	varInfos []VarInfo,
	universalRegions *UniversalRegions,
	relations *UniversalRegionRelations,
	elements *Elements,
	constraints *ConstraintSet,
	typeTests []TypeTest,
	liveness *LivenessValues,
) *InferContext {
	definitions := make([]definition, len(varInfos))
	for v, info := range varInfos {
		definitions[v] = definition{origin: info.Origin, universe: info.Universe}
	}

	graph := constraints.Graph(len(varInfos))
	sccs := ComputeSCCs(graph)

	sccValues := NewRegionValues(elements, sccs.NumSCCs())
	for _, v := range liveness.Rows() {
		sccValues.MergeLiveness(sccs.SCC(v), v, liveness)
	}

	cx := &InferContext{
		definitions:      definitions,
		liveness:         liveness,
		constraints:      constraints,
		graph:            graph,
		sccs:             sccs,
		sccUniverses:     computeSCCUniverses(sccs, definitions),
		sccValues:        sccValues,
		typeTests:        typeTests,
		universalRegions: universalRegions,
		relations:        relations,
	}

	cx.initFreeAndBoundRegions()

	return cx
}

// computeSCCUniverses takes, for each SCC, the minimum universe of its
// constituent variables.
func computeSCCUniverses(sccs *SCCs, definitions []definition) []UniverseIndex {
	universes := make([]UniverseIndex, sccs.NumSCCs())
	for i := range universes {
		universes[i] = UniverseIndex(int(^uint(0) >> 1)) // max int
	}
	for v, def := range definitions {
		scc := sccs.SCC(VarID(v))
		if def.universe < universes[scc] {
			universes[scc] = def.universe
		}
	}
	return universes
}

// initFreeAndBoundRegions seeds the minimum values. A free region X
// starts with the entire CFG plus end(X); the propagation step then
// grows it with the regions it outlives. A placeholder starts with
// nothing but its own element and universe tag. Existential variables
// start from their merged liveness alone.
func (cx *InferContext) initFreeAndBoundRegions() {
	for v := range cx.definitions {
		variable := VarID(v)
		switch cx.definitions[v].origin {
		case OriginFree:
			scc := cx.sccs.SCC(variable)
			cx.liveness.AddAllPoints(variable)
			cx.sccValues.AddAllPoints(scc)
			cx.sccValues.AddElement(scc, RegionElement(variable))

		case OriginBound:
			scc := cx.sccs.SCC(variable)
			cx.sccValues.AddElement(scc, RegionElement(variable))
			cx.sccValues.AddElement(scc, UniverseElement(cx.definitions[v].universe))

		case OriginExistential:
			// Nothing beyond liveness.
		}
	}

	for v, name := range cx.universalRegions.names {
		cx.definitions[v].externalName = name
	}
}

// NumVars returns the number of region variables.
func (cx *InferContext) NumVars() int {
	return len(cx.definitions)
}

// Solve performs region inference: it propagates the constraints to a
// fixpoint and then validates every type test and universal-region
// bound, appending a diagnostic for each violation. If isClosure is
// set, obligations that cannot be proven locally but can be expressed
// in the creator's vocabulary are promoted into the returned
// requirements instead of being reported; the result is nil when
// nothing was promoted. Solve must be called exactly once.
func (cx *InferContext) Solve(isClosure bool, buf *diag.Buffer) *ClosureRegionRequirements {
	if cx.solved {
		panic("region: Solve called twice")
	}

	cx.propagateConstraints()
	cx.solved = true

	var promoted *[]ClosureOutlivesRequirement
	if isClosure {
		promoted = &[]ClosureOutlivesRequirement{}
	}

	cx.checkTypeTests(promoted, buf)
	cx.checkUniversalRegions(promoted, buf)

	if promoted == nil || len(*promoted) == 0 {
		return nil
	}
	return &ClosureRegionRequirements{
		NumExternalVids:      cx.universalRegions.NumGlobalAndExternal(),
		OutlivesRequirements: *promoted,
	}
}

// propagateConstraints grows the value of every SCC until all the
// outlives constraints hold. Values may grow too large to be feasible;
// the post-solve checks catch that.
func (cx *InferContext) propagateConstraints() {
	visited := make([]bool, cx.sccs.NumSCCs())
	for scc := SCCID(0); scc < SCCID(cx.sccs.NumSCCs()); scc++ {
		cx.propagateSCCIfNew(scc, visited)
	}
}

func (cx *InferContext) propagateSCCIfNew(scc SCCID, visited []bool) {
	if visited[scc] {
		return
	}
	visited[scc] = true
	cx.propagateSCC(scc, visited)
}

// propagateSCC finalizes the value of sccA. Every successor is
// finalized first, then unioned in, so a node is visited exactly once
// and the traversal terminates on the finite acyclic condensation.
func (cx *InferContext) propagateSCC(sccA SCCID, visited []bool) {
	for _, sccB := range cx.sccs.Successors(sccA) {
		cx.propagateSCCIfNew(sccB, visited)

		if cx.universeCompatible(sccB, sccA) {
			cx.sccValues.AddRegion(sccA, sccB)
		} else {
			// A cannot name everything in B. The only sound way for
			// A to outlive B is to outlive 'static; approximate with
			// the static SCC's value, which carries the full CFG and
			// the static element from seeding even if not yet
			// finalized.
			sccStatic := cx.sccs.SCC(cx.universalRegions.FrStatic)
			cx.sccValues.AddRegion(sccA, sccStatic)
		}
	}
}

// universeCompatible reports whether every element the value of sccB
// may contain is nameable from sccA's universe.
func (cx *InferContext) universeCompatible(sccB, sccA SCCID) bool {
	universeA := cx.sccUniverses[sccA]

	// Quick check: if B's declared universe is visible from A's,
	// B's value cannot hold anything A cannot name.
	if universeA.CanName(cx.sccUniverses[sccB]) {
		return true
	}

	for _, u := range cx.sccValues.SubUniversesContainedIn(sccB) {
		if !universeA.CanName(u) {
			return false
		}
	}
	return true
}

// RegionContains reports whether the solved value of r contains the
// element.
func (cx *InferContext) RegionContains(r VarID, el Element) bool {
	cx.requireSolved("RegionContains")
	return cx.sccValues.Contains(cx.sccs.SCC(r), el)
}

// RegionUniverse returns the universe of the SCC containing r.
func (cx *InferContext) RegionUniverse(r VarID) UniverseIndex {
	cx.requireSolved("RegionUniverse")
	return cx.sccUniverses[cx.sccs.SCC(r)]
}

// ToRegionVid looks a universal region up by its external name.
func (cx *InferContext) ToRegionVid(name string) (VarID, bool) {
	return cx.universalRegions.ToRegionVid(name)
}

// RegionValueString renders the solved value of r for debugging.
func (cx *InferContext) RegionValueString(r VarID) string {
	cx.requireSolved("RegionValueString")
	return cx.sccValues.ValueString(cx.sccs.SCC(r))
}

// EvalOutlives reports whether the solved values prove that sup
// outlives sub: every universal region in sub's value must be outlived
// by some universal region in sup's value, and unless sup is itself
// universal (and thus contains all points), sup's value must cover all
// of sub's points.
func (cx *InferContext) EvalOutlives(sup, sub VarID) bool {
	cx.requireSolved("EvalOutlives")

	subSCC := cx.sccs.SCC(sub)
	supSCC := cx.sccs.SCC(sup)

	supRegions := cx.sccValues.UniversalRegionsOutlivedBy(supSCC)
	for _, r1 := range cx.sccValues.UniversalRegionsOutlivedBy(subSCC) {
		outlived := false
		for _, r2 := range supRegions {
			if cx.relations.Outlives(r2, r1) {
				outlived = true
				break
			}
		}
		if !outlived {
			return false
		}
	}

	if cx.universalRegions.IsUniversal(sup) {
		// Universal regions contain the entire CFG.
		return true
	}

	return cx.sccValues.ContainsPoints(supSCC, subSCC)
}

func (cx *InferContext) requireSolved(op string) {
	if !cx.solved {
		panic(fmt.Sprintf("region: %s called before Solve", op))
	}
}

// liveVarAt returns the first constraint-reachable variable from start
// whose liveness covers the point, used to recover a blame label for a
// leaked CFG point.
func (cx *InferContext) liveVarAt(start VarID, p cfg.PointIndex) (VarID, bool) {
	for _, v := range cx.reachableFrom(start) {
		if cx.liveness.Contains(v, p) {
			return v, true
		}
	}
	return 0, false
}

// reachableFrom returns start plus every variable reachable through
// outgoing constraint edges, in BFS order.
func (cx *InferContext) reachableFrom(start VarID) []VarID {
	seen := make([]bool, len(cx.definitions))
	queue := []VarID{start}
	seen[start] = true
	var order []VarID
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, w := range cx.graph.Successors(v) {
			if !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	return order
}
