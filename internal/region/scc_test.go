package region

import "testing"

func buildGraph(numVars int, edges [][2]VarID) *Graph {
	set := NewConstraintSet()
	for _, e := range edges {
		set.Push(OutlivesConstraint{Sup: e[0], Sub: e[1]})
	}
	return set.Graph(numVars)
}

func TestComputeSCCs_MutualConstraintsMerge(t *testing.T) {
	// 0: 1 and 1: 0 equate the two variables; 2 stays on its own.
	sccs := ComputeSCCs(buildGraph(3, [][2]VarID{{0, 1}, {1, 0}, {1, 2}}))

	if sccs.SCC(0) != sccs.SCC(1) {
		t.Error("mutually constrained variables must share an SCC")
	}
	if sccs.SCC(2) == sccs.SCC(0) {
		t.Error("variable 2 is not part of the cycle")
	}
	if sccs.NumSCCs() != 2 {
		t.Errorf("expected 2 SCCs, got %d", sccs.NumSCCs())
	}
}

func TestComputeSCCs_SuccessorsAreCondensed(t *testing.T) {
	// Two parallel edges into the same target must condense to one
	// successor, and self-cycles must not produce self-successors.
	sccs := ComputeSCCs(buildGraph(4, [][2]VarID{
		{0, 1}, {1, 0}, // cycle {0,1}
		{0, 2}, {1, 2}, // both members point at 2
		{2, 3},
	}))

	cycle := sccs.SCC(0)
	succ := sccs.Successors(cycle)
	if len(succ) != 1 || succ[0] != sccs.SCC(2) {
		t.Errorf("cycle successors = %v, want just the SCC of 2", succ)
	}
	for _, s := range succ {
		if s == cycle {
			t.Error("condensation must not contain self-edges")
		}
	}
}

func TestComputeSCCs_SuccessorsHaveSmallerIDs(t *testing.T) {
	// Ids come out in reverse topological order: a plain ascending
	// scan sees every successor before the node itself.
	sccs := ComputeSCCs(buildGraph(6, [][2]VarID{
		{0, 1}, {1, 2}, {2, 3}, {3, 1}, // cycle {1,2,3} below 0
		{0, 4}, {4, 5},
	}))

	for id := SCCID(0); id < SCCID(sccs.NumSCCs()); id++ {
		for _, succ := range sccs.Successors(id) {
			if succ >= id {
				t.Errorf("successor %d of %d does not precede it", succ, id)
			}
		}
	}
}

func TestComputeSCCs_DisconnectedVariables(t *testing.T) {
	sccs := ComputeSCCs(buildGraph(3, nil))
	if sccs.NumSCCs() != 3 {
		t.Errorf("three isolated variables should give 3 SCCs, got %d", sccs.NumSCCs())
	}
}

func TestComputeSCCs_LongChainIterative(t *testing.T) {
	// A chain deep enough to break a naive recursive implementation.
	const n = 200000
	edges := make([][2]VarID, 0, n-1)
	for i := 0; i < n-1; i++ {
		edges = append(edges, [2]VarID{VarID(i), VarID(i + 1)})
	}
	sccs := ComputeSCCs(buildGraph(n, edges))

	if sccs.NumSCCs() != n {
		t.Fatalf("chain should produce %d singleton SCCs, got %d", n, sccs.NumSCCs())
	}
	if sccs.SCC(0) != SCCID(n-1) || sccs.SCC(n-1) != 0 {
		t.Error("ids should be assigned sinks-first along the chain")
	}
}
