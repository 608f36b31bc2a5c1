package region

import (
	"fmt"

	"github.com/orizon-lang/regionck/internal/position"
)

// OutlivesConstraint asserts that Sup must contain everything Sub
// contains ("Sup: Sub"). The span records the source location that
// produced the constraint and is used for blame when an obligation
// derived from it cannot be satisfied.
type OutlivesConstraint struct {
	Sup  VarID
	Sub  VarID
	Span position.Span
}

func (c OutlivesConstraint) String() string {
	return fmt.Sprintf("%s: %s", c.Sup, c.Sub)
}

// ConstraintIndex identifies a constraint within one ConstraintSet.
type ConstraintIndex int

// ConstraintSet is the full set of outlives constraints for one body.
// It is frozen once handed to the solver.
type ConstraintSet struct {
	constraints []OutlivesConstraint
}

// NewConstraintSet creates an empty constraint set.
func NewConstraintSet() *ConstraintSet {
	return &ConstraintSet{}
}

// Push appends a constraint and returns its index.
func (s *ConstraintSet) Push(c OutlivesConstraint) ConstraintIndex {
	s.constraints = append(s.constraints, c)
	return ConstraintIndex(len(s.constraints) - 1)
}

// Len returns the number of constraints in the set.
func (s *ConstraintSet) Len() int {
	return len(s.constraints)
}

// At returns the constraint with the given index.
func (s *ConstraintSet) At(i ConstraintIndex) OutlivesConstraint {
	return s.constraints[i]
}

// All returns the constraints in insertion order.
func (s *ConstraintSet) All() []OutlivesConstraint {
	return s.constraints
}

// Graph views the constraint set as a directed graph with an edge
// Sup -> Sub per constraint, built once and then only read. Successor
// iteration drives both SCC construction and blame path search.
type Graph struct {
	set *ConstraintSet

	// firstEdge[v] heads a linked list of the constraint indices whose
	// Sup is v; nextEdge[c] continues the list.
	firstEdge []ConstraintIndex
	nextEdge  []ConstraintIndex
}

const noEdge = ConstraintIndex(-1)

// Graph builds the adjacency structure over numVars variables.
func (s *ConstraintSet) Graph(numVars int) *Graph {
	g := &Graph{
		set:       s,
		firstEdge: make([]ConstraintIndex, numVars),
		nextEdge:  make([]ConstraintIndex, len(s.constraints)),
	}
	for v := range g.firstEdge {
		g.firstEdge[v] = noEdge
	}
	// Insert in reverse so each list comes out in insertion order.
	for i := len(s.constraints) - 1; i >= 0; i-- {
		c := s.constraints[i]
		g.nextEdge[i] = g.firstEdge[c.Sup]
		g.firstEdge[c.Sup] = ConstraintIndex(i)
	}
	return g
}

// NumVars returns the number of graph nodes.
func (g *Graph) NumVars() int {
	return len(g.firstEdge)
}

// OutgoingConstraints returns the indices of the constraints whose Sup
// is v, in insertion order.
func (g *Graph) OutgoingConstraints(v VarID) []ConstraintIndex {
	var out []ConstraintIndex
	for c := g.firstEdge[v]; c != noEdge; c = g.nextEdge[c] {
		out = append(out, c)
	}
	return out
}

// Successors returns the Sub endpoints of v's outgoing constraints, in
// insertion order, possibly with duplicates.
func (g *Graph) Successors(v VarID) []VarID {
	var out []VarID
	for c := g.firstEdge[v]; c != noEdge; c = g.nextEdge[c] {
		out = append(out, g.set.constraints[c].Sub)
	}
	return out
}
