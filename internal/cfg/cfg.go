// Package cfg describes the control-flow-graph shape consumed by the
// region inference engine. The engine does not build or transform the
// CFG; it only needs a dense numbering of the program points inside one
// function or closure body so that region values can be stored as
// compact bit sets.
package cfg

import "fmt"

// BlockID identifies a basic block within one body.
type BlockID int

// PointIndex is the dense index of a single program point. Points are
// numbered block by block, statement by statement, so that all points
// of bb0 precede all points of bb1.
type PointIndex int

// Location identifies a program point as a statement slot inside a
// basic block. Statement n is the point just before the n-th statement
// executes; the final slot of a block is its terminator.
type Location struct {
	Block     BlockID
	Statement int
}

func (l Location) String() string {
	return fmt.Sprintf("bb%d[%d]", l.Block, l.Statement)
}

// Body is the point index space of one analyzed function or closure
// body. It is immutable after construction and may be shared by any
// number of solvers.
type Body struct {
	// statements[b] is the number of statement slots in block b,
	// including the terminator slot.
	statements []int

	// starts[b] is the PointIndex of the first slot of block b.
	starts []PointIndex

	numPoints int
}

// NewBody creates a body from per-block statement counts. Each block
// must have at least one slot (its terminator).
func NewBody(statementCounts []int) *Body {
	b := &Body{
		statements: make([]int, len(statementCounts)),
		starts:     make([]PointIndex, len(statementCounts)),
	}
	next := 0
	for i, n := range statementCounts {
		if n < 1 {
			panic(fmt.Sprintf("cfg: block bb%d has %d statement slots; need at least 1", i, n))
		}
		b.statements[i] = n
		b.starts[i] = PointIndex(next)
		next += n
	}
	b.numPoints = next
	return b
}

// NumBlocks returns the number of basic blocks in the body.
func (b *Body) NumBlocks() int {
	return len(b.statements)
}

// NumPoints returns the total number of program points in the body.
func (b *Body) NumPoints() int {
	return b.numPoints
}

// Statements returns the number of statement slots in the given block.
func (b *Body) Statements(block BlockID) int {
	return b.statements[block]
}

// PointFrom converts a location to its dense point index. It panics if
// the location does not exist in this body; a dangling location is a
// contract violation by the caller.
func (b *Body) PointFrom(loc Location) PointIndex {
	if int(loc.Block) >= len(b.statements) || loc.Statement >= b.statements[loc.Block] {
		panic(fmt.Sprintf("cfg: location %s out of range", loc))
	}
	return b.starts[loc.Block] + PointIndex(loc.Statement)
}

// LocationFrom converts a dense point index back to a location.
func (b *Body) LocationFrom(p PointIndex) Location {
	if int(p) < 0 || int(p) >= b.numPoints {
		panic(fmt.Sprintf("cfg: point %d out of range", p))
	}
	// Linear scan over blocks; bodies are small and this is only used
	// for debug rendering and blame recovery.
	for block := len(b.starts) - 1; block >= 0; block-- {
		if p >= b.starts[block] {
			return Location{Block: BlockID(block), Statement: int(p - b.starts[block])}
		}
	}
	panic("cfg: unreachable")
}
