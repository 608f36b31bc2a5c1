package region

// SCCID identifies one strongly connected component of the constraint
// graph. Variables that mutually outlive one another land in the same
// component and therefore share a single region value.
type SCCID int

// SCCs is the condensation of the constraint graph into a DAG of
// equivalence classes with dense ids. Component ids are assigned so
// that every successor of a component has a smaller id; a plain
// ascending scan therefore visits successors first.
type SCCs struct {
	assignment []SCCID
	successors [][]SCCID
	count      int
}

// ComputeSCCs condenses the constraint graph using Tarjan's algorithm,
// implemented iteratively so pathological constraint chains cannot
// overflow the goroutine stack.
func ComputeSCCs(g *Graph) *SCCs {
	n := g.NumVars()

	const unvisited = -1
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for v := range index {
		index[v] = unvisited
	}

	s := &SCCs{assignment: make([]SCCID, n)}

	var stack []VarID
	nextIndex := 0

	// Explicit DFS frames: node plus position within its successor
	// list.
	type frame struct {
		v     VarID
		succ  []VarID
		child int
	}
	var frames []frame

	visit := func(root VarID) {
		frames = append(frames[:0], frame{v: root, succ: g.Successors(root)})
		index[root] = nextIndex
		lowlink[root] = nextIndex
		nextIndex++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.child < len(f.succ) {
				w := f.succ[f.child]
				f.child++
				if index[w] == unvisited {
					index[w] = nextIndex
					lowlink[w] = nextIndex
					nextIndex++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{v: w, succ: g.Successors(w)})
				} else if onStack[w] {
					if index[w] < lowlink[f.v] {
						lowlink[f.v] = index[w]
					}
				}
				continue
			}

			// All successors of f.v explored.
			if lowlink[f.v] == index[f.v] {
				id := SCCID(s.count)
				s.count++
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					s.assignment[w] = id
					if w == f.v {
						break
					}
				}
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[f.v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[f.v]
				}
			}
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == unvisited {
			visit(VarID(v))
		}
	}

	// Build the condensed successor lists, deduplicated. Tarjan pops
	// sink components first, so every edge goes from a higher id to a
	// lower one.
	members := make([][]VarID, s.count)
	for v := 0; v < n; v++ {
		id := s.assignment[v]
		members[id] = append(members[id], VarID(v))
	}

	s.successors = make([][]SCCID, s.count)
	seen := make([]SCCID, s.count)
	for i := range seen {
		seen[i] = -1
	}
	for a := SCCID(0); a < SCCID(s.count); a++ {
		for _, v := range members[a] {
			for _, w := range g.Successors(v) {
				b := s.assignment[w]
				if a == b || seen[b] == a {
					continue
				}
				seen[b] = a
				s.successors[a] = append(s.successors[a], b)
			}
		}
	}

	return s
}

// NumSCCs returns the number of components.
func (s *SCCs) NumSCCs() int {
	return s.count
}

// SCC returns the component containing variable v.
func (s *SCCs) SCC(v VarID) SCCID {
	return s.assignment[v]
}

// Successors returns the distinct components directly outlived by scc,
// in first-encounter order.
func (s *SCCs) Successors(scc SCCID) []SCCID {
	return s.successors[scc]
}
