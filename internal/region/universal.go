package region

import "fmt"

// UniversalRegions describes the universally quantified regions in
// scope on the analyzed body: the free regions from the signature plus
// any higher-ranked placeholders. By convention these occupy the first
// Len() slots of the variable index space.
type UniversalRegions struct {
	num int

	// FrStatic is the 'static region, the universal escape hatch used
	// when propagation would otherwise leak a universe.
	FrStatic VarID

	// FrFnBody is the free region representing the body itself, the
	// root of the CFG.
	FrFnBody VarID

	// firstLocal splits the universal regions into the ones visible
	// to a closure's creator ([0, firstLocal)) and the ones local to
	// the closure ([firstLocal, num)). For a plain function it equals
	// num.
	firstLocal VarID

	names  map[VarID]string
	byName map[string]VarID
}

// NewUniversalRegions creates the universal region table. frStatic and
// frFnBody must be universal indices; firstLocal must not exceed num.
func NewUniversalRegions(num int, frStatic, frFnBody, firstLocal VarID) *UniversalRegions {
	if int(frStatic) >= num || int(frFnBody) >= num {
		panic("region: 'static and the fn body region must be universal")
	}
	if int(firstLocal) > num {
		panic("region: firstLocal exceeds the universal region count")
	}
	return &UniversalRegions{
		num:        num,
		FrStatic:   frStatic,
		FrFnBody:   frFnBody,
		firstLocal: firstLocal,
		names:      make(map[VarID]string),
		byName:     make(map[string]VarID),
	}
}

// Len returns the number of universal regions.
func (ur *UniversalRegions) Len() int {
	return ur.num
}

// IsUniversal reports whether v is a universal region.
func (ur *UniversalRegions) IsUniversal(v VarID) bool {
	return int(v) < ur.num
}

// IsLocalFreeRegion reports whether v is a universal region that the
// closure's creator cannot name.
func (ur *UniversalRegions) IsLocalFreeRegion(v VarID) bool {
	return v >= ur.firstLocal && int(v) < ur.num
}

// NumGlobalAndExternal returns the count of universal regions nameable
// by the closure's creator.
func (ur *UniversalRegions) NumGlobalAndExternal() int {
	return int(ur.firstLocal)
}

// SetName records the external name of a universal region, such as
// "'a" or "'static". Used only for error messages and queries.
func (ur *UniversalRegions) SetName(v VarID, name string) {
	if !ur.IsUniversal(v) {
		panic(fmt.Sprintf("region: cannot name non-universal region %s", v))
	}
	ur.names[v] = name
	ur.byName[name] = v
}

// Name returns the external name of v, if it has one.
func (ur *UniversalRegions) Name(v VarID) (string, bool) {
	name, ok := ur.names[v]
	return name, ok
}

// ToRegionVid looks a universal region up by its external name.
func (ur *UniversalRegions) ToRegionVid(name string) (VarID, bool) {
	v, ok := ur.byName[name]
	return v, ok
}

// OutlivesFact is a single known relationship between two universal
// regions, derived from explicit bounds such as where clauses.
type OutlivesFact struct {
	Sup VarID
	Sub VarID
}

// UniversalRegionRelations is the precomputed table of which universal
// regions are known to outlive which others. It is closed under
// reflexivity and transitivity at construction, always knows that
// 'static outlives everything, and is never mutated afterwards, so it
// may be shared across concurrently running solvers.
type UniversalRegionRelations struct {
	universals *UniversalRegions
	outlives   []bitSet // outlives[sup] has bit sub set when sup: sub holds
}

// NewUniversalRegionRelations builds the relations table from declared
// facts.
func NewUniversalRegionRelations(ur *UniversalRegions, facts []OutlivesFact) *UniversalRegionRelations {
	n := ur.Len()
	rel := &UniversalRegionRelations{
		universals: ur,
		outlives:   make([]bitSet, n),
	}
	for i := range rel.outlives {
		rel.outlives[i] = newBitSet(n)
		rel.outlives[i].add(i)                // reflexivity
		rel.outlives[int(ur.FrStatic)].add(i) // 'static outlives every region
	}
	for _, f := range facts {
		if !ur.IsUniversal(f.Sup) || !ur.IsUniversal(f.Sub) {
			panic(fmt.Sprintf("region: relation %s: %s names a non-universal region", f.Sup, f.Sub))
		}
		rel.outlives[f.Sup].add(int(f.Sub))
	}

	// Transitive closure. The table is tiny (one row per signature
	// region), so the cubic pass is fine.
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if rel.outlives[i].contains(k) {
				rel.outlives[i].unionWith(rel.outlives[k])
			}
		}
	}

	return rel
}

// Outlives reports whether sup is known to outlive sub.
func (rel *UniversalRegionRelations) Outlives(sup, sub VarID) bool {
	return rel.outlives[sup].contains(int(sub))
}

// NonLocalUpperBound returns the smallest non-local universal region
// known to outlive v. Since 'static outlives everything and is never
// local, the bound always exists. Ties between equally small
// candidates break toward the lowest variable index; diagnostics stay
// stable across runs because of it.
func (rel *UniversalRegionRelations) NonLocalUpperBound(v VarID) VarID {
	if !rel.universals.IsLocalFreeRegion(v) {
		return v
	}
	return rel.smallest(func(u VarID) bool {
		return !rel.universals.IsLocalFreeRegion(u) && rel.Outlives(u, v)
	})
}

// NonLocalLowerBound returns the largest non-local universal region
// known to be outlived by v, if one exists.
func (rel *UniversalRegionRelations) NonLocalLowerBound(v VarID) (VarID, bool) {
	if !rel.universals.IsLocalFreeRegion(v) {
		return v, true
	}
	return rel.largest(func(u VarID) bool {
		return !rel.universals.IsLocalFreeRegion(u) && rel.Outlives(v, u)
	})
}

// PostdomUpperBound returns the smallest universal region known to
// outlive both a and b. In the worst case this is 'static.
func (rel *UniversalRegionRelations) PostdomUpperBound(a, b VarID) VarID {
	if rel.Outlives(a, b) {
		return a
	}
	if rel.Outlives(b, a) {
		return b
	}
	return rel.smallest(func(u VarID) bool {
		return rel.Outlives(u, a) && rel.Outlives(u, b)
	})
}

// smallest picks, among the universal regions accepted by ok, one that
// does not strictly outlive any other accepted candidate; lowest index
// wins ties. The candidate set must be non-empty.
func (rel *UniversalRegionRelations) smallest(ok func(VarID) bool) VarID {
	n := rel.universals.Len()
	best := VarID(-1)
	for i := 0; i < n; i++ {
		u := VarID(i)
		if !ok(u) {
			continue
		}
		if best < 0 {
			best = u
			continue
		}
		// Prefer u when the current best outlives it: u is smaller.
		if rel.Outlives(best, u) && !rel.Outlives(u, best) {
			best = u
		}
	}
	if best < 0 {
		panic("region: no upper bound candidate; 'static should always qualify")
	}
	return best
}

// largest is the dual of smallest: it picks a candidate not strictly
// outlived by any other, lowest index winning ties.
func (rel *UniversalRegionRelations) largest(ok func(VarID) bool) (VarID, bool) {
	n := rel.universals.Len()
	best := VarID(-1)
	for i := 0; i < n; i++ {
		u := VarID(i)
		if !ok(u) {
			continue
		}
		if best < 0 {
			best = u
			continue
		}
		if rel.Outlives(u, best) && !rel.Outlives(best, u) {
			best = u
		}
	}
	return best, best >= 0
}
