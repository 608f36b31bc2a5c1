// Package region implements the region (lifetime) inference engine of
// the borrow-checking phase. Given a body's outlives constraints and
// liveness facts it computes, for every region variable, the minimal
// set of program points and free regions the variable must span, then
// validates type tests and universal-region bounds against the solved
// values. Obligations a closure body cannot prove locally are promoted
// into requirements for its creator instead of failing.
package region

import (
	"fmt"

	"github.com/orizon-lang/regionck/internal/cfg"
)

// VarID identifies a region variable within one analyzed body.
type VarID int

func (v VarID) String() string {
	return fmt.Sprintf("'?%d", int(v))
}

// UniverseIndex is the nesting depth of the scope that introduced a
// region variable. The root universe (depth 0) holds all free regions;
// each level of higher-ranked quantification opens a deeper universe.
type UniverseIndex int

// RootUniverse is the universe of the function body itself.
const RootUniverse UniverseIndex = 0

// CanName reports whether a value living in universe u may name
// elements of universe other. Outer universes cannot see into the
// placeholders of deeper ones.
func (u UniverseIndex) CanName(other UniverseIndex) bool {
	return other <= u
}

func (u UniverseIndex) String() string {
	return fmt.Sprintf("U%d", int(u))
}

// Origin classifies where a region variable came from. The three
// origins are mutually exclusive.
type Origin int

const (
	// OriginFree is a named lifetime parameter or 'static; its value
	// always contains the whole CFG plus itself.
	OriginFree Origin = iota

	// OriginBound is a placeholder introduced by higher-ranked
	// quantification; it may only ever equal itself.
	OriginBound

	// OriginExistential is an ordinary inference variable solved by
	// propagation.
	OriginExistential
)

func (o Origin) String() string {
	switch o {
	case OriginFree:
		return "free"
	case OriginBound:
		return "bound"
	case OriginExistential:
		return "existential"
	default:
		return "unknown"
	}
}

// VarInfo describes one region variable in the solver's input. The
// slice of VarInfos defines the variable index space.
type VarInfo struct {
	Universe UniverseIndex
	Origin   Origin
}

// ElementKind discriminates the members of a region value.
type ElementKind int

const (
	// ElementPoint is a single CFG program point.
	ElementPoint ElementKind = iota

	// ElementRegion is a universal (free or placeholder) region,
	// recorded when that region's end is reachable from the value.
	ElementRegion

	// ElementUniverse tags a value as reaching into the given
	// sub-universe.
	ElementUniverse
)

// Element is one member of a region value: a CFG point, a universal
// region, or a sub-universe tag. It is a closed tagged union; exactly
// the field selected by Kind is meaningful.
type Element struct {
	Kind     ElementKind
	Point    cfg.PointIndex
	Region   VarID
	Universe UniverseIndex
}

// PointElement creates a CFG-point element.
func PointElement(p cfg.PointIndex) Element {
	return Element{Kind: ElementPoint, Point: p}
}

// RegionElement creates a universal-region element.
func RegionElement(v VarID) Element {
	return Element{Kind: ElementRegion, Region: v}
}

// UniverseElement creates a sub-universe element.
func UniverseElement(u UniverseIndex) Element {
	return Element{Kind: ElementUniverse, Universe: u}
}

func (e Element) String() string {
	switch e.Kind {
	case ElementPoint:
		return fmt.Sprintf("p%d", int(e.Point))
	case ElementRegion:
		return fmt.Sprintf("end(%s)", e.Region)
	case ElementUniverse:
		return e.Universe.String()
	default:
		return "invalid"
	}
}

// Elements is the bijection between region value elements and compact
// integers, shared by every region value in one analysis run. The
// layout places all CFG points first, then one slot per universal
// region, then one slot per universe index. It is immutable after
// construction and may be shared across solver instances.
type Elements struct {
	body          *cfg.Body
	numUniversals int
	numUniverses  int
}

// NewElements creates the index space for a body with the given number
// of universal (free plus placeholder) regions and a maximum universe
// depth.
func NewElements(body *cfg.Body, numUniversals int, maxUniverse UniverseIndex) *Elements {
	return &Elements{
		body:          body,
		numUniversals: numUniversals,
		numUniverses:  int(maxUniverse) + 1,
	}
}

// Body returns the point index space underlying the element space.
func (e *Elements) Body() *cfg.Body {
	return e.body
}

// Len returns the total number of element indices.
func (e *Elements) Len() int {
	return e.body.NumPoints() + e.numUniversals + e.numUniverses
}

// NumPoints returns the number of CFG point elements.
func (e *Elements) NumPoints() int {
	return e.body.NumPoints()
}

// NumUniversals returns the number of universal-region elements.
func (e *Elements) NumUniversals() int {
	return e.numUniversals
}

// Index converts an element to its compact index. Panics on an element
// outside the space; a dangling region or point index is a contract
// violation by the upstream collaborator.
func (e *Elements) Index(el Element) int {
	switch el.Kind {
	case ElementPoint:
		if int(el.Point) < 0 || int(el.Point) >= e.body.NumPoints() {
			panic(fmt.Sprintf("region: point %d out of range", el.Point))
		}
		return int(el.Point)
	case ElementRegion:
		if int(el.Region) < 0 || int(el.Region) >= e.numUniversals {
			panic(fmt.Sprintf("region: %s is not a universal region", el.Region))
		}
		return e.body.NumPoints() + int(el.Region)
	case ElementUniverse:
		if int(el.Universe) < 0 || int(el.Universe) >= e.numUniverses {
			panic(fmt.Sprintf("region: universe %s out of range", el.Universe))
		}
		return e.body.NumPoints() + e.numUniversals + int(el.Universe)
	default:
		panic("region: invalid element kind")
	}
}

// Element converts a compact index back to the element it denotes.
func (e *Elements) Element(i int) Element {
	switch {
	case i < e.body.NumPoints():
		return PointElement(cfg.PointIndex(i))
	case i < e.body.NumPoints()+e.numUniversals:
		return RegionElement(VarID(i - e.body.NumPoints()))
	case i < e.Len():
		return UniverseElement(UniverseIndex(i - e.body.NumPoints() - e.numUniversals))
	default:
		panic(fmt.Sprintf("region: element index %d out of range", i))
	}
}
