package region

import (
	"fmt"

	"github.com/orizon-lang/regionck/internal/diag"
	"github.com/orizon-lang/regionck/internal/position"
)

// checkTypeTests validates every type test against the solved values.
// Failures are promoted to the creator when possible, otherwise
// reported; every test is always evaluated so one solve reports every
// violation.
func (cx *InferContext) checkTypeTests(promoted *[]ClosureOutlivesRequirement, buf *diag.Buffer) {
	for i := range cx.typeTests {
		test := &cx.typeTests[i]

		if cx.EvalRegionTest(test.LowerBound, test.Test) {
			continue
		}

		if promoted != nil && cx.tryPromoteTypeTest(test, promoted) {
			continue
		}

		if name, ok := cx.toErrorRegion(test.LowerBound); ok {
			buf.Append(diag.Diagnostic{
				Level:    diag.LevelError,
				Category: diag.CategoryTypeTest,
				Message:  fmt.Sprintf("the type `%s` does not outlive %s", test.Subject, name),
				Span:     test.Span,
			})
		} else {
			// The lower bound is some union of unrelated universal
			// regions with no single nameable representative.
			buf.Append(diag.Diagnostic{
				Level:    diag.LevelError,
				Category: diag.CategoryTypeTest,
				Message:  fmt.Sprintf("`%s` does not live long enough", test.Subject),
				Span:     test.Span,
			})
		}
	}
}

// toErrorRegion maps a region variable to a name usable in an error
// message. Universal variables use their external name; an existential
// variable is named by its universal upper bound when that bound is
// contained in its own value, meaning the two are equivalent.
func (cx *InferContext) toErrorRegion(r VarID) (string, bool) {
	if cx.universalRegions.IsUniversal(r) {
		name := cx.definitions[r].externalName
		return name, name != ""
	}

	upperBound := cx.universalUpperBound(r)
	if cx.sccValues.Contains(cx.sccs.SCC(r), RegionElement(upperBound)) {
		return cx.toErrorRegion(upperBound)
	}
	return "", false
}

// universalUpperBound returns a universal region that outlives the
// value of r. CFG points are ignored since every universal region
// contains the whole CFG; the universal members of r's value are
// folded with the relations table's mutual upper bound.
func (cx *InferContext) universalUpperBound(r VarID) VarID {
	lub := cx.universalRegions.FrFnBody
	for _, ur := range cx.sccValues.UniversalRegionsOutlivedBy(cx.sccs.SCC(r)) {
		lub = cx.relations.PostdomUpperBound(lub, ur)
	}
	return lub
}

// nonLocalUniversalUpperBound grows the universal upper bound of r
// further until it is nameable by the closure's creator. In the worst
// case the result is 'static.
func (cx *InferContext) nonLocalUniversalUpperBound(r VarID) VarID {
	lub := cx.universalUpperBound(r)
	return cx.relations.NonLocalUpperBound(lub)
}

// tryPromoteTypeTest re-expresses an unprovable type test in the
// creator's vocabulary. The subject type must be rewritable using only
// creator-visible regions; each universal region outlived by the lower
// bound is then widened to its non-local upper bound and pushed as a
// requirement. Reports whether promotion succeeded.
func (cx *InferContext) tryPromoteTypeTest(test *TypeTest, promoted *[]ClosureOutlivesRequirement) bool {
	subject, ok := cx.tryPromoteTypeTestSubject(test.Subject)
	if !ok {
		return false
	}

	for _, ur := range cx.sccValues.UniversalRegionsOutlivedBy(cx.sccs.SCC(test.LowerBound)) {
		nonLocalUB := cx.relations.NonLocalUpperBound(ur)

		if !cx.universalRegions.IsUniversal(nonLocalUB) || cx.universalRegions.IsLocalFreeRegion(nonLocalUB) {
			panic(fmt.Sprintf("region: non-local upper bound %s is not creator-visible", nonLocalUB))
		}

		*promoted = append(*promoted, ClosureOutlivesRequirement{
			Subject:            TypeOutlivesSubject(subject),
			OutlivedFreeRegion: nonLocalUB,
			BlameSpan:          test.Span,
		})
	}
	return true
}

// tryPromoteTypeTestSubject rewrites every region variable in the
// subject type with a creator-visible bound. A variable can be
// rewritten only when its non-local universal upper bound is
// equivalent to it, that is, the bound is contained in the variable's
// own value. If any variable resists rewriting the promotion fails and
// the caller falls back to a local error.
func (cx *InferContext) tryPromoteTypeTestSubject(subject TypeSubject) (TypeSubject, bool) {
	rewritten := TypeSubject{
		Name:    subject.Name,
		Regions: make([]VarID, len(subject.Regions)),
	}
	for i, r := range subject.Regions {
		upperBound := cx.nonLocalUniversalUpperBound(r)
		if !cx.RegionContains(r, RegionElement(upperBound)) {
			return TypeSubject{}, false
		}
		rewritten.Regions[i] = upperBound
	}
	return rewritten, true
}

// checkUniversalRegions verifies that no universal region's solved
// value grew beyond what the declared relations permit, and that no
// placeholder's value escaped its universe.
func (cx *InferContext) checkUniversalRegions(promoted *[]ClosureOutlivesRequirement, buf *diag.Buffer) {
	for v := range cx.definitions {
		variable := VarID(v)
		switch cx.definitions[v].origin {
		case OriginFree:
			cx.checkUniversalRegion(variable, promoted, buf)
		case OriginBound:
			cx.checkBoundUniversalRegion(variable, buf)
		case OriginExistential:
			// Nothing to check.
		}
	}
}

// checkUniversalRegion examines which end(X) elements wound up in the
// value of the free region longer; every such X that the relations
// table does not already place below longer is a violation, either
// promoted to the creator or reported with a blame span.
func (cx *InferContext) checkUniversalRegion(longer VarID, promoted *[]ClosureOutlivesRequirement, buf *diag.Buffer) {
	longerSCC := cx.sccs.SCC(longer)

	for _, shorter := range cx.sccValues.UniversalRegionsOutlivedBy(longerSCC) {
		if cx.relations.Outlives(longer, shorter) {
			continue
		}

		blameSpan := cx.findOutlivesBlameSpan(longer, RegionElement(shorter))

		if promoted != nil {
			// Shrink longer to a creator-visible region, if one
			// exists, and grow shorter likewise; the creator then
			// discharges the slightly weaker obligation.
			if longerMinus, ok := cx.relations.NonLocalLowerBound(longer); ok {
				shorterPlus := cx.relations.NonLocalUpperBound(shorter)
				*promoted = append(*promoted, ClosureOutlivesRequirement{
					Subject:            RegionOutlivesSubject(longerMinus),
					OutlivedFreeRegion: shorterPlus,
					BlameSpan:          blameSpan,
				})
				return
			}
		}

		cx.reportBoundViolation(longer, shorter, blameSpan, buf)
	}
}

func (cx *InferContext) reportBoundViolation(longer, shorter VarID, blameSpan position.Span, buf *diag.Buffer) {
	longerName, ok := cx.toErrorRegion(longer)
	if !ok {
		longerName = longer.String()
	}
	shorterName, ok := cx.toErrorRegion(shorter)
	if !ok {
		shorterName = shorter.String()
	}

	d := diag.Diagnostic{
		Level:    diag.LevelError,
		Category: diag.CategoryRegionBound,
		Message:  fmt.Sprintf("%s must outlive %s, but it is not declared to", longerName, shorterName),
		Span:     blameSpan,
	}
	if blameSpan.IsValid() {
		d.Labels = append(d.Labels, diag.Label{
			Message: fmt.Sprintf("this requires %s: %s", longerName, shorterName),
			Span:    blameSpan,
		})
	}
	buf.Append(d)
}

// checkBoundUniversalRegion verifies that a placeholder's value holds
// nothing except the placeholder itself and its own universe's tag;
// anything else is a higher-ranked subtype error, never promotable
// since a bound region has no caller to promote to.
func (cx *InferContext) checkBoundUniversalRegion(placeholder VarID, buf *diag.Buffer) {
	sccID := cx.sccs.SCC(placeholder)
	universe := cx.definitions[placeholder].universe

	var errorElement Element
	found := false
	for _, el := range cx.sccValues.ElementsContainedIn(sccID) {
		switch el.Kind {
		case ElementPoint:
			errorElement, found = el, true
		case ElementRegion:
			if el.Region != placeholder {
				errorElement, found = el, true
			}
		case ElementUniverse:
			if el.Universe != universe {
				errorElement, found = el, true
			}
		}
		if found {
			break
		}
	}
	if !found {
		return
	}

	span := cx.findOutlivesBlameSpan(placeholder, errorElement)

	d := diag.Diagnostic{
		Level:    diag.LevelError,
		Category: diag.CategoryHigherRankedSubtype,
		Message:  "higher-ranked subtype error",
		Span:     span,
	}

	// When the leak is a CFG point, name a region that is live there so
	// the message has something concrete to point at.
	if errorElement.Kind == ElementPoint && span.IsValid() {
		if v, ok := cx.liveVarAt(placeholder, errorElement.Point); ok {
			name, named := cx.toErrorRegion(v)
			if !named {
				name = v.String()
			}
			d.Labels = append(d.Labels, diag.Label{
				Message: fmt.Sprintf("%s is live here but cannot be named by the bound region", name),
				Span:    span,
			})
		}
	}

	buf.Append(d)
}

// findOutlivesBlameSpan walks the constraint graph from longer along
// a shortest path to a variable whose value contains the target
// element, and blames the first constraint on that path. Constraints
// are explored in insertion order so the chosen span is deterministic.
func (cx *InferContext) findOutlivesBlameSpan(longer VarID, target Element) position.Span {
	type step struct {
		v     VarID
		first ConstraintIndex
	}

	seen := make([]bool, len(cx.definitions))
	seen[longer] = true
	queue := []step{{v: longer, first: noEdge}}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		if s.first != noEdge && cx.sccValues.Contains(cx.sccs.SCC(s.v), target) {
			return cx.constraints.At(s.first).Span
		}

		for _, c := range cx.graph.OutgoingConstraints(s.v) {
			sub := cx.constraints.At(c).Sub
			if seen[sub] {
				continue
			}
			seen[sub] = true
			first := s.first
			if first == noEdge {
				first = c
			}
			queue = append(queue, step{v: sub, first: first})
		}
	}

	return position.Span{}
}
