package region

import (
	"fmt"

	"github.com/orizon-lang/regionck/internal/position"
)

// SubjectKind discriminates what a promoted requirement constrains.
type SubjectKind int

const (
	// SubjectRegion constrains a single region.
	SubjectRegion SubjectKind = iota

	// SubjectType constrains a type whose regions have all been
	// rewritten to creator-visible bounds.
	SubjectType
)

// ClosureOutlivesSubject is the left side of a promoted requirement,
// expressed purely in terms of regions the closure's creator can name.
type ClosureOutlivesSubject struct {
	Kind   SubjectKind
	Region VarID
	Type   TypeSubject
}

// RegionOutlivesSubject builds a region subject.
func RegionOutlivesSubject(r VarID) ClosureOutlivesSubject {
	return ClosureOutlivesSubject{Kind: SubjectRegion, Region: r}
}

// TypeOutlivesSubject builds a type subject.
func TypeOutlivesSubject(t TypeSubject) ClosureOutlivesSubject {
	return ClosureOutlivesSubject{Kind: SubjectType, Type: t}
}

func (s ClosureOutlivesSubject) String() string {
	if s.Kind == SubjectRegion {
		return s.Region.String()
	}
	return s.Type.String()
}

// ClosureOutlivesRequirement is one obligation a closure body could
// not discharge locally, forwarded to its creator.
type ClosureOutlivesRequirement struct {
	Subject            ClosureOutlivesSubject
	OutlivedFreeRegion VarID
	BlameSpan          position.Span
}

func (r ClosureOutlivesRequirement) String() string {
	return fmt.Sprintf("%s: %s", r.Subject, r.OutlivedFreeRegion)
}

// ClosureRegionRequirements is the full set of promoted obligations
// returned from solving a closure body. The requirement variables
// index into the first NumExternalVids universal regions, which are
// exactly the ones the creator can map onto its own regions.
type ClosureRegionRequirements struct {
	NumExternalVids      int
	OutlivesRequirements []ClosureOutlivesRequirement
}

// AppliedObligation is a requirement translated into the caller's own
// region vocabulary by ApplyRequirements.
type AppliedObligation struct {
	Subject  ClosureOutlivesSubject
	Outlived VarID
	Span     position.Span
}

// ApplyRequirements instantiates the promoted requirements at a
// closure-use site. mapping[i] is the caller's region standing in for
// external variable i of the closure; it must cover all
// NumExternalVids slots. The returned obligations feed back into the
// caller's own constraint set.
func (crr *ClosureRegionRequirements) ApplyRequirements(mapping []VarID) []AppliedObligation {
	if len(mapping) < crr.NumExternalVids {
		panic(fmt.Sprintf(
			"region: closure mapping has %d regions; requirements reference %d",
			len(mapping), crr.NumExternalVids,
		))
	}

	applied := make([]AppliedObligation, 0, len(crr.OutlivesRequirements))
	for _, req := range crr.OutlivesRequirements {
		subject := req.Subject
		switch subject.Kind {
		case SubjectRegion:
			subject = RegionOutlivesSubject(mapping[subject.Region])
		case SubjectType:
			regions := make([]VarID, len(subject.Type.Regions))
			for i, r := range subject.Type.Regions {
				regions[i] = mapping[r]
			}
			subject = TypeOutlivesSubject(TypeSubject{Name: subject.Type.Name, Regions: regions})
		}

		applied = append(applied, AppliedObligation{
			Subject:  subject,
			Outlived: mapping[req.OutlivedFreeRegion],
			Span:     req.BlameSpan,
		})
	}
	return applied
}
