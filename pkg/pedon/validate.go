package pedon

import (
	"sort"

	"github.com/google/uuid"
)

// IssueKind classifies a depth-logic finding.
type IssueKind int

const (
	// IssueInverted flags a horizon with top >= bottom.
	IssueInverted IssueKind = iota
	// IssueOverlap flags two consecutive horizons whose spans overlap.
	IssueOverlap
	// IssueGap flags a gap between consecutive horizons. A warning, not an
	// error: gapped profiles are legal but non-contiguous.
	IssueGap
	// IssueUnsorted flags horizons stored out of ascending top order.
	IssueUnsorted
)

func (k IssueKind) String() string {
	switch k {
	case IssueInverted:
		return "inverted"
	case IssueOverlap:
		return "overlap"
	case IssueGap:
		return "gap"
	case IssueUnsorted:
		return "unsorted"
	}
	return "unknown"
}

// Issue is one depth-logic finding, located by profile key and horizon index.
type Issue struct {
	ProfileID    string
	HorizonIndex int
	Kind         IssueKind
}

// Fatal reports whether the issue invalidates the profile for depth
// operations. Gaps do not.
func (i Issue) Fatal() bool {
	return i.Kind != IssueGap
}

// CheckProfile reports every depth-logic issue in a profile: inverted
// horizons, overlapping consecutive horizons, gaps (as warnings), and
// unsorted storage order. Checks for overlaps and gaps are evaluated over
// the top-sorted view so they are meaningful even when storage order is
// wrong.
func CheckProfile(p *Profile) []Issue {
	var issues []Issue
	n := len(p.Horizons)
	for i := 0; i < n; i++ {
		h := &p.Horizons[i]
		if h.HasBottom() && h.Top >= h.Bottom {
			issues = append(issues, Issue{ProfileID: p.ID, HorizonIndex: i, Kind: IssueInverted})
		}
		if i > 0 && p.Horizons[i].Top < p.Horizons[i-1].Top {
			issues = append(issues, Issue{ProfileID: p.ID, HorizonIndex: i, Kind: IssueUnsorted})
		}
	}

	order := sortedOrder(p)
	for k := 1; k < n; k++ {
		prev := &p.Horizons[order[k-1]]
		cur := &p.Horizons[order[k]]
		if !prev.HasBottom() {
			continue
		}
		switch {
		case prev.Bottom > cur.Top:
			issues = append(issues, Issue{ProfileID: p.ID, HorizonIndex: order[k], Kind: IssueOverlap})
		case prev.Bottom < cur.Top:
			issues = append(issues, Issue{ProfileID: p.ID, HorizonIndex: order[k], Kind: IssueGap})
		}
	}
	return issues
}

func sortedOrder(p *Profile) []int {
	order := make([]int, len(p.Horizons))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Horizons[order[a]].Top < p.Horizons[order[b]].Top
	})
	return order
}

// Report aggregates per-profile checks over a whole collection.
type Report struct {
	Issues []Issue
	// BadProfiles lists, in collection order, the keys of profiles with at
	// least one fatal issue.
	BadProfiles []string
}

// Valid reports whether no profile had a fatal issue.
func (r *Report) Valid() bool {
	return len(r.BadProfiles) == 0
}

// Check runs CheckProfile over every profile and aggregates the findings.
func (c *Collection) Check() *Report {
	r := &Report{}
	for _, p := range c.profiles {
		issues := CheckProfile(p)
		fatal := false
		for _, is := range issues {
			if is.Fatal() {
				fatal = true
			}
		}
		if fatal {
			r.BadProfiles = append(r.BadProfiles, p.ID)
		}
		r.Issues = append(r.Issues, issues...)
	}
	return r
}

// RepairProfile returns a copy of the profile with horizons re-sorted by top
// depth and horizon IDs re-derived. It refuses to repair semantic errors:
// an inverted horizon or an overlap (as judged after sorting) returns a
// DepthLogicError instead.
func RepairProfile(p *Profile) (*Profile, error) {
	cp := p.Clone()
	sort.SliceStable(cp.Horizons, func(a, b int) bool {
		return cp.Horizons[a].Top < cp.Horizons[b].Top
	})
	for i := range cp.Horizons {
		h := &cp.Horizons[i]
		if h.HasBottom() && h.Top >= h.Bottom {
			return nil, &DepthLogicError{ProfileID: p.ID, HorizonIndex: i, Reason: "top >= bottom"}
		}
		if i > 0 {
			prev := &cp.Horizons[i-1]
			if prev.HasBottom() && prev.Bottom > h.Top {
				return nil, &DepthLogicError{ProfileID: p.ID, HorizonIndex: i, Reason: "overlaps previous horizon"}
			}
		}
		h.ID = uuid.New().String()
	}
	return cp, nil
}

// Repair applies RepairProfile to every profile, returning a new Collection.
// Any unrepairable profile fails the whole call.
func (c *Collection) Repair() (*Collection, error) {
	profiles := make([]*Profile, len(c.profiles))
	for i, p := range c.profiles {
		rp, err := RepairProfile(p)
		if err != nil {
			return nil, err
		}
		profiles[i] = rp
	}
	return FromProfiles(profiles)
}
