// Package pedon models collections of soil profiles: per-profile site
// records joined to ordered, depth-bounded horizon sequences, plus the
// depth-validation and per-profile execution primitives the depth algorithms
// in pkg/slice, pkg/slab, and pkg/dissim build on.
package pedon

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Horizon is one depth-bounded layer of a profile. Bottom is NaN when the
// lower boundary is unresolved.
type Horizon struct {
	ID        string
	ProfileID string
	Top       float64
	Bottom    float64
	Attrs     map[string]Value
}

// HasBottom reports whether the lower boundary is resolved.
func (h *Horizon) HasBottom() bool {
	return !math.IsNaN(h.Bottom)
}

// Thickness returns bottom - top, or NaN when the bottom is unresolved.
func (h *Horizon) Thickness() float64 {
	return h.Bottom - h.Top
}

// Attr returns the named attribute, or the missing value when absent.
func (h *Horizon) Attr(name string) Value {
	if v, ok := h.Attrs[name]; ok {
		return v
	}
	return Missing()
}

// Site holds the per-profile attributes not tied to any single horizon.
type Site struct {
	ProfileID string
	Attrs     map[string]Value
}

// Attr returns the named site attribute, or the missing value when absent.
func (s *Site) Attr(name string) Value {
	if v, ok := s.Attrs[name]; ok {
		return v
	}
	return Missing()
}

// Feature is a long-format auxiliary record attached to a profile: a
// diagnostic feature or a restriction. Zero or more per profile.
type Feature struct {
	ProfileID string
	Kind      string
	Top       float64
	Bottom    float64
}

// Profile is one soil observation: an ordered sequence of horizons plus one
// site record, keyed uniquely within a Collection.
type Profile struct {
	ID           string
	Horizons     []Horizon
	Site         Site
	Diagnostics  []Feature
	Restrictions []Feature
}

// MaxDepth returns the deepest resolved horizon bottom, falling back to the
// deepest top when every bottom is unresolved. Zero for an empty profile.
func (p *Profile) MaxDepth() float64 {
	max := 0.0
	for i := range p.Horizons {
		h := &p.Horizons[i]
		if h.HasBottom() {
			if h.Bottom > max {
				max = h.Bottom
			}
		} else if h.Top > max {
			max = h.Top
		}
	}
	return max
}

// MinDepth returns the shallowest horizon top, or zero for an empty profile.
func (p *Profile) MinDepth() float64 {
	if len(p.Horizons) == 0 {
		return 0
	}
	min := p.Horizons[0].Top
	for i := range p.Horizons {
		if p.Horizons[i].Top < min {
			min = p.Horizons[i].Top
		}
	}
	return min
}

// HorizonAttrNames returns the union of attribute names across the profile's
// horizons, sorted.
func (p *Profile) HorizonAttrNames() []string {
	seen := make(map[string]struct{})
	for i := range p.Horizons {
		for name := range p.Horizons[i].Attrs {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	cp := &Profile{
		ID:       p.ID,
		Horizons: make([]Horizon, len(p.Horizons)),
		Site: Site{
			ProfileID: p.Site.ProfileID,
			Attrs:     cloneAttrs(p.Site.Attrs),
		},
		Diagnostics:  append([]Feature(nil), p.Diagnostics...),
		Restrictions: append([]Feature(nil), p.Restrictions...),
	}
	for i := range p.Horizons {
		h := p.Horizons[i]
		h.Attrs = cloneAttrs(h.Attrs)
		cp.Horizons[i] = h
	}
	return cp
}

func cloneAttrs(attrs map[string]Value) map[string]Value {
	out := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// Collection is the aggregate of profiles. Operations treat it as an
// immutable value and return new Collections rather than mutating in place.
type Collection struct {
	profiles []*Profile
	index    map[string]int
}

// HorizonRecord is one flat input row for construction.
type HorizonRecord struct {
	ProfileID string
	Top       float64
	Bottom    float64 // NaN for an unresolved lower boundary
	Attrs     map[string]Value
}

// SiteRecord is one flat site input row, keyed uniquely by profile.
type SiteRecord struct {
	ProfileID string
	Attrs     map[string]Value
}

// Build groups flat horizon and site rows into a Collection. Horizon row
// order within a profile is preserved as given; run Check (and Repair if
// needed) before depth operations when rows are not pre-sorted by top.
// Every horizon key must have a site row and vice versa, otherwise a
// LinkError is returned.
func Build(horizons []HorizonRecord, sites []SiteRecord) (*Collection, error) {
	siteByID := make(map[string]*SiteRecord, len(sites))
	for i := range sites {
		s := &sites[i]
		if _, dup := siteByID[s.ProfileID]; dup {
			return nil, fmt.Errorf("duplicate site row for profile %s", s.ProfileID)
		}
		siteByID[s.ProfileID] = s
	}

	c := &Collection{index: make(map[string]int)}
	for i := range horizons {
		rec := &horizons[i]
		if _, ok := siteByID[rec.ProfileID]; !ok {
			return nil, &LinkError{Relation: "horizons", ProfileID: rec.ProfileID}
		}
		idx, ok := c.index[rec.ProfileID]
		if !ok {
			idx = len(c.profiles)
			c.index[rec.ProfileID] = idx
			site := siteByID[rec.ProfileID]
			c.profiles = append(c.profiles, &Profile{
				ID: rec.ProfileID,
				Site: Site{
					ProfileID: rec.ProfileID,
					Attrs:     cloneAttrs(site.Attrs),
				},
			})
		}
		p := c.profiles[idx]
		p.Horizons = append(p.Horizons, Horizon{
			ID:        uuid.New().String(),
			ProfileID: rec.ProfileID,
			Top:       rec.Top,
			Bottom:    rec.Bottom,
			Attrs:     cloneAttrs(rec.Attrs),
		})
	}

	// Site rows without any horizons still become (empty) profiles so the
	// two relations stay keyed 1:1.
	for i := range sites {
		s := &sites[i]
		if _, ok := c.index[s.ProfileID]; !ok {
			c.index[s.ProfileID] = len(c.profiles)
			c.profiles = append(c.profiles, &Profile{
				ID: s.ProfileID,
				Site: Site{
					ProfileID: s.ProfileID,
					Attrs:     cloneAttrs(s.Attrs),
				},
			})
		}
	}
	return c, nil
}

// AttachDiagnostics joins diagnostic-feature rows to profiles. A row with an
// unknown profile key is a LinkError.
func (c *Collection) AttachDiagnostics(rows []Feature) error {
	return c.attachFeatures(rows, "diagnostics")
}

// AttachRestrictions joins restriction rows to profiles.
func (c *Collection) AttachRestrictions(rows []Feature) error {
	return c.attachFeatures(rows, "restrictions")
}

func (c *Collection) attachFeatures(rows []Feature, relation string) error {
	for _, row := range rows {
		idx, ok := c.index[row.ProfileID]
		if !ok {
			return &LinkError{Relation: relation, ProfileID: row.ProfileID}
		}
		p := c.profiles[idx]
		if relation == "diagnostics" {
			p.Diagnostics = append(p.Diagnostics, row)
		} else {
			p.Restrictions = append(p.Restrictions, row)
		}
	}
	return nil
}

// Len returns the number of profiles.
func (c *Collection) Len() int {
	return len(c.profiles)
}

// HorizonCount returns the total number of horizons across all profiles.
func (c *Collection) HorizonCount() int {
	n := 0
	for _, p := range c.profiles {
		n += len(p.Horizons)
	}
	return n
}

// Profile returns the i-th profile in collection order.
func (c *Collection) Profile(i int) *Profile {
	return c.profiles[i]
}

// ProfileByID returns the profile with the given key.
func (c *Collection) ProfileByID(id string) (*Profile, bool) {
	idx, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.profiles[idx], true
}

// IDs returns the profile keys in collection order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		ids[i] = p.ID
	}
	return ids
}

// MaxDepth returns the deepest resolved depth across all profiles.
func (c *Collection) MaxDepth() float64 {
	max := 0.0
	for _, p := range c.profiles {
		if d := p.MaxDepth(); d > max {
			max = d
		}
	}
	return max
}

// FromProfiles assembles a Collection from already-built profiles, preserving
// their order. Profile keys must be unique.
func FromProfiles(profiles []*Profile) (*Collection, error) {
	c := &Collection{
		profiles: make([]*Profile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}
	for _, p := range profiles {
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile key %s", p.ID)
		}
		c.index[p.ID] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}
	return c, nil
}

// SubsetByKeys returns a new Collection containing the named profiles, in the
// order the keys are given. Unknown keys are a LinkError.
func (c *Collection) SubsetByKeys(keys []string) (*Collection, error) {
	profiles := make([]*Profile, 0, len(keys))
	for _, key := range keys {
		idx, ok := c.index[key]
		if !ok {
			return nil, &LinkError{Relation: "subset", ProfileID: key}
		}
		profiles = append(profiles, c.profiles[idx].Clone())
	}
	return FromProfiles(profiles)
}

// SubsetByIndex returns a new Collection containing the profiles at the given
// positions, in the order given.
func (c *Collection) SubsetByIndex(indices []int) (*Collection, error) {
	profiles := make([]*Profile, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(c.profiles) {
			return nil, fmt.Errorf("profile index %d out of range [0,%d)", i, len(c.profiles))
		}
		profiles = append(profiles, c.profiles[i].Clone())
	}
	return FromProfiles(profiles)
}

// Filter returns a new Collection containing the profiles for which keep
// returns true, preserving collection order.
func (c *Collection) Filter(keep func(*Profile) bool) (*Collection, error) {
	var profiles []*Profile
	for _, p := range c.profiles {
		if keep(p) {
			profiles = append(profiles, p.Clone())
		}
	}
	return FromProfiles(profiles)
}

// PromoteToSite moves a horizon attribute that is constant within every
// profile up to the site relation, removing it from the horizons. A profile
// whose horizons disagree on the value fails the whole operation.
func (c *Collection) PromoteToSite(name string) (*Collection, error) {
	profiles := make([]*Profile, len(c.profiles))
	for i, p := range c.profiles {
		cp := p.Clone()
		var promoted Value
		seen := false
		for j := range cp.Horizons {
			v := cp.Horizons[j].Attr(name)
			if v.IsMissing() {
				continue
			}
			if seen && !promoted.Equal(v) {
				return nil, fmt.Errorf("profile %s: horizon attribute %s is not constant, cannot promote", p.ID, name)
			}
			promoted = v
			seen = true
		}
		if seen {
			cp.Site.Attrs[name] = promoted
		}
		for j := range cp.Horizons {
			delete(cp.Horizons[j].Attrs, name)
		}
		profiles[i] = cp
	}
	return FromProfiles(profiles)
}

// DemoteToHorizons replicates a site attribute onto every horizon of its
// profile, removing it from the site relation.
func (c *Collection) DemoteToHorizons(name string) (*Collection, error) {
	profiles := make([]*Profile, len(c.profiles))
	for i, p := range c.profiles {
		cp := p.Clone()
		v := cp.Site.Attr(name)
		if !v.IsMissing() {
			for j := range cp.Horizons {
				cp.Horizons[j].Attrs[name] = v
			}
		}
		delete(cp.Site.Attrs, name)
		profiles[i] = cp
	}
	return FromProfiles(profiles)
}
