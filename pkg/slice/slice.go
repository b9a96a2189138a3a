// Package slice re-samples profile collections onto regular integer depth
// grids and clips single profiles to depth windows (glom/truncate).
package slice

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/soildata/pedon/pkg/pedon"
)

// profileIndex holds one profile's horizons in ascending top order so the
// covering-horizon lookup is O(log h) per grid depth.
type profileIndex struct {
	horizons []pedon.Horizon // sorted by top
	maxDepth float64
}

func indexProfile(p *pedon.Profile) *profileIndex {
	hs := make([]pedon.Horizon, len(p.Horizons))
	copy(hs, p.Horizons)
	sort.SliceStable(hs, func(a, b int) bool { return hs[a].Top < hs[b].Top })
	return &profileIndex{horizons: hs, maxDepth: p.MaxDepth()}
}

// covering returns the horizon whose span covers depth d, or nil. Spans are
// half-open [top, bottom) except at the profile's true base, where the bound
// is closed. A horizon with an unresolved bottom covers only its own top.
func (ix *profileIndex) covering(d float64) *pedon.Horizon {
	n := len(ix.horizons)
	i := sort.Search(n, func(j int) bool { return ix.horizons[j].Top > d })
	if i == 0 {
		return nil
	}
	h := &ix.horizons[i-1]
	if !h.HasBottom() {
		if h.Top == d {
			return h
		}
		return nil
	}
	if d < h.Bottom || (d == h.Bottom && h.Bottom == ix.maxDepth) {
		return h
	}
	return nil
}

// Slice re-samples every profile at the given ascending integer depths,
// carrying the named horizon attributes (nil means all attributes present in
// the collection). Each output horizon is one depth unit thick and copies the
// covering horizon's values verbatim; depths no horizon covers still emit a
// horizon with every requested attribute missing, so each profile's slice is
// a depth-complete rectangle.
func Slice(c *pedon.Collection, depths []int, vars []string) (*pedon.Collection, error) {
	if len(depths) == 0 {
		return nil, fmt.Errorf("no slice depths given")
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] <= depths[i-1] {
			return nil, fmt.Errorf("slice depths must be strictly ascending, got %d after %d", depths[i], depths[i-1])
		}
	}
	if vars == nil {
		vars = collectionAttrNames(c)
	}

	profiles := make([]*pedon.Profile, c.Len())
	for i := 0; i < c.Len(); i++ {
		p := c.Profile(i)
		ix := indexProfile(p)
		sliced := &pedon.Profile{
			ID: p.ID,
			Site: pedon.Site{
				ProfileID: p.Site.ProfileID,
				Attrs:     copyAttrs(p.Site.Attrs),
			},
			Diagnostics:  append([]pedon.Feature(nil), p.Diagnostics...),
			Restrictions: append([]pedon.Feature(nil), p.Restrictions...),
		}
		for _, d := range depths {
			src := ix.covering(float64(d))
			attrs := make(map[string]pedon.Value, len(vars))
			for _, name := range vars {
				if src != nil {
					attrs[name] = src.Attr(name)
				} else {
					attrs[name] = pedon.Missing()
				}
			}
			sliced.Horizons = append(sliced.Horizons, pedon.Horizon{
				ID:        uuid.New().String(),
				ProfileID: p.ID,
				Top:       float64(d),
				Bottom:    float64(d) + 1,
				Attrs:     attrs,
			})
		}
		profiles[i] = sliced
	}
	return pedon.FromProfiles(profiles)
}

// Grid returns the integer depths [from, to), a convenience for Slice and the
// dissimilarity engine.
func Grid(from, to int) []int {
	if to <= from {
		return nil
	}
	out := make([]int, 0, to-from)
	for d := from; d < to; d++ {
		out = append(out, d)
	}
	return out
}

func collectionAttrNames(c *pedon.Collection) []string {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		for _, name := range c.Profile(i).HorizonAttrNames() {
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

func copyAttrs(attrs map[string]pedon.Value) map[string]pedon.Value {
	out := make(map[string]pedon.Value, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// DepthWindow is a closed depth interval used by glom and dissimilarity.
type DepthWindow struct {
	Top    float64
	Bottom float64
}

func (w DepthWindow) validate() error {
	if math.IsNaN(w.Top) || math.IsNaN(w.Bottom) || math.IsInf(w.Top, 0) || math.IsInf(w.Bottom, 0) {
		return fmt.Errorf("depth window bounds must be finite")
	}
	if w.Top > w.Bottom {
		return fmt.Errorf("depth window top %g exceeds bottom %g", w.Top, w.Bottom)
	}
	return nil
}

// Glom returns a copy of the profile clipped to the window [w.Top, w.Bottom):
// every horizon overlapping the window is kept in order, with the first and
// last clipped to the window bounds. A window past the profile's base is not
// extrapolated; the result's final bottom is the profile's true base. A
// result with zero horizons is a valid state, not an error.
func Glom(p *pedon.Profile, w DepthWindow) (*pedon.Profile, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	out := &pedon.Profile{
		ID: p.ID,
		Site: pedon.Site{
			ProfileID: p.Site.ProfileID,
			Attrs:     copyAttrs(p.Site.Attrs),
		},
		Diagnostics:  append([]pedon.Feature(nil), p.Diagnostics...),
		Restrictions: append([]pedon.Feature(nil), p.Restrictions...),
	}
	ix := indexProfile(p)
	for i := range ix.horizons {
		h := ix.horizons[i]
		if !overlapsWindow(&h, w) {
			continue
		}
		if h.Top < w.Top {
			h.Top = w.Top
		}
		if h.HasBottom() && h.Bottom > w.Bottom {
			h.Bottom = w.Bottom
		}
		h.Attrs = copyAttrs(h.Attrs)
		out.Horizons = append(out.Horizons, h)
	}
	return out, nil
}

func overlapsWindow(h *pedon.Horizon, w DepthWindow) bool {
	if !h.HasBottom() {
		// An unresolved lower boundary contributes only when its top lies
		// inside the window.
		return h.Top >= w.Top && h.Top < w.Bottom
	}
	return h.Top < w.Bottom && h.Bottom > w.Top
}

// Truncate clips a profile to [0, bottom): the ragged selection special case
// with the window anchored at the surface.
func Truncate(p *pedon.Profile, bottom float64) (*pedon.Profile, error) {
	return Glom(p, DepthWindow{Top: 0, Bottom: bottom})
}
