// Package slab aggregates horizon data onto regular or irregular depth slabs
// (change of support), producing long-format summary records per group, slab,
// variable, and statistic.
package slab

import (
	"fmt"
	"math"
	"sort"

	"github.com/soildata/pedon/pkg/pedon"
)

// TieBreak selects the winning horizon when two horizons tie on within-slab
// overlap for a categorical variable.
type TieBreak int

const (
	// TieBreakShallowest prefers the shallower horizon.
	TieBreakShallowest TieBreak = iota
	// TieBreakDeepest prefers the deeper horizon.
	TieBreakDeepest
)

// Spec defines the slab layout: a collection-wide regular thickness, a single
// (top, bottom) slab, or an explicit ascending boundary sequence.
type Spec struct {
	thickness float64
	bounds    []float64
}

// Regular returns a spec cutting the collection depth extent into slabs of
// the given thickness.
func Regular(thickness float64) Spec {
	return Spec{thickness: thickness}
}

// Single returns a spec with one slab spanning [top, bottom).
func Single(top, bottom float64) Spec {
	return Spec{bounds: []float64{top, bottom}}
}

// Boundaries returns a spec with explicit slab boundaries b0 < b1 < ... ;
// slabs are [b0,b1), [b1,b2), and so on. Non-uniform widths are legal.
func Boundaries(bounds []float64) Spec {
	return Spec{bounds: append([]float64(nil), bounds...)}
}

// resolve expands the spec into a boundary sequence covering maxDepth.
func (s Spec) resolve(maxDepth float64) ([]float64, error) {
	if s.bounds != nil {
		if len(s.bounds) < 2 {
			return nil, fmt.Errorf("slab boundary sequence needs at least 2 values, got %d", len(s.bounds))
		}
		for i := 1; i < len(s.bounds); i++ {
			if s.bounds[i] <= s.bounds[i-1] {
				return nil, fmt.Errorf("slab boundaries must be strictly increasing, got %g after %g", s.bounds[i], s.bounds[i-1])
			}
		}
		return s.bounds, nil
	}
	if s.thickness <= 0 {
		return nil, fmt.Errorf("slab thickness must be positive, got %g", s.thickness)
	}
	var bounds []float64
	for b := 0.0; b < maxDepth; b += s.thickness {
		bounds = append(bounds, b)
	}
	if len(bounds) == 0 {
		bounds = append(bounds, 0)
	}
	bounds = append(bounds, bounds[len(bounds)-1]+s.thickness)
	return bounds, nil
}

// Config enumerates an aggregation run: target variables (ordered), optional
// grouping site attribute, slab layout, categorical tie-break, and the
// statistic estimator (DefaultQuantiles when nil).
type Config struct {
	Vars      []string
	GroupBy   string
	Spec      Spec
	TieBreak  TieBreak
	Estimator *Estimator
}

func (cfg *Config) validate() error {
	if len(cfg.Vars) == 0 {
		return fmt.Errorf("no variables given")
	}
	seen := make(map[string]struct{}, len(cfg.Vars))
	for _, v := range cfg.Vars {
		if v == "" {
			return fmt.Errorf("empty variable name")
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate variable %s", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Summary is one long-format output record. Value is missing when the slab,
// group, and variable had no contributing depth (ContributingFraction 0).
type Summary struct {
	Group                string      `json:"group" msgpack:"group"`
	Variable             string      `json:"variable" msgpack:"variable"`
	Top                  float64     `json:"slab_top" msgpack:"slab_top"`
	Bottom               float64     `json:"slab_bottom" msgpack:"slab_bottom"`
	Statistic            string      `json:"statistic" msgpack:"statistic"`
	Value                pedon.Value `json:"value" msgpack:"value"`
	ContributingFraction float64     `json:"contributing_fraction" msgpack:"contributing_fraction"`
}

// contribution is one profile's representative for a slab and variable.
type contribution struct {
	value   pedon.Value
	covered float64 // within-slab depth backed by non-missing data
}

// Aggregate computes slab-wise summaries over the collection. For every
// group x slab x variable: each profile contributes a representative (the
// thickness-weighted mean for continuous variables; the majority-overlap
// value for categorical ones), and the pluggable estimator summarizes the
// representatives across the group's profiles, weighted by each profile's
// covered depth. contributing_fraction reports real-data coverage in [0, 1].
func Aggregate(c *pedon.Collection, cfg Config) ([]Summary, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	est := cfg.Estimator
	if est == nil {
		def := DefaultQuantiles()
		est = &def
	}

	bounds, err := cfg.Spec.resolve(c.MaxDepth())
	if err != nil {
		return nil, err
	}

	groups, order, err := groupProfiles(c, cfg.GroupBy)
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, group := range order {
		members := groups[group]
		for si := 0; si+1 < len(bounds); si++ {
			top, bottom := bounds[si], bounds[si+1]
			for _, name := range cfg.Vars {
				recs, err := summarizeSlab(members, name, top, bottom, cfg.TieBreak, est)
				if err != nil {
					return nil, err
				}
				for i := range recs {
					recs[i].Group = group
					recs[i].Variable = name
					recs[i].Top = top
					recs[i].Bottom = bottom
				}
				out = append(out, recs...)
			}
		}
	}
	return out, nil
}

// groupProfiles partitions profiles by the grouping site attribute, keeping
// first-appearance order. An empty groupBy yields one unnamed group.
func groupProfiles(c *pedon.Collection, groupBy string) (map[string][]*pedon.Profile, []string, error) {
	groups := make(map[string][]*pedon.Profile)
	var order []string
	for i := 0; i < c.Len(); i++ {
		p := c.Profile(i)
		group := ""
		if groupBy != "" {
			v := p.Site.Attr(groupBy)
			if v.IsMissing() {
				return nil, nil, fmt.Errorf("profile %s: missing grouping attribute %s", p.ID, groupBy)
			}
			group = v.String()
		}
		if _, ok := groups[group]; !ok {
			order = append(order, group)
		}
		groups[group] = append(groups[group], p)
	}
	return groups, order, nil
}

func summarizeSlab(members []*pedon.Profile, name string, top, bottom float64, tb TieBreak, est *Estimator) ([]Summary, error) {
	var contribs []contribution
	categorical := false
	numeric := false
	for _, p := range members {
		contrib, isCat, err := profileContribution(p, name, top, bottom, tb)
		if err != nil {
			return nil, err
		}
		if contrib.covered > 0 {
			if isCat {
				categorical = true
			} else {
				numeric = true
			}
			contribs = append(contribs, contrib)
		}
	}
	// Kind conflicts are also rejected across profiles, not just within one.
	if numeric && categorical {
		return nil, fmt.Errorf("variable %s mixes numeric and categorical values", name)
	}

	thickness := bottom - top
	totalCovered := 0.0
	for _, ct := range contribs {
		totalCovered += ct.covered
	}
	fraction := 0.0
	if len(members) > 0 {
		fraction = totalCovered / (thickness * float64(len(members)))
	}
	if fraction > 1 {
		fraction = 1
	}

	if len(contribs) == 0 {
		// No contributing depth anywhere in the group: the statistic is
		// emitted as missing, not as an error.
		names := est.Names
		if categorical {
			names = []string{"prop"}
		}
		out := make([]Summary, 0, len(names))
		for _, stat := range names {
			out = append(out, Summary{Statistic: stat, Value: pedon.Missing(), ContributingFraction: 0})
		}
		return out, nil
	}

	if categorical {
		return categoricalSummaries(contribs, totalCovered, fraction), nil
	}

	values := make([]float64, len(contribs))
	weights := make([]float64, len(contribs))
	for i, ct := range contribs {
		values[i], _ = ct.value.Float()
		weights[i] = ct.covered
	}
	stats := est.Estimate(values, weights)
	out := make([]Summary, 0, len(est.Names))
	for _, statName := range est.Names {
		out = append(out, Summary{
			Statistic:            statName,
			Value:                pedon.Num(stats[statName]),
			ContributingFraction: fraction,
		})
	}
	return out, nil
}

// categoricalSummaries emits one coverage-weighted proportion per observed
// category, sorted by category name.
func categoricalSummaries(contribs []contribution, totalCovered, fraction float64) []Summary {
	byCat := make(map[string]float64)
	for _, ct := range contribs {
		cat, _ := ct.value.Category()
		byCat[cat] += ct.covered
	}
	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	out := make([]Summary, 0, len(cats))
	for _, cat := range cats {
		out = append(out, Summary{
			Statistic:            "prop:" + cat,
			Value:                pedon.Num(byCat[cat] / totalCovered),
			ContributingFraction: fraction,
		})
	}
	return out
}

// profileContribution computes one profile's slab representative for one
// variable, along with its covered depth. The second return reports whether
// the variable carried categorical values in this profile.
func profileContribution(p *pedon.Profile, name string, top, bottom float64, tb TieBreak) (contribution, bool, error) {
	sum := 0.0
	weight := 0.0
	covered := 0.0
	var bestCat string
	var bestCatTop float64
	bestCatOverlap := -1.0
	sawNumeric, sawCategorical := false, false

	for i := range p.Horizons {
		h := &p.Horizons[i]
		if !h.HasBottom() {
			continue
		}
		ov := overlapLength(h.Top, h.Bottom, top, bottom)
		if ov <= 0 {
			continue
		}
		v := h.Attr(name)
		if v.IsMissing() {
			continue
		}
		covered += ov
		if num, ok := v.Float(); ok {
			sawNumeric = true
			sum += num * ov
			weight += ov
			continue
		}
		cat, _ := v.Category()
		sawCategorical = true
		// Majority-overlap rule over horizons; on an exact tie the
		// configured tie-break decides.
		better := ov > bestCatOverlap
		if ov == bestCatOverlap {
			if tb == TieBreakShallowest {
				better = h.Top < bestCatTop
			} else {
				better = h.Top > bestCatTop
			}
		}
		if better {
			bestCat = cat
			bestCatTop = h.Top
			bestCatOverlap = ov
		}
	}

	if sawNumeric && sawCategorical {
		return contribution{}, false, fmt.Errorf("profile %s: variable %s mixes numeric and categorical values", p.ID, name)
	}
	if covered == 0 {
		return contribution{value: pedon.Missing()}, sawCategorical, nil
	}
	if sawCategorical {
		return contribution{value: pedon.Cat(bestCat), covered: covered}, true, nil
	}
	return contribution{value: pedon.Num(sum / weight), covered: covered}, false, nil
}

func overlapLength(hTop, hBottom, sTop, sBottom float64) float64 {
	lo := math.Max(hTop, sTop)
	hi := math.Min(hBottom, sBottom)
	return hi - lo
}
