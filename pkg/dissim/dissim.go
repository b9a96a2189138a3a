// Package dissim computes depth-weighted pairwise dissimilarity between
// profiles: a normalized-range (Gower-style) distance over selected horizon
// attributes, evaluated on an integer depth grid and weighted toward the
// surface.
package dissim

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/soildata/pedon/pkg/pedon"
	"github.com/soildata/pedon/pkg/slice"
)

// Config parameterizes a dissimilarity run.
type Config struct {
	// Vars are the horizon attributes compared.
	Vars []string
	// K is the depth-weighting exponent: depth d contributes with weight
	// 1/(d+1)^K. K = 0 weights all depths uniformly.
	K float64
	// MaxDepth bounds evaluation to the grid [0, MaxDepth).
	MaxDepth int
	// Workers bounds the pairwise fan-out; <= 0 uses GOMAXPROCS.
	Workers int
}

func (cfg *Config) validate() error {
	if len(cfg.Vars) == 0 {
		return fmt.Errorf("no variables given")
	}
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", cfg.MaxDepth)
	}
	if cfg.K < 0 || math.IsNaN(cfg.K) {
		return fmt.Errorf("depth-weighting exponent must be >= 0, got %g", cfg.K)
	}
	return nil
}

// grid is the sliced collection laid out as values[profile][depth][var].
type grid struct {
	values [][][]pedon.Value
	ranges []float64 // per-var normalization range; NaN for categorical vars
}

// Matrix computes the symmetric profile-by-profile distance matrix, ordered
// identically to the collection's profile order. Missing values at a depth
// are excluded from that depth's contribution for the pair, and each pair's
// total is normalized by the sum of depth weights actually used. Returns
// ErrEmptySelection when fewer than two profiles have any non-missing data
// within [0, MaxDepth).
func Matrix(c *pedon.Collection, cfg Config) (*mat.SymDense, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sliced, err := slice.Slice(c, slice.Grid(0, cfg.MaxDepth), cfg.Vars)
	if err != nil {
		return nil, fmt.Errorf("failed to slice collection: %w", err)
	}

	g, err := buildGrid(sliced, cfg.Vars)
	if err != nil {
		return nil, err
	}

	usable := 0
	for _, prof := range g.values {
		if hasData(prof) {
			usable++
		}
	}
	if usable < 2 {
		return nil, fmt.Errorf("%w: %d of %d profiles have data within [0,%d)",
			pedon.ErrEmptySelection, usable, c.Len(), cfg.MaxDepth)
	}

	weights := make([]float64, cfg.MaxDepth)
	for d := range weights {
		weights[d] = 1 / math.Pow(float64(d)+1, cfg.K)
	}

	n := c.Len()
	m := mat.NewSymDense(n, nil)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	// Row-partitioned fan-out: each task owns the cells (i, j>i) of one row,
	// so writes never collide.
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			for j := i + 1; j < n; j++ {
				m.SetSym(i, j, pairDistance(g, weights, i, j))
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func buildGrid(sliced *pedon.Collection, vars []string) (*grid, error) {
	g := &grid{
		values: make([][][]pedon.Value, sliced.Len()),
		ranges: make([]float64, len(vars)),
	}
	mins := make([]float64, len(vars))
	maxs := make([]float64, len(vars))
	numeric := make([]bool, len(vars))
	categorical := make([]bool, len(vars))
	for v := range vars {
		mins[v] = math.Inf(1)
		maxs[v] = math.Inf(-1)
	}

	for i := 0; i < sliced.Len(); i++ {
		p := sliced.Profile(i)
		prof := make([][]pedon.Value, len(p.Horizons))
		for d := range p.Horizons {
			row := make([]pedon.Value, len(vars))
			for v, name := range vars {
				val := p.Horizons[d].Attr(name)
				row[v] = val
				if num, ok := val.Float(); ok {
					numeric[v] = true
					if num < mins[v] {
						mins[v] = num
					}
					if num > maxs[v] {
						maxs[v] = num
					}
				} else if !val.IsMissing() {
					categorical[v] = true
				}
			}
			prof[d] = row
		}
		g.values[i] = prof
	}

	for v, name := range vars {
		if numeric[v] && categorical[v] {
			return nil, fmt.Errorf("variable %s mixes numeric and categorical values", name)
		}
		if numeric[v] {
			g.ranges[v] = maxs[v] - mins[v]
		} else {
			g.ranges[v] = math.NaN()
		}
	}
	return g, nil
}

func hasData(prof [][]pedon.Value) bool {
	for _, row := range prof {
		for _, v := range row {
			if !v.IsMissing() {
				return true
			}
		}
	}
	return false
}

// pairDistance sums weighted per-depth Gower distances for one profile pair,
// normalized by the weight actually used. NaN when the pair shares no
// evaluable depth.
func pairDistance(g *grid, weights []float64, i, j int) float64 {
	a, b := g.values[i], g.values[j]
	total := 0.0
	usedWeight := 0.0
	for d := range weights {
		dist, ok := depthDistance(g, a[d], b[d])
		if !ok {
			continue
		}
		total += weights[d] * dist
		usedWeight += weights[d]
	}
	if usedWeight == 0 {
		return math.NaN()
	}
	return total / usedWeight
}

func depthDistance(g *grid, a, b []pedon.Value) (float64, bool) {
	sum := 0.0
	used := 0
	for v := range a {
		av, bv := a[v], b[v]
		if av.IsMissing() || bv.IsMissing() {
			continue
		}
		if an, ok := av.Float(); ok {
			bn, _ := bv.Float()
			if r := g.ranges[v]; r > 0 {
				sum += math.Abs(an-bn) / r
			}
			used++
			continue
		}
		ac, _ := av.Category()
		bc, _ := bv.Category()
		if ac != bc {
			sum++
		}
		used++
	}
	if used == 0 {
		return 0, false
	}
	return sum / float64(used), true
}
