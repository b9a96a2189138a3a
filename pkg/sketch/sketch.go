// Package sketch lays out profile positions for plotting: it nudges desired
// horizontal positions apart until adjacent profiles no longer overlap,
// deviating from the desired positions as little as the search finds.
package sketch

import (
	"math"
	"math/rand"
)

// Config parameterizes the overlap search.
type Config struct {
	// Threshold is the minimum separation between adjacent positions.
	Threshold float64
	// MaxIter bounds the perturbation budget; <= 0 uses 1000.
	MaxIter int
	// Rand supplies the perturbations. Nil uses the global source; pass a
	// seeded *rand.Rand for reproducible layouts.
	Rand *rand.Rand
	// DeviationWeight scales the deviation-from-desired term of the cost
	// against the overlap term; <= 0 uses 1.
	DeviationWeight float64
}

const defaultMaxIter = 1000

// ResolveOverlap returns an adjusted copy of positions in which no two
// adjacent positions are closer than cfg.Threshold, found by stochastic local
// search: repeatedly perturb one member of the currently-closest adjacent
// pair, keeping perturbations that lower a cost combining residual overlap
// and total deviation from the desired positions. The search is a heuristic
// and may settle on a locally optimal arrangement; it stops early as soon as
// no overlap remains.
func ResolveOverlap(positions []float64, cfg Config) []float64 {
	adjusted := append([]float64(nil), positions...)
	if len(positions) < 2 || cfg.Threshold <= 0 {
		return adjusted
	}
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	devWeight := cfg.DeviationWeight
	if devWeight <= 0 {
		devWeight = 1
	}
	randFloat := rand.Float64
	randInt := rand.Intn
	if cfg.Rand != nil {
		randFloat = cfg.Rand.Float64
		randInt = cfg.Rand.Intn
	}

	cost := layoutCost(positions, adjusted, cfg.Threshold, devWeight)
	for iter := 0; iter < maxIter; iter++ {
		left, gap := closestPair(adjusted)
		if gap >= cfg.Threshold {
			break
		}

		// Perturb one side of the tightest pair by a small random offset.
		target := left + randInt(2)
		delta := (randFloat()*2 - 1) * cfg.Threshold
		old := adjusted[target]
		adjusted[target] += delta

		if next := layoutCost(positions, adjusted, cfg.Threshold, devWeight); next < cost {
			cost = next
		} else {
			adjusted[target] = old
		}
	}
	return adjusted
}

// closestPair returns the left index and gap of the closest adjacent pair.
func closestPair(positions []float64) (int, float64) {
	best := 0
	bestGap := math.Abs(positions[1] - positions[0])
	for i := 1; i+1 < len(positions); i++ {
		if gap := math.Abs(positions[i+1] - positions[i]); gap < bestGap {
			best = i
			bestGap = gap
		}
	}
	return best, bestGap
}

// layoutCost combines total overlap beneath the threshold with total
// deviation from the desired positions. Overlap dominates so separation is
// resolved before deviation is minimized.
func layoutCost(desired, adjusted []float64, threshold, devWeight float64) float64 {
	overlap := 0.0
	for i := 0; i+1 < len(adjusted); i++ {
		gap := math.Abs(adjusted[i+1] - adjusted[i])
		if gap < threshold {
			overlap += threshold - gap
		}
	}
	deviation := 0.0
	for i := range adjusted {
		deviation += math.Abs(adjusted[i] - desired[i])
	}
	return overlap*10 + deviation*devWeight
}
