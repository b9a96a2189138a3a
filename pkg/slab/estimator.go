package slab

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimator turns the per-profile slab representatives of a group into named
// summary statistics. Weights are the per-profile within-slab covered depths.
// It is a plain value so callers can plug in their own.
type Estimator struct {
	// Names lists every statistic Estimate produces, in output order. Also
	// used to emit missing statistics for slabs with no contributing data.
	Names []string
	// Estimate computes the statistics. values and weights are parallel and
	// non-empty; weights are positive.
	Estimate func(values, weights []float64) map[string]float64
}

// hdMinSamples is the sample size below which the Harrell-Davis kernel
// degenerates and the plain weighted quantile is used instead.
const hdMinSamples = 5

var defaultProbs = []float64{0.05, 0.25, 0.50, 0.75, 0.95}

// DefaultQuantiles returns the default estimator: the 5th, 25th, 50th, 75th,
// and 95th percentiles via the Harrell-Davis weighted estimator, falling back
// to simple weighted quantiles for small samples.
func DefaultQuantiles() Estimator {
	return QuantileEstimator(defaultProbs...)
}

// QuantileEstimator returns an estimator producing the given quantiles.
func QuantileEstimator(probs ...float64) Estimator {
	names := make([]string, len(probs))
	for i, p := range probs {
		names[i] = quantileName(p)
	}
	return Estimator{
		Names: names,
		Estimate: func(values, weights []float64) map[string]float64 {
			v, w := sortByValue(values, weights)
			out := make(map[string]float64, len(probs))
			for i, p := range probs {
				if len(v) >= hdMinSamples {
					out[names[i]] = harrellDavis(v, w, p)
				} else {
					out[names[i]] = stat.Quantile(p, stat.Empirical, v, w)
				}
			}
			return out
		},
	}
}

// WeightedMean returns an estimator producing a single thickness-weighted
// mean statistic.
func WeightedMean() Estimator {
	return Estimator{
		Names: []string{"mean"},
		Estimate: func(values, weights []float64) map[string]float64 {
			return map[string]float64{"mean": stat.Mean(values, weights)}
		},
	}
}

func quantileName(p float64) string {
	return fmt.Sprintf("p%02d", int(p*100+0.5))
}

// sortByValue returns copies of values and weights jointly sorted by value
// ascending, as the rank-based estimators require.
func sortByValue(values, weights []float64) ([]float64, []float64) {
	type pair struct{ v, w float64 }
	pairs := make([]pair, len(values))
	for i := range values {
		pairs[i] = pair{values[i], weights[i]}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })
	v := make([]float64, len(pairs))
	w := make([]float64, len(pairs))
	for i, p := range pairs {
		v[i] = p.v
		w[i] = p.w
	}
	return v, w
}

// harrellDavis computes the p-quantile of the weighted sample by averaging
// order statistics under a Beta((n+1)p, (n+1)(1-p)) kernel. The kernel mass
// assigned to each order statistic is the Beta CDF increment over that
// statistic's share of the cumulative normalized weight, which reduces to the
// classic Harrell-Davis estimator for equal weights. values must be sorted
// ascending with weights aligned.
func harrellDavis(values, weights []float64, p float64) float64 {
	n := float64(len(values))
	beta := distuv.Beta{Alpha: (n + 1) * p, Beta: (n + 1) * (1 - p)}

	sumw := 0.0
	for _, w := range weights {
		sumw += w
	}

	q := 0.0
	prev := 0.0
	cum := 0.0
	for i, v := range values {
		cum += weights[i] / sumw
		if cum > 1 {
			cum = 1
		}
		q += (beta.CDF(cum) - beta.CDF(prev)) * v
		prev = cum
	}
	return q
}
