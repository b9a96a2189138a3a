package slab

import (
	"math"
	"testing"
)

func TestQuantileEstimatorLargeSample(t *testing.T) {
	// 10 equally-weighted values: the Harrell-Davis path.
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	weights := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	est := DefaultQuantiles()
	got := est.Estimate(values, weights)

	if len(got) != 5 {
		t.Fatalf("expected 5 statistics, got %d", len(got))
	}
	if math.Abs(got["p50"]-5.5) > 0.5 {
		t.Errorf("median of 1..10 should be near 5.5, got %g", got["p50"])
	}
	// Quantiles must be monotone in p.
	order := []string{"p05", "p25", "p50", "p75", "p95"}
	for i := 1; i < len(order); i++ {
		if got[order[i]] < got[order[i-1]] {
			t.Errorf("%s (%g) < %s (%g): quantiles not monotone",
				order[i], got[order[i]], order[i-1], got[order[i-1]])
		}
	}
	if got["p05"] < 1 || got["p95"] > 10 {
		t.Errorf("quantiles escaped the sample range: p05=%g p95=%g", got["p05"], got["p95"])
	}
}

func TestQuantileEstimatorSmallSampleFallback(t *testing.T) {
	// Below the Harrell-Davis threshold: plain weighted empirical quantiles.
	values := []float64{3, 1, 2}
	weights := []float64{1, 1, 1}

	est := QuantileEstimator(0.5)
	got := est.Estimate(values, weights)
	if got["p50"] != 2 {
		t.Errorf("expected empirical median 2, got %g", got["p50"])
	}
}

func TestQuantileEstimatorUnsortedInput(t *testing.T) {
	// Estimate must sort internally.
	values := []float64{9, 1, 5, 3, 7, 2, 8, 4, 6, 10}
	weights := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	est := QuantileEstimator(0.5)
	got := est.Estimate(values, weights)
	if math.Abs(got["p50"]-5.5) > 0.5 {
		t.Errorf("median of shuffled 1..10 should be near 5.5, got %g", got["p50"])
	}
}

func TestQuantileEstimatorWeighting(t *testing.T) {
	// Nearly all weight on the larger value pulls the median toward it.
	values := []float64{1, 2, 3, 4, 100}
	weights := []float64{0.01, 0.01, 0.01, 0.01, 10}

	est := QuantileEstimator(0.5)
	got := est.Estimate(values, weights)
	if got["p50"] < 50 {
		t.Errorf("heavily weighted value should dominate the median, got %g", got["p50"])
	}
}

func TestWeightedMeanEstimator(t *testing.T) {
	est := WeightedMean()
	got := est.Estimate([]float64{10, 20}, []float64{3, 1})
	want := (10.0*3 + 20.0*1) / 4
	if math.Abs(got["mean"]-want) > 1e-9 {
		t.Errorf("expected weighted mean %g, got %g", want, got["mean"])
	}
	if len(est.Names) != 1 || est.Names[0] != "mean" {
		t.Errorf("unexpected statistic names %v", est.Names)
	}
}

func TestHarrellDavisConstantSample(t *testing.T) {
	values := []float64{7, 7, 7, 7, 7}
	weights := []float64{1, 2, 3, 4, 5}
	if got := harrellDavis(values, weights, 0.5); math.Abs(got-7) > 1e-9 {
		t.Errorf("quantile of a constant sample must be the constant, got %g", got)
	}
}

func TestQuantileNames(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.05, "p05"},
		{0.25, "p25"},
		{0.50, "p50"},
		{0.95, "p95"},
	}
	for _, tt := range tests {
		if got := quantileName(tt.p); got != tt.want {
			t.Errorf("quantileName(%g): expected %s, got %s", tt.p, tt.want, got)
		}
	}
}
