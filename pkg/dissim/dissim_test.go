package dissim

import (
	"errors"
	"math"
	"testing"

	"github.com/soildata/pedon/pkg/pedon"
)

func buildPair(t *testing.T, aClay, bClay [2]float64) *pedon.Collection {
	t.Helper()
	c, err := pedon.Build(
		[]pedon.HorizonRecord{
			{ProfileID: "A", Top: 0, Bottom: 10, Attrs: map[string]pedon.Value{"clay": pedon.Num(aClay[0])}},
			{ProfileID: "A", Top: 10, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(aClay[1])}},
			{ProfileID: "B", Top: 0, Bottom: 10, Attrs: map[string]pedon.Value{"clay": pedon.Num(bClay[0])}},
			{ProfileID: "B", Top: 10, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(bClay[1])}},
		},
		[]pedon.SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return c
}

func TestIdenticalProfilesZeroDistance(t *testing.T) {
	c := buildPair(t, [2]float64{20, 30}, [2]float64{20, 30})

	m, err := Matrix(c, Config{Vars: []string{"clay"}, K: 0, MaxDepth: 20})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	if got := m.At(0, 1); got != 0 {
		t.Errorf("identical profiles must have distance 0, got %g", got)
	}
}

func TestMatrixSymmetricZeroDiagonal(t *testing.T) {
	c, err := pedon.Build(
		[]pedon.HorizonRecord{
			{ProfileID: "A", Top: 0, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(10), "sand": pedon.Num(60)}},
			{ProfileID: "B", Top: 0, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(40), "sand": pedon.Num(30)}},
			{ProfileID: "C", Top: 0, Bottom: 15, Attrs: map[string]pedon.Value{"clay": pedon.Num(25), "sand": pedon.Num(45)}},
		},
		[]pedon.SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}, {ProfileID: "C"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	m, err := Matrix(c, Config{Vars: []string{"clay", "sand"}, K: 0.5, MaxDepth: 20, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	n := m.SymmetricDim()
	if n != 3 {
		t.Fatalf("expected 3x3 matrix, got %d", n)
	}
	for i := 0; i < n; i++ {
		if m.At(i, i) != 0 {
			t.Errorf("diagonal (%d,%d) must be 0, got %g", i, i, m.At(i, i))
		}
		for j := 0; j < n; j++ {
			if m.At(i, j) != m.At(j, i) {
				t.Errorf("matrix not symmetric at (%d,%d)", i, j)
			}
		}
	}
	if m.At(0, 1) <= 0 {
		t.Error("distinct profiles should have positive distance")
	}
}

func TestDepthWeighting(t *testing.T) {
	// A and B agree in the upper half and differ in the lower half, so
	// surface-weighting (k > 0) must shrink the distance.
	c := buildPair(t, [2]float64{20, 60}, [2]float64{20, 10})

	uniform, err := Matrix(c, Config{Vars: []string{"clay"}, K: 0, MaxDepth: 20})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	weighted, err := Matrix(c, Config{Vars: []string{"clay"}, K: 2, MaxDepth: 20})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	if weighted.At(0, 1) >= uniform.At(0, 1) {
		t.Errorf("surface weighting should reduce a deep disagreement: k=2 %g vs k=0 %g",
			weighted.At(0, 1), uniform.At(0, 1))
	}
}

func TestMissingDepthsExcluded(t *testing.T) {
	// B only extends to 10; depths 10..19 are missing for B and must be
	// excluded rather than counted as disagreement.
	c, err := pedon.Build(
		[]pedon.HorizonRecord{
			{ProfileID: "A", Top: 0, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(20)}},
			{ProfileID: "B", Top: 0, Bottom: 10, Attrs: map[string]pedon.Value{"clay": pedon.Num(20)}},
		},
		[]pedon.SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	m, err := Matrix(c, Config{Vars: []string{"clay"}, K: 0, MaxDepth: 20})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	if got := m.At(0, 1); got != 0 {
		t.Errorf("profiles identical over their shared depths should be 0 apart, got %g", got)
	}
}

func TestCategoricalVariables(t *testing.T) {
	c, err := pedon.Build(
		[]pedon.HorizonRecord{
			{ProfileID: "A", Top: 0, Bottom: 10, Attrs: map[string]pedon.Value{"texture": pedon.Cat("loam")}},
			{ProfileID: "B", Top: 0, Bottom: 10, Attrs: map[string]pedon.Value{"texture": pedon.Cat("sand")}},
		},
		[]pedon.SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	m, err := Matrix(c, Config{Vars: []string{"texture"}, K: 0, MaxDepth: 10})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	if got := m.At(0, 1); got != 1 {
		t.Errorf("fully disagreeing categorical profiles should be 1 apart, got %g", got)
	}
}

func TestTooFewUsableProfiles(t *testing.T) {
	c, err := pedon.Build(
		[]pedon.HorizonRecord{
			{ProfileID: "A", Top: 0, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(20)}},
			{ProfileID: "B", Top: 50, Bottom: 80, Attrs: map[string]pedon.Value{"clay": pedon.Num(30)}},
		},
		[]pedon.SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	// B has no data within [0,20): only one usable profile.
	_, err = Matrix(c, Config{Vars: []string{"clay"}, K: 0, MaxDepth: 20})
	if !errors.Is(err, pedon.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestPairWithoutSharedDepthsIsNaN(t *testing.T) {
	c, err := pedon.Build(
		[]pedon.HorizonRecord{
			{ProfileID: "A", Top: 0, Bottom: 10, Attrs: map[string]pedon.Value{"clay": pedon.Num(20)}},
			{ProfileID: "B", Top: 12, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(30)}},
			{ProfileID: "C", Top: 0, Bottom: 20, Attrs: map[string]pedon.Value{"clay": pedon.Num(25)}},
		},
		[]pedon.SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}, {ProfileID: "C"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	m, err := Matrix(c, Config{Vars: []string{"clay"}, K: 0, MaxDepth: 20})
	if err != nil {
		t.Fatalf("unexpected matrix error: %v", err)
	}
	if !math.IsNaN(m.At(0, 1)) {
		t.Errorf("A and B share no evaluated depth; expected NaN, got %g", m.At(0, 1))
	}
	if math.IsNaN(m.At(0, 2)) || math.IsNaN(m.At(1, 2)) {
		t.Error("pairs sharing depths with C should be finite")
	}
}

func TestConfigValidation(t *testing.T) {
	c := buildPair(t, [2]float64{20, 30}, [2]float64{20, 30})
	if _, err := Matrix(c, Config{Vars: nil, MaxDepth: 20}); err == nil {
		t.Error("expected error for empty variable set")
	}
	if _, err := Matrix(c, Config{Vars: []string{"clay"}, MaxDepth: 0}); err == nil {
		t.Error("expected error for non-positive max depth")
	}
	if _, err := Matrix(c, Config{Vars: []string{"clay"}, K: -1, MaxDepth: 20}); err == nil {
		t.Error("expected error for negative k")
	}
}
