// Package config loads analysis-run configuration from YAML files or SQLite
// databases behind a common provider interface.
package config

import "fmt"

// Provider defines the interface for configuration data sources
type Provider interface {
	// LoadAnalysis loads the complete analysis configuration
	LoadAnalysis() (*Analysis, error)

	// IsReadOnly reports whether the source supports writes
	IsReadOnly() bool
	Close() error
}

// Analysis enumerates one analysis run: target variables, optional grouping,
// slab/window parameters, dissimilarity parameters, and output options. It
// replaces free-form per-call expressions with an explicit structure
// validated at load time.
type Analysis struct {
	// Variables are the horizon attributes the run operates on, in order.
	Variables []string `yaml:"variables" json:"variables"`

	// GroupBy is an optional site attribute for slab grouping.
	GroupBy string `yaml:"group_by,omitempty" json:"group_by,omitempty"`

	// SlabThickness requests regular slabs of this thickness. Mutually
	// exclusive with SlabBoundaries.
	SlabThickness float64 `yaml:"slab_thickness,omitempty" json:"slab_thickness,omitempty"`

	// SlabBoundaries requests irregular slabs between explicit ascending
	// boundaries.
	SlabBoundaries []float64 `yaml:"slab_boundaries,omitempty" json:"slab_boundaries,omitempty"`

	// Window bounds ragged selection.
	Window *Window `yaml:"window,omitempty" json:"window,omitempty"`

	// Dissimilarity holds the depth-weighting parameters.
	Dissimilarity *Dissimilarity `yaml:"dissimilarity,omitempty" json:"dissimilarity,omitempty"`

	// Estimator selects the slab statistic: "quantiles" (default) or "mean".
	Estimator string `yaml:"estimator,omitempty" json:"estimator,omitempty"`

	// TieBreak selects the categorical majority-overlap tie-break:
	// "shallowest" (default) or "deepest".
	TieBreak string `yaml:"tie_break,omitempty" json:"tie_break,omitempty"`

	// Export selects the output encoding: "json" (default) or "msgpack".
	Export string `yaml:"export,omitempty" json:"export,omitempty"`

	// Workers bounds parallel per-profile execution; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// Window is a depth window in configuration form.
type Window struct {
	Top    float64 `yaml:"top" json:"top"`
	Bottom float64 `yaml:"bottom" json:"bottom"`
}

// Dissimilarity holds the depth-weighted distance parameters.
type Dissimilarity struct {
	K        float64 `yaml:"k" json:"k"`
	MaxDepth int     `yaml:"max_depth" json:"max_depth"`
}

// Validate checks the analysis configuration for internal consistency.
func (a *Analysis) Validate() error {
	if len(a.Variables) == 0 {
		return fmt.Errorf("analysis has no variables")
	}
	if a.SlabThickness != 0 && len(a.SlabBoundaries) > 0 {
		return fmt.Errorf("slab_thickness and slab_boundaries are mutually exclusive")
	}
	if a.SlabThickness < 0 {
		return fmt.Errorf("slab_thickness must be positive, got %g", a.SlabThickness)
	}
	for i := 1; i < len(a.SlabBoundaries); i++ {
		if a.SlabBoundaries[i] <= a.SlabBoundaries[i-1] {
			return fmt.Errorf("slab_boundaries must be strictly increasing")
		}
	}
	if a.Window != nil && a.Window.Top > a.Window.Bottom {
		return fmt.Errorf("window top %g exceeds bottom %g", a.Window.Top, a.Window.Bottom)
	}
	if a.Dissimilarity != nil {
		if a.Dissimilarity.K < 0 {
			return fmt.Errorf("dissimilarity k must be >= 0, got %g", a.Dissimilarity.K)
		}
		if a.Dissimilarity.MaxDepth <= 0 {
			return fmt.Errorf("dissimilarity max_depth must be positive, got %d", a.Dissimilarity.MaxDepth)
		}
	}
	switch a.Estimator {
	case "", "quantiles", "mean":
	default:
		return fmt.Errorf("unknown estimator %q", a.Estimator)
	}
	switch a.TieBreak {
	case "", "shallowest", "deepest":
	default:
		return fmt.Errorf("unknown tie_break %q", a.TieBreak)
	}
	switch a.Export {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("unknown export format %q", a.Export)
	}
	if a.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", a.Workers)
	}
	return nil
}
