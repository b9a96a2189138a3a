package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements Provider for YAML configuration files
type YAMLProvider struct {
	filename string
	analysis *Analysis
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadAnalysis reads, decodes, and validates the analysis configuration
func (y *YAMLProvider) LoadAnalysis() (*Analysis, error) {
	if y.analysis != nil {
		return y.analysis, nil
	}

	data, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	analysis := &Analysis{}
	if err := yaml.Unmarshal(data, analysis); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}

	y.analysis = analysis
	return analysis, nil
}

// IsReadOnly returns true; YAML files are not written by this module
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML files
func (y *YAMLProvider) Close() error {
	return nil
}
