package config

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"fairhire/internal/fairness"

	"gopkg.in/yaml.v3"
)

// profileDocument is the nested form of a threshold profile. A file may also
// list the thresholds at the top level.
type profileDocument struct {
	Name       string               `yaml:"name"`
	Thresholds *fairness.Thresholds `yaml:"thresholds"`
}

// LoadThresholdProfile overlays a YAML profile on base and validates the result.
// Keys missing from the file keep their value from base.
func LoadThresholdProfile(path string, base fairness.Thresholds) (fairness.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read threshold profile %s: %w", path, err)
	}
	return ParseThresholdProfile(data, base)
}

// ParseThresholdProfile is LoadThresholdProfile over in-memory YAML
func ParseThresholdProfile(data []byte, base fairness.Thresholds) (fairness.Thresholds, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return base, nil
	}

	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return base, fmt.Errorf("invalid threshold profile: %w", err)
	}

	merged := base
	var target any = &merged
	if _, nested := probe["thresholds"]; nested {
		target = &profileDocument{Thresholds: &merged}
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return base, fmt.Errorf("invalid threshold profile: %w", err)
	}

	if err := merged.Validate(); err != nil {
		return base, fmt.Errorf("invalid threshold profile: %w", err)
	}
	return merged, nil
}

// ThresholdSource hands out the current threshold policy. Readers never block
// and always see a complete, validated value.
type ThresholdSource struct {
	current atomic.Pointer[fairness.Thresholds]
	version atomic.Uint64
}

// NewThresholdSource starts the source at th
func NewThresholdSource(th fairness.Thresholds) *ThresholdSource {
	s := &ThresholdSource{}
	s.current.Store(&th)
	return s
}

// Current returns a copy of the active thresholds
func (s *ThresholdSource) Current() fairness.Thresholds {
	return *s.current.Load()
}

// Version counts successful replacements since construction
func (s *ThresholdSource) Version() uint64 {
	return s.version.Load()
}

// Replace validates th and makes it the active policy
func (s *ThresholdSource) Replace(th fairness.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	s.current.Store(&th)
	s.version.Add(1)
	return nil
}
