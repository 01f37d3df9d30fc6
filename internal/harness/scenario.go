package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Source is the inline workflow source.
	Source string `yaml:"source"`

	// Target selects the adapter. Empty means "go".
	Target string `yaml:"target,omitempty"`

	// Env is the environment snapshot the compile runs against.
	Env map[string]string `yaml:"env,omitempty"`

	// Expect holds the scenario's expectations.
	Expect Expectations `yaml:"expect"`
}

// Expectations describe the required outcome of a scenario run.
type Expectations struct {
	// Valid is whether parsing and lowering must succeed.
	Valid bool `yaml:"valid"`

	// ErrorCodes must all appear among the reported validation errors.
	// Only meaningful when Valid is false.
	ErrorCodes []string `yaml:"error_codes,omitempty"`

	// MarkerCount is the exact number of unsupported-pattern markers the
	// generated code must carry. Nil skips the check.
	MarkerCount *int `yaml:"marker_count,omitempty"`

	// CodeContains lists substrings the generated code must include.
	CodeContains []string `yaml:"code_contains,omitempty"`

	// CodeOmits lists substrings the generated code must not include.
	CodeOmits []string `yaml:"code_omits,omitempty"`
}

// LoadScenario reads one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Source == "" {
		return nil, fmt.Errorf("scenario %s: source is required", path)
	}
	return &s, nil
}

// LoadScenarios reads every *.yaml scenario under dir, sorted by name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}
