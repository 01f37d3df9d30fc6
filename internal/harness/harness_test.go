package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := Run(scenario)
			require.NoError(t, err)
			for _, failure := range Evaluate(scenario, result) {
				t.Error(failure)
			}
		})
	}
}

func TestHelloArtifactGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/hello_artifact.yaml")
	require.NoError(t, err)
	RunWithGolden(t, scenario)
}

func TestLoadScenarioRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("source: '# T'\nexpect:\n  valid: true\n"), 0o644))
	_, err := LoadScenario(unnamed)
	assert.ErrorContains(t, err, "name is required")

	sourceless := filepath.Join(dir, "sourceless.yaml")
	require.NoError(t, os.WriteFile(sourceless, []byte("name: x\nexpect:\n  valid: true\n"), 0o644))
	_, err = LoadScenario(sourceless)
	assert.ErrorContains(t, err, "source is required")
}

func TestEvaluateReportsEachViolation(t *testing.T) {
	one := 1
	scenario := &Scenario{
		Name:   "x",
		Source: "# T",
		Expect: Expectations{
			Valid:        true,
			MarkerCount:  &one,
			CodeContains: []string{"absent"},
			CodeOmits:    []string{"present"},
		},
	}
	result := &Result{
		Valid:   false,
		Code:    "present",
		Markers: nil,
	}

	failures := Evaluate(scenario, result)
	assert.Len(t, failures, 4)
}

func TestRunReportsSyntaxCode(t *testing.T) {
	result, err := Run(&Scenario{Name: "syntax", Source: "- Step: Orphan\n"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"E100"}, result.ErrorCodes)
}
