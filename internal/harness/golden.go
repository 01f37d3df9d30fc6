package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario, checks its expectations, and compares
// the lowered document's JSON against a golden file in testdata/golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}

	for _, failure := range Evaluate(scenario, result) {
		t.Errorf("scenario %s: %s", scenario.Name, failure)
	}

	// Invalid scenarios have no document to snapshot; expectations are the
	// whole check.
	if result.Doc == nil {
		return
	}

	docJSON, err := json.MarshalIndent(result.Doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, append(docJSON, '\n'))
}
