package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanzaFlow/StanzaFlow/internal/adapter"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
)

func auditDoc() *ir.Document {
	return &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow: ir.Workflow{
			Title: "Audit Demo",
			Agents: []ir.Agent{{
				Name: "Bot",
				Steps: []ir.Step{
					{Name: "Hello"},
					{Name: "Decide", Attrs: []ir.StepAttr{ir.Branch{Target: "Hello"}}},
				},
			}},
			Escapes: []ir.EscapeBlock{{Target: "go", Code: "func x() {}\n"}},
			Secrets: []ir.SecretRef{{EnvVar: "API_KEY"}, {EnvVar: "MISSING"}},
		},
	}
}

func TestScanCountsAndDensity(t *testing.T) {
	doc := auditDoc()
	out, err := adapter.NewGo().Generate(doc)
	require.NoError(t, err)

	env := secrets.Snapshot{"API_KEY": "secret-value"}
	report := Scan(doc, out.Code, env, 0)

	assert.Equal(t, "Audit Demo", report.Title)
	assert.Equal(t, 1, report.Agents)
	assert.Equal(t, 2, report.Steps)
	assert.Equal(t, 1, report.Escapes)
	assert.Equal(t, 2, report.Secrets)
	require.Len(t, report.Markers, 1)
	assert.InDelta(t, 0.5, report.MarkerDensity, 1e-9)
	assert.Equal(t, DefaultThreshold, report.Threshold)
	assert.True(t, report.Passed, "density at the threshold still passes")
}

func TestScanFailsAboveThreshold(t *testing.T) {
	doc := auditDoc()
	out, err := adapter.NewGo().Generate(doc)
	require.NoError(t, err)

	report := Scan(doc, out.Code, secrets.Snapshot{}, 0.25)
	assert.False(t, report.Passed)
	assert.Contains(t, report.Summary(), "FAIL")
}

func TestScanSecretsSummaryNeverLeaksValues(t *testing.T) {
	doc := auditDoc()
	env := secrets.Snapshot{"API_KEY": "secret-value"}
	report := Scan(doc, "", env, 0)

	assert.Equal(t, map[string]string{
		"API_KEY": "se***ue",
		"MISSING": "NOT_SET",
	}, report.SecretsSummary)
}

func TestScanZeroStepsZeroDensity(t *testing.T) {
	doc := &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow:  ir.Workflow{Title: "Empty"},
	}
	report := Scan(doc, "", secrets.Snapshot{}, 0)
	assert.Zero(t, report.MarkerDensity)
	assert.True(t, report.Passed)
}

func TestSummaryFormat(t *testing.T) {
	doc := auditDoc()
	out, err := adapter.NewGo().Generate(doc)
	require.NoError(t, err)

	report := Scan(doc, out.Code, secrets.Snapshot{}, 0)
	assert.Equal(t,
		"Audit Demo: 1 agents, 2 steps, 1 escape blocks, 2 secrets, 1 markers (density 0.50, threshold 0.50) PASS",
		report.Summary())
}
