package diagram

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

func flowDoc() *ir.Document {
	return &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow: ir.Workflow{
			Title: "Flow",
			Agents: []ir.Agent{
				{
					Name: "Bot",
					Steps: []ir.Step{
						{Name: "Hello"},
						{Name: "Decide", Attrs: []ir.StepAttr{ir.Branch{Target: "Hello"}}},
						{Name: "Work", Attrs: []ir.StepAttr{ir.Finally{Target: "Cleanup"}}},
					},
				},
				{
					Name:  "Janitor",
					Steps: []ir.Step{{Name: "Cleanup"}},
				},
			},
		},
	}
}

func TestMermaidStructure(t *testing.T) {
	out := Mermaid(flowDoc())

	require.True(t, strings.HasPrefix(out, "flowchart TD\n"))

	botID := ir.StableID("agent", "Bot")
	helloID := ir.StableID("step", "Bot/Hello")
	decideID := ir.StableID("step", "Bot/Decide")
	workID := ir.StableID("step", "Bot/Work")
	cleanupID := ir.StableID("step", "Janitor/Cleanup")

	assert.Contains(t, out, fmt.Sprintf("subgraph %s[Bot]", botID))
	assert.Contains(t, out, fmt.Sprintf("%s[Hello]", helloID))

	// Sequential chain inside the agent.
	assert.Contains(t, out, fmt.Sprintf("%s --> %s", helloID, decideID))
	assert.Contains(t, out, fmt.Sprintf("%s --> %s", decideID, workID))

	// Branch is dashed, finally labeled, and both may cross agents.
	assert.Contains(t, out, fmt.Sprintf("%s -.-> %s", decideID, helloID))
	assert.Contains(t, out, fmt.Sprintf("%s -- finally --> %s", workID, cleanupID))
}

func TestMermaidDuplicateStepNamesResolvePerAgent(t *testing.T) {
	doc := &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow: ir.Workflow{
			Title: "T",
			Agents: []ir.Agent{
				{
					Name: "A",
					Steps: []ir.Step{
						{Name: "Work", Attrs: []ir.StepAttr{ir.Finally{Target: "Cleanup"}}},
						{Name: "Cleanup"},
					},
				},
				{
					Name: "B",
					Steps: []ir.Step{
						{Name: "Cleanup"},
						{Name: "Decide", Attrs: []ir.StepAttr{ir.Branch{Target: "Cleanup"}}},
					},
				},
			},
		},
	}
	out := Mermaid(doc)

	workID := ir.StableID("step", "A/Work")
	aCleanup := ir.StableID("step", "A/Cleanup")
	bCleanup := ir.StableID("step", "B/Cleanup")
	decideID := ir.StableID("step", "B/Decide")

	// Each edge binds to the Cleanup in its own agent.
	assert.Contains(t, out, fmt.Sprintf("%s -- finally --> %s", workID, aCleanup))
	assert.NotContains(t, out, fmt.Sprintf("%s -- finally --> %s", workID, bCleanup))
	assert.Contains(t, out, fmt.Sprintf("%s -.-> %s", decideID, bCleanup))
	assert.NotContains(t, out, fmt.Sprintf("%s -.-> %s", decideID, aCleanup))
}

func TestMermaidDeterministic(t *testing.T) {
	assert.Equal(t, Mermaid(flowDoc()), Mermaid(flowDoc()))
}

func TestMermaidQuotesAwkwardLabels(t *testing.T) {
	doc := &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow: ir.Workflow{
			Title: "T",
			Agents: []ir.Agent{{
				Name:  "A",
				Steps: []ir.Step{{Name: `Check [fast] "path"`}},
			}},
		},
	}
	out := Mermaid(doc)
	assert.Contains(t, out, `["Check [fast] #quot;path#quot;"]`)
}

func TestEscapeLabelPlainNamesUntouched(t *testing.T) {
	assert.Equal(t, "Hello World", escapeLabel("Hello World"))
}
