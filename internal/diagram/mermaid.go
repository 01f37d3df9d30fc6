// Package diagram renders an IR document as a Mermaid flowchart. Node IDs
// are content-derived, so the same workflow always renders the same graph.
package diagram

import (
	"fmt"
	"strings"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

// Mermaid renders the workflow as a flowchart. Steps within an agent chain
// sequentially; branch targets get a dashed edge and finally targets a
// labeled one.
func Mermaid(doc *ir.Document) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	stepID := func(agent, step string) string {
		return ir.StableID("step", agent+"/"+step)
	}

	// Branch and finally may target steps in other agents. A target in the
	// same agent wins; otherwise the first agent declaring that step name in
	// document order does, matching code generation.
	owner := make(map[string]string)
	has := make(map[string]map[string]bool, len(doc.Workflow.Agents))
	for _, agent := range doc.Workflow.Agents {
		has[agent.Name] = make(map[string]bool, len(agent.Steps))
		for _, step := range agent.Steps {
			has[agent.Name][step.Name] = true
			if _, ok := owner[step.Name]; !ok {
				owner[step.Name] = agent.Name
			}
		}
	}
	targetID := func(agentName, target string) string {
		if has[agentName][target] {
			return stepID(agentName, target)
		}
		return stepID(owner[target], target)
	}

	for _, agent := range doc.Workflow.Agents {
		fmt.Fprintf(&b, "    subgraph %s[%s]\n", ir.StableID("agent", agent.Name), escapeLabel(agent.Name))
		for _, step := range agent.Steps {
			fmt.Fprintf(&b, "        %s[%s]\n", stepID(agent.Name, step.Name), escapeLabel(step.Name))
		}
		b.WriteString("    end\n")
	}

	for _, agent := range doc.Workflow.Agents {
		for i, step := range agent.Steps {
			from := stepID(agent.Name, step.Name)
			if i+1 < len(agent.Steps) {
				fmt.Fprintf(&b, "    %s --> %s\n", from, stepID(agent.Name, agent.Steps[i+1].Name))
			}
			if attr, ok := step.Attr(ir.KeyBranch); ok {
				target := attr.(ir.Branch).Target
				fmt.Fprintf(&b, "    %s -.-> %s\n", from, targetID(agent.Name, target))
			}
			if attr, ok := step.Attr(ir.KeyFinally); ok {
				target := attr.(ir.Finally).Target
				fmt.Fprintf(&b, "    %s -- finally --> %s\n", from, targetID(agent.Name, target))
			}
		}
	}

	return b.String()
}

// escapeLabel quotes labels that would otherwise break Mermaid syntax.
func escapeLabel(name string) string {
	if strings.ContainsAny(name, "[]{}()<>|\"") {
		return `"` + strings.ReplaceAll(name, `"`, "#quot;") + `"`
	}
	return name
}
