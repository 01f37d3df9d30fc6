// Package audit reports how much of a compiled workflow the target runtime
// could express natively.
//
// The scan counts the SF-UNSUPPORTED markers left in generated output and
// relates them to the workflow's step count. A high marker density means the
// workflow leans on escape synthesis instead of the target's native forms,
// which is worth knowing before trusting the output.
package audit

import (
	"fmt"

	"github.com/StanzaFlow/StanzaFlow/internal/adapter"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
)

// DefaultThreshold is the marker density above which an audit fails.
const DefaultThreshold = 0.5

// Report is the result of one audit scan.
type Report struct {
	Title   string `json:"title"`
	Agents  int    `json:"agents"`
	Steps   int    `json:"steps"`
	Escapes int    `json:"escape_blocks"`
	Secrets int    `json:"secrets"`

	Markers       []string `json:"markers"`
	MarkerDensity float64  `json:"marker_density"`
	Threshold     float64  `json:"threshold"`
	Passed        bool     `json:"passed"`

	// SecretsSummary maps each declared variable to its masked value or
	// NOT_SET. Never contains raw values.
	SecretsSummary map[string]string `json:"secrets_summary,omitempty"`
}

// Scan audits generated code against its source document. A non-positive
// threshold selects DefaultThreshold.
func Scan(doc *ir.Document, code string, env secrets.Snapshot, threshold float64) *Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	steps := 0
	for _, agent := range doc.Workflow.Agents {
		steps += len(agent.Steps)
	}

	markers := adapter.ScanMarkers(code)
	density := 0.0
	if steps > 0 {
		density = float64(len(markers)) / float64(steps)
	}

	names := make([]string, len(doc.Workflow.Secrets))
	for i, s := range doc.Workflow.Secrets {
		names[i] = s.EnvVar
	}

	return &Report{
		Title:          doc.Workflow.Title,
		Agents:         len(doc.Workflow.Agents),
		Steps:          steps,
		Escapes:        len(doc.Workflow.Escapes),
		Secrets:        len(doc.Workflow.Secrets),
		Markers:        markers,
		MarkerDensity:  density,
		Threshold:      threshold,
		Passed:         density <= threshold,
		SecretsSummary: env.Summary(names),
	}
}

// Summary renders the report as a short human-readable block.
func (r *Report) Summary() string {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	return fmt.Sprintf(
		"%s: %d agents, %d steps, %d escape blocks, %d secrets, %d markers (density %.2f, threshold %.2f) %s",
		r.Title, r.Agents, r.Steps, r.Escapes, r.Secrets,
		len(r.Markers), r.MarkerDensity, r.Threshold, status,
	)
}
