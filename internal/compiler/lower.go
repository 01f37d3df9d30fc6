// Package compiler lowers the syntax tree into the versioned IR.
//
// Lowering is where all semantic validation happens: attribute legality,
// numeric ranges, reference integrity, agent-name uniqueness and secret
// resolution. The returned document is additionally self-checked against
// the embedded CUE schema before it is handed to any code generator, so
// generators never see an invalid document and never re-check references.
package compiler

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/StanzaFlow/StanzaFlow/internal/ast"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
)

// envVarPattern is the accepted shape for declared environment variables.
var envVarPattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// Lower converts a parsed workflow into a validated IR document.
//
// All validation errors are collected and returned together as
// ValidationErrors. On success the document conforms to the embedded
// schema and every branch/finally target names an existing step.
//
// Side effect: each declared secret is resolved against env. A missing
// variable fails the compile; the resolved values themselves are discarded
// here (generators emit environment lookups, never values).
func Lower(wf *ast.Workflow, env secrets.Snapshot) (*ir.Document, error) {
	var errs ValidationErrors

	doc := &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow: ir.Workflow{
			Title:   wf.Title,
			Agents:  []ir.Agent{},
			Escapes: []ir.EscapeBlock{},
			Secrets: []ir.SecretRef{},
		},
	}

	seenAgents := make(map[string]bool)
	for _, agent := range wf.Agents {
		if seenAgents[agent.Name] {
			errs = append(errs, ValidationError{
				Code:    ErrDuplicateAgent,
				Field:   fmt.Sprintf("agents.%s", agent.Name),
				Message: fmt.Sprintf("duplicate agent name %q", agent.Name),
				Line:    agent.Line,
			})
		}
		seenAgents[agent.Name] = true

		lowered := ir.Agent{Name: agent.Name, Steps: []ir.Step{}}
		for _, step := range agent.Steps {
			lowered.Steps = append(lowered.Steps, lowerStep(agent.Name, step, &errs))
		}
		doc.Workflow.Agents = append(doc.Workflow.Agents, lowered)
	}

	for _, esc := range wf.Escapes {
		doc.Workflow.Escapes = append(doc.Workflow.Escapes, ir.EscapeBlock{
			Target: esc.Target,
			Code:   esc.Code,
		})
	}

	for _, secret := range wf.Secrets {
		if !envVarPattern.MatchString(secret.EnvVar) {
			errs = append(errs, ValidationError{
				Code:    ErrMalformedEnvVar,
				Field:   fmt.Sprintf("secrets.%s", secret.EnvVar),
				Message: fmt.Sprintf("environment variable name %q must match %s", secret.EnvVar, envVarPattern),
				Line:    secret.Line,
			})
			continue
		}
		if _, err := env.Resolve(secret.EnvVar); err != nil {
			errs = append(errs, ValidationError{
				Code:    ErrMissingEnvVar,
				Field:   fmt.Sprintf("secrets.%s", secret.EnvVar),
				Message: err.Error(),
				Line:    secret.Line,
			})
			continue
		}
		doc.Workflow.Secrets = append(doc.Workflow.Secrets, ir.SecretRef{EnvVar: secret.EnvVar})
	}

	// Cross-reference integrity: branch/finally must name an existing step
	// in the same document. Checked once here, never re-checked downstream.
	validateReferences(wf, doc, &errs)

	if len(errs) > 0 {
		return nil, errs
	}

	// Self-check against the embedded schema. Fail fast: no partial codegen
	// against an invalid document.
	if err := ValidateSchema(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// lowerStep converts raw attribute lines into the closed StepAttr sum,
// recording every illegal key, range violation and duplicate.
func lowerStep(agentName string, step ast.Step, errs *ValidationErrors) ir.Step {
	lowered := ir.Step{Name: step.Name}
	seen := make(map[string]bool)

	for _, raw := range step.Attrs {
		field := fmt.Sprintf("agents.%s.steps.%s.%s", agentName, step.Name, raw.Key)

		if seen[raw.Key] {
			*errs = append(*errs, ValidationError{
				Code:    ErrDuplicateAttr,
				Field:   field,
				Message: fmt.Sprintf("attribute %q declared more than once", raw.Key),
				Line:    raw.Line,
			})
			continue
		}

		switch raw.Key {
		case ir.KeyArtifact:
			lowered.Attrs = append(lowered.Attrs, ir.Artifact{Path: raw.Value})
		case ir.KeyRetry:
			n, err := strconv.Atoi(raw.Value)
			if err != nil || n < 0 {
				*errs = append(*errs, ValidationError{
					Code:    ErrInvalidRetry,
					Field:   field,
					Message: fmt.Sprintf("retry must be a non-negative integer, got %q", raw.Value),
					Line:    raw.Line,
				})
				continue
			}
			lowered.Attrs = append(lowered.Attrs, ir.Retry{Count: n})
		case ir.KeyTimeout:
			n, err := strconv.Atoi(raw.Value)
			if err != nil || n <= 0 {
				*errs = append(*errs, ValidationError{
					Code:    ErrInvalidTimeout,
					Field:   field,
					Message: fmt.Sprintf("timeout must be a positive integer, got %q", raw.Value),
					Line:    raw.Line,
				})
				continue
			}
			lowered.Attrs = append(lowered.Attrs, ir.Timeout{Seconds: n})
		case ir.KeyOnError:
			lowered.Attrs = append(lowered.Attrs, ir.OnError{Strategy: raw.Value})
		case ir.KeyBranch:
			lowered.Attrs = append(lowered.Attrs, ir.Branch{Target: raw.Value})
		case ir.KeyFinally:
			lowered.Attrs = append(lowered.Attrs, ir.Finally{Target: raw.Value})
		default:
			*errs = append(*errs, ValidationError{
				Code:    ErrUnknownAttribute,
				Field:   field,
				Message: fmt.Sprintf("unknown attribute key %q", raw.Key),
				Line:    raw.Line,
			})
			continue
		}
		seen[raw.Key] = true
	}

	return lowered
}

// validateReferences checks branch/finally targets against the step names
// of the whole document.
func validateReferences(wf *ast.Workflow, doc *ir.Document, errs *ValidationErrors) {
	stepNames := make(map[string]bool)
	for _, agent := range doc.Workflow.Agents {
		for _, step := range agent.Steps {
			stepNames[step.Name] = true
		}
	}

	// Raw attrs carry the source line; use them for error locations.
	lineOf := func(agent, step, key string) int {
		for _, a := range wf.Agents {
			if a.Name != agent {
				continue
			}
			for _, s := range a.Steps {
				if s.Name != step {
					continue
				}
				if raw := s.Attr(key); raw != nil {
					return raw.Line
				}
			}
		}
		return 0
	}

	for _, agent := range doc.Workflow.Agents {
		for _, step := range agent.Steps {
			field := fmt.Sprintf("agents.%s.steps.%s", agent.Name, step.Name)
			if attr, ok := step.Attr(ir.KeyBranch); ok {
				if target := attr.(ir.Branch).Target; !stepNames[target] {
					*errs = append(*errs, ValidationError{
						Code:    ErrDanglingBranch,
						Field:   field + ".branch",
						Message: fmt.Sprintf("branch target %q names no step in this workflow", target),
						Line:    lineOf(agent.Name, step.Name, ir.KeyBranch),
					})
				}
			}
			if attr, ok := step.Attr(ir.KeyFinally); ok {
				if target := attr.(ir.Finally).Target; !stepNames[target] {
					*errs = append(*errs, ValidationError{
						Code:    ErrDanglingFinally,
						Field:   field + ".finally",
						Message: fmt.Sprintf("finally target %q names no step in this workflow", target),
						Line:    lineOf(agent.Name, step.Name, ir.KeyFinally),
					})
				}
			}
		}
	}
}
