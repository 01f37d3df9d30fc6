package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/StanzaFlow/StanzaFlow/internal/adapter"
	"github.com/StanzaFlow/StanzaFlow/internal/compiler"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/parser"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
)

// Result is the outcome of running one scenario through the pipeline.
type Result struct {
	// Valid is whether parsing and lowering succeeded.
	Valid bool `json:"valid"`

	// ErrorCodes are the validation codes reported on failure, in report
	// order. Parse failures record the syntax code "E100".
	ErrorCodes []string `json:"error_codes,omitempty"`

	// Doc is the lowered document, nil when Valid is false.
	Doc *ir.Document `json:"-"`

	// Code is the generated source, empty when Valid is false.
	Code string `json:"-"`

	// Markers are the unsupported-pattern IDs left in Code.
	Markers []string `json:"markers,omitempty"`
}

// Run executes the scenario against the real pipeline.
func Run(scenario *Scenario) (*Result, error) {
	result := &Result{}

	env := make(secrets.Snapshot, len(scenario.Env))
	for k, v := range scenario.Env {
		env[k] = v
	}

	wf, err := parser.Parse(scenario.Source)
	if err != nil {
		var synErr *parser.SyntaxError
		if !errors.As(err, &synErr) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorCodes = []string{"E100"}
		return result, nil
	}

	doc, err := compiler.Lower(wf, env)
	if err != nil {
		var valErrs compiler.ValidationErrors
		if !errors.As(err, &valErrs) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		for _, e := range valErrs {
			result.ErrorCodes = append(result.ErrorCodes, e.Code)
		}
		return result, nil
	}
	result.Valid = true
	result.Doc = doc

	target := scenario.Target
	if target == "" {
		target = "go"
	}
	a, err := adapter.Default().Lookup(target)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	out, err := a.Generate(doc)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Code = out.Code
	result.Markers = adapter.ScanMarkers(out.Code)

	return result, nil
}

// Evaluate checks the result against the scenario's expectations and
// returns one message per violated expectation.
func Evaluate(scenario *Scenario, result *Result) []string {
	var failures []string
	expect := scenario.Expect

	if result.Valid != expect.Valid {
		failures = append(failures, fmt.Sprintf(
			"valid = %v, want %v (error codes: %v)", result.Valid, expect.Valid, result.ErrorCodes))
	}

	for _, code := range expect.ErrorCodes {
		if !containsString(result.ErrorCodes, code) {
			failures = append(failures, fmt.Sprintf(
				"missing expected error code %s (got %v)", code, result.ErrorCodes))
		}
	}

	if expect.MarkerCount != nil && len(result.Markers) != *expect.MarkerCount {
		failures = append(failures, fmt.Sprintf(
			"marker count = %d, want %d", len(result.Markers), *expect.MarkerCount))
	}

	for _, substr := range expect.CodeContains {
		if !strings.Contains(result.Code, substr) {
			failures = append(failures, fmt.Sprintf("generated code missing %q", substr))
		}
	}
	for _, substr := range expect.CodeOmits {
		if strings.Contains(result.Code, substr) {
			failures = append(failures, fmt.Sprintf("generated code must not contain %q", substr))
		}
	}

	return failures
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
