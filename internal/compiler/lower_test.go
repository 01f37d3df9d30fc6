package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanzaFlow/StanzaFlow/internal/ast"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/parser"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
)

func mustParse(t *testing.T, src string) *ast.Workflow {
	t.Helper()
	wf, err := parser.Parse(src)
	require.NoError(t, err)
	return wf
}

// codesOf collects the error codes from a Lower failure.
func codesOf(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	valErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	codes := make([]string, len(valErrs))
	for i, e := range valErrs {
		codes[i] = e.Code
	}
	return codes
}

func TestLowerValidWorkflow(t *testing.T) {
	wf := mustParse(t, `# Demo

## Agent: Bot
- Step: Hello
  artifact: hello.txt
  retry: 2
  timeout: 30
  on_error: skip

!env API_KEY
`)

	doc, err := Lower(wf, secrets.Snapshot{"API_KEY": "secret-value"})
	require.NoError(t, err)

	assert.Equal(t, ir.IRVersion, doc.IRVersion)
	assert.Equal(t, "Demo", doc.Workflow.Title)
	require.Len(t, doc.Workflow.Agents, 1)
	require.Len(t, doc.Workflow.Agents[0].Steps, 1)

	step := doc.Workflow.Agents[0].Steps[0]
	assert.Equal(t, "Hello", step.Name)
	require.Len(t, step.Attrs, 4)

	retry, ok := step.Attr(ir.KeyRetry)
	require.True(t, ok)
	assert.Equal(t, 2, retry.(ir.Retry).Count)
	timeout, ok := step.Attr(ir.KeyTimeout)
	require.True(t, ok)
	assert.Equal(t, 30, timeout.(ir.Timeout).Seconds)

	require.Len(t, doc.Workflow.Secrets, 1)
	assert.Equal(t, "API_KEY", doc.Workflow.Secrets[0].EnvVar)
}

func TestLowerSecretValueNotStored(t *testing.T) {
	wf := mustParse(t, "# T\n\n!env API_KEY\n")
	doc, err := Lower(wf, secrets.Snapshot{"API_KEY": "super-secret"})
	require.NoError(t, err)
	// Only the variable name survives lowering.
	assert.Equal(t, []ir.SecretRef{{EnvVar: "API_KEY"}}, doc.Workflow.Secrets)
}

func TestLowerUnknownAttribute(t *testing.T) {
	wf := mustParse(t, `# T

## Agent: A
- Step: S
  bogus_key: x
`)
	_, err := Lower(wf, secrets.Snapshot{})
	assert.Contains(t, codesOf(t, err), ErrUnknownAttribute)
}

func TestLowerNumericRanges(t *testing.T) {
	tests := []struct {
		name string
		attr string
		code string
	}{
		{"negative retry", "retry: -1", ErrInvalidRetry},
		{"non-numeric retry", "retry: lots", ErrInvalidRetry},
		{"zero timeout", "timeout: 0", ErrInvalidTimeout},
		{"negative timeout", "timeout: -5", ErrInvalidTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := mustParse(t, "# T\n\n## Agent: A\n- Step: S\n  "+tt.attr+"\n")
			_, err := Lower(wf, secrets.Snapshot{})
			assert.Contains(t, codesOf(t, err), tt.code)
		})
	}
}

func TestLowerRetryZeroIsValid(t *testing.T) {
	wf := mustParse(t, "# T\n\n## Agent: A\n- Step: S\n  retry: 0\n")
	doc, err := Lower(wf, secrets.Snapshot{})
	require.NoError(t, err)
	retry, ok := doc.Workflow.Agents[0].Steps[0].Attr(ir.KeyRetry)
	require.True(t, ok)
	assert.Equal(t, 0, retry.(ir.Retry).Count)
}

func TestLowerDanglingReferences(t *testing.T) {
	wf := mustParse(t, `# T

## Agent: A
- Step: S
  branch: Nowhere
  finally: AlsoNowhere
`)
	_, err := Lower(wf, secrets.Snapshot{})
	codes := codesOf(t, err)
	assert.Contains(t, codes, ErrDanglingBranch)
	assert.Contains(t, codes, ErrDanglingFinally)
}

func TestLowerCrossAgentReferenceIsValid(t *testing.T) {
	wf := mustParse(t, `# T

## Agent: A
- Step: S
  branch: Other

## Agent: B
- Step: Other
`)
	_, err := Lower(wf, secrets.Snapshot{})
	require.NoError(t, err)
}

func TestLowerDuplicateAgent(t *testing.T) {
	wf := mustParse(t, `# T

## Agent: A
- Step: One

## Agent: A
- Step: Two
`)
	_, err := Lower(wf, secrets.Snapshot{})
	assert.Contains(t, codesOf(t, err), ErrDuplicateAgent)
}

func TestLowerDuplicateAttribute(t *testing.T) {
	wf := mustParse(t, `# T

## Agent: A
- Step: S
  retry: 1
  retry: 2
`)
	_, err := Lower(wf, secrets.Snapshot{})
	assert.Contains(t, codesOf(t, err), ErrDuplicateAttr)
}

func TestLowerSecretErrors(t *testing.T) {
	t.Run("malformed name", func(t *testing.T) {
		wf := mustParse(t, "# T\n\n!env lowercase\n")
		_, err := Lower(wf, secrets.Snapshot{})
		assert.Contains(t, codesOf(t, err), ErrMalformedEnvVar)
	})
	t.Run("missing variable", func(t *testing.T) {
		wf := mustParse(t, "# T\n\n!env API_KEY\n")
		_, err := Lower(wf, secrets.Snapshot{})
		assert.Contains(t, codesOf(t, err), ErrMissingEnvVar)
	})
	t.Run("empty value is set", func(t *testing.T) {
		wf := mustParse(t, "# T\n\n!env API_KEY\n")
		_, err := Lower(wf, secrets.Snapshot{"API_KEY": ""})
		require.NoError(t, err)
	})
}

func TestLowerCollectsAllErrors(t *testing.T) {
	wf := mustParse(t, `# T

## Agent: A
- Step: S
  bogus_key: x
  retry: -1
  branch: Nowhere
`)
	_, err := Lower(wf, secrets.Snapshot{})
	codes := codesOf(t, err)
	assert.Len(t, codes, 3)
}

func TestLowerErrorCarriesLine(t *testing.T) {
	wf := mustParse(t, "# T\n\n## Agent: A\n- Step: S\n  retry: -1\n")
	_, err := Lower(wf, secrets.Snapshot{})
	valErrs := err.(ValidationErrors)
	require.Len(t, valErrs, 1)
	assert.Equal(t, 5, valErrs[0].Line)
	assert.Contains(t, valErrs[0].Error(), "[E201]")
}
