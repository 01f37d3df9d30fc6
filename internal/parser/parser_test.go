package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullWorkflow(t *testing.T) {
	src := `# Demo Flow

## Agent: Bot
- Step: Hello
  artifact: hello.txt
  retry: 2

- Step: Cleanup

## Agent: Auditor
- Step: Check
  timeout: 30

%%escape go
fmt.Println("raw")
%%

!env API_KEY
`

	wf, err := Parse(src)
	require.NoError(t, err)

	assert.Equal(t, "Demo Flow", wf.Title)
	require.Len(t, wf.Agents, 2)

	bot := wf.Agents[0]
	assert.Equal(t, "Bot", bot.Name)
	require.Len(t, bot.Steps, 2)
	assert.Equal(t, "Hello", bot.Steps[0].Name)
	require.Len(t, bot.Steps[0].Attrs, 2)
	assert.Equal(t, "artifact", bot.Steps[0].Attrs[0].Key)
	assert.Equal(t, "hello.txt", bot.Steps[0].Attrs[0].Value)
	assert.Equal(t, "retry", bot.Steps[0].Attrs[1].Key)
	assert.Equal(t, "2", bot.Steps[0].Attrs[1].Value)
	assert.Equal(t, "Cleanup", bot.Steps[1].Name)
	assert.Empty(t, bot.Steps[1].Attrs)

	auditor := wf.Agents[1]
	assert.Equal(t, "Auditor", auditor.Name)
	require.Len(t, auditor.Steps, 1)

	require.Len(t, wf.Escapes, 1)
	assert.Equal(t, "go", wf.Escapes[0].Target)
	assert.Equal(t, `fmt.Println("raw")`, wf.Escapes[0].Code)

	require.Len(t, wf.Secrets, 1)
	assert.Equal(t, "API_KEY", wf.Secrets[0].EnvVar)
}

func TestParseSourceOrderPreserved(t *testing.T) {
	src := `# Ordered

## Agent: A
- Step: One
- Step: Two
- Step: Three
`
	wf, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, wf.Agents, 1)
	names := []string{}
	for _, s := range wf.Agents[0].Steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"One", "Two", "Three"}, names)
}

func TestParseLaterHeadingsAreComments(t *testing.T) {
	src := `# Title

# just a comment

## Agent: A
- Step: One
`
	wf, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "Title", wf.Title)
	require.Len(t, wf.Agents, 1)
}

func TestParseAttributeKeyLowercased(t *testing.T) {
	src := `# T

## Agent: A
- Step: S
  Retry: 1
`
	wf, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "retry", wf.Agents[0].Steps[0].Attrs[0].Key)
}

func TestParseEscapeBodyIsOpaque(t *testing.T) {
	// Lines inside an escape block must never be read as workflow syntax,
	// even when they look exactly like it.
	src := `# T

%%escape crewai
## Agent: NotReal
- Step: NotReal
%%
`
	wf, err := Parse(src)
	require.NoError(t, err)
	assert.Empty(t, wf.Agents)
	require.Len(t, wf.Escapes, 1)
	assert.Equal(t, "crewai", wf.Escapes[0].Target)
	assert.Contains(t, wf.Escapes[0].Code, "## Agent: NotReal")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{
			name: "step outside agent",
			src:  "# T\n\n- Step: Orphan\n",
			line: 3,
			msg:  "step declared outside of an agent block",
		},
		{
			name: "attribute outside step",
			src:  "# T\n\n## Agent: A\n  retry: 2\n",
			line: 4,
			msg:  "attribute line outside of a step",
		},
		{
			name: "malformed attribute",
			src:  "# T\n\n## Agent: A\n- Step: S\n  not an attribute\n",
			line: 5,
			msg:  "malformed attribute line, expected key: value",
		},
		{
			name: "unterminated escape",
			src:  "# T\n\n%%escape go\nfmt.Println(1)\n",
			line: 3,
			msg:  "unterminated escape block (missing %% line)",
		},
		{
			name: "unrecognized line",
			src:  "# T\n\nwhat is this\n",
			line: 3,
			msg:  "unrecognized line: what is this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var synErr *SyntaxError
			require.ErrorAs(t, err, &synErr)
			assert.Equal(t, tt.line, synErr.Line)
			assert.Equal(t, tt.msg, synErr.Message)
		})
	}
}
