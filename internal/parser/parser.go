// Package parser turns .sf.md source text into a syntax tree.
//
// The grammar is line-anchored: every construct is recognized from the shape
// of a single line (plus a terminator line for escape blocks). The parser
// performs no semantic validation; see the compiler package for lowering.
package parser

import (
	"regexp"
	"strings"

	"github.com/StanzaFlow/StanzaFlow/internal/ast"
)

var (
	agentRe  = regexp.MustCompile(`^##\s+Agent:\s*(.+?)\s*$`)
	stepRe   = regexp.MustCompile(`^-\s+Step:\s*(.+?)\s*$`)
	attrRe   = regexp.MustCompile(`^(?P<key>[a-zA-Z_]+)\s*:\s*(?P<val>.+?)\s*$`)
	escapeRe = regexp.MustCompile(`^%%escape\s+(\S+)\s*$`)
	secretRe = regexp.MustCompile(`^!env\s+(\S+)\s*$`)
)

// Parse parses source text into a workflow syntax tree.
// Returns *SyntaxError with the offending line on malformed input.
func Parse(src string) (*ast.Workflow, error) {
	wf := &ast.Workflow{}
	lines := strings.Split(src, "\n")

	var (
		curAgent *ast.Agent
		curStep  *ast.Step
		sawTitle bool
	)

	flushStep := func() {
		if curStep != nil && curAgent != nil {
			curAgent.Steps = append(curAgent.Steps, *curStep)
		}
		curStep = nil
	}
	flushAgent := func() {
		flushStep()
		if curAgent != nil {
			wf.Agents = append(wf.Agents, *curAgent)
		}
		curAgent = nil
	}

	for i := 0; i < len(lines); i++ {
		raw := lines[i]
		lineNo := i + 1
		line := strings.TrimRight(raw, " \t")

		if strings.TrimSpace(line) == "" {
			continue
		}

		// Escape blocks are matched before anything else so their opaque
		// bodies are never interpreted as workflow syntax.
		if m := escapeRe.FindStringSubmatch(line); m != nil {
			flushAgent()
			start := lineNo
			var body []string
			terminated := false
			for i++; i < len(lines); i++ {
				if strings.TrimSpace(lines[i]) == "%%" {
					terminated = true
					break
				}
				body = append(body, lines[i])
			}
			if !terminated {
				return nil, &SyntaxError{Line: start, Message: "unterminated escape block (missing %% line)"}
			}
			wf.Escapes = append(wf.Escapes, ast.EscapeBlock{
				Target: m[1],
				Code:   strings.TrimSpace(strings.Join(body, "\n")),
				Line:   start,
			})
			continue
		}

		switch {
		case agentRe.MatchString(line):
			flushAgent()
			name := agentRe.FindStringSubmatch(line)[1]
			curAgent = &ast.Agent{Name: name, Line: lineNo}

		case stepRe.MatchString(line):
			if curAgent == nil {
				return nil, &SyntaxError{Line: lineNo, Message: "step declared outside of an agent block"}
			}
			flushStep()
			name := stepRe.FindStringSubmatch(line)[1]
			curStep = &ast.Step{Name: name, Line: lineNo}

		case secretRe.MatchString(line):
			flushAgent()
			wf.Secrets = append(wf.Secrets, ast.SecretDecl{
				EnvVar: secretRe.FindStringSubmatch(line)[1],
				Line:   lineNo,
			})

		case strings.HasPrefix(line, "# "):
			// First heading is the workflow title; later ones are comments.
			if !sawTitle {
				wf.Title = strings.TrimSpace(strings.TrimLeft(line, "# "))
				sawTitle = true
			}

		case line == "#":
			// Bare comment marker.

		case raw != strings.TrimLeft(raw, " \t"):
			// Indented line: step attribute.
			if curStep == nil {
				return nil, &SyntaxError{Line: lineNo, Message: "attribute line outside of a step"}
			}
			m := attrRe.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				return nil, &SyntaxError{Line: lineNo, Message: "malformed attribute line, expected key: value"}
			}
			curStep.Attrs = append(curStep.Attrs, ast.RawAttr{
				Key:   strings.ToLower(m[1]),
				Value: m[2],
				Line:  lineNo,
			})

		default:
			return nil, &SyntaxError{Line: lineNo, Message: "unrecognized line: " + strings.TrimSpace(line)}
		}
	}

	flushAgent()
	return wf, nil
}
