// Package ast defines the syntax tree produced by the .sf.md parser.
//
// The tree is purely syntactic: attribute values are raw strings and no
// semantic checks (attribute legality, reference integrity) happen here.
// Lowering and validation are the compiler's job.
package ast

// Workflow is the root of a parsed .sf.md document.
// Agents, escape blocks and secret declarations retain source order.
type Workflow struct {
	Title   string
	Agents  []Agent
	Escapes []EscapeBlock
	Secrets []SecretDecl
}

// Agent is an agent block (`## Agent: <name>`) and its ordered steps.
type Agent struct {
	Name  string
	Line  int
	Steps []Step
}

// Step is a step line (`- Step: <name>`) plus its indented attribute lines.
// Attributes keep source order; duplicate keys are preserved here and
// rejected during lowering.
type Step struct {
	Name  string
	Line  int
	Attrs []RawAttr
}

// RawAttr is a single `key: value` attribute line, unvalidated.
type RawAttr struct {
	Key   string
	Value string
	Line  int
}

// EscapeBlock is a `%%escape <target>` ... `%%` region. The body is opaque
// text for the named target runtime; the parser never interprets it.
type EscapeBlock struct {
	Target string
	Code   string
	Line   int
}

// SecretDecl is a `!env VAR` declaration.
type SecretDecl struct {
	EnvVar string
	Line   int
}

// Attr returns the first attribute with the given key, or nil.
func (s *Step) Attr(key string) *RawAttr {
	for i := range s.Attrs {
		if s.Attrs[i].Key == key {
			return &s.Attrs[i]
		}
	}
	return nil
}
