package adapter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

// GoAdapter renders a document as a standalone Go program: one function per
// agent, steps chained sequentially inside it. Retry becomes a bounded
// attempt loop, timeout a wall-clock guard that reports instead of hanging,
// on_error a strategy dispatch, finally a deferred cleanup call, artifact a
// file write. Branch has no sequential form and becomes a marker.
type GoAdapter struct{}

// NewGo returns the bundled Go adapter.
func NewGo() *GoAdapter { return &GoAdapter{} }

func (*GoAdapter) Target() string { return "go" }

var goCapabilities = map[string]bool{
	ir.KeyArtifact: true,
	ir.KeyRetry:    true,
	ir.KeyTimeout:  true,
	ir.KeyOnError:  true,
	ir.KeyFinally:  true,
}

func (*GoAdapter) Capabilities() map[string]bool { return goCapabilities }

func (g *GoAdapter) Generate(doc *ir.Document) (*Output, error) {
	if doc.IRVersion != ir.IRVersion {
		return nil, fmt.Errorf("adapter %q: cannot generate from ir_version %q, want %q",
			g.Target(), doc.IRVersion, ir.IRVersion)
	}

	gen := &goGen{doc: doc, stepFns: make(map[stepKey]string), used: make(map[string]bool)}
	gen.nameEverything()
	return gen.render(g.Target()), nil
}

type stepKey struct{ agent, step string }

type goGen struct {
	doc      *ir.Document
	stepFns  map[stepKey]string
	agentFns map[string]string
	order    []stepKey
	used     map[string]bool

	unsupported []UnsupportedPattern
	needsTime   bool
	needsGuard  bool
	needsFail   bool
}

// nameEverything assigns function names up front so finally targets can be
// referenced from any agent body. The document-order key list backs target
// resolution when a step name is declared by more than one agent.
func (g *goGen) nameEverything() {
	g.agentFns = make(map[string]string, len(g.doc.Workflow.Agents))
	for _, agent := range g.doc.Workflow.Agents {
		g.agentFns[agent.Name] = g.uniqueName("agent" + exportedIdent(agent.Name))
		for _, step := range agent.Steps {
			key := stepKey{agent.Name, step.Name}
			g.stepFns[key] = g.uniqueName("step" + exportedIdent(agent.Name) + exportedIdent(step.Name))
			g.order = append(g.order, key)
		}
	}
}

func (g *goGen) uniqueName(base string) string {
	name := base
	for i := 2; g.used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	g.used[name] = true
	return name
}

// stepFn resolves a finally target to its function. A target in the same
// agent wins; otherwise the first declaration in document order does, so
// output is stable when agents share step names. Targets are validated at
// lowering, so a miss here cannot happen on a schema-checked document.
func (g *goGen) stepFn(agentName, target string) string {
	if fn, ok := g.stepFns[stepKey{agentName, target}]; ok {
		return fn
	}
	for _, key := range g.order {
		if key.step == target {
			return g.stepFns[key]
		}
	}
	return ""
}

func (g *goGen) render(target string) *Output {
	// Bodies first: they decide which runtime helpers and imports the
	// prologue needs.
	var bodies strings.Builder
	for _, agent := range g.doc.Workflow.Agents {
		g.renderAgent(&bodies, target, agent)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by stanzaflow %s (ir %s) from %s. DO NOT EDIT.\n\n",
		ir.CompilerVersion, ir.IRVersion, strconv.Quote(g.doc.Workflow.Title))
	b.WriteString("package main\n\n")

	b.WriteString("import (\n")
	b.WriteString("\t\"fmt\"\n")
	b.WriteString("\t\"os\"\n")
	if g.needsTime {
		b.WriteString("\t\"time\"\n")
	}
	b.WriteString(")\n\n")

	b.WriteString("func main() {\n")
	b.WriteString("\tif err := run(); err != nil {\n")
	b.WriteString("\t\tfmt.Fprintln(os.Stderr, \"workflow failed:\", err)\n")
	b.WriteString("\t\tos.Exit(1)\n")
	b.WriteString("\t}\n")
	b.WriteString("}\n\n")

	b.WriteString("func run() error {\n")
	if len(g.doc.Workflow.Secrets) > 0 {
		// Secrets stay in the environment. Presence is re-checked at run
		// time; values are never baked into this file.
		b.WriteString("\tfor _, name := range []string{")
		for i, s := range g.doc.Workflow.Secrets {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(s.EnvVar))
		}
		b.WriteString("} {\n")
		b.WriteString("\t\tif _, ok := os.LookupEnv(name); !ok {\n")
		b.WriteString("\t\t\treturn fmt.Errorf(\"required environment variable %q is not set\", name)\n")
		b.WriteString("\t\t}\n")
		b.WriteString("\t}\n")
	}
	for _, agent := range g.doc.Workflow.Agents {
		fmt.Fprintf(&b, "\tif err := %s(); err != nil {\n\t\treturn err\n\t}\n", g.agentFns[agent.Name])
	}
	b.WriteString("\treturn nil\n")
	b.WriteString("}\n\n")

	b.WriteString(bodies.String())

	if g.needsGuard {
		b.WriteString("// runWithDeadline reports a deadline overrun instead of hanging the chain.\n")
		b.WriteString("func runWithDeadline(step string, limit time.Duration, action func() error) error {\n")
		b.WriteString("\tdone := make(chan error, 1)\n")
		b.WriteString("\tgo func() { done <- action() }()\n")
		b.WriteString("\tselect {\n")
		b.WriteString("\tcase err := <-done:\n")
		b.WriteString("\t\treturn err\n")
		b.WriteString("\tcase <-time.After(limit):\n")
		b.WriteString("\t\treturn fmt.Errorf(\"step %q exceeded its %s deadline\", step, limit)\n")
		b.WriteString("\t}\n")
		b.WriteString("}\n\n")
	}
	if g.needsFail {
		b.WriteString("// handleFailure dispatches a failed step's on_error strategy.\n")
		b.WriteString("func handleFailure(step, strategy string, err error) error {\n")
		b.WriteString("\tswitch strategy {\n")
		b.WriteString("\tcase \"skip\", \"continue\":\n")
		b.WriteString("\t\tfmt.Fprintf(os.Stderr, \"step %q failed (%s): %v\\n\", step, strategy, err)\n")
		b.WriteString("\t\treturn nil\n")
		b.WriteString("\tdefault:\n")
		b.WriteString("\t\treturn fmt.Errorf(\"step %q failed (%s): %w\", step, strategy, err)\n")
		b.WriteString("\t}\n")
		b.WriteString("}\n\n")
	}

	// User escape blocks for this target are spliced verbatim. Other
	// targets' blocks are not our business.
	for _, esc := range g.doc.Workflow.Escapes {
		if esc.Target != target {
			continue
		}
		fmt.Fprintf(&b, "// escape block (target %q)\n", esc.Target)
		b.WriteString(strings.TrimRight(esc.Code, "\n"))
		b.WriteString("\n\n")
	}

	return &Output{
		Code:        strings.TrimRight(b.String(), "\n") + "\n",
		Unsupported: g.unsupported,
	}
}

func (g *goGen) renderAgent(b *strings.Builder, target string, agent ir.Agent) {
	fmt.Fprintf(b, "// %s runs the %s step chain.\n", g.agentFns[agent.Name], strconv.Quote(agent.Name))
	fmt.Fprintf(b, "func %s() error {\n", g.agentFns[agent.Name])

	// Cleanup steps run when the agent finishes, success or not.
	for _, step := range agent.Steps {
		attr, ok := step.Attr(ir.KeyFinally)
		if !ok {
			continue
		}
		cleanup := attr.(ir.Finally).Target
		fmt.Fprintf(b, "\tdefer func() {\n")
		fmt.Fprintf(b, "\t\tif err := %s(); err != nil {\n", g.stepFn(agent.Name, cleanup))
		fmt.Fprintf(b, "\t\t\tfmt.Fprintln(os.Stderr, \"cleanup step %s failed:\", err)\n", quoteInString(cleanup))
		fmt.Fprintf(b, "\t\t}\n")
		fmt.Fprintf(b, "\t}()\n")
	}

	for _, step := range agent.Steps {
		fmt.Fprintf(b, "\tif err := %s(); err != nil {\n\t\treturn err\n\t}\n", g.stepFns[stepKey{agent.Name, step.Name}])
	}
	b.WriteString("\treturn nil\n")
	b.WriteString("}\n\n")

	for _, step := range agent.Steps {
		g.renderStep(b, target, agent.Name, step)
	}
}

func (g *goGen) renderStep(b *strings.Builder, target, agentName string, step ir.Step) {
	fn := g.stepFns[stepKey{agentName, step.Name}]
	fmt.Fprintf(b, "// %s runs step %s.\n", fn, strconv.Quote(step.Name))
	fmt.Fprintf(b, "func %s() error {\n", fn)

	fmt.Fprintf(b, "\taction := func() error {\n")
	fmt.Fprintf(b, "\t\tfmt.Printf(\"[%%s] step %%s\\n\", %s, %s)\n",
		strconv.Quote(agentName), strconv.Quote(step.Name))
	if attr, ok := step.Attr(ir.KeyArtifact); ok {
		path := attr.(ir.Artifact).Path
		content := fmt.Sprintf("step %s completed\n", strconv.Quote(step.Name))
		fmt.Fprintf(b, "\t\tif err := os.WriteFile(%s, []byte(%s), 0o644); err != nil {\n",
			strconv.Quote(path), strconv.Quote(content))
		fmt.Fprintf(b, "\t\t\treturn fmt.Errorf(\"write artifact %%s: %%w\", %s, err)\n", strconv.Quote(path))
		fmt.Fprintf(b, "\t\t}\n")
	}
	fmt.Fprintf(b, "\t\treturn nil\n")
	fmt.Fprintf(b, "\t}\n")

	call := "action()"
	if attr, ok := step.Attr(ir.KeyTimeout); ok {
		g.needsTime = true
		g.needsGuard = true
		call = fmt.Sprintf("runWithDeadline(%s, %d*time.Second, action)",
			strconv.Quote(step.Name), attr.(ir.Timeout).Seconds)
	}

	if attr, ok := step.Attr(ir.KeyRetry); ok {
		// retry: n means at most n+1 attempts, stopping at first success.
		attempts := attr.(ir.Retry).Count + 1
		fmt.Fprintf(b, "\tvar err error\n")
		fmt.Fprintf(b, "\tfor attempt := 0; attempt < %d; attempt++ {\n", attempts)
		fmt.Fprintf(b, "\t\terr = %s\n", call)
		fmt.Fprintf(b, "\t\tif err == nil {\n\t\t\tbreak\n\t\t}\n")
		fmt.Fprintf(b, "\t}\n")
	} else {
		fmt.Fprintf(b, "\terr := %s\n", call)
	}

	if attr, ok := step.Attr(ir.KeyOnError); ok {
		g.needsFail = true
		fmt.Fprintf(b, "\tif err != nil {\n")
		fmt.Fprintf(b, "\t\treturn handleFailure(%s, %s, err)\n",
			strconv.Quote(step.Name), strconv.Quote(attr.(ir.OnError).Strategy))
		fmt.Fprintf(b, "\t}\n")
	} else {
		fmt.Fprintf(b, "\tif err != nil {\n")
		fmt.Fprintf(b, "\t\treturn fmt.Errorf(\"step %%s: %%w\", %s, err)\n", strconv.Quote(step.Name))
		fmt.Fprintf(b, "\t}\n")
	}

	// Constructs outside the capability set leave a marker where the
	// logic would go. Escape resolution may fill it in later.
	for _, attr := range step.Attrs {
		if goCapabilities[attr.Key()] {
			continue
		}
		p := patternAt(target, agentName, step.Name, attr.Key())
		g.unsupported = append(g.unsupported, p)
		fmt.Fprintf(b, "\t%s\n", UnsupportedMarker(p.ID, p.Reason))
	}

	b.WriteString("\treturn nil\n")
	b.WriteString("}\n\n")
}

// exportedIdent folds an arbitrary step or agent name into a Go identifier
// fragment: letters and digits survive, word breaks upper-case the next rune.
func exportedIdent(name string) string {
	var b strings.Builder
	up := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			up = true
			continue
		}
		if up {
			b.WriteRune(unicode.ToUpper(r))
			up = false
		} else {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	s := b.String()
	if unicode.IsDigit(rune(s[0])) {
		s = "X" + s
	}
	return s
}

// quoteInString renders name as an escaped quoted literal suitable for
// embedding inside an already-quoted generated string.
func quoteInString(name string) string {
	quoted := strconv.Quote(name)
	return `\"` + quoted[1:len(quoted)-1] + `\"`
}
