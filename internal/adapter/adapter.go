// Package adapter turns validated IR documents into runnable source for a
// target runtime.
//
// Adapters follow an escape-not-trap contract: a construct the target cannot
// express never aborts generation. The adapter emits a marker comment at the
// site, records an UnsupportedPattern, and keeps going. The escape subsystem
// may later replace markers with synthesized code; markers it cannot resolve
// stay in the output, annotated.
package adapter

import (
	"fmt"
	"sort"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

// UnsupportedPattern identifies one construct the target runtime has no
// native form for. The ID is content-derived from the IR path, so the same
// construct in the same place always produces the same pattern.
type UnsupportedPattern struct {
	ID     string `json:"id"`
	IRPath string `json:"ir_path"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Output is the result of one generation pass.
type Output struct {
	Code        string               `json:"code"`
	Unsupported []UnsupportedPattern `json:"unsupported"`
}

// Adapter generates target-runtime source from an IR document.
type Adapter interface {
	// Target is the tag matched against escape-block targets and the
	// --target flag.
	Target() string

	// Capabilities reports which step attribute keys the target can
	// express natively. Anything outside the set becomes a marker.
	Capabilities() map[string]bool

	// Generate renders the document. It fails only on documents that
	// should never reach it (wrong ir_version); unsupported constructs
	// are reported in Output, not as errors.
	Generate(doc *ir.Document) (*Output, error)
}

// UnknownTargetError reports a --target value with no registered adapter.
type UnknownTargetError struct {
	Target string
	Known  []string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("no adapter for target %q (known: %v)", e.Target, e.Known)
}

// Registry holds the adapters available to one compile. It is constructed
// explicitly and passed down; there is no global registration.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Target()] = a
	}
	return r
}

// Default returns the registry of bundled adapters.
func Default() *Registry {
	return NewRegistry(NewGo())
}

// Lookup resolves a target tag to its adapter.
func (r *Registry) Lookup(target string) (Adapter, error) {
	a, ok := r.adapters[target]
	if !ok {
		return nil, &UnknownTargetError{Target: target, Known: r.Targets()}
	}
	return a, nil
}

// Targets lists registered target tags in sorted order.
func (r *Registry) Targets() []string {
	out := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Gaps reports, without generating code, every construct in doc the adapter
// cannot express natively. Used for fail-fast capability checks when escape
// synthesis is disabled.
func Gaps(a Adapter, doc *ir.Document) []UnsupportedPattern {
	caps := a.Capabilities()
	var gaps []UnsupportedPattern
	for _, agent := range doc.Workflow.Agents {
		for _, step := range agent.Steps {
			for _, attr := range step.Attrs {
				if !caps[attr.Key()] {
					gaps = append(gaps, patternAt(a.Target(), agent.Name, step.Name, attr.Key()))
				}
			}
		}
	}
	return gaps
}

// PatternPath renders the IR path of one attribute site. Pattern IDs are
// derived from it, so the escape subsystem uses the same function to map
// reported patterns back to their steps.
func PatternPath(agent, step, key string) string {
	return fmt.Sprintf("workflow.agents.%s.steps.%s.%s", agent, step, key)
}

// patternAt builds the UnsupportedPattern for one attribute site. Adapters
// and Gaps share it so pattern IDs agree.
func patternAt(target, agent, step, key string) UnsupportedPattern {
	path := PatternPath(agent, step, key)
	return UnsupportedPattern{
		ID:     ir.StableID("pattern", path),
		IRPath: path,
		Target: target,
		Reason: fmt.Sprintf("target %q has no native form for %q", target, key),
	}
}
