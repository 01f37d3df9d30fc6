package ir

import (
	"encoding/json"
	"fmt"
)

// Document is the compiler-facing contract between lowering and code
// generation. It is constructed once per compile, schema-validated before
// any code generation begins, then held read-only.
type Document struct {
	IRVersion string   `json:"ir_version"`
	Workflow  Workflow `json:"workflow"`
}

// Workflow is the single workflow a document describes.
type Workflow struct {
	Title   string        `json:"title"`
	Agents  []Agent       `json:"agents"`
	Escapes []EscapeBlock `json:"escape_blocks"`
	Secrets []SecretRef   `json:"secrets"`
}

// Agent is a named execution unit with an ordered step chain.
// Names are unique within a document.
type Agent struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// EscapeBlock is an opaque code region bound to one target runtime.
// Adapters splice blocks matching their tag and ignore the rest.
type EscapeBlock struct {
	Target string `json:"target"`
	Code   string `json:"code"`
}

// SecretRef names an environment variable resolved at compile time.
type SecretRef struct {
	EnvVar string `json:"env_var"`
}

// Step is a named action with a closed set of recognized attributes.
type Step struct {
	Name  string
	Attrs []StepAttr
}

// Recognized attribute keys. The set is closed: lowering rejects anything
// else, so generators can treat attribute dispatch as a total match.
const (
	KeyArtifact = "artifact"
	KeyRetry    = "retry"
	KeyTimeout  = "timeout"
	KeyOnError  = "on_error"
	KeyBranch   = "branch"
	KeyFinally  = "finally"
)

// StepAttr is a sealed interface with one case per recognized attribute.
// The marker method prevents external implementations and keeps type
// switches in generators exhaustive.
type StepAttr interface {
	attrNode() // sealed
	Key() string
}

// Artifact declares the step's output path.
type Artifact struct{ Path string }

func (Artifact) attrNode()   {}
func (Artifact) Key() string { return KeyArtifact }

// Retry bounds re-execution: the action runs at most Count+1 times and
// stops at the first success.
type Retry struct{ Count int }

func (Retry) attrNode()   {}
func (Retry) Key() string { return KeyRetry }

// Timeout is a wall-clock deadline in seconds for the step's action.
type Timeout struct{ Seconds int }

func (Timeout) attrNode()   {}
func (Timeout) Key() string { return KeyTimeout }

// OnError names the error-handling strategy dispatched when the step fails.
type OnError struct{ Strategy string }

func (OnError) attrNode()   {}
func (OnError) Key() string { return KeyOnError }

// Branch names the conditional target step. No bundled adapter can express
// it natively; it is the canonical unsupported pattern.
type Branch struct{ Target string }

func (Branch) attrNode()   {}
func (Branch) Key() string { return KeyBranch }

// Finally names the cleanup step guaranteed to run when the enclosing agent
// completes, whether or not its steps succeeded.
type Finally struct{ Target string }

func (Finally) attrNode()   {}
func (Finally) Key() string { return KeyFinally }

// Attr returns the step's attribute with the given key, if present.
func (s Step) Attr(key string) (StepAttr, bool) {
	for _, a := range s.Attrs {
		if a.Key() == key {
			return a, true
		}
	}
	return nil, false
}

// attrMap renders attributes as the wire-format mapping with fixed keys.
func (s Step) attrMap() map[string]any {
	m := make(map[string]any, len(s.Attrs))
	for _, a := range s.Attrs {
		switch attr := a.(type) {
		case Artifact:
			m[KeyArtifact] = attr.Path
		case Retry:
			m[KeyRetry] = attr.Count
		case Timeout:
			m[KeyTimeout] = attr.Seconds
		case OnError:
			m[KeyOnError] = attr.Strategy
		case Branch:
			m[KeyBranch] = attr.Target
		case Finally:
			m[KeyFinally] = attr.Target
		}
	}
	return m
}

// MarshalJSON serializes the step as {"name": ..., "attributes": {...}}.
// encoding/json sorts map keys, so output is deterministic.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string         `json:"name"`
		Attrs map[string]any `json:"attributes"`
	}{Name: s.Name, Attrs: s.attrMap()})
}

// UnmarshalJSON parses the wire format back into typed attributes.
// Unrecognized keys are an error: the attribute set is closed.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string                     `json:"name"`
		Attrs map[string]json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.Attrs = nil

	// Iterate in canonical key order for deterministic attr ordering.
	for _, key := range []string{KeyArtifact, KeyBranch, KeyFinally, KeyOnError, KeyRetry, KeyTimeout} {
		val, ok := raw.Attrs[key]
		if !ok {
			continue
		}
		attr, err := decodeAttr(key, val)
		if err != nil {
			return fmt.Errorf("step %q: %w", raw.Name, err)
		}
		s.Attrs = append(s.Attrs, attr)
		delete(raw.Attrs, key)
	}
	for key := range raw.Attrs {
		return fmt.Errorf("step %q: unrecognized attribute key %q", raw.Name, key)
	}
	return nil
}

func decodeAttr(key string, val json.RawMessage) (StepAttr, error) {
	switch key {
	case KeyRetry, KeyTimeout:
		var n int
		if err := json.Unmarshal(val, &n); err != nil {
			return nil, fmt.Errorf("attribute %q: expected integer: %w", key, err)
		}
		if key == KeyRetry {
			return Retry{Count: n}, nil
		}
		return Timeout{Seconds: n}, nil
	default:
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return nil, fmt.Errorf("attribute %q: expected string: %w", key, err)
		}
		switch key {
		case KeyArtifact:
			return Artifact{Path: s}, nil
		case KeyOnError:
			return OnError{Strategy: s}, nil
		case KeyBranch:
			return Branch{Target: s}, nil
		case KeyFinally:
			return Finally{Target: s}, nil
		}
		return nil, fmt.Errorf("unrecognized attribute key %q", key)
	}
}

// Fragment builds the hashable IR fragment for a step, used to derive
// escape-cache keys. It covers the enclosing agent, the step name and the
// full attribute mapping.
func (s Step) Fragment(agentName string) Object {
	attrs := make(Object, len(s.Attrs))
	for k, v := range s.attrMap() {
		switch val := v.(type) {
		case string:
			attrs[k] = String(val)
		case int:
			attrs[k] = Int(val)
		}
	}
	return Object{
		"agent":      String(agentName),
		"step":       String(s.Name),
		"attributes": attrs,
	}
}

// Agent looks up an agent by name.
func (w *Workflow) Agent(name string) (*Agent, bool) {
	for i := range w.Agents {
		if w.Agents[i].Name == name {
			return &w.Agents[i], true
		}
	}
	return nil, false
}
