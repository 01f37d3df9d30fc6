// Package testutil provides deterministic fakes for pipeline tests: a
// canned oracle, a fixed-verdict sandbox and environment snapshot helpers.
package testutil

import (
	"context"
	"sync"

	"github.com/StanzaFlow/StanzaFlow/internal/escape"
	"github.com/StanzaFlow/StanzaFlow/internal/safety"
)

// FakeOracle serves canned code per pattern ID and counts invocations.
// Safe for concurrent use; the escape engine resolves patterns in parallel.
type FakeOracle struct {
	mu    sync.Mutex
	calls int

	// Responses maps pattern IDs to the code to return. Patterns without
	// an entry get Default.
	Responses map[string]string

	// Default is returned for patterns not in Responses.
	Default string

	// Err, when set, fails every call.
	Err error
}

func (o *FakeOracle) Synthesize(_ context.Context, req escape.Request) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.Err != nil {
		return "", o.Err
	}
	if code, ok := o.Responses[req.PatternID]; ok {
		return code, nil
	}
	return o.Default, nil
}

// Calls reports how many times the oracle was invoked.
func (o *FakeOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// FakeSandbox returns a fixed verdict for every run.
type FakeSandbox struct {
	mu    sync.Mutex
	calls int

	Verdict safety.Verdict
}

func (s *FakeSandbox) RunIsolated(context.Context, string, safety.Limits) safety.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.Verdict
}

// Calls reports how many times the sandbox ran.
func (s *FakeSandbox) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
