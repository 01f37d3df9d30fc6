// Package escape resolves unsupported-pattern markers left by adapters.
//
// Each pattern runs through a fixed state machine: cache lookup first, then
// oracle synthesis, then static and sandbox validation, then cache write and
// injection. A cache hit bypasses the oracle and re-validation entirely. No
// outcome in this package ever fails the compile: patterns that cannot be
// resolved keep their markers, annotated with the reason.
//
// Resolution of independent patterns may run concurrently, but injection is
// strictly in document order, so output bytes are deterministic for a given
// cache state.
package escape

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/StanzaFlow/StanzaFlow/internal/adapter"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/safety"
)

// State names one node of the per-pattern state machine.
type State string

const (
	StateDetected          State = "detected"
	StateCacheLookup       State = "cache_lookup"
	StateCacheHit          State = "cache_hit"
	StateCacheMiss         State = "cache_miss"
	StateOracleInvoked     State = "oracle_invoked"
	StateCandidateReceived State = "candidate_received"
	StateStaticValidation  State = "static_validation"
	StateSandboxValidation State = "sandbox_validation"
	StateCached            State = "cached"

	// Terminal states.
	StateInjected   State = "injected"   // code spliced into the output
	StateRejected   State = "rejected"   // synthesis or validation failed
	StateUnresolved State = "unresolved" // synthesis disabled, marker kept
)

// Resolution records the outcome for one pattern.
type Resolution struct {
	PatternID string  `json:"pattern_id"`
	Key       string  `json:"key,omitempty"`
	Trace     []State `json:"trace"`
	State     State   `json:"state"`
	Reason    string  `json:"reason,omitempty"`
	FromCache bool    `json:"from_cache"`

	code string
}

// Result is the output of one resolution pass.
type Result struct {
	Code        string       `json:"code"`
	Session     uuid.UUID    `json:"session"`
	Resolutions []Resolution `json:"resolutions"`
}

// Injected counts resolutions that ended in injection.
func (r *Result) Injected() int {
	n := 0
	for _, res := range r.Resolutions {
		if res.State == StateInjected {
			n++
		}
	}
	return n
}

// Options configures an Engine. The zero value is a disabled engine with an
// in-process cache.
type Options struct {
	// Oracle synthesizes candidates. Nil disables synthesis: patterns
	// resolve from cache or stay unresolved.
	Oracle Oracle

	// Cache stores accepted candidates. Nil uses a process-local cache.
	Cache Cache

	// Validator screens candidates. Nil uses the static stage only.
	Validator *safety.Validator

	// Stale marks cache hits that should be re-synthesized. Nil means
	// hits are always served.
	Stale StaleFunc

	// Workers bounds concurrent resolutions. Zero means 4.
	Workers int
}

// Engine resolves the unsupported patterns of one or more compiles. Each
// engine carries a session token correlating its resolutions in reports.
type Engine struct {
	oracle    Oracle
	cache     Cache
	validator *safety.Validator
	stale     StaleFunc
	workers   int
	session   uuid.UUID
}

// New builds an engine from options.
func New(opts Options) *Engine {
	e := &Engine{
		oracle:    opts.Oracle,
		cache:     opts.Cache,
		validator: opts.Validator,
		stale:     opts.Stale,
		workers:   opts.Workers,
		session:   uuid.Must(uuid.NewV7()),
	}
	if e.cache == nil {
		e.cache = NewMemoryCache()
	}
	if e.validator == nil {
		e.validator = safety.NewValidator(nil, safety.DefaultLimits)
	}
	if e.workers <= 0 {
		e.workers = 4
	}
	return e
}

// Session returns the engine's session token.
func (e *Engine) Session() uuid.UUID { return e.session }

// Resolve runs the state machine for every pattern the adapter reported and
// splices accepted code into the output. Markers for patterns that did not
// reach injection stay in place, annotated.
func (e *Engine) Resolve(ctx context.Context, doc *ir.Document, out *adapter.Output) *Result {
	result := &Result{Code: out.Code, Session: e.session}
	if len(out.Unsupported) == 0 {
		return result
	}

	fragments := fragmentIndex(doc)
	result.Resolutions = make([]Resolution, len(out.Unsupported))

	p := pool.New().WithMaxGoroutines(e.workers)
	for i, pattern := range out.Unsupported {
		p.Go(func() {
			result.Resolutions[i] = e.resolveOne(ctx, pattern, fragments[pattern.ID])
		})
	}
	p.Wait()

	// Injection order is document order regardless of which resolution
	// finished first.
	code := result.Code
	for _, res := range result.Resolutions {
		if res.State == StateInjected {
			code, _ = adapter.ReplaceMarker(code, res.PatternID, res.code)
		} else {
			code, _ = adapter.AnnotateMarker(code, res.PatternID, "unresolved: "+res.Reason)
		}
	}
	result.Code = code
	return result
}

func (e *Engine) resolveOne(ctx context.Context, p adapter.UnsupportedPattern, fragment ir.Object) Resolution {
	r := Resolution{PatternID: p.ID, Trace: []State{StateDetected}}

	key, err := ir.EscapeKey(p.ID, p.Target, fragment)
	if err != nil {
		r.State = StateRejected
		r.Reason = "derive cache key: " + err.Error()
		return r
	}
	r.Key = key

	r.Trace = append(r.Trace, StateCacheLookup)
	if entry, ok, err := e.cache.Get(key); err == nil && ok && (e.stale == nil || !e.stale(entry)) {
		r.Trace = append(r.Trace, StateCacheHit, StateInjected)
		r.State = StateInjected
		r.FromCache = true
		r.code = entry.Code
		return r
	}
	r.Trace = append(r.Trace, StateCacheMiss)

	if e.oracle == nil {
		r.State = StateUnresolved
		r.Reason = "escape synthesis disabled"
		return r
	}

	r.Trace = append(r.Trace, StateOracleInvoked)
	code, err := e.oracle.Synthesize(ctx, Request{
		PatternID: p.ID,
		Target:    p.Target,
		IRPath:    p.IRPath,
		Reason:    p.Reason,
		Fragment:  fragment,
	})
	if err != nil {
		r.State = StateRejected
		r.Reason = err.Error()
		return r
	}

	r.Trace = append(r.Trace, StateCandidateReceived, StateStaticValidation, StateSandboxValidation)
	if verdict := e.validator.Validate(ctx, code); !verdict.Accepted {
		r.State = StateRejected
		r.Reason = verdict.Reason
		return r
	}

	entry := Entry{
		Key:       key,
		PatternID: p.ID,
		Target:    p.Target,
		Code:      code,
		Verdict:   "accepted",
		CreatedAt: time.Now().UTC(),
	}
	if err := e.cache.Put(entry); err == nil {
		r.Trace = append(r.Trace, StateCached)
	}

	r.Trace = append(r.Trace, StateInjected)
	r.State = StateInjected
	r.code = code
	return r
}

// fragmentIndex maps every attribute site's pattern ID to the hashable
// fragment of its step.
func fragmentIndex(doc *ir.Document) map[string]ir.Object {
	idx := make(map[string]ir.Object)
	for _, agent := range doc.Workflow.Agents {
		for _, step := range agent.Steps {
			fragment := step.Fragment(agent.Name)
			for _, attr := range step.Attrs {
				path := adapter.PatternPath(agent.Name, step.Name, attr.Key())
				idx[ir.StableID("pattern", path)] = fragment
			}
		}
	}
	return idx
}
