// Package safety screens synthesized code before it is cached or injected.
//
// Validation runs in two stages. The static stage parses the candidate and
// rejects denylisted capabilities by resolving import paths, so aliased
// imports cannot slip through. The dynamic stage hands survivors to a
// pluggable Sandbox for isolated execution under hard limits. A candidate is
// injected only if both stages accept it; rejection never fails the compile,
// it just leaves the marker in place.
package safety

import (
	"context"
	"time"
)

// Verdict is the outcome of a validation stage. Rejections carry the reason
// so it can be annotated onto the unresolved marker.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Accept returns an accepting verdict.
func Accept() Verdict { return Verdict{Accepted: true} }

// Reject returns a rejecting verdict with the given reason.
func Reject(reason string) Verdict { return Verdict{Reason: reason} }

// Limits bounds one isolated execution.
type Limits struct {
	Timeout time.Duration
}

// DefaultLimits is the hard ceiling applied when the caller sets nothing.
var DefaultLimits = Limits{Timeout: 5 * time.Second}

// Sandbox executes a candidate in isolation. Implementations must honor the
// context and the limits; a run that outlives either is a rejection.
type Sandbox interface {
	RunIsolated(ctx context.Context, code string, limits Limits) Verdict
}

// Validator chains the static stage with a sandbox. A nil Sandbox skips the
// dynamic stage, which keeps the static screen usable in environments where
// no executor is available.
type Validator struct {
	sandbox Sandbox
	limits  Limits
}

// NewValidator builds a validator around the given sandbox.
func NewValidator(sandbox Sandbox, limits Limits) *Validator {
	if limits.Timeout <= 0 {
		limits = DefaultLimits
	}
	return &Validator{sandbox: sandbox, limits: limits}
}

// Validate runs both stages against a candidate.
func (v *Validator) Validate(ctx context.Context, code string) Verdict {
	if verdict := StaticCheck(code); !verdict.Accepted {
		return verdict
	}
	if v.sandbox == nil {
		return Accept()
	}
	return v.sandbox.RunIsolated(ctx, code, v.limits)
}
