// Package policy implements the policy engine (C8): maps monitor findings to
// policy outcomes with a configurable severity promotion table.
package policy

import (
	"strings"

	"github.com/vei-sim/vei/monitor"
)

// Finding is an elevated monitor finding carrying a (possibly promoted)
// policy severity.
type Finding struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Tool     string `json:"tool,omitempty"`
}

// Engine promotes monitor.Finding severities via a code->severity table.
// The default table is empty (findings pass through with their original
// severity); overrides are supplied as "code:severity" pairs, matching the
// promote environment variable described in spec.md §4.10/§6.
type Engine struct {
	overrides map[string]string
	maxTail   int
	tail      []Finding
}

// DefaultTailSize bounds the policy findings tail, matching the monitor
// findings tail bound.
const DefaultTailSize = 200

// New constructs an Engine with no overrides.
func New() *Engine {
	return &Engine{overrides: make(map[string]string), maxTail: DefaultTailSize}
}

// WithOverrides parses "code:severity" pairs (as from a promote
// configuration CSV) and returns an Engine with those promotions applied.
func WithOverrides(pairs []string) *Engine {
	e := New()
	for _, pair := range pairs {
		code, severity, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		e.overrides[code] = severity
	}
	return e
}

// SetOverride promotes code to severity, overriding any default or prior
// override for that code. The underlying monitor finding is never mutated —
// only the policy-level severity changes, per spec.md §8's policy-promotion
// invariant.
func (e *Engine) SetOverride(code, severity string) {
	e.overrides[code] = severity
}

// Evaluate maps findings through the promotion table and appends the
// results to the bounded policy findings tail.
func (e *Engine) Evaluate(findings []monitor.Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		severity := f.Severity
		if promoted, ok := e.overrides[f.Code]; ok {
			severity = promoted
		}
		out = append(out, Finding{Code: f.Code, Severity: severity, Message: f.Message, Tool: f.Tool})
	}
	e.tail = append(e.tail, out...)
	if len(e.tail) > e.maxTail {
		e.tail = e.tail[len(e.tail)-e.maxTail:]
	}
	return out
}

// Tail returns a copy of the bounded policy findings history.
func (e *Engine) Tail() []Finding {
	out := make([]Finding, len(e.tail))
	copy(out, e.tail)
	return out
}
