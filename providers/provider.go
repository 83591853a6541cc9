// Package providers defines the common contract for per-domain tool
// handlers (C6): chat, mail, browser, ERP, CRM, identity, tickets, docs,
// calendar, and service desk. Each provider owns its slice of simulation
// state exclusively for the Router's lifetime.
package providers

import "github.com/vei-sim/vei/registry"

// Provider is implemented by every domain handler. The router dispatches a
// call to the first registered provider whose Handles returns true.
//
// Providers return plain maps (never an error) for expected domain errors —
// wrapped as map[string]any{"error": {"code", "message"}} via
// mcperror.DomainError — and only return a Go error for protocol violations
// (unknown tool, invalid arguments, simulated faults), which the router
// surfaces as a typed error and never treats as a normal result.
type Provider interface {
	// Specs returns the ToolSpecs this provider registers.
	Specs() []registry.ToolSpec
	// Handles reports whether this provider owns tool.
	Handles(tool string) bool
	// Call dispatches tool with args and returns either a result or a
	// protocol-violation error.
	Call(tool string, args map[string]any) (any, error)
}
