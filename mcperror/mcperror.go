// Package mcperror provides the typed protocol-error type raised by the
// router and providers for violations that must interrupt the call pipeline
// (spec.md §7): unknown tools, invalid arguments, permission denials,
// injected faults, and the various "unknown_*"/"invalid_*" resource errors.
//
// Domain errors (unknown_po, consent_violation, ...) are NOT represented
// here: spec.md requires those to be returned inline as
// map[string]any{"error": {"code", "message"}} results rather than Go
// errors, so that they never interrupt the dispatch pipeline.
package mcperror

import "fmt"

// Well-known error codes. These are stable wire identifiers (spec.md §7);
// adapters map them to their own transport's error envelope.
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArgs      = "invalid_args"
	CodePermissionDenied = "permission_denied"
	CodeUnsupportedTool  = "unsupported_tool"
	CodeUnknownChannel   = "unknown_channel"
	CodeUnknownMessage   = "unknown_message"
	CodeInvalidAction    = "invalid_action"
	CodeFaultInjected    = "fault.injected"
	CodeOktaUserNotFound  = "okta.user_not_found"
	CodeOktaInvalidState  = "okta.invalid_state"
	CodeOktaGroupNotFound = "okta.group_not_found"
	CodeOktaAppNotFound   = "okta.app_not_found"
	CodeServiceDeskIncidentNotFound = "servicedesk.incident_not_found"
	CodeServiceDeskRequestNotFound  = "servicedesk.request_not_found"
)

// Error is a structured protocol failure. It satisfies the error interface
// and supports errors.Is against a sentinel Error carrying only a Code, the
// same way the teacher's ToolError supports errors.Is/As via Unwrap.
type Error struct {
	// Code is the stable, wire-visible error identifier.
	Code string
	// Message is the human-readable detail.
	Message string
}

// New constructs an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf constructs an Error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, mcperror.New(mcperror.CodeUnknownTool, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// AsResponse renders the error the way the trace logger records a failed
// call's response field.
func (e *Error) AsResponse() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    e.Code,
			"message": e.Message,
		},
	}
}

// DomainError builds the inline {"error": {"code","message"}} shape spec.md
// §7 requires for domain errors (unknown_po, consent_violation, ...). It
// never returns a Go error; providers return the map directly as their
// result.
func DomainError(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
