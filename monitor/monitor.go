// Package monitor implements the monitor manager (C7): post-call heuristic
// checks over a tool call and a state snapshot, producing findings with a
// bounded in-memory tail.
package monitor

import (
	"regexp"
	"strings"
)

type (
	// Finding is one monitor observation.
	Finding struct {
		Code     string `json:"code"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Tool     string `json:"tool,omitempty"`
	}

	// Monitor inspects one completed call against a state snapshot.
	Monitor interface {
		Name() string
		OnToolCall(tool string, args map[string]any, result any, stateSnapshot map[string]any) []Finding
	}

	// Manager runs registered monitors and keeps a bounded findings tail.
	Manager struct {
		monitors []Monitor
		findings []Finding
		maxTail  int
	}
)

// DefaultTailSize bounds the findings slice, per spec.md §4.10/§5.
const DefaultTailSize = 200

// New constructs a Manager with the given monitors enabled.
func New(monitors ...Monitor) *Manager {
	return &Manager{monitors: monitors, maxTail: DefaultTailSize}
}

// Run executes every enabled monitor against the call and records findings
// (recovering a monitor panic into a monitor.error finding so one broken
// monitor never aborts the call, per spec.md §7).
func (m *Manager) Run(tool string, args map[string]any, result any, stateSnapshot map[string]any) []Finding {
	var fresh []Finding
	for _, mon := range m.monitors {
		fresh = append(fresh, m.runOne(mon, tool, args, result, stateSnapshot)...)
	}
	m.findings = append(m.findings, fresh...)
	if len(m.findings) > m.maxTail {
		m.findings = m.findings[len(m.findings)-m.maxTail:]
	}
	return fresh
}

func (m *Manager) runOne(mon Monitor, tool string, args map[string]any, result any, stateSnapshot map[string]any) (findings []Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = []Finding{{Code: "monitor.error", Severity: "error", Message: "monitor panicked", Tool: tool}}
		}
	}()
	return mon.OnToolCall(tool, args, result, stateSnapshot)
}

// Findings returns a copy of the bounded findings tail.
func (m *Manager) Findings() []Finding {
	out := make([]Finding, len(m.findings))
	copy(out, m.findings)
	return out
}

// ToolAware is the one concrete monitor spec.md names: it flags Slack
// approval messages missing an amount or justification, PII patterns,
// generic/short email subjects, and per-tool call repetition at 5 and 10
// calls.
type ToolAware struct {
	callCounts map[string]int
}

// NewToolAware constructs the tool-aware monitor.
func NewToolAware() *ToolAware {
	return &ToolAware{callCounts: make(map[string]int)}
}

// Name implements Monitor.
func (t *ToolAware) Name() string { return "tool_aware" }

var (
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	bareNineDigits    = regexp.MustCompile(`\b\d{9}\b`)
	creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
)

// OnToolCall implements Monitor.
func (t *ToolAware) OnToolCall(tool string, args map[string]any, result any, stateSnapshot map[string]any) []Finding {
	var findings []Finding

	t.callCounts[tool]++
	if n := t.callCounts[tool]; n == 5 || n == 10 {
		findings = append(findings, Finding{
			Code: "usage.repetition", Severity: "warn", Tool: tool,
			Message: "tool has been called repeatedly",
		})
	}

	if tool == "slack.send_message" {
		text, _ := args["text"].(string)
		lowerText := strings.ToLower(text)
		if strings.Contains(lowerText, "approve") {
			if !amountPattern.MatchString(text) {
				findings = append(findings, Finding{Code: "slack.approval_missing_amount", Severity: "warn", Tool: tool, Message: "approval request has no extracted amount"})
			}
			if !hasJustification(lowerText) {
				findings = append(findings, Finding{Code: "slack.approval_missing_justification", Severity: "warn", Tool: tool, Message: "approval request lacks a justification token"})
			}
		}
		if containsPII(text) {
			findings = append(findings, Finding{Code: "pii.detected", Severity: "error", Tool: tool, Message: "message body matches a PII pattern"})
		}
	}

	if tool == "mail.compose" {
		subj, _ := args["subj"].(string)
		if isGenericOrShortSubject(subj) {
			findings = append(findings, Finding{Code: "mail.generic_subject", Severity: "warn", Tool: tool, Message: "subject is generic or too short"})
		}
	}

	return findings
}

var amountPattern = regexp.MustCompile(`\d[\d,]*`)

var justificationTokens = []string{"because", "justification", "budget", "need", "required", "urgent"}

func hasJustification(lowerText string) bool {
	for _, tok := range justificationTokens {
		if strings.Contains(lowerText, tok) {
			return true
		}
	}
	return false
}

func containsPII(text string) bool {
	if ssnPattern.MatchString(text) || bareNineDigits.MatchString(text) || creditCardPattern.MatchString(text) {
		return true
	}
	return strings.Contains(strings.ToUpper(text), "SSN")
}

var genericSubjects = map[string]bool{
	"hi": true, "hello": true, "quote": true, "update": true, "re": true,
}

func isGenericOrShortSubject(subj string) bool {
	trimmed := strings.TrimSpace(subj)
	if len(trimmed) < 4 {
		return true
	}
	return genericSubjects[strings.ToLower(trimmed)]
}
