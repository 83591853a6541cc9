// Package alias implements the alias layer (C14): prefix-mapped alternate
// tool names (e.g. Xero->ERP) registered as passthrough entries so the
// router's normal dispatch resolves them to the same underlying provider.
package alias

import "strings"

// Pack is one vendor-style alias prefix mapping onto a base domain prefix.
type Pack struct {
	Name         string
	AliasPrefix  string // e.g. "xero."
	TargetPrefix string // e.g. "erp."
}

// Known alias packs. Enablement is selected at construction via a CSV of
// pack names (spec.md §6).
var knownPacks = map[string]Pack{
	"xero":        {Name: "xero", AliasPrefix: "xero.", TargetPrefix: "erp."},
	"quickbooks":  {Name: "quickbooks", AliasPrefix: "qbo.", TargetPrefix: "erp."},
	"hubspot":     {Name: "hubspot", AliasPrefix: "hubspot.", TargetPrefix: "crm."},
	"salesforce":  {Name: "salesforce", AliasPrefix: "sfdc.", TargetPrefix: "crm."},
}

// Layer resolves alias tool names to their base-prefix equivalents. It does
// not alter tool semantics — the resolved name is dispatched exactly as if
// the caller had used the base prefix.
type Layer struct {
	packs []Pack
	// toolAlias maps specific alias tool name -> base tool name, populated
	// as the router registers each base spec (see Register).
	toolAlias map[string]string
}

// New constructs a Layer enabled for the named packs (unknown names are
// ignored).
func New(packNames []string) *Layer {
	l := &Layer{toolAlias: make(map[string]string)}
	for _, name := range packNames {
		if pack, ok := knownPacks[name]; ok {
			l.packs = append(l.packs, pack)
		}
	}
	return l
}

// Register synthesises an alias tool name for baseToolName under every
// enabled pack whose TargetPrefix matches, and returns the list of alias
// names created. Called once per base ToolSpec at router construction.
func (l *Layer) Register(baseToolName string) []string {
	var created []string
	for _, pack := range l.packs {
		if !strings.HasPrefix(baseToolName, pack.TargetPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(baseToolName, pack.TargetPrefix)
		aliasName := pack.AliasPrefix + suffix
		l.toolAlias[aliasName] = baseToolName
		created = append(created, aliasName)
	}
	return created
}

// Resolve returns the base tool name for an alias tool name, or the input
// unchanged (with ok=false) if it is not a known alias.
func (l *Layer) Resolve(toolName string) (string, bool) {
	base, ok := l.toolAlias[toolName]
	if !ok {
		return toolName, false
	}
	return base, true
}
