// Package observation implements the observation builder (C15): focus
// summaries and action menus handed back to the calling agent by
// vei.observe and vei.act_and_observe, per spec.md §4.8.
package observation

import (
	"fmt"

	"github.com/vei-sim/vei/providers/browser"
	"github.com/vei-sim/vei/providers/chat"
	"github.com/vei-sim/vei/providers/crm"
	"github.com/vei-sim/vei/providers/erp"
	"github.com/vei-sim/vei/providers/mail"
)

// Action is one entry in an action_menu: a callable tool with a short
// argument hint.
type Action struct {
	Tool  string `json:"tool"`
	Label string `json:"label"`
}

// Snapshot is the full observation payload returned to the caller.
type Snapshot struct {
	Focus        string   `json:"focus"`
	Summary      string   `json:"summary"`
	ActionMenu   []Action `json:"action_menu"`
	PendingCount int      `json:"pending_count"`
	ClockMS      int64    `json:"clock_ms"`
}

// Builder renders focus summaries and action menus from the live provider
// state. All fields are optional; a focus whose provider is unset degrades
// to a generic summary rather than panicking.
type Builder struct {
	Chat    *chat.Provider
	Mail    *mail.Provider
	Browser *browser.Provider
	ERP     *erp.Provider
	CRM     *crm.Provider

	// ProcurementChannel is the channel slack summaries read from.
	ProcurementChannel string
}

// New constructs a Builder wired to the router's live providers.
func New(chatP *chat.Provider, mailP *mail.Provider, browserP *browser.Provider, erpP *erp.Provider, crmP *crm.Provider, procurementChannel string) *Builder {
	return &Builder{
		Chat: chatP, Mail: mailP, Browser: browserP, ERP: erpP, CRM: crmP,
		ProcurementChannel: procurementChannel,
	}
}

// Build renders a Snapshot for focus ("" defaults to "browser"), given the
// bus's pending count and current clock.
func (b *Builder) Build(focus string, pendingCount int, clockMS int64) Snapshot {
	if focus == "" {
		focus = "browser"
	}
	return Snapshot{
		Focus:        focus,
		Summary:      b.summary(focus),
		ActionMenu:   b.actionMenu(focus),
		PendingCount: pendingCount,
		ClockMS:      clockMS,
	}
}

func (b *Builder) summary(focus string) string {
	switch focus {
	case "browser":
		return b.browserSummary()
	case "slack":
		return b.slackSummary()
	case "mail":
		return b.mailSummary()
	case "erp":
		return b.erpSummary()
	case "crm":
		return b.crmSummary()
	}
	return ""
}

func (b *Builder) browserSummary() string {
	if b.Browser == nil {
		return ""
	}
	title, excerpt := b.Browser.Current()
	return fmt.Sprintf("Browser: %s — %s", title, excerpt)
}

func (b *Builder) slackSummary() string {
	if b.Chat == nil {
		return ""
	}
	channel := b.ProcurementChannel
	if channel == "" {
		channel = "#procurement"
	}
	msg, ok := b.Chat.LastMessage(channel)
	if !ok {
		return fmt.Sprintf("%s: no messages yet", channel)
	}
	return fmt.Sprintf("%s: %s", channel, msg.Text)
}

func (b *Builder) mailSummary() string {
	if b.Mail == nil {
		return ""
	}
	top, ok := b.Mail.TopInbox()
	if !ok {
		return "INBOX empty"
	}
	return fmt.Sprintf("%s: %s", top.ID, top.Subj)
}

func (b *Builder) erpSummary() string {
	if b.ERP == nil {
		return ""
	}
	pos, invoices := b.ERP.Counts()
	return fmt.Sprintf("ERP: %d purchase orders, %d invoices", pos, invoices)
}

func (b *Builder) crmSummary() string {
	if b.CRM == nil {
		return ""
	}
	contacts, deals := b.CRM.Counts()
	return fmt.Sprintf("CRM: %d contacts, %d deals", contacts, deals)
}

// actionMenu returns the focused node's affordances (browser) or the
// static per-focus tool schema list (spec.md §4.8).
func (b *Builder) actionMenu(focus string) []Action {
	switch focus {
	case "browser":
		return b.browserActionMenu()
	case "slack":
		return []Action{{Tool: "slack.send_message", Label: "send_message(channel, text, thread_ts?)"}}
	case "mail":
		return []Action{{Tool: "mail.compose", Label: "compose(to, subj, body)"}}
	case "erp":
		return []Action{
			{Tool: "erp.create_po", Label: "create_po(lines)"},
			{Tool: "erp.list_pos", Label: "list_pos()"},
			{Tool: "erp.submit_invoice", Label: "submit_invoice(po_id, lines)"},
			{Tool: "erp.match_three_way", Label: "match_three_way(po_id, invoice_id, receipt_id?)"},
		}
	case "crm":
		return []Action{
			{Tool: "crm.create_contact", Label: "create_contact(name, email, do_not_contact?)"},
			{Tool: "crm.create_company", Label: "create_company(name)"},
			{Tool: "crm.create_deal", Label: "create_deal(company_id, stage, amount_usd)"},
			{Tool: "crm.log_activity", Label: "log_activity(kind, contact_id?, deal_id?)"},
		}
	}
	return nil
}

func (b *Builder) browserActionMenu() []Action {
	if b.Browser == nil {
		return nil
	}
	affordances := b.Browser.CurrentAffordances()
	out := make([]Action, 0, len(affordances)+1)
	for _, a := range affordances {
		out = append(out, Action{Tool: "browser.click", Label: fmt.Sprintf("click(node_id=%q) — %s", a.NodeID, a.Label)})
	}
	out = append(out, Action{Tool: "browser.back", Label: "back()"})
	return out
}
