// Package tickets implements the tickets provider (C6.6): deterministic CRUD
// with enumerated status transitions and an append-only history per ticket.
package tickets

import (
	"fmt"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
)

type (
	// HistoryEntry records a status transition or field update.
	HistoryEntry struct {
		Status string `json:"status"`
		Update string `json:"update,omitempty"`
	}

	// Ticket is a support/work item.
	Ticket struct {
		ID      string         `json:"id"`
		Title   string         `json:"title"`
		Status  string         `json:"status"`
		History []HistoryEntry `json:"history"`
	}

	// Provider implements providers.Provider for tickets.* tools.
	Provider struct {
		tickets map[string]*Ticket
		seq     int
	}
)

// New constructs an empty tickets Provider.
func New() *Provider {
	return &Provider{tickets: make(map[string]*Ticket)}
}

// SeedTicket pre-registers a ticket (used by scenario compilation). An
// empty status defaults to OPEN.
func (p *Provider) SeedTicket(title, status string) *Ticket {
	if status == "" {
		status = "OPEN"
	}
	p.seq++
	t := &Ticket{
		ID:      fmt.Sprintf("TKT-%d", p.seq),
		Title:   title,
		Status:  status,
		History: []HistoryEntry{{Status: status}},
	}
	p.tickets[t.ID] = t
	return t
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "tickets.create", Description: "Create a ticket", DefaultLatencyMS: 100},
		{Name: "tickets.transition", Description: "Transition a ticket's status", DefaultLatencyMS: 100},
		{Name: "tickets.update", Description: "Update ticket fields", DefaultLatencyMS: 100},
		{Name: "tickets.get", Description: "Fetch a ticket by id", DefaultLatencyMS: 60},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "tickets.create", "tickets.transition", "tickets.update", "tickets.get":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "tickets.create":
		return p.create(args), nil
	case "tickets.transition":
		return p.transition(args)
	case "tickets.update":
		return p.update(args)
	case "tickets.get":
		return p.get(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "tickets: unsupported tool "+tool)
}

func (p *Provider) create(args map[string]any) *Ticket {
	p.seq++
	title, _ := args["title"].(string)
	t := &Ticket{
		ID:      fmt.Sprintf("TKT-%d", p.seq),
		Title:   title,
		Status:  "OPEN",
		History: []HistoryEntry{{Status: "OPEN"}},
	}
	p.tickets[t.ID] = t
	return t
}

func (p *Provider) find(args map[string]any) (*Ticket, error) {
	id, _ := args["id"].(string)
	t, ok := p.tickets[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "no such ticket "+id)
	}
	return t, nil
}

func (p *Provider) transition(args map[string]any) (any, error) {
	t, err := p.find(args)
	if err != nil {
		return nil, err
	}
	status, _ := args["status"].(string)
	t.Status = status
	t.History = append(t.History, HistoryEntry{Status: status})
	return t, nil
}

func (p *Provider) update(args map[string]any) (any, error) {
	t, err := p.find(args)
	if err != nil {
		return nil, err
	}
	if title, ok := args["title"].(string); ok && title != "" {
		t.Title = title
	}
	t.History = append(t.History, HistoryEntry{Status: t.Status, Update: "fields"})
	return t, nil
}

func (p *Provider) get(args map[string]any) (any, error) {
	return p.find(args)
}
