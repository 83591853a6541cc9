// Package calendar implements the calendar provider (C6.6): events with
// per-attendee accept/decline responses.
package calendar

import (
	"fmt"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
)

type (
	// Event is a calendar event.
	Event struct {
		ID        string            `json:"id"`
		Title     string            `json:"title"`
		StartMS   int64             `json:"start_ms"`
		Attendees []string          `json:"attendees"`
		Responses map[string]string `json:"responses"`
	}

	// Provider implements providers.Provider for calendar.* tools.
	Provider struct {
		events map[string]*Event
		seq    int
	}
)

// New constructs an empty calendar Provider.
func New() *Provider {
	return &Provider{events: make(map[string]*Event)}
}

// SeedEvent pre-registers a calendar event (used by scenario compilation).
func (p *Provider) SeedEvent(title string, startMS int64, attendees []string) *Event {
	p.seq++
	e := &Event{
		ID:        fmt.Sprintf("EVT-%d", p.seq),
		Title:     title,
		StartMS:   startMS,
		Attendees: attendees,
		Responses: make(map[string]string),
	}
	p.events[e.ID] = e
	return e
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "calendar.create_event", Description: "Create a calendar event", DefaultLatencyMS: 100},
		{Name: "calendar.respond", Description: "Accept or decline an event as an attendee", DefaultLatencyMS: 100},
		{Name: "calendar.get_event", Description: "Fetch a calendar event by id", DefaultLatencyMS: 60},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "calendar.create_event", "calendar.respond", "calendar.get_event":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "calendar.create_event":
		return p.createEvent(args), nil
	case "calendar.respond":
		return p.respond(args)
	case "calendar.get_event":
		return p.getEvent(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "calendar: unsupported tool "+tool)
}

func (p *Provider) createEvent(args map[string]any) *Event {
	title, _ := args["title"].(string)
	startMS := toInt64(args["start_ms"])
	attendees := toStringSlice(args["attendees"])
	p.seq++
	e := &Event{
		ID:        fmt.Sprintf("EVT-%d", p.seq),
		Title:     title,
		StartMS:   startMS,
		Attendees: attendees,
		Responses: make(map[string]string),
	}
	p.events[e.ID] = e
	return e
}

func (p *Provider) respond(args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	e, ok := p.events[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "no such event "+id)
	}
	attendee, _ := args["attendee"].(string)
	known := false
	for _, a := range e.Attendees {
		if a == attendee {
			known = true
			break
		}
	}
	if !known {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "unknown attendee "+attendee)
	}
	response, _ := args["response"].(string)
	e.Responses[attendee] = response
	return e, nil
}

func (p *Provider) getEvent(args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	e, ok := p.events[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "no such event "+id)
	}
	return e, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func toStringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
