// Package servicedesk implements the service desk provider (C6.6): incidents
// and requests with append-only history on mutation.
package servicedesk

import (
	"fmt"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
)

type (
	// HistoryEntry records a status transition.
	HistoryEntry struct {
		Status string `json:"status"`
	}

	// Incident is a service-desk incident.
	Incident struct {
		ID      string         `json:"id"`
		Title   string         `json:"title"`
		Status  string         `json:"status"`
		History []HistoryEntry `json:"history"`
	}

	// Request is a service-desk request.
	Request struct {
		ID      string         `json:"id"`
		Title   string         `json:"title"`
		Status  string         `json:"status"`
		History []HistoryEntry `json:"history"`
	}

	// Provider implements providers.Provider for servicedesk.* tools.
	Provider struct {
		incidents   map[string]*Incident
		requests    map[string]*Request
		incidentSeq int
		requestSeq  int
	}
)

// New constructs an empty service-desk Provider.
func New() *Provider {
	return &Provider{
		incidents: make(map[string]*Incident),
		requests:  make(map[string]*Request),
	}
}

// SeedIncident pre-registers an incident (used by scenario compilation). An
// empty status defaults to NEW.
func (p *Provider) SeedIncident(title, status string) *Incident {
	if status == "" {
		status = "NEW"
	}
	p.incidentSeq++
	i := &Incident{
		ID:      fmt.Sprintf("INC-%d", p.incidentSeq),
		Title:   title,
		Status:  status,
		History: []HistoryEntry{{Status: status}},
	}
	p.incidents[i.ID] = i
	return i
}

// SeedRequest pre-registers a request (used by scenario compilation). An
// empty status defaults to NEW.
func (p *Provider) SeedRequest(title, status string) *Request {
	if status == "" {
		status = "NEW"
	}
	p.requestSeq++
	r := &Request{
		ID:      fmt.Sprintf("REQ-%d", p.requestSeq),
		Title:   title,
		Status:  status,
		History: []HistoryEntry{{Status: status}},
	}
	p.requests[r.ID] = r
	return r
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "servicedesk.create_incident", Description: "Create a service-desk incident", DefaultLatencyMS: 100},
		{Name: "servicedesk.transition_incident", Description: "Transition an incident's status", DefaultLatencyMS: 100},
		{Name: "servicedesk.create_request", Description: "Create a service-desk request", DefaultLatencyMS: 100},
		{Name: "servicedesk.transition_request", Description: "Transition a request's status", DefaultLatencyMS: 100},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "servicedesk.create_incident", "servicedesk.transition_incident",
		"servicedesk.create_request", "servicedesk.transition_request":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "servicedesk.create_incident":
		return p.createIncident(args), nil
	case "servicedesk.transition_incident":
		return p.transitionIncident(args)
	case "servicedesk.create_request":
		return p.createRequest(args), nil
	case "servicedesk.transition_request":
		return p.transitionRequest(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "servicedesk: unsupported tool "+tool)
}

func (p *Provider) createIncident(args map[string]any) *Incident {
	title, _ := args["title"].(string)
	p.incidentSeq++
	i := &Incident{
		ID:      fmt.Sprintf("INC-%d", p.incidentSeq),
		Title:   title,
		Status:  "NEW",
		History: []HistoryEntry{{Status: "NEW"}},
	}
	p.incidents[i.ID] = i
	return i
}

func (p *Provider) transitionIncident(args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	i, ok := p.incidents[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeServiceDeskIncidentNotFound, "no such incident "+id)
	}
	status, _ := args["status"].(string)
	i.Status = status
	i.History = append(i.History, HistoryEntry{Status: status})
	return i, nil
}

func (p *Provider) createRequest(args map[string]any) *Request {
	title, _ := args["title"].(string)
	p.requestSeq++
	r := &Request{
		ID:      fmt.Sprintf("REQ-%d", p.requestSeq),
		Title:   title,
		Status:  "NEW",
		History: []HistoryEntry{{Status: "NEW"}},
	}
	p.requests[r.ID] = r
	return r
}

func (p *Provider) transitionRequest(args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	r, ok := p.requests[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeServiceDeskRequestNotFound, "no such request "+id)
	}
	status, _ := args["status"].(string)
	r.Status = status
	r.History = append(r.History, HistoryEntry{Status: status})
	return r, nil
}
