package router

import (
	"github.com/vei-sim/vei/providers/calendar"
	"github.com/vei-sim/vei/providers/docs"
	"github.com/vei-sim/vei/providers/identity"
	"github.com/vei-sim/vei/providers/servicedesk"
	"github.com/vei-sim/vei/providers/tickets"
	"github.com/vei-sim/vei/scenario"
)

// seedFromScenario pre-populates the identity, tickets, docs, calendar, and
// service-desk providers from the compiled scenario's seed data (spec.md
// §3's identity users/groups/applications, documents, calendar events, and
// tickets/servicedesk records), matching the Python original's
// users_from_seeds-style scenario-to-twin population. scen may be nil, in
// which case every provider stays empty, same as an explicit empty seed.
func seedFromScenario(
	scen *scenario.Scenario,
	identityP *identity.Provider,
	ticketsP *tickets.Provider,
	docsP *docs.Provider,
	calendarP *calendar.Provider,
	servicedeskP *servicedesk.Provider,
) {
	if scen == nil {
		return
	}

	seedIdentity(scen.Identity, identityP)

	for _, d := range scen.Documents {
		title, _ := d["title"].(string)
		body, _ := d["body"].(string)
		docsP.SeedDocument(title, body)
	}

	for _, e := range scen.CalendarEvents {
		title, _ := e["title"].(string)
		startMS := argInt64(e, "start_ms")
		calendarP.SeedEvent(title, startMS, argStringSlice(e["attendees"]))
	}

	for _, t := range scen.Tickets {
		title, _ := t["title"].(string)
		status, _ := t["status"].(string)
		ticketsP.SeedTicket(title, status)
	}

	seedServiceDesk(scen.ServiceDesk, servicedeskP)
}

func seedIdentity(raw map[string]any, p *identity.Provider) {
	if raw == nil {
		return
	}
	for _, u := range argMapSlice(raw["users"]) {
		email, _ := u["email"].(string)
		status, _ := u["status"].(string)
		p.SeedUser(email, status)
	}
	for _, g := range argMapSlice(raw["groups"]) {
		name, _ := g["name"].(string)
		p.SeedGroup(name)
	}
	for _, a := range argMapSlice(raw["applications"]) {
		name, _ := a["name"].(string)
		p.SeedApplication(name)
	}
}

func seedServiceDesk(raw map[string]any, p *servicedesk.Provider) {
	if raw == nil {
		return
	}
	for _, i := range argMapSlice(raw["incidents"]) {
		title, _ := i["title"].(string)
		status, _ := i["status"].(string)
		p.SeedIncident(title, status)
	}
	for _, req := range argMapSlice(raw["requests"]) {
		title, _ := req["title"].(string)
		status, _ := req["status"].(string)
		p.SeedRequest(title, status)
	}
}

func argMapSlice(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func argStringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func argInt64(m map[string]any, key string) int64 {
	switch n := m[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
