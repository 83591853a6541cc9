// Package identity implements the Okta-like identity provider (C6.6): users,
// groups, and applications with enumerated status transitions.
package identity

import (
	"fmt"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
)

// User status values.
const (
	StatusActive       = "ACTIVE"
	StatusSuspended    = "SUSPENDED"
	StatusProvisioned  = "PROVISIONED"
	StatusDeprovisioned = "DEPROVISIONED"
)

type (
	// User is an identity record. Groups mirrors Group.Members from the
	// user's side, per spec.md §3's "assigning a user to a group mirrors the
	// membership on both sides" invariant.
	User struct {
		ID     string   `json:"id"`
		Email  string   `json:"email"`
		Status string   `json:"status"`
		Groups []string `json:"groups,omitempty"`
	}

	// Group is a named collection of user ids.
	Group struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}

	// Application is an SSO application with assigned user ids.
	Application struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Assignments []string `json:"assignments"`
	}

	// Provider implements providers.Provider for okta.* tools.
	Provider struct {
		users    map[string]*User
		groups   map[string]*Group
		apps     map[string]*Application
		userSeq  int
		groupSeq int
		appSeq   int
	}
)

// New constructs an empty identity Provider.
func New() *Provider {
	return &Provider{
		users:  make(map[string]*User),
		groups: make(map[string]*Group),
		apps:   make(map[string]*Application),
	}
}

// SeedUser pre-registers a user (used by scenario compilation).
func (p *Provider) SeedUser(email, status string) *User {
	p.userSeq++
	if status == "" {
		status = StatusActive
	}
	u := &User{ID: fmt.Sprintf("U-%d", p.userSeq), Email: email, Status: status}
	p.users[u.ID] = u
	return u
}

// SeedGroup pre-registers a group.
func (p *Provider) SeedGroup(name string) *Group {
	p.groupSeq++
	g := &Group{ID: fmt.Sprintf("G-%d", p.groupSeq), Name: name}
	p.groups[g.ID] = g
	return g
}

// SeedApplication pre-registers an application.
func (p *Provider) SeedApplication(name string) *Application {
	p.appSeq++
	a := &Application{ID: fmt.Sprintf("APP-%d", p.appSeq), Name: name}
	p.apps[a.ID] = a
	return a
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "okta.get_user", Description: "Fetch a user by id", DefaultLatencyMS: 80},
		{Name: "okta.suspend_user", Description: "Suspend an active user", DefaultLatencyMS: 120},
		{Name: "okta.reactivate_user", Description: "Reactivate a suspended user", DefaultLatencyMS: 120},
		{Name: "okta.reset_password", Description: "Reset a user's password", DefaultLatencyMS: 150},
		{Name: "okta.assign_group", Description: "Assign a user to a group", DefaultLatencyMS: 120},
		{Name: "okta.assign_application", Description: "Assign a user to an application", DefaultLatencyMS: 120},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "okta.get_user", "okta.suspend_user", "okta.reactivate_user",
		"okta.reset_password", "okta.assign_group", "okta.assign_application":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "okta.get_user":
		return p.getUser(args)
	case "okta.suspend_user":
		return p.setStatus(args, StatusSuspended)
	case "okta.reactivate_user":
		return p.setStatus(args, StatusActive)
	case "okta.reset_password":
		return p.resetPassword(args)
	case "okta.assign_group":
		return p.assignGroup(args)
	case "okta.assign_application":
		return p.assignApplication(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "identity: unsupported tool "+tool)
}

func (p *Provider) user(args map[string]any) (*User, error) {
	id, _ := args["user_id"].(string)
	u, ok := p.users[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeOktaUserNotFound, "no such user "+id)
	}
	return u, nil
}

func (p *Provider) getUser(args map[string]any) (any, error) {
	return p.user(args)
}

func (p *Provider) setStatus(args map[string]any, status string) (any, error) {
	u, err := p.user(args)
	if err != nil {
		return nil, err
	}
	u.Status = status
	return u, nil
}

func (p *Provider) resetPassword(args map[string]any) (any, error) {
	u, err := p.user(args)
	if err != nil {
		return nil, err
	}
	if u.Status == StatusDeprovisioned {
		return nil, mcperror.New(mcperror.CodeOktaInvalidState, "cannot reset password for deprovisioned user")
	}
	return map[string]any{"user_id": u.ID, "reset": true}, nil
}

func (p *Provider) assignGroup(args map[string]any) (any, error) {
	u, err := p.user(args)
	if err != nil {
		return nil, err
	}
	groupID, _ := args["group_id"].(string)
	g, ok := p.groups[groupID]
	if !ok {
		return nil, mcperror.New(mcperror.CodeOktaGroupNotFound, "no such group "+groupID)
	}
	g.Members = append(g.Members, u.ID)
	u.Groups = append(u.Groups, g.ID)
	return g, nil
}

func (p *Provider) assignApplication(args map[string]any) (any, error) {
	u, err := p.user(args)
	if err != nil {
		return nil, err
	}
	appID, _ := args["app_id"].(string)
	a, ok := p.apps[appID]
	if !ok {
		return nil, mcperror.New(mcperror.CodeOktaAppNotFound, "no such application "+appID)
	}
	a.Assignments = append(a.Assignments, u.ID)
	return a, nil
}
