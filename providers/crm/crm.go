// Package crm implements the CRM provider (C6.5): contacts, companies,
// deals, and activity logging with do-not-contact consent enforcement.
package crm

import (
	"fmt"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
	"github.com/vei-sim/vei/rng"
)

type (
	// Contact is a CRM person record.
	Contact struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		DoNotContact  bool   `json:"do_not_contact"`
	}

	// Company is a CRM organization record.
	Company struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Deal tracks a sales opportunity.
	Deal struct {
		ID        string  `json:"id"`
		CompanyID string  `json:"company_id"`
		Stage     string  `json:"stage"`
		AmountUSD float64 `json:"amount_usd"`
	}

	// Activity is an append-only log entry against a contact or deal.
	Activity struct {
		Kind      string `json:"kind"`
		ContactID string `json:"contact_id,omitempty"`
		DealID    string `json:"deal_id,omitempty"`
	}

	// Provider implements providers.Provider for crm.* tools.
	Provider struct {
		rng           *rng.RNG
		contacts      map[string]*Contact
		companies     map[string]*Company
		deals         map[string]*Deal
		activities    []Activity
		contactSeq    int
		companySeq    int
		dealSeq       int
		consentErrRate float64
	}
)

// New constructs a CRM Provider. consentErrRate is the probability that
// logging email_outreach against a do-not-contact contact fails.
func New(r *rng.RNG, consentErrRate float64) *Provider {
	return &Provider{
		rng:            r,
		contacts:       make(map[string]*Contact),
		companies:      make(map[string]*Company),
		deals:          make(map[string]*Deal),
		consentErrRate: consentErrRate,
	}
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "crm.create_contact", Description: "Create a CRM contact", DefaultLatencyMS: 100},
		{Name: "crm.create_company", Description: "Create a CRM company", DefaultLatencyMS: 100},
		{Name: "crm.create_deal", Description: "Create a CRM deal", DefaultLatencyMS: 100},
		{Name: "crm.log_activity", Description: "Log a CRM activity (e.g. email_outreach) against a contact or deal", DefaultLatencyMS: 100},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "crm.create_contact", "crm.create_company", "crm.create_deal", "crm.log_activity":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "crm.create_contact":
		return p.createContact(args), nil
	case "crm.create_company":
		return p.createCompany(args), nil
	case "crm.create_deal":
		return p.createDeal(args)
	case "crm.log_activity":
		return p.logActivity(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "crm: unsupported tool "+tool)
}

func (p *Provider) createContact(args map[string]any) *Contact {
	p.contactSeq++
	name, _ := args["name"].(string)
	email, _ := args["email"].(string)
	dnc, _ := args["do_not_contact"].(bool)
	c := &Contact{ID: fmt.Sprintf("C-%d", p.contactSeq), Name: name, Email: email, DoNotContact: dnc}
	p.contacts[c.ID] = c
	return c
}

func (p *Provider) createCompany(args map[string]any) *Company {
	p.companySeq++
	name, _ := args["name"].(string)
	c := &Company{ID: fmt.Sprintf("CO-%d", p.companySeq), Name: name}
	p.companies[c.ID] = c
	return c
}

func (p *Provider) createDeal(args map[string]any) (any, error) {
	companyID, _ := args["company_id"].(string)
	if _, ok := p.companies[companyID]; !ok {
		return mcperror.DomainError("unknown_company", "no such company "+companyID), nil
	}
	p.dealSeq++
	stage, _ := args["stage"].(string)
	if stage == "" {
		stage = "PROSPECT"
	}
	amount, _ := args["amount_usd"].(float64)
	d := &Deal{ID: fmt.Sprintf("D-%d", p.dealSeq), CompanyID: companyID, Stage: stage, AmountUSD: amount}
	p.deals[d.ID] = d
	return d, nil
}

func (p *Provider) logActivity(args map[string]any) (any, error) {
	kind, _ := args["kind"].(string)
	contactID, _ := args["contact_id"].(string)
	dealID, _ := args["deal_id"].(string)

	if contactID != "" {
		contact, ok := p.contacts[contactID]
		if !ok {
			return mcperror.DomainError("unknown_contact", "no such contact "+contactID), nil
		}
		if kind == "email_outreach" && contact.DoNotContact && p.rng.NextFloat() < p.consentErrRate {
			return mcperror.DomainError("consent_violation", "contact has opted out of outreach"), nil
		}
	}
	if dealID != "" {
		if _, ok := p.deals[dealID]; !ok {
			return mcperror.DomainError("unknown_deal", "no such deal "+dealID), nil
		}
	}

	act := Activity{Kind: kind, ContactID: contactID, DealID: dealID}
	p.activities = append(p.activities, act)
	return act, nil
}

// Counts reports how many contacts and deals exist, for the observation
// builder's short CRM summary.
func (p *Provider) Counts() (contacts, deals int) {
	return len(p.contacts), len(p.deals)
}
