// Package mail implements the mail provider (C6.2): a mailbox with outbound
// compose, scheduled vendor replies, and an inbox ordered newest-first.
package mail

import (
	"fmt"
	"strings"

	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
	"github.com/vei-sim/vei/rng"
)

// TargetVendorReply is the bus target used to schedule vendor replies.
const TargetVendorReply = "mail.vendor_reply"

// ReplyVariantsDefault mirrors the scenario's default set of four templated
// quote variants, used when a scenario does not supply its own.
var ReplyVariantsDefault = []string{
	"Thanks for reaching out — our quote is {price} with an ETA of {eta} days. - {vendor}",
	"Hi, following up: price is {price}, lead time {eta} days. Let us know. - {vendor}",
	"Quote attached: {price} total, ETA {eta} business days. - {vendor}",
	"Happy to help — {price} per unit, ETA {eta} days. - {vendor}",
}

type (
	// Message is a single mail item.
	Message struct {
		ID   string `json:"id"`
		To   string `json:"to,omitempty"`
		From string `json:"from,omitempty"`
		Subj string `json:"subj"`
		Body string `json:"body"`
	}

	// Provider implements providers.Provider for mail.* tools.
	Provider struct {
		bus      *bus.Bus
		rng      *rng.RNG
		messages map[string]*Message
		inbox    []string // ids, newest first
		counter  int
		variants []string
		vendor   string
	}
)

// New constructs a mail Provider. variants are the vendor reply body
// templates (price/eta/vendor placeholders); an empty slice falls back to
// ReplyVariantsDefault.
func New(b *bus.Bus, r *rng.RNG, variants []string, vendor string) *Provider {
	if len(variants) == 0 {
		variants = ReplyVariantsDefault
	}
	return &Provider{
		bus:      b,
		rng:      r,
		messages: make(map[string]*Message),
		variants: variants,
		vendor:   vendor,
	}
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "mail.compose", Description: "Compose and send a mail message", DefaultLatencyMS: 150},
		{Name: "mail.inbox", Description: "List inbox messages newest-first", DefaultLatencyMS: 40},
		{Name: "mail.read", Description: "Read a mail message by id", DefaultLatencyMS: 40},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "mail.compose", "mail.inbox", "mail.read":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "mail.compose":
		return p.compose(args)
	case "mail.inbox":
		return p.inboxList(), nil
	case "mail.read":
		return p.read(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "mail: unsupported tool "+tool)
}

func (p *Provider) compose(args map[string]any) (any, error) {
	to, _ := args["to"].(string)
	subj, _ := args["subj"].(string)
	body, _ := args["body"].(string)
	if body == "" {
		body, _ = args["body_text"].(string)
	}
	if to == "" {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "mail.compose requires to")
	}

	p.counter++
	id := fmt.Sprintf("m%d", p.counter)
	msg := &Message{ID: id, To: to, Subj: subj, Body: body}
	p.messages[id] = msg

	variant := p.variants[p.rng.Choice(len(p.variants))]
	p.bus.Schedule(15000, TargetVendorReply, bus.Payload{
		"to_original": to,
		"subj":        subj,
		"template":    variant,
	})

	return map[string]any{"id": id}, nil
}

// DeliverVendorReply materialises a scheduled vendor-reply payload into the
// inbox, substituting {price}/{eta}/{vendor} placeholders. Called by the
// router when it delivers a mail.vendor_reply bus entry.
func (p *Provider) DeliverVendorReply(priceUSD float64, etaDays int, payload bus.Payload) *Message {
	template, _ := payload["template"].(string)
	subj, _ := payload["subj"].(string)

	replacer := strings.NewReplacer(
		"{price}", fmt.Sprintf("$%.2f", priceUSD),
		"{eta}", fmt.Sprintf("%d", etaDays),
		"{vendor}", p.vendor,
	)
	body := replacer.Replace(template)

	p.counter++
	id := fmt.Sprintf("m%d", p.counter)
	msg := &Message{ID: id, From: p.vendor, Subj: "Re: " + subj, Body: body}
	p.messages[id] = msg
	p.inbox = append([]string{id}, p.inbox...)
	return msg
}

func (p *Provider) inboxList() []*Message {
	out := make([]*Message, 0, len(p.inbox))
	for _, id := range p.inbox {
		out = append(out, p.messages[id])
	}
	return out
}

// TopInbox returns the newest inbox message, for the observation builder's
// mail summary.
func (p *Provider) TopInbox() (*Message, bool) {
	if len(p.inbox) == 0 {
		return nil, false
	}
	return p.messages[p.inbox[0]], true
}

func (p *Provider) read(args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	msg, ok := p.messages[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeUnknownMessage, "no such message "+id)
	}
	return msg, nil
}
