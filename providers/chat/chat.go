// Package chat implements the Slack-like chat provider (C6.1): channels of
// ordered messages, approval-keyword scanning, and derail/clarify/approve
// follow-ups scheduled through the event bus.
package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
	"github.com/vei-sim/vei/rng"
)

type (
	// Message is one posted chat message.
	Message struct {
		TS       string `json:"ts"`
		Channel  string `json:"channel"`
		User     string `json:"user"`
		Text     string `json:"text"`
		ThreadTS string `json:"thread_ts,omitempty"`
	}

	// Channel holds an ordered message log.
	Channel struct {
		Name     string
		Messages []Message
		Unread   int
	}

	// Provider implements providers.Provider for slack.* tools.
	Provider struct {
		bus            *bus.Bus
		rng            *rng.RNG
		channels       map[string]*Channel
		budgetCapCents int64
		derailProb     float64
	}
)

// Deliver targets used when scheduling follow-up messages through the bus.
const (
	TargetDerail  = "chat.derail"
	TargetClarify = "chat.clarify"
	TargetApprove = "chat.approve"
	TargetOverCap = "chat.over_cap"
)

// New constructs a chat Provider. budgetCapCents is the approval threshold
// in integer cents; derailProb is the scenario's derail probability.
func New(b *bus.Bus, r *rng.RNG, budgetCapCents int64, derailProb float64) *Provider {
	return &Provider{
		bus:            b,
		rng:            r,
		channels:       make(map[string]*Channel),
		budgetCapCents: budgetCapCents,
		derailProb:     derailProb,
	}
}

// EnsureChannel creates channel if it does not yet exist, used by the router
// to pre-seed a scenario's channels. It posts no message.
func (p *Provider) EnsureChannel(name string) *Channel {
	ch, ok := p.channels[name]
	if !ok {
		ch = &Channel{Name: name}
		p.channels[name] = ch
	}
	return ch
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "slack.send_message", Description: "Post a message to a channel, optionally as a thread reply", DefaultLatencyMS: 120},
		{Name: "slack.fetch_thread", Description: "Fetch a channel's thread by root ts", DefaultLatencyMS: 80},
		{Name: "slack.list_channels", Description: "List known chat channels", DefaultLatencyMS: 40},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "slack.send_message", "slack.fetch_thread", "slack.list_channels":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "slack.send_message":
		return p.sendMessage(args)
	case "slack.fetch_thread":
		return p.fetchThread(args)
	case "slack.list_channels":
		return p.listChannels(), nil
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "chat: unsupported tool "+tool)
}

func (p *Provider) listChannels() []string {
	names := make([]string, 0, len(p.channels))
	for n := range p.channels {
		names = append(names, n)
	}
	return names
}

var budgetKeywords = []string{"approve", "summary", "budget"}

// amountPattern finds the first run of digits and commas, e.g. "3,200" or "2000".
var amountPattern = regexp.MustCompile(`\d[\d,]*`)

func (p *Provider) sendMessage(args map[string]any) (any, error) {
	channelName, _ := args["channel"].(string)
	text, _ := args["text"].(string)
	threadTS, _ := args["thread_ts"].(string)
	if channelName == "" || text == "" {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "slack.send_message requires channel and text")
	}

	ch := p.EnsureChannel(channelName)
	msg := p.appendMessage(ch, "agent", text, threadTS)

	if p.rng.NextFloat() < p.derailProb {
		p.bus.Schedule(7000, TargetDerail, bus.Payload{
			"channel":   channelName,
			"thread_ts": msg.TS,
		})
	}

	lowerText := strings.ToLower(text)
	hasKeyword := false
	for _, kw := range budgetKeywords {
		if strings.Contains(lowerText, kw) {
			hasKeyword = true
			break
		}
	}
	if hasKeyword {
		amountCents, ok := extractAmountCents(text)
		if !ok {
			p.bus.Schedule(9000, TargetClarify, bus.Payload{
				"channel":   channelName,
				"thread_ts": msg.TS,
				"text":      "What is the budget amount?",
			})
		} else if amountCents <= p.budgetCapCents {
			p.bus.Schedule(12000, TargetApprove, bus.Payload{
				"channel":   channelName,
				"thread_ts": msg.TS,
				"text":      ":white_check_mark: Approved",
			})
		} else {
			p.bus.Schedule(10000, TargetOverCap, bus.Payload{
				"channel":   channelName,
				"thread_ts": msg.TS,
				"text":      "Need clearer budget justification (over cap).",
			})
		}
	}

	return map[string]any{"ts": msg.TS, "channel": channelName}, nil
}

// extractAmountCents finds the first integer amount in text (after removing
// thousands separators) and returns it scaled to cents.
func extractAmountCents(text string) (int64, bool) {
	match := amountPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	digits := strings.ReplaceAll(match, ",", "")
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value * 100, true
}

// appendMessage assigns ts = str(len(messages)+1) and appends, per spec.
func (p *Provider) appendMessage(ch *Channel, user, text, threadTS string) Message {
	msg := Message{
		TS:       strconv.Itoa(len(ch.Messages) + 1),
		Channel:  ch.Name,
		User:     user,
		Text:     text,
		ThreadTS: threadTS,
	}
	ch.Messages = append(ch.Messages, msg)
	ch.Unread++
	return msg
}

// DeliverFollowUp appends a bus-scheduled follow-up message (derail, clarify,
// approve, over-cap) to its channel. Called by the router when it delivers
// one of the chat targets.
func (p *Provider) DeliverFollowUp(target string, payload bus.Payload) {
	channelName, _ := payload["channel"].(string)
	threadTS, _ := payload["thread_ts"].(string)
	text, _ := payload["text"].(string)
	if channelName == "" {
		return
	}
	ch := p.EnsureChannel(channelName)
	if target == TargetDerail {
		text = "Let's also double-check the vendor SLA before we proceed."
	}
	p.appendMessage(ch, "system", text, threadTS)
}

func (p *Provider) fetchThread(args map[string]any) (any, error) {
	channelName, _ := args["channel"].(string)
	threadTS, _ := args["thread_ts"].(string)
	ch, ok := p.channels[channelName]
	if !ok {
		return nil, mcperror.New(mcperror.CodeUnknownChannel, "unknown channel "+channelName)
	}

	rootNum, err := strconv.Atoi(threadTS)
	if err != nil {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "thread_ts must be numeric")
	}

	var thread []Message
	for _, m := range ch.Messages {
		if m.ThreadTS == threadTS {
			thread = append(thread, m)
			continue
		}
		if n, err := strconv.Atoi(m.TS); err == nil && n >= rootNum && m.ThreadTS == "" {
			thread = append(thread, m)
		}
	}
	return map[string]any{"messages": thread}, nil
}

// LastMessage returns the most recently appended message in channel, for
// the observation builder's slack summary.
func (p *Provider) LastMessage(channel string) (Message, bool) {
	ch, ok := p.channels[channel]
	if !ok || len(ch.Messages) == 0 {
		return Message{}, false
	}
	return ch.Messages[len(ch.Messages)-1], true
}
