// Package docs implements the document provider (C6.6): simple CRUD over
// Markdown documents, rendered to HTML via yuin/goldmark for the rendered
// field returned alongside the raw body.
package docs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
)

type (
	// HistoryEntry records an append-only mutation.
	HistoryEntry struct {
		Action string `json:"action"`
	}

	// Document is a Markdown document and its rendered HTML.
	Document struct {
		ID      string         `json:"id"`
		Title   string         `json:"title"`
		Body    string         `json:"body"`
		HTML    string         `json:"html"`
		History []HistoryEntry `json:"history"`
	}

	// Provider implements providers.Provider for docs.* tools.
	Provider struct {
		docs map[string]*Document
		seq  int
	}
)

// New constructs an empty docs Provider.
func New() *Provider {
	return &Provider{docs: make(map[string]*Document)}
}

// SeedDocument pre-registers a document (used by scenario compilation).
func (p *Provider) SeedDocument(title, body string) *Document {
	p.seq++
	d := &Document{
		ID:      fmt.Sprintf("DOC-%d", p.seq),
		Title:   title,
		Body:    body,
		HTML:    renderMarkdown(body),
		History: []HistoryEntry{{Action: "created"}},
	}
	p.docs[d.ID] = d
	return d
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "docs.create", Description: "Create a Markdown document", DefaultLatencyMS: 100},
		{Name: "docs.update", Description: "Update a document's body", DefaultLatencyMS: 100},
		{Name: "docs.get", Description: "Fetch a document by id", DefaultLatencyMS: 60},
		{Name: "docs.search", Description: "Search documents by keyword in title or body", DefaultLatencyMS: 100},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "docs.create", "docs.update", "docs.get", "docs.search":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "docs.create":
		return p.create(args)
	case "docs.update":
		return p.update(args)
	case "docs.get":
		return p.get(args)
	case "docs.search":
		return p.search(args), nil
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "docs: unsupported tool "+tool)
}

func renderMarkdown(body string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return body
	}
	return buf.String()
}

func (p *Provider) create(args map[string]any) (any, error) {
	title, _ := args["title"].(string)
	body, _ := args["body"].(string)
	p.seq++
	d := &Document{
		ID:      fmt.Sprintf("DOC-%d", p.seq),
		Title:   title,
		Body:    body,
		HTML:    renderMarkdown(body),
		History: []HistoryEntry{{Action: "created"}},
	}
	p.docs[d.ID] = d
	return d, nil
}

func (p *Provider) find(args map[string]any) (*Document, error) {
	id, _ := args["id"].(string)
	d, ok := p.docs[id]
	if !ok {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "no such document "+id)
	}
	return d, nil
}

func (p *Provider) update(args map[string]any) (any, error) {
	d, err := p.find(args)
	if err != nil {
		return nil, err
	}
	if body, ok := args["body"].(string); ok {
		d.Body = body
		d.HTML = renderMarkdown(body)
	}
	d.History = append(d.History, HistoryEntry{Action: "updated"})
	return d, nil
}

func (p *Provider) get(args map[string]any) (any, error) {
	return p.find(args)
}

func (p *Provider) search(args map[string]any) map[string]any {
	query, _ := args["query"].(string)
	queryLower := strings.ToLower(query)
	var hits []*Document
	for _, d := range p.docs {
		if query == "" || strings.Contains(strings.ToLower(d.Title), queryLower) || strings.Contains(strings.ToLower(d.Body), queryLower) {
			hits = append(hits, d)
		}
	}
	return map[string]any{"hits": hits}
}
