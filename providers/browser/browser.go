// Package browser implements the virtual browser provider (C6.3): a
// directed graph of content nodes the agent navigates via find/click/back,
// with an optional raw_html excerpt extracted through go-shiori/go-readability.
package browser

import (
	"sort"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
)

// BackTarget is the special next-key value for navigating to a node's parent.
const BackTarget = "BACK"

type (
	// Affordance is a clickable item declared on a node.
	Affordance struct {
		Label  string `json:"label"`
		NodeID string `json:"node_id,omitempty"`
	}

	// Node is one page in the virtual browser graph.
	Node struct {
		ID          string
		URL         string
		Title       string
		Excerpt     string
		RawHTML     string
		Affordances []Affordance
		Next        map[string]string // action/node_id -> destination node id; BackTarget -> parent
	}

	// Provider implements providers.Provider for browser.* tools.
	Provider struct {
		nodes   map[string]*Node
		current string
		home    string
	}
)

// New constructs a Provider from a node graph, focused on home.
func New(nodes map[string]*Node, home string) *Provider {
	p := &Provider{nodes: nodes, current: home, home: home}
	for _, n := range p.nodes {
		if n.Excerpt == "" && n.RawHTML != "" {
			n.Excerpt = extractExcerpt(n.RawHTML, n.URL)
		}
	}
	return p
}

// extractExcerpt renders a short plain-text excerpt from raw HTML using
// go-readability, falling back to an empty string on parse failure (excerpts
// are cosmetic, never required for correctness).
func extractExcerpt(html, url string) string {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return ""
	}
	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = strings.TrimSpace(article.TextContent)
	}
	if len(excerpt) > 240 {
		excerpt = excerpt[:240]
	}
	return excerpt
}

// DefaultGraph returns a small built-in graph (home + product detail page +
// cart) used when a scenario does not override browser_nodes.
func DefaultGraph() map[string]*Node {
	return map[string]*Node{
		"home": {
			ID:    "home",
			URL:   "https://shop.example/home",
			Title: "MacroCompute Store",
			Excerpt: "Welcome to MacroCompute. Browse workstations and accessories.",
			Affordances: []Affordance{
				{Label: "View workstation", NodeID: "pdp"},
			},
			Next: map[string]string{"pdp": "pdp"},
		},
		"pdp": {
			ID:    "pdp",
			URL:   "https://shop.example/pdp/workstation-x1",
			Title: "Workstation X1",
			Excerpt: "The Workstation X1: 64GB RAM, ships in 5-7 business days.",
			Affordances: []Affordance{
				{Label: "Add to cart", NodeID: "cart"},
			},
			Next: map[string]string{"cart": "cart", BackTarget: "home"},
		},
		"cart": {
			ID:      "cart",
			URL:     "https://shop.example/cart",
			Title:   "Your Cart",
			Excerpt: "1 item in cart: Workstation X1.",
			Next:    map[string]string{BackTarget: "pdp"},
		},
	}
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "browser.read", Description: "Read the currently focused page", DefaultLatencyMS: 100},
		{Name: "browser.find", Description: "Find affordances on the current page matching a query", DefaultLatencyMS: 100},
		{Name: "browser.click", Description: "Click an affordance by node id", DefaultLatencyMS: 150},
		{Name: "browser.back", Description: "Navigate back to the parent page", DefaultLatencyMS: 100},
		{Name: "browser.open", Description: "Open a url, mapping known substrings to graph nodes", DefaultLatencyMS: 150},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "browser.read", "browser.find", "browser.click", "browser.back", "browser.open":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "browser.read":
		return p.read(), nil
	case "browser.find":
		return p.find(args), nil
	case "browser.click":
		return p.click(args)
	case "browser.back":
		return p.back(), nil
	case "browser.open":
		return p.open(args), nil
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "browser: unsupported tool "+tool)
}

func (p *Provider) node() *Node {
	return p.nodes[p.current]
}

func (p *Provider) read() map[string]any {
	n := p.node()
	return map[string]any{"url": n.URL, "title": n.Title, "excerpt": n.Excerpt}
}

// Current returns the focused node's title and excerpt, for the observation
// builder's browser summary.
func (p *Provider) Current() (title, excerpt string) {
	n := p.node()
	return n.Title, n.Excerpt
}

// CurrentAffordances returns the focused node's clickable affordances, for
// the observation builder's browser action menu.
func (p *Provider) CurrentAffordances() []Affordance {
	n := p.node()
	out := make([]Affordance, len(n.Affordances))
	copy(out, n.Affordances)
	return out
}

func (p *Provider) find(args map[string]any) map[string]any {
	query, _ := args["query"].(string)
	topK := 5
	if v, ok := args["top_k"].(int); ok && v > 0 {
		topK = v
	} else if v, ok := args["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	n := p.node()

	var hits []Affordance
	for _, a := range n.Affordances {
		if a.NodeID == "" || a.NodeID == BackTarget {
			continue
		}
		if query == "" || strings.Contains(strings.ToLower(a.Label), query) {
			hits = append(hits, a)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Label < hits[j].Label })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return map[string]any{"hits": hits}
}

func (p *Provider) click(args map[string]any) (any, error) {
	nodeID, _ := args["node_id"].(string)
	n := p.node()
	dest, ok := n.Next[nodeID]
	if !ok {
		return nil, mcperror.New(mcperror.CodeInvalidAction, "no affordance "+nodeID+" on current node")
	}
	p.current = dest
	return p.read(), nil
}

func (p *Provider) back() map[string]any {
	n := p.node()
	if dest, ok := n.Next[BackTarget]; ok {
		p.current = dest
	}
	return p.read()
}

func (p *Provider) open(args map[string]any) map[string]any {
	url, _ := args["url"].(string)
	if strings.Contains(url, "pdp") {
		if _, ok := p.nodes["pdp"]; ok {
			p.current = "pdp"
			return p.read()
		}
	}
	p.current = p.home
	return p.read()
}
