// Package registry implements the tool registry (C5): ToolSpec metadata and
// a ranked keyword search, grounded on the teacher's
// runtime/registry.SearchClient keyword-relevance scoring.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

type (
	// ToolSpec describes one registered tool. Names are unique globally;
	// registering after the router has started is forbidden (see Registry.Start).
	ToolSpec struct {
		Name              string
		Description       string
		Permissions       []string
		SideEffects       []string
		DefaultLatencyMS  int
		LatencyJitterMS   int
		NominalCostCents  int
		FaultProbability  float64
		ReturnsHint       string
	}

	// Registry holds ToolSpecs keyed by name and exposes a ranked search.
	Registry struct {
		mu      sync.RWMutex
		specs   map[string]ToolSpec
		started bool
	}
)

// New returns an empty Registry.
func New() *Registry {
	return &Registry{specs: make(map[string]ToolSpec)}
}

// Register adds spec to the registry. It returns an error if the router has
// already started (registration is only allowed during setup) or if a spec
// with the same name already exists.
func (r *Registry) Register(spec ToolSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("registry: cannot register tool %q after router start", spec.Name)
	}
	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("registry: tool %q is already registered", spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

// Start freezes the registry against further registration. Called once by
// the router at construction time.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns all registered tool names in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for n := range r.specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// splitTokens breaks a name/description on ".-:/_" and whitespace, the way
// spec.md §4.5 defines name-token matching.
var tokenSplitter = regexp.MustCompile(`[.\-:/_\s]+`)

func splitTokens(s string) []string {
	lower := strings.ToLower(s)
	parts := tokenSplitter.Split(lower, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type scoredSpec struct {
	spec  ToolSpec
	score float64
}

// Search ranks registered specs against query using the scoring heuristic
// from spec.md §4.5:
//
//	+6    normalised query substring of name
//	+2.5  normalised query substring of description
//	+3    per query token matching a name token
//	+1.5  for prefix matches (query is a prefix of the name)
//	+1.0  per description-token hit
//	+0.25 bias for names beginning with "vei."
//
// Ties break by ascending name. An empty query returns the alphabetical
// head. If no spec scores positively, Search falls back to the alphabetical
// head, both truncated to topK.
func (r *Registry) Search(query string, topK int) []ToolSpec {
	if topK <= 0 {
		topK = 10
	}
	names := r.Names()

	if strings.TrimSpace(query) == "" {
		return r.takeByNames(names, topK)
	}

	normQuery := strings.ToLower(strings.TrimSpace(query))
	queryTokens := splitTokens(query)

	r.mu.RLock()
	scored := make([]scoredSpec, 0, len(r.specs))
	for _, name := range names {
		spec := r.specs[name]
		scored = append(scored, scoredSpec{spec: spec, score: scoreSpec(spec, normQuery, queryTokens)})
	}
	r.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].spec.Name < scored[j].spec.Name
	})

	var positive []ToolSpec
	for _, s := range scored {
		if s.score > 0 {
			positive = append(positive, s.spec)
		}
	}
	if len(positive) == 0 {
		return r.takeByNames(names, topK)
	}
	if len(positive) > topK {
		positive = positive[:topK]
	}
	return positive
}

func scoreSpec(spec ToolSpec, normQuery string, queryTokens []string) float64 {
	nameLower := strings.ToLower(spec.Name)
	descLower := strings.ToLower(spec.Description)
	nameTokens := splitTokens(spec.Name)
	descTokens := splitTokens(spec.Description)

	var score float64
	if strings.Contains(nameLower, normQuery) {
		score += 6
	}
	if strings.Contains(descLower, normQuery) {
		score += 2.5
	}
	if strings.HasPrefix(nameLower, normQuery) {
		score += 1.5
	}
	nameTokenSet := toSet(nameTokens)
	descTokenSet := toSet(descTokens)
	for _, qt := range queryTokens {
		if _, ok := nameTokenSet[qt]; ok {
			score += 3
		}
		if _, ok := descTokenSet[qt]; ok {
			score += 1.0
		}
	}
	if strings.HasPrefix(spec.Name, "vei.") {
		score += 0.25
	}
	return score
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func (r *Registry) takeByNames(names []string, topK int) []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(names) > topK {
		names = names[:topK]
	}
	out := make([]ToolSpec, 0, len(names))
	for _, n := range names {
		out = append(out, r.specs[n])
	}
	return out
}
