// Package scenario implements the scenario compiler (C10): parses the scene
// DSL (YAML) into a validated, immutable Scenario seed, deterministically
// sampling vendor price/ETA ranges from the configured RNG seed.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/vei-sim/vei/rng"
)

type (
	// Vendor is one mail vendor reply-template source. Price and ETADays are
	// DSL fields that may be a literal number or a `[lo, hi]` range to be
	// sampled deterministically at compile time, so they are decoded as raw
	// yaml.Node and resolved by sampleNumberOrRange.
	Vendor struct {
		Name      string    `yaml:"name"`
		RawPrice  yaml.Node `yaml:"price"`
		RawETA    yaml.Node `yaml:"eta_days"`
		Templates []string  `yaml:"templates"`
	}

	// BrowserNode mirrors providers/browser.Node in DSL form, plus an
	// optional raw_html source for excerpt extraction.
	BrowserNode struct {
		ID          string            `yaml:"id"`
		URL         string            `yaml:"url"`
		Title       string            `yaml:"title"`
		Excerpt     string            `yaml:"excerpt"`
		RawHTML     string            `yaml:"raw_html"`
		Affordances []AffordanceDSL   `yaml:"affordances"`
		Next        map[string]string `yaml:"next"`
	}

	// AffordanceDSL mirrors providers/browser.Affordance.
	AffordanceDSL struct {
		Label  string `yaml:"label"`
		NodeID string `yaml:"node_id"`
	}

	// Trigger is a pre-scheduled event fired at a fixed clock time.
	Trigger struct {
		AtMS    int64          `yaml:"at_ms"`
		Target  string         `yaml:"target"`
		Payload map[string]any `yaml:"payload"`
	}

	// DSL is the raw scene description as parsed from YAML, before sampling.
	DSL struct {
		Meta struct {
			Name string `yaml:"name"`
		} `yaml:"meta"`
		Budget struct {
			CapUSD            float64 `yaml:"cap_usd"`
			ApprovalThreshold float64 `yaml:"approval_threshold"`
		} `yaml:"budget"`
		Slack struct {
			InitialMessage string   `yaml:"initial_message"`
			DerailProb     float64  `yaml:"derail_prob"`
			Channels       []string `yaml:"channels"`
		} `yaml:"slack"`
		Mail struct {
			Folders []string `yaml:"folders"`
		} `yaml:"mail"`
		Vendors        []Vendor          `yaml:"vendors"`
		BrowserNodes   []BrowserNode     `yaml:"browser_nodes"`
		Participants   []string          `yaml:"participants"`
		Documents      []map[string]any `yaml:"documents"`
		CalendarEvents []map[string]any `yaml:"calendar_events"`
		Tickets        []map[string]any `yaml:"tickets"`
		Triggers       []Trigger         `yaml:"triggers"`
		Identity       map[string]any    `yaml:"identity"`
		ServiceDesk    map[string]any    `yaml:"service_desk"`
		Metadata       map[string]any    `yaml:"metadata"`
	}

	// Scenario is the compiled, immutable seed for one simulation, per
	// spec.md §3. Price/ETA ranges have already been sampled into concrete
	// values by Compile.
	Scenario struct {
		Name              string
		BudgetCapUSD      float64
		ApprovalThreshold float64
		InitialMessage    string
		DerailProb        float64
		Channels          []string
		Vendors           []CompiledVendor
		BrowserNodes      []BrowserNode
		Participants      []string
		Documents         []map[string]any
		CalendarEvents    []map[string]any
		Tickets           []map[string]any
		Triggers          []Trigger
		Identity          map[string]any
		ServiceDesk       map[string]any
		Metadata          map[string]any
	}

	// CompiledVendor has its price/eta sampled to concrete values.
	CompiledVendor struct {
		Name      string
		PriceUSD  float64
		ETADays   int
		Templates []string
	}
)

// schemaJSON is the minimal structural schema the scene DSL must satisfy
// before compilation proceeds; it catches malformed scenario files early
// rather than failing deep inside sampling.
const schemaJSON = `{
	"type": "object",
	"properties": {
		"meta": {"type": "object"},
		"budget": {
			"type": "object",
			"properties": {
				"cap_usd": {"type": "number"},
				"approval_threshold": {"type": "number"}
			}
		},
		"slack": {"type": "object"},
		"vendors": {"type": "array"}
	}
}`

// Validate parses rawYAML into a generic document and checks it against the
// scene DSL's structural JSON schema via santhosh-tekuri/jsonschema.
func Validate(rawYAML []byte) error {
	var doc any
	if err := yaml.Unmarshal(rawYAML, &doc); err != nil {
		return fmt.Errorf("scenario: parse yaml: %w", err)
	}
	normalized := normalizeForJSON(doc)

	jsonBytes, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("scenario: normalize to json: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return fmt.Errorf("scenario: unmarshal normalized json: %w", err)
	}

	var schemaDoc any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaDoc); err != nil {
		return fmt.Errorf("scenario: parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("scenario.json", schemaDoc); err != nil {
		return fmt.Errorf("scenario: add schema resource: %w", err)
	}
	schema, err := c.Compile("scenario.json")
	if err != nil {
		return fmt.Errorf("scenario: compile schema: %w", err)
	}
	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("scenario: schema validation failed: %w", err)
	}
	return nil
}

// normalizeForJSON converts yaml.v3's map[string]interface{} keys (already
// strings) recursively so json.Marshal never sees an incompatible type.
func normalizeForJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = normalizeForJSON(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = normalizeForJSON(vv)
		}
		return out
	default:
		return val
	}
}

// Compile parses and validates rawYAML, then deterministically samples any
// `[lo, hi]` vendor price/eta ranges using r, producing an immutable
// Scenario. Compilation of the same bytes with the same seed always yields
// the same Scenario.
func Compile(rawYAML []byte, r *rng.RNG) (*Scenario, error) {
	if err := Validate(rawYAML); err != nil {
		return nil, err
	}

	var dsl DSL
	dec := yaml.NewDecoder(bytes.NewReader(rawYAML))
	if err := dec.Decode(&dsl); err != nil {
		return nil, fmt.Errorf("scenario: decode dsl: %w", err)
	}

	scen := &Scenario{
		Name:              dsl.Meta.Name,
		BudgetCapUSD:      dsl.Budget.CapUSD,
		ApprovalThreshold: dsl.Budget.ApprovalThreshold,
		InitialMessage:    dsl.Slack.InitialMessage,
		DerailProb:        dsl.Slack.DerailProb,
		Channels:          dsl.Slack.Channels,
		BrowserNodes:      dsl.BrowserNodes,
		Participants:      dsl.Participants,
		Documents:         dsl.Documents,
		CalendarEvents:    dsl.CalendarEvents,
		Tickets:           dsl.Tickets,
		Triggers:          dsl.Triggers,
		Identity:          dsl.Identity,
		ServiceDesk:       dsl.ServiceDesk,
		Metadata:          dsl.Metadata,
	}

	for _, v := range dsl.Vendors {
		price, err := sampleNumberOrRange(v.RawPrice, r)
		if err != nil {
			return nil, fmt.Errorf("scenario: vendor %s price: %w", v.Name, err)
		}
		eta, err := sampleNumberOrRange(v.RawETA, r)
		if err != nil {
			return nil, fmt.Errorf("scenario: vendor %s eta_days: %w", v.Name, err)
		}
		scen.Vendors = append(scen.Vendors, CompiledVendor{
			Name:      v.Name,
			PriceUSD:  price,
			ETADays:   int(eta),
			Templates: v.Templates,
		})
	}

	return scen, nil
}

// sampleNumberOrRange decodes a YAML scalar-or-sequence node into either a
// literal float, or a `[lo, hi]` range sampled uniformly via r.RandInt
// scaled back to float precision.
func sampleNumberOrRange(node yaml.Node, r *rng.RNG) (float64, error) {
	if node.Kind == 0 {
		return 0, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := node.Decode(&f); err != nil {
			return 0, err
		}
		return f, nil
	case yaml.SequenceNode:
		var bounds []float64
		if err := node.Decode(&bounds); err != nil {
			return 0, err
		}
		if len(bounds) != 2 {
			return 0, fmt.Errorf("range must have exactly two elements, got %d", len(bounds))
		}
		lo, hi := bounds[0], bounds[1]
		if hi <= lo {
			return lo, nil
		}
		// Sample at integer-cent resolution to stay within the RNG's
		// integer domain while still covering the full [lo, hi] span.
		span := int((hi - lo) * 100)
		offsetCents := r.RandInt(0, span)
		return lo + float64(offsetCents)/100.0, nil
	default:
		return 0, fmt.Errorf("unsupported node kind %v", node.Kind)
	}
}
