// Package router implements the router (C11): the single dispatch pipeline
// composing the registry, providers, state store, trace logger, monitors,
// policy engine, and drift engine into one simulation instance, per
// spec.md §4.7.
package router

import (
	"fmt"

	"github.com/vei-sim/vei/alias"
	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/config"
	"github.com/vei-sim/vei/drift"
	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/monitor"
	"github.com/vei-sim/vei/observation"
	"github.com/vei-sim/vei/policy"
	"github.com/vei-sim/vei/providers"
	"github.com/vei-sim/vei/providers/browser"
	"github.com/vei-sim/vei/providers/calendar"
	"github.com/vei-sim/vei/providers/chat"
	"github.com/vei-sim/vei/providers/crm"
	"github.com/vei-sim/vei/providers/docs"
	"github.com/vei-sim/vei/providers/erp"
	"github.com/vei-sim/vei/providers/identity"
	"github.com/vei-sim/vei/providers/mail"
	"github.com/vei-sim/vei/providers/servicedesk"
	"github.com/vei-sim/vei/providers/tickets"
	"github.com/vei-sim/vei/registry"
	"github.com/vei-sim/vei/rng"
	"github.com/vei-sim/vei/scenario"
	"github.com/vei-sim/vei/store"
	"github.com/vei-sim/vei/telemetry"
	"github.com/vei-sim/vei/trace"
)

// ProcurementChannel is the channel the default scenario seeds and the
// slack focus summary reads from.
const ProcurementChannel = "#procurement"

// defaultVendorName/PriceUSD/ETADays ground the default vendor (see
// end-to-end scenario 3 in spec.md §8) when no scenario vendor is supplied.
const (
	defaultVendorName     = "sales@macrocompute.example"
	defaultVendorPriceUSD = 999.00
	defaultVendorETADays  = 5
)

// ToolCallTailSize bounds the state store's tool_calls introspection tail.
const ToolCallTailSize = 200

// Router is the single dispatch pipeline for one simulation instance. It is
// not safe for concurrent use; spec.md §5 requires adapters to serialise
// calls behind a single-writer lock.
type Router struct {
	bus      *bus.Bus
	rng      *rng.RNG
	registry *registry.Registry
	alias    *alias.Layer
	store    *store.Store
	trace    *trace.Logger
	monitors *monitor.Manager
	policy   *policy.Engine
	drift    *drift.Engine
	obs      *observation.Builder
	logger   telemetry.Logger

	providerList []providers.Provider

	chat    *chat.Provider
	mail    *mail.Provider
	browser *browser.Provider
	erp     *erp.Provider
	crm     *crm.Provider

	deniedPermissions map[string]bool

	vendorPriceUSD float64
	vendorETADays  int

	seed uint32
}

// New wires together a fresh Router from cfg and a compiled scenario (scen
// may be nil, in which case built-in defaults are used throughout).
func New(cfg config.Config, scen *scenario.Scenario, logger telemetry.Logger) (*Router, error) {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	r := &Router{
		bus:               bus.New(),
		rng:               rng.New(cfg.Seed),
		registry:          registry.New(),
		alias:             alias.New(cfg.AliasPacks),
		monitors:          monitor.New(buildMonitors(cfg.Monitors)...),
		policy:            policy.WithOverrides(cfg.PolicyPromotions),
		logger:            logger,
		deniedPermissions: make(map[string]bool),
		seed:              cfg.Seed,
	}

	var backend store.Backend
	if cfg.StateDir != "" {
		backend = store.NewFileBackend(cfg.StateDir, "main")
	}
	r.store = store.New("main", backend, logger)
	r.store.RegisterReducer("tool_calls", boundedTailReducer("tool_calls", ToolCallTailSize))
	r.store.RegisterReducer("monitor_findings", boundedTailReducer("monitor_findings", monitor.DefaultTailSize))
	r.store.RegisterReducer("policy_findings", boundedTailReducer("policy_findings", policy.DefaultTailSize))

	r.trace = trace.New(traceFilePath(cfg.ArtifactsDir), logger)
	if cfg.TraceStreamEndpoint != "" {
		r.trace = r.trace.WithStream(trace.NewStreamWorker(cfg.TraceStreamEndpoint, nil, logger))
	}

	// The default budgetCapCents ($10,000) is generous enough that ordinary
	// approval requests clear it; scenarios needing a tight cap (e.g. the
	// "over cap" end-to-end case) configure budget.cap_usd explicitly.
	budgetCapCents, derailProb := int64(1_000_000), 0.0
	vendorName, vendorPriceUSD, vendorETADays := defaultVendorName, defaultVendorPriceUSD, defaultVendorETADays
	var vendorTemplates []string
	channels := []string{ProcurementChannel}
	var browserNodes map[string]*browser.Node
	home := "home"

	if scen != nil {
		if scen.BudgetCapUSD > 0 {
			budgetCapCents = int64(scen.BudgetCapUSD * 100)
		}
		derailProb = scen.DerailProb
		if len(scen.Channels) > 0 {
			channels = scen.Channels
		}
		if len(scen.Vendors) > 0 {
			v := scen.Vendors[0]
			vendorName = v.Name
			vendorPriceUSD = v.PriceUSD
			vendorETADays = v.ETADays
			vendorTemplates = v.Templates
		}
		if len(scen.BrowserNodes) > 0 {
			browserNodes = convertBrowserNodes(scen.BrowserNodes)
			home = scen.BrowserNodes[0].ID
		}
	}
	if browserNodes == nil {
		browserNodes = browser.DefaultGraph()
	}

	r.chat = chat.New(r.bus, r.rng, budgetCapCents, derailProb)
	for _, name := range channels {
		r.chat.EnsureChannel(name)
	}
	r.mail = mail.New(r.bus, r.rng, vendorTemplates, vendorName)
	r.browser = browser.New(browserNodes, home)
	r.erp = erp.New(r.rng, applyFaultProfile(cfg.ERPErrorRate, cfg.FaultProfile))
	r.crm = crm.New(r.rng, applyFaultProfile(cfg.CRMErrorRate, cfg.FaultProfile))

	r.vendorPriceUSD, r.vendorETADays = vendorPriceUSD, vendorETADays

	r.obs = observation.New(r.chat, r.mail, r.browser, r.erp, r.crm, ProcurementChannel)

	identityP := identity.New()
	ticketsP := tickets.New()
	docsP := docs.New()
	calendarP := calendar.New()
	servicedeskP := servicedesk.New()
	seedFromScenario(scen, identityP, ticketsP, docsP, calendarP, servicedeskP)

	for _, p := range []providers.Provider{
		r.chat, r.mail, r.browser, r.erp, r.crm,
		identityP, ticketsP, docsP, calendarP, servicedeskP,
	} {
		if err := r.register(p); err != nil {
			return nil, err
		}
	}
	r.registry.Start()

	if scen != nil {
		for _, t := range scen.Triggers {
			r.bus.Schedule(t.AtMS, t.Target, bus.Payload(t.Payload))
		}
	}

	mode := drift.Mode(cfg.DriftMode)
	if mode == "" {
		mode = drift.ModeOff
	}
	driftSeed := cfg.DriftSeed
	if driftSeed == 0 {
		driftSeed = cfg.Seed
	}
	r.drift = drift.New(r.bus, rng.New(driftSeed), mode)
	r.drift.Prime()

	return r, nil
}

func (r *Router) register(p providers.Provider) error {
	for _, spec := range p.Specs() {
		if err := r.registry.Register(spec); err != nil {
			return err
		}
		r.alias.Register(spec.Name)
	}
	r.providerList = append(r.providerList, p)
	return nil
}

func buildMonitors(names []string) []monitor.Monitor {
	var out []monitor.Monitor
	for _, name := range names {
		if name == "tool_aware" {
			out = append(out, monitor.NewToolAware())
		}
	}
	if len(out) == 0 {
		out = append(out, monitor.NewToolAware())
	}
	return out
}

func applyFaultProfile(base, profile float64) float64 {
	if profile <= 0 {
		return base
	}
	return base * profile
}

func traceFilePath(artifactsDir string) string {
	if artifactsDir == "" {
		return ""
	}
	return artifactsDir + "/trace.jsonl"
}

func convertBrowserNodes(nodes []scenario.BrowserNode) map[string]*browser.Node {
	out := make(map[string]*browser.Node, len(nodes))
	for _, n := range nodes {
		affordances := make([]browser.Affordance, 0, len(n.Affordances))
		for _, a := range n.Affordances {
			affordances = append(affordances, browser.Affordance{Label: a.Label, NodeID: a.NodeID})
		}
		out[n.ID] = &browser.Node{
			ID:          n.ID,
			URL:         n.URL,
			Title:       n.Title,
			Excerpt:     n.Excerpt,
			RawHTML:     n.RawHTML,
			Affordances: affordances,
			Next:        n.Next,
		}
	}
	return out
}

// Clock returns the simulation's current logical clock in milliseconds.
func (r *Router) Clock() int64 { return r.bus.Clock() }

// Call is the single entrypoint for both reserved vei.* tools and ordinary
// domain tool calls (spec.md §6).
func (r *Router) Call(tool string, args map[string]any) (any, error) {
	if result, handled, err := r.callReserved(tool, args); handled {
		return result, err
	}
	base := tool
	if resolved, ok := r.alias.Resolve(tool); ok {
		base = resolved
	}
	return r.dispatch(base, args)
}

// dispatch runs the 11-step call pipeline from spec.md §4.7.
func (r *Router) dispatch(tool string, args map[string]any) (any, error) {
	spec, ok := r.registry.Lookup(tool)
	if !ok {
		return nil, mcperror.New(mcperror.CodeUnknownTool, "unknown tool "+tool)
	}

	if r.permissionDenied(spec) {
		return nil, mcperror.New(mcperror.CodePermissionDenied, "tool "+tool+" is denied by permission override")
	}

	if spec.FaultProbability > 0 && r.rng.NextFloat() < spec.FaultProbability {
		faultErr := mcperror.New(mcperror.CodeFaultInjected, "injected fault for "+tool)
		r.trace.RecordCall(tool, args, faultErr.AsResponse(), r.bus.Clock())
		return nil, faultErr
	}

	latency := int64(spec.DefaultLatencyMS)
	if spec.LatencyJitterMS > 0 {
		latency += int64(r.rng.RandInt(0, spec.LatencyJitterMS))
	}
	r.bus.Advance(latency)

	result, err := r.callProvider(tool, args)
	if err != nil {
		if te, ok := err.(*mcperror.Error); ok {
			r.trace.RecordCall(tool, args, te.AsResponse(), r.bus.Clock())
		}
		return nil, err
	}

	r.trace.RecordCall(tool, args, result, r.bus.Clock())
	r.recordToolCall(tool, args, result)

	if entry, ok := r.bus.NextIfDue(); ok {
		r.deliverEntry(entry)
	}

	r.bus.Advance(1000)

	r.runMonitorsAndPolicy(tool, args, result)

	r.trace.Flush()

	return result, nil
}

func (r *Router) callProvider(tool string, args map[string]any) (any, error) {
	for _, p := range r.providerList {
		if p.Handles(tool) {
			return p.Call(tool, args)
		}
	}
	return nil, mcperror.New(mcperror.CodeUnsupportedTool, "no provider handles "+tool)
}

func (r *Router) permissionDenied(spec registry.ToolSpec) bool {
	for _, perm := range spec.Permissions {
		if r.deniedPermissions[perm] {
			return true
		}
	}
	return false
}

// DenyPermission adds perm to the set of denied permission tags. Any tool
// whose ToolSpec.Permissions includes perm will be refused with
// permission_denied.
func (r *Router) DenyPermission(perm string) {
	r.deniedPermissions[perm] = true
}

func (r *Router) recordToolCall(tool string, args map[string]any, result any) {
	r.store.Append("tool_calls", map[string]any{
		"tool":   tool,
		"args":   args,
		"result": result,
	}, r.bus.Clock(), nil)
}

// boundedTailReducer trims state[kind] to the last maxLen entries whenever
// a new event of that kind is applied, keeping introspection tails bounded
// independent of simulation length (spec.md §5).
func boundedTailReducer(kind string, maxLen int) store.Reducer {
	return func(state map[string]any, e *store.Event) {
		if e.Kind != kind {
			return
		}
		tail, _ := state[kind].([]map[string]any)
		tail = append(tail, e.Payload)
		if len(tail) > maxLen {
			tail = tail[len(tail)-maxLen:]
		}
		state[kind] = tail
	}
}

func (r *Router) runMonitorsAndPolicy(tool string, args map[string]any, result any) {
	snapshot := r.store.State()
	findings := r.monitors.Run(tool, args, result, snapshot)
	policyFindings := r.policy.Evaluate(findings)

	if len(findings) > 0 {
		r.store.Append("monitor_findings", map[string]any{"findings": toAnySlice(findings)}, r.bus.Clock(), nil)
	}
	if len(policyFindings) > 0 {
		r.store.Append("policy_findings", map[string]any{"findings": toAnySlice(policyFindings)}, r.bus.Clock(), nil)
	}
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// deliverEntry delivers one popped bus entry, routing it to the owning
// provider's follow-up handler (or the drift engine), and records the
// delivery as a trace event plus a state-store event.
func (r *Router) deliverEntry(e *bus.Entry) {
	payload := e.Payload
	clock := r.bus.Clock()
	tracePayload := payload

	switch {
	case drift.IsDriftPayload(payload):
		jobName, text := r.drift.HandleDelivery(payload)
		r.store.Append("drift.delivered", map[string]any{"drift_job": jobName, "text": text}, clock, nil)

	case isChatTarget(e.Target):
		r.chat.DeliverFollowUp(e.Target, payload)
		r.store.Append("chat.delivered", map[string]any{"target": e.Target, "payload": map[string]any(payload)}, clock, nil)

	case e.Target == mail.TargetVendorReply:
		msg := r.mail.DeliverVendorReply(r.vendorPriceUSD, r.vendorETADays, payload)
		r.store.Append("mail.delivered", map[string]any{"id": msg.ID, "body": msg.Body}, clock, nil)
		substituted := make(bus.Payload, len(payload)+1)
		for k, v := range payload {
			substituted[k] = v
		}
		substituted["body_text"] = msg.Body
		tracePayload = substituted

	default:
		r.store.Append(e.Target, map[string]any(payload), clock, nil)
	}

	r.trace.RecordEvent(e.Target, tracePayload, true, clock)
}

func isChatTarget(target string) bool {
	switch target {
	case chat.TargetDerail, chat.TargetClarify, chat.TargetApprove, chat.TargetOverCap:
		return true
	}
	return false
}

// callReserved handles the vei.* reserved tool names (spec.md §6). The
// second return value reports whether tool was a reserved name at all.
func (r *Router) callReserved(tool string, args map[string]any) (any, bool, error) {
	switch tool {
	case "vei.observe":
		focus, _ := args["focus"].(string)
		return r.Observe(focus), true, nil
	case "vei.tick":
		dtMS := int64(argFloat(args, "dt_ms", 0))
		return r.Tick(dtMS), true, nil
	case "vei.pending":
		return map[string]any{"pending": r.bus.PendingCount("")}, true, nil
	case "vei.ping":
		return "pong", true, nil
	case "vei.reset":
		var seed *uint32
		if v := argFloat(args, "seed", -1); v >= 0 {
			s := uint32(v)
			seed = &s
		}
		r.Reset(seed)
		return map[string]any{"reset": true}, true, nil
	case "vei.state":
		return r.stateSnapshot(args), true, nil
	case "vei.help":
		return r.registry.Search("", 1000), true, nil
	case "vei.act_and_observe":
		innerTool, _ := args["tool"].(string)
		innerArgs, _ := args["args"].(map[string]any)
		result, err := r.Call(innerTool, innerArgs)
		if err != nil {
			return nil, true, err
		}
		focus, _ := args["focus"].(string)
		return map[string]any{"result": result, "observation": r.Observe(focus)}, true, nil
	case "vei.call":
		innerTool, _ := args["tool"].(string)
		innerArgs, _ := args["args"].(map[string]any)
		result, err := r.Call(innerTool, innerArgs)
		return result, true, err
	case "vei.inject":
		target, _ := args["target"].(string)
		payload, _ := args["payload"].(map[string]any)
		dtMS := int64(argFloat(args, "dt_ms", 0))
		r.bus.Schedule(dtMS, target, bus.Payload(payload))
		return map[string]any{"scheduled": true}, true, nil
	}
	return nil, false, nil
}

func argFloat(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

// Observe implements spec.md §4.7's observation contract: drain at most one
// due event, advance the clock by 1000ms, then build a focus snapshot.
func (r *Router) Observe(focus string) observation.Snapshot {
	if entry, ok := r.bus.NextIfDue(); ok {
		r.deliverEntry(entry)
	}
	r.bus.Advance(1000)
	return r.obs.Build(focus, r.bus.PendingCount(""), r.bus.Clock())
}

// Tick delivers every event due within dtMS of the current clock, setting
// the clock to each event's own due time before delivery, then advances the
// clock to start+dtMS.
func (r *Router) Tick(dtMS int64) map[string]any {
	delivered := 0
	r.bus.Tick(dtMS, func(e *bus.Entry) {
		r.deliverEntry(e)
		delivered++
	})
	return map[string]any{"delivered": delivered, "clock_ms": r.bus.Clock()}
}

// Reset rewinds the RNG to seed (or its original construction seed if nil)
// and discards all pending bus entries and monitor/policy findings tails.
// The event log and materialised state store are left intact, matching
// spec.md's event-sourced append-only contract: a reset starts a fresh
// logical session over the same durable history rather than erasing it.
func (r *Router) Reset(seed *uint32) {
	if seed != nil {
		r.seed = *seed
	}
	// Reset in place: the providers and the drift engine hold these same
	// pointers, so they see the rewound RNG and the emptied bus too.
	*r.rng = *rng.New(r.seed)
	*r.bus = *bus.New()
	r.monitors = monitor.New(buildMonitors(nil)...)
	r.policy = policy.New()
}

func (r *Router) stateSnapshot(args map[string]any) map[string]any {
	out := map[string]any{
		"head":     r.store.Head(),
		"clock_ms": r.bus.Clock(),
	}
	if includeState, _ := args["include_state"].(bool); includeState {
		out["state"] = r.store.State()
	}
	if toolTail, ok := args["tool_tail"].(bool); ok && toolTail {
		events := r.store.Events()
		var tail []map[string]any
		for _, e := range events {
			if e.Kind == "tool_calls" {
				tail = append(tail, e.Payload)
			}
		}
		out["tool_tail"] = tail
	}
	if includeReceipts, _ := args["include_receipts"].(bool); includeReceipts {
		out["receipts"] = []map[string]any{}
	}
	return out
}

// Names returns every registered tool name, for adapters that want a raw
// listing rather than a ranked search.
func (r *Router) Names() []string { return r.registry.Names() }

// String implements fmt.Stringer for debugging convenience.
func (r *Router) String() string {
	return fmt.Sprintf("router(clock=%dms, tools=%d)", r.bus.Clock(), len(r.registry.Names()))
}
