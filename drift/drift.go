// Package drift implements the drift engine (C9): a seeded background-event
// scheduler whose jobs re-arm themselves on delivery.
package drift

import (
	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/rng"
)

// Mode selects the drift job set and cadence scaling.
type Mode string

// Valid drift modes.
const (
	ModeOff        Mode = "off"
	ModeLight      Mode = "light"
	ModeSlow       Mode = "slow"
	ModeFast       Mode = "fast"
	ModeAggressive Mode = "aggressive"
)

// TargetPrefix marks bus targets owned by the drift engine; payloads carry
// drift=true and drift_job=<name> so the router can recognise them.
const TargetPrefix = "drift."

// Job is one recurring background-activity generator.
type Job struct {
	Name       string
	Templates  []string
	CadenceMS  int64
	JitterMS   int64
}

// Engine owns the drift job set for one simulation.
type Engine struct {
	bus  *bus.Bus
	rng  *rng.RNG
	mode Mode
	jobs []Job
}

// New constructs a drift Engine. r should be an RNG seeded independently
// from the main simulation RNG (the "drift seed" of spec.md §6), falling
// back to the main seed when no independent seed is configured.
func New(b *bus.Bus, r *rng.RNG, mode Mode) *Engine {
	return &Engine{bus: b, rng: r, mode: mode}
}

func baseJobs() []Job {
	return []Job{
		{
			Name:      "status_update",
			Templates: []string{"Deployed v{n} to staging.", "Daily standup notes posted.", "Sprint board refreshed."},
			CadenceMS: 60000,
			JitterMS:  5000,
		},
		{
			Name:      "calendar_invite",
			Templates: []string{"New meeting invite received.", "Meeting moved 30 minutes later."},
			CadenceMS: 90000,
			JitterMS:  10000,
		},
	}
}

var securityAlertJob = Job{
	Name:      "security_alert",
	Templates: []string{"Unusual login detected, review required.", "Password policy violation flagged."},
	CadenceMS: 45000,
	JitterMS:  8000,
}

// cadenceFactor scales job cadences by mode, per spec.md §4.9: light/slow
// halve cadences (i.e. double the interval divisor is inverted: a factor
// below 1 fires more often, matching "halves cadences" meaning the *time
// between* firings is halved); fast keeps base cadences.
func cadenceFactor(mode Mode) float64 {
	switch mode {
	case ModeLight, ModeSlow:
		return 0.5
	default:
		return 1.0
	}
}

// Prime registers the mode's job set and schedules each job's first firing.
// It is a no-op when mode is off; it must be called at most once per
// simulation.
func (e *Engine) Prime() {
	if e.mode == ModeOff {
		return
	}
	jobs := baseJobs()
	factor := cadenceFactor(e.mode)
	for i := range jobs {
		jobs[i].CadenceMS = int64(float64(jobs[i].CadenceMS) * factor)
	}
	if e.mode == ModeAggressive || e.mode == ModeFast {
		jobs = append(jobs, securityAlertJob)
	}
	e.jobs = jobs
	for _, job := range e.jobs {
		e.arm(job)
	}
}

func (e *Engine) arm(job Job) {
	template := job.Templates[e.rng.Choice(len(job.Templates))]
	jitter := int64(0)
	if job.JitterMS > 0 {
		jitter = int64(e.rng.RandInt(0, int(job.JitterMS)))
	}
	e.bus.Schedule(job.CadenceMS+jitter, TargetPrefix+job.Name, bus.Payload{
		"drift":     true,
		"drift_job": job.Name,
		"text":      template,
	})
}

// HandleDelivery re-arms the job named by payload's drift_job at
// +cadence_ms plus a fresh jitter draw (the same scheduling as Prime's first
// firing), as required when the router delivers a drift-tagged bus
// entry. It returns the job name and template text for the router to record
// as a drift.delivered state event.
func (e *Engine) HandleDelivery(payload bus.Payload) (jobName, text string) {
	jobName, _ = payload["drift_job"].(string)
	text, _ = payload["text"].(string)
	for _, job := range e.jobs {
		if job.Name == jobName {
			e.arm(job)
			break
		}
	}
	return jobName, text
}

// IsDriftPayload reports whether payload carries the drift marker the
// router uses to route bus deliveries to HandleDelivery instead of a
// regular provider follow-up.
func IsDriftPayload(payload bus.Payload) bool {
	drift, _ := payload["drift"].(bool)
	return drift
}
