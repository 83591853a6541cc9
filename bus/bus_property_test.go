package bus_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vei-sim/vei/bus"
)

// TestClockMonotoneProperty verifies spec.md §8's monotone logical clock
// invariant: after any sequence of Advance/SetClock calls, the clock never
// decreases.
func TestClockMonotoneProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("advance and set-clock never move the clock backward", prop.ForAll(
		func(deltas []int64) bool {
			b := bus.New()
			last := b.Clock()
			for _, d := range deltas {
				b.Advance(d)
				if b.Clock() < last {
					return false
				}
				last = b.Clock()
				b.SetClock(last - 1) // attempted regression must be a no-op
				if b.Clock() != last {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}

// TestDueTimeDeliveryProperty verifies spec.md §8's due-time delivery
// invariant: Tick(dt) delivers exactly the entries due within the window,
// and never delivers an entry before its recorded due time.
func TestDueTimeDeliveryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("tick delivers every due entry and nothing early", prop.ForAll(
		func(offsets []int64, windowMS int64) bool {
			if windowMS < 0 {
				windowMS = -windowMS
			}
			b := bus.New()
			for i, dt := range offsets {
				if dt < 0 {
					dt = -dt
				}
				b.Schedule(dt, "t", bus.Payload{"i": i})
			}

			start := b.Clock()
			var deliveredDue []int64
			b.Tick(windowMS, func(e *bus.Entry) {
				deliveredDue = append(deliveredDue, e.DueMS)
			})

			for _, due := range deliveredDue {
				if due > start+windowMS {
					return false // delivered something outside the window
				}
			}
			for _, dt := range offsets {
				if dt < 0 {
					dt = -dt
				}
				due := start + dt
				wasDue := due <= start+windowMS
				if wasDue {
					found := false
					for _, d := range deliveredDue {
						if d == due {
							found = true
							break
						}
					}
					if !found {
						return false // an entry due within the window was not delivered
					}
				}
			}
			return b.Clock() == start+windowMS
		},
		gen.SliceOf(gen.Int64Range(0, 5000)),
		gen.Int64Range(0, 5000),
	))

	properties.TestingRun(t)
}
