package drift_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/drift"
	"github.com/vei-sim/vei/rng"
)

func TestOffModeSchedulesNothing(t *testing.T) {
	b := bus.New()
	e := drift.New(b, rng.New(4242), drift.ModeOff)
	e.Prime()
	require.Equal(t, 0, b.PendingCount(""))
}

func TestFastModeAddsSecurityAlertJob(t *testing.T) {
	b := bus.New()
	e := drift.New(b, rng.New(4242), drift.ModeFast)
	e.Prime()
	require.Equal(t, 3, b.PendingCount(""))
}

func TestSameSeedAndModeYieldIdenticalTimeline(t *testing.T) {
	b1 := bus.New()
	e1 := drift.New(b1, rng.New(4242), drift.ModeFast)
	e1.Prime()

	b2 := bus.New()
	e2 := drift.New(b2, rng.New(4242), drift.ModeFast)
	e2.Prime()

	require.Equal(t, b1.Pending(), b2.Pending())
}

func TestHandleDeliveryReArmsJob(t *testing.T) {
	b := bus.New()
	e := drift.New(b, rng.New(4242), drift.ModeFast)
	e.Prime()

	before := b.PendingCount("")
	// advance the clock far enough that every primed job is due, then drain one.
	b.Advance(200000)
	entry, ok := b.NextIfDue()
	require.True(t, ok)
	require.True(t, drift.IsDriftPayload(entry.Payload))

	jobName, text := e.HandleDelivery(entry.Payload)
	require.NotEmpty(t, jobName)
	require.NotEmpty(t, text)
	require.Equal(t, before, b.PendingCount("")) // one consumed, one re-armed: net unchanged
}
