package bus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/bus"
)

func TestScheduleOrdersByDueTimeThenSeq(t *testing.T) {
	b := bus.New()
	b.Schedule(100, "a", bus.Payload{"n": 1})
	b.Schedule(50, "b", bus.Payload{"n": 2})
	b.Schedule(50, "c", bus.Payload{"n": 3})

	b.Advance(1000)

	e, ok := b.NextIfDue()
	require.True(t, ok)
	require.Equal(t, "b", e.Target)

	e, ok = b.NextIfDue()
	require.True(t, ok)
	require.Equal(t, "c", e.Target)

	e, ok = b.NextIfDue()
	require.True(t, ok)
	require.Equal(t, "a", e.Target)
}

func TestClockNeverMovesBackward(t *testing.T) {
	b := bus.New()
	b.Advance(10)
	require.Equal(t, int64(10), b.Clock())
	b.SetClock(5)
	require.Equal(t, int64(10), b.Clock())
	b.Advance(-5)
	require.Equal(t, int64(10), b.Clock())
}

func TestNextIfDueRespectsDueTime(t *testing.T) {
	b := bus.New()
	b.Schedule(100, "a", nil)
	_, ok := b.NextIfDue()
	require.False(t, ok)

	b.Advance(100)
	e, ok := b.NextIfDue()
	require.True(t, ok)
	require.Equal(t, "a", e.Target)
}

func TestTickDeliversEverythingDueWithinWindow(t *testing.T) {
	b := bus.New()
	b.Schedule(10, "a", nil)
	b.Schedule(20, "b", nil)
	b.Schedule(30, "c", nil)

	var delivered []string
	var clocksAtDelivery []int64
	b.Tick(25, func(e *bus.Entry) {
		delivered = append(delivered, e.Target)
		clocksAtDelivery = append(clocksAtDelivery, b.Clock())
	})

	require.Equal(t, []string{"a", "b"}, delivered)
	require.Equal(t, []int64{10, 20}, clocksAtDelivery)
	require.Equal(t, int64(25), b.Clock())
}

func TestPendingCountByTarget(t *testing.T) {
	b := bus.New()
	b.Schedule(10, "a", nil)
	b.Schedule(10, "a", nil)
	b.Schedule(10, "b", nil)
	require.Equal(t, 3, b.PendingCount(""))
	require.Equal(t, 2, b.PendingCount("a"))
	require.Equal(t, 1, b.PendingCount("b"))
}
