package calendar_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/providers/calendar"
)

func TestRespondRecordsPerAttendeeResponse(t *testing.T) {
	p := calendar.New()
	created, _ := p.Call("calendar.create_event", map[string]any{
		"title": "Vendor sync", "start_ms": int64(60000), "attendees": []any{"alice", "bob"},
	})
	e := created.(*calendar.Event)

	result, err := p.Call("calendar.respond", map[string]any{"id": e.ID, "attendee": "alice", "response": "accepted"})
	require.NoError(t, err)
	require.Equal(t, "accepted", result.(*calendar.Event).Responses["alice"])
}

func TestRespondRejectsUnknownAttendee(t *testing.T) {
	p := calendar.New()
	created, _ := p.Call("calendar.create_event", map[string]any{
		"title": "Vendor sync", "attendees": []any{"alice"},
	})
	e := created.(*calendar.Event)

	_, err := p.Call("calendar.respond", map[string]any{"id": e.ID, "attendee": "mallory", "response": "accepted"})
	require.Error(t, err)
}
