package tickets_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/providers/tickets"
)

func TestTransitionAppendsStatusHistory(t *testing.T) {
	p := tickets.New()
	created, _ := p.Call("tickets.create", map[string]any{"title": "Printer jam"})
	t1 := created.(*tickets.Ticket)
	require.Equal(t, "OPEN", t1.Status)

	result, err := p.Call("tickets.transition", map[string]any{"id": t1.ID, "status": "IN_PROGRESS"})
	require.NoError(t, err)
	require.Len(t, result.(*tickets.Ticket).History, 2)
}

func TestUpdateAppendsFieldsUpdate(t *testing.T) {
	p := tickets.New()
	created, _ := p.Call("tickets.create", map[string]any{"title": "Printer jam"})
	t1 := created.(*tickets.Ticket)

	result, err := p.Call("tickets.update", map[string]any{"id": t1.ID, "title": "Printer jam - urgent"})
	require.NoError(t, err)
	updated := result.(*tickets.Ticket)
	require.Equal(t, "Printer jam - urgent", updated.Title)
	require.Equal(t, "fields", updated.History[len(updated.History)-1].Update)
}
