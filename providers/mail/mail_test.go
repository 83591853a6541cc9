package mail_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/providers/mail"
	"github.com/vei-sim/vei/rng"
)

func TestComposeSchedulesExactlyOneReplyAt15s(t *testing.T) {
	b := bus.New()
	p := mail.New(b, rng.New(42042), nil, "macrocompute")

	_, err := p.Call("mail.compose", map[string]any{"to": "sales@macrocompute.example", "subj": "Quote", "body": "please advise"})
	require.NoError(t, err)

	pending := b.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, mail.TargetVendorReply, pending[0].Target)
	require.Equal(t, int64(15000), pending[0].DueMS)
}

func TestDeliverVendorReplyAppendsNewestFirst(t *testing.T) {
	b := bus.New()
	p := mail.New(b, rng.New(1), nil, "macrocompute")

	_, _ = p.Call("mail.compose", map[string]any{"to": "a@x.example", "subj": "first"})
	b.Advance(15000)
	due, ok := b.NextIfDue()
	require.True(t, ok)

	msg := p.DeliverVendorReply(1200.50, 5, due.Payload)
	require.Contains(t, msg.Body, "$1200.50")
	require.Contains(t, msg.Body, "5")

	inbox, err := p.Call("mail.inbox", nil)
	require.NoError(t, err)
	list := inbox.([]*mail.Message)
	require.Len(t, list, 1)
	require.Equal(t, msg.ID, list[0].ID)
}

func TestReadUnknownMessageIsTypedError(t *testing.T) {
	b := bus.New()
	p := mail.New(b, rng.New(1), nil, "v")
	_, err := p.Call("mail.read", map[string]any{"id": "m999"})
	require.Error(t, err)
}
