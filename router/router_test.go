package router_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/config"
	"github.com/vei-sim/vei/providers/chat"
	"github.com/vei-sim/vei/providers/erp"
	"github.com/vei-sim/vei/providers/mail"
	"github.com/vei-sim/vei/router"
)

func newRouter(t *testing.T, seed uint32) *router.Router {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = seed
	r, err := router.New(cfg, nil, nil)
	require.NoError(t, err)
	return r
}

func TestApprovalWithAmountDeliversApprovedMessage(t *testing.T) {
	r := newRouter(t, 123)

	_, err := r.Call("slack.send_message", map[string]any{
		"channel": "#procurement",
		"text":    "Please approve; budget $3200.",
	})
	require.NoError(t, err)

	r.Tick(15000)

	thread, err := r.Call("slack.fetch_thread", map[string]any{"channel": "#procurement", "thread_ts": "1"})
	require.NoError(t, err)
	result, ok := thread.(map[string]any)
	require.True(t, ok)
	messages, ok := result["messages"].([]chat.Message)
	require.True(t, ok)

	found := false
	for _, m := range messages {
		if m.Text == ":white_check_mark: Approved" {
			found = true
		}
	}
	require.True(t, found, "expected an approved follow-up message in thread, got %+v", messages)
}

func TestUnknownToolReturnsTypedError(t *testing.T) {
	r := newRouter(t, 1)
	_, err := r.Call("nonexistent.tool", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown_tool")
}

func TestVendorReplyParsingAfterTick(t *testing.T) {
	r := newRouter(t, 42042)

	_, err := r.Call("mail.compose", map[string]any{
		"to":        "sales@macrocompute.example",
		"subj":      "Quote",
		"body_text": "please advise",
	})
	require.NoError(t, err)

	tickResult := r.Tick(20000)
	require.GreaterOrEqual(t, tickResult["delivered"], 1)

	inbox, err := r.Call("mail.inbox", nil)
	require.NoError(t, err)
	messages, ok := inbox.([]*mail.Message)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(messages), 1)
}

func TestClockIsMonotoneAcrossCallsObserveAndTick(t *testing.T) {
	r := newRouter(t, 7)
	prev := r.Clock()
	_, _ = r.Call("vei.ping", nil)
	require.GreaterOrEqual(t, r.Clock(), prev)
	prev = r.Clock()
	r.Observe("")
	require.GreaterOrEqual(t, r.Clock(), prev)
	prev = r.Clock()
	r.Tick(5000)
	require.GreaterOrEqual(t, r.Clock(), prev)
}

func TestVeiPendingAndPingAndHelp(t *testing.T) {
	r := newRouter(t, 1)
	pending, err := r.Call("vei.pending", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"pending": 0}, pending)

	pong, err := r.Call("vei.ping", nil)
	require.NoError(t, err)
	require.Equal(t, "pong", pong)

	help, err := r.Call("vei.help", nil)
	require.NoError(t, err)
	require.NotEmpty(t, help)
}

func TestVeiInjectSchedulesAndDelivers(t *testing.T) {
	r := newRouter(t, 1)
	_, err := r.Call("vei.inject", map[string]any{
		"target":  "custom.event",
		"payload": map[string]any{"msg": "hi"},
		"dt_ms":   float64(500),
	})
	require.NoError(t, err)

	tickResult := r.Tick(500)
	require.Equal(t, 1, tickResult["delivered"])
}

func TestVeiActAndObserveWrapsCallAndObservation(t *testing.T) {
	r := newRouter(t, 1)
	out, err := r.Call("vei.act_and_observe", map[string]any{
		"tool": "slack.list_channels",
		"args": map[string]any{},
	})
	require.NoError(t, err)
	wrapped, ok := out.(map[string]any)
	require.True(t, ok)
	require.Contains(t, wrapped, "result")
	require.Contains(t, wrapped, "observation")
}

func TestVeiResetRewindsClock(t *testing.T) {
	r := newRouter(t, 1)
	r.Tick(5000)
	require.Greater(t, r.Clock(), int64(0))

	_, err := r.Call("vei.reset", nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), r.Clock())
}

func TestERPThreeWayMatchViaRouter(t *testing.T) {
	r := newRouter(t, 1)

	poResult, err := r.Call("erp.create_po", map[string]any{
		"lines": []any{map[string]any{"sku": "SKU1", "qty": 2, "unit_price": 1000.00}},
	})
	require.NoError(t, err)
	po, ok := poResult.(*erp.PurchaseOrder)
	require.True(t, ok)

	_, err = r.Call("erp.receive_goods", map[string]any{
		"po_id": po.ID,
		"lines": []any{map[string]any{"sku": "SKU1", "qty": 2, "unit_price": 1000.00}},
	})
	require.NoError(t, err)

	invResult, err := r.Call("erp.submit_invoice", map[string]any{
		"po_id": po.ID,
		"lines": []any{map[string]any{"sku": "SKU1", "qty": 2, "unit_price": 1000.00}},
	})
	require.NoError(t, err)
	inv, ok := invResult.(*erp.Invoice)
	require.True(t, ok)

	matchResult, err := r.Call("erp.match_three_way", map[string]any{"po_id": po.ID, "invoice_id": inv.ID})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"status": "MATCH"}, matchResult)
}

func TestDenyPermissionOnUnusedTagLeavesToolsCallable(t *testing.T) {
	r := newRouter(t, 1)
	r.DenyPermission("erp.write")
	// erp specs in this build carry no Permissions tags, so denying an
	// unused tag is a no-op; this asserts DenyPermission never panics and
	// unrelated tools remain callable.
	_, err := r.Call("erp.list_pos", nil)
	require.NoError(t, err)
}
