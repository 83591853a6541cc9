package observation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/bus"
	"github.com/vei-sim/vei/observation"
	"github.com/vei-sim/vei/providers/browser"
	"github.com/vei-sim/vei/providers/chat"
	"github.com/vei-sim/vei/providers/erp"
	"github.com/vei-sim/vei/providers/mail"
	"github.com/vei-sim/vei/rng"
)

func TestMailSummaryReportsEmptyInbox(t *testing.T) {
	b := observation.New(nil, mail.New(bus.New(), rng.New(1), nil, "vendor"), nil, nil, nil, "")
	snap := b.Build("mail", 0, 0)
	require.Equal(t, "INBOX empty", snap.Summary)
}

func TestBrowserSummaryAndActionMenuReflectCurrentNode(t *testing.T) {
	nodes := browser.DefaultGraph()
	bp := browser.New(nodes, "home")
	builder := observation.New(nil, nil, bp, nil, nil, "")
	snap := builder.Build("browser", 2, 500)
	require.Contains(t, snap.Summary, "MacroCompute Store")
	require.NotEmpty(t, snap.ActionMenu)
	require.Equal(t, "browser.click", snap.ActionMenu[0].Tool)
	require.Equal(t, 2, snap.PendingCount)
	require.Equal(t, int64(500), snap.ClockMS)
}

func TestSlackSummaryFallsBackWhenChannelEmpty(t *testing.T) {
	cp := chat.New(bus.New(), rng.New(1), 100000, 0)
	builder := observation.New(cp, nil, nil, nil, nil, "#procurement")
	snap := builder.Build("slack", 0, 0)
	require.Contains(t, snap.Summary, "no messages yet")
}

func TestERPSummaryReportsCounts(t *testing.T) {
	ep := erp.New(rng.New(1), 0)
	_, _ = ep.Call("erp.create_po", map[string]any{"lines": []any{map[string]any{"sku": "A", "qty": 1, "unit_price": 10.0}}})
	builder := observation.New(nil, nil, nil, ep, nil, "")
	snap := builder.Build("erp", 0, 0)
	require.Contains(t, snap.Summary, "1 purchase orders")
}

func TestDefaultFocusIsBrowser(t *testing.T) {
	bp := browser.New(browser.DefaultGraph(), "home")
	builder := observation.New(nil, nil, bp, nil, nil, "")
	snap := builder.Build("", 0, 0)
	require.Equal(t, "browser", snap.Focus)
}
