package erp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/providers/erp"
	"github.com/vei-sim/vei/rng"
)

func lines(qty int, price float64) []any {
	return []any{map[string]any{"sku": "X1", "qty": qty, "unit_price": price}}
}

func TestThreeWayMatchSucceedsOnEqualLines(t *testing.T) {
	p := erp.New(rng.New(1), 0)

	poResult, err := p.Call("erp.create_po", map[string]any{"lines": lines(2, 1000.00)})
	require.NoError(t, err)
	po := poResult.(*erp.PurchaseOrder)
	require.Equal(t, int64(200000), po.TotalCents)

	_, err = p.Call("erp.receive_goods", map[string]any{"po_id": po.ID, "lines": lines(2, 1000.00)})
	require.NoError(t, err)

	invResult, err := p.Call("erp.submit_invoice", map[string]any{"po_id": po.ID, "lines": lines(2, 1000.00)})
	require.NoError(t, err)
	inv := invResult.(*erp.Invoice)

	result, err := p.Call("erp.match_three_way", map[string]any{"po_id": po.ID, "invoice_id": inv.ID})
	require.NoError(t, err)
	require.Equal(t, "MATCH", result.(map[string]any)["status"])
}

func TestThreeWayMatchFailsOnQtyMismatch(t *testing.T) {
	p := erp.New(rng.New(1), 0)

	poResult, _ := p.Call("erp.create_po", map[string]any{"lines": lines(2, 1000.00)})
	po := poResult.(*erp.PurchaseOrder)

	invResult, _ := p.Call("erp.submit_invoice", map[string]any{"po_id": po.ID, "lines": lines(1, 1000.00)})
	inv := invResult.(*erp.Invoice)

	result, err := p.Call("erp.match_three_way", map[string]any{"po_id": po.ID, "invoice_id": inv.ID})
	require.NoError(t, err)
	require.Equal(t, "MISMATCH", result.(map[string]any)["status"])
}

func TestUnknownPOReturnsInlineDomainError(t *testing.T) {
	p := erp.New(rng.New(1), 0)
	result, err := p.Call("erp.receive_goods", map[string]any{"po_id": "PO-999", "lines": lines(1, 1.0)})
	require.NoError(t, err)
	m := result.(map[string]any)
	require.Contains(t, m, "error")
}
