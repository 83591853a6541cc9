// Package erp implements the ERP provider (C6.4): purchase orders, goods
// receipts, invoices, and three-way match, with money handled as integer
// cents internally and fault injection drawn from the bus RNG.
package erp

import (
	"fmt"
	"math"

	"github.com/vei-sim/vei/mcperror"
	"github.com/vei-sim/vei/registry"
	"github.com/vei-sim/vei/rng"
)

type (
	// LineItem is one line of a PO, receipt, or invoice.
	LineItem struct {
		SKU       string  `json:"sku"`
		Qty       int     `json:"qty"`
		UnitPrice float64 `json:"unit_price"`
	}

	// PurchaseOrder tracks status OPEN -> RECEIVED -> INVOICED -> PAID.
	PurchaseOrder struct {
		ID         string     `json:"id"`
		Status     string     `json:"status"`
		Lines      []LineItem `json:"lines"`
		TotalCents int64      `json:"total_cents"`
	}

	// Receipt records goods received against a PO.
	Receipt struct {
		ID    string     `json:"id"`
		PoID  string     `json:"po_id"`
		Lines []LineItem `json:"lines"`
	}

	// Invoice tracks paid_amount <= amount.
	Invoice struct {
		ID          string     `json:"id"`
		PoID        string     `json:"po_id"`
		Lines       []LineItem `json:"lines"`
		AmountCents int64      `json:"amount_cents"`
		PaidCents   int64      `json:"paid_cents"`
	}

	// Provider implements providers.Provider for erp.* tools.
	Provider struct {
		rng               *rng.RNG
		pos               map[string]*PurchaseOrder
		receipts          map[string]*Receipt
		invoices          map[string]*Invoice
		poCounter         int
		receiptCounter    int
		invoiceCounter    int
		validationErrRate float64
		paymentErrRate    float64 // nominally validationErrRate / 2
	}
)

// New constructs an ERP Provider. validationErrRate is the configured fault
// rate for submit_invoice; post_payment fails at half that rate per spec.
func New(r *rng.RNG, validationErrRate float64) *Provider {
	return &Provider{
		rng:               r,
		pos:               make(map[string]*PurchaseOrder),
		receipts:          make(map[string]*Receipt),
		invoices:          make(map[string]*Invoice),
		validationErrRate: validationErrRate,
		paymentErrRate:    validationErrRate / 2,
	}
}

// Specs implements providers.Provider.
func (p *Provider) Specs() []registry.ToolSpec {
	return []registry.ToolSpec{
		{Name: "erp.create_po", Description: "Create a purchase order", DefaultLatencyMS: 150},
		{Name: "erp.list_pos", Description: "List purchase orders", DefaultLatencyMS: 60},
		{Name: "erp.receive_goods", Description: "Record a goods receipt against a PO", DefaultLatencyMS: 150},
		{Name: "erp.submit_invoice", Description: "Submit an invoice against a PO", DefaultLatencyMS: 200, FaultProbability: 0},
		{Name: "erp.post_payment", Description: "Post a payment against an invoice", DefaultLatencyMS: 200},
		{Name: "erp.match_three_way", Description: "Three-way match a PO against its receipt and invoice", DefaultLatencyMS: 120},
	}
}

// Handles implements providers.Provider.
func (p *Provider) Handles(tool string) bool {
	switch tool {
	case "erp.create_po", "erp.list_pos", "erp.receive_goods", "erp.submit_invoice", "erp.post_payment", "erp.match_three_way":
		return true
	}
	return false
}

// Call implements providers.Provider.
func (p *Provider) Call(tool string, args map[string]any) (any, error) {
	switch tool {
	case "erp.create_po":
		return p.createPO(args)
	case "erp.list_pos":
		return p.listPOs(), nil
	case "erp.receive_goods":
		return p.receiveGoods(args)
	case "erp.submit_invoice":
		return p.submitInvoice(args)
	case "erp.post_payment":
		return p.postPayment(args)
	case "erp.match_three_way":
		return p.matchThreeWay(args)
	}
	return nil, mcperror.New(mcperror.CodeUnknownTool, "erp: unsupported tool "+tool)
}

func parseLines(raw any) []LineItem {
	items, _ := raw.([]any)
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		sku, _ := m["sku"].(string)
		qty := toInt(m["qty"])
		price := toFloat(m["unit_price"])
		out = append(out, LineItem{SKU: sku, Qty: qty, UnitPrice: price})
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// centsForLines sums round(qty * unit_price * 100) over all lines, per
// spec.md §8's ERP money invariant.
func centsForLines(lines []LineItem) int64 {
	var total int64
	for _, l := range lines {
		total += int64(math.Round(float64(l.Qty) * l.UnitPrice * 100))
	}
	return total
}

func (p *Provider) createPO(args map[string]any) (any, error) {
	lines := parseLines(args["lines"])
	if len(lines) == 0 {
		return nil, mcperror.New(mcperror.CodeInvalidArgs, "erp.create_po requires at least one line")
	}
	p.poCounter++
	po := &PurchaseOrder{
		ID:         fmt.Sprintf("PO-%d", p.poCounter),
		Status:     "OPEN",
		Lines:      lines,
		TotalCents: centsForLines(lines),
	}
	p.pos[po.ID] = po
	return po, nil
}

func (p *Provider) listPOs() []*PurchaseOrder {
	out := make([]*PurchaseOrder, 0, len(p.pos))
	for _, po := range p.pos {
		out = append(out, po)
	}
	return out
}

func (p *Provider) receiveGoods(args map[string]any) (any, error) {
	poID, _ := args["po_id"].(string)
	po, ok := p.pos[poID]
	if !ok {
		return mcperror.DomainError("unknown_po", "no such purchase order "+poID), nil
	}
	lines := parseLines(args["lines"])
	p.receiptCounter++
	receipt := &Receipt{ID: fmt.Sprintf("GR-%d", p.receiptCounter), PoID: poID, Lines: lines}
	p.receipts[receipt.ID] = receipt
	po.Status = "RECEIVED"
	return receipt, nil
}

func (p *Provider) submitInvoice(args map[string]any) (any, error) {
	poID, _ := args["po_id"].(string)
	po, ok := p.pos[poID]
	if !ok {
		return mcperror.DomainError("unknown_po", "no such purchase order "+poID), nil
	}
	if p.validationErrRate > 0 && p.rng.NextFloat() < p.validationErrRate {
		return mcperror.DomainError("validation_error", "invoice failed validation"), nil
	}
	lines := parseLines(args["lines"])
	p.invoiceCounter++
	invoice := &Invoice{
		ID:          fmt.Sprintf("INV-%d", p.invoiceCounter),
		PoID:        poID,
		Lines:       lines,
		AmountCents: centsForLines(lines),
	}
	p.invoices[invoice.ID] = invoice
	po.Status = "INVOICED"
	return invoice, nil
}

func (p *Provider) postPayment(args map[string]any) (any, error) {
	invID, _ := args["invoice_id"].(string)
	inv, ok := p.invoices[invID]
	if !ok {
		return mcperror.DomainError("unknown_invoice", "no such invoice "+invID), nil
	}
	if p.paymentErrRate > 0 && p.rng.NextFloat() < p.paymentErrRate {
		return mcperror.DomainError("payment_rejected", "payment rejected"), nil
	}
	amountCents := int64(math.Round(toFloat(args["amount"]) * 100))
	if amountCents <= 0 || inv.PaidCents+amountCents > inv.AmountCents {
		amountCents = inv.AmountCents - inv.PaidCents
	}
	inv.PaidCents += amountCents
	if po, ok := p.pos[inv.PoID]; ok && inv.PaidCents >= inv.AmountCents {
		po.Status = "PAID"
	}
	return inv, nil
}

func (p *Provider) matchThreeWay(args map[string]any) (any, error) {
	poID, _ := args["po_id"].(string)
	invID, _ := args["invoice_id"].(string)
	po, ok := p.pos[poID]
	if !ok {
		return mcperror.DomainError("unknown_po", "no such purchase order "+poID), nil
	}
	inv, ok := p.invoices[invID]
	if !ok {
		return mcperror.DomainError("unknown_invoice", "no such invoice "+invID), nil
	}

	var receipt *Receipt
	if receiptID, _ := args["receipt_id"].(string); receiptID != "" {
		receipt = p.receipts[receiptID]
	}

	if abs64(po.TotalCents-inv.AmountCents) > 1 {
		return map[string]any{"status": "MISMATCH", "reason": "amount"}, nil
	}

	poQty := qtyBySKU(po.Lines)
	invQty := qtyBySKU(inv.Lines)
	var receiptQty map[string]int
	if receipt != nil {
		receiptQty = qtyBySKU(receipt.Lines)
	}

	skus := make(map[string]struct{})
	for sku := range poQty {
		skus[sku] = struct{}{}
	}
	for sku := range invQty {
		skus[sku] = struct{}{}
	}
	for sku := range skus {
		if poQty[sku] != invQty[sku] {
			return map[string]any{"status": "MISMATCH", "reason": "qty"}, nil
		}
		if receipt != nil && invQty[sku] > receiptQty[sku] {
			return map[string]any{"status": "MISMATCH", "reason": "over_received"}, nil
		}
	}
	return map[string]any{"status": "MATCH"}, nil
}

func qtyBySKU(lines []LineItem) map[string]int {
	out := make(map[string]int)
	for _, l := range lines {
		out[l.SKU] += l.Qty
	}
	return out
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// Counts reports how many purchase orders and invoices exist, for the
// observation builder's short ERP summary.
func (p *Provider) Counts() (pos, invoices int) {
	return len(p.pos), len(p.invoices)
}
