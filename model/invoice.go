package model

import "math"

// InvoiceItem is a line item belonging to an invoice document. Amount is
// always recomputed from quantity and rate, never trusted from input.
type InvoiceItem struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// ComputeAmount sets Amount = Quantity * Rate rounded to cents.
func (it *InvoiceItem) ComputeAmount() {
	it.Amount = RoundCents(it.Quantity * it.Rate)
}

// ComputeInvoiceTotals derives subtotal, tax and total from the item rows and
// the tax rate (a percentage). Item amounts must already be computed.
func ComputeInvoiceTotals(items []InvoiceItem, taxRate float64) (subtotal, tax, total float64) {
	for _, it := range items {
		subtotal += it.Amount
	}
	subtotal = RoundCents(subtotal)
	tax = RoundCents(subtotal * taxRate / 100)
	total = RoundCents(subtotal + tax)
	return subtotal, tax, total
}

// RoundCents rounds a money amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
