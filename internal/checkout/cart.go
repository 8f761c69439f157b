package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one cart entry. LineTotal is fixed when the line is added.
type Line struct {
	InventoryItemID uint            `json:"inventory_item_id"`
	ProductID       uint            `json:"product_id"`
	Description     string          `json:"description"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// Totals is the money breakdown of a cart
type Totals struct {
	Subtotal decimal.Decimal  `json:"subtotal"`
	Discount decimal.Decimal  `json:"discount"`
	TaxRate  *decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal  `json:"tax"`
	Total    decimal.Decimal  `json:"total"`
}

// Cart accumulates lines before checkout
type Cart struct {
	Lines    []Line
	Discount decimal.Decimal
	// TaxRate is a percentage; nil when the tenant has no default rate
	TaxRate *decimal.Decimal
}

// Add appends a line, defaulting the quantity to 1, and returns it with its total
func (c *Cart) Add(line Line) Line {
	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	c.Lines = append(c.Lines, line)
	return line
}

// RemoveAt drops the line at index i. Other lines keep their totals.
func (c *Cart) RemoveAt(i int) error {
	if i < 0 || i >= len(c.Lines) {
		return fmt.Errorf("line index %d out of range [0,%d)", i, len(c.Lines))
	}
	c.Lines = append(c.Lines[:i:i], c.Lines[i+1:]...)
	return nil
}

// Len returns the number of lines
func (c *Cart) Len() int {
	return len(c.Lines)
}

// Subtotal sums the line totals
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	return subtotal
}

// Totals computes the breakdown for the current lines
func (c *Cart) Totals() Totals {
	return ComputeTotals(c.Subtotal(), c.Discount, c.TaxRate)
}

// ComputeTotals applies the tax rate (percent) to the subtotal and subtracts
// the discount. The total never goes below zero.
func ComputeTotals(subtotal, discount decimal.Decimal, taxRate *decimal.Decimal) Totals {
	tax := decimal.Zero
	if taxRate != nil {
		tax = subtotal.Mul(*taxRate).Div(hundred)
	}

	total := subtotal.Sub(discount).Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		TaxRate:  taxRate,
		Tax:      tax,
		Total:    total,
	}
}
