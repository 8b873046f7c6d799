// Package pricing derives order totals from a cart snapshot. Quotes are
// recomputed from the snapshot on every call and never cached, so the figures
// shown to the shopper and the amount sent to the payment gateway always agree.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// Calculator computes quotes using a flat shipping fee and a single tax rate.
type Calculator struct {
	shippingFee decimal.Decimal
	taxRate     decimal.Decimal
}

// NewCalculator creates a calculator with the given flat shipping fee (major
// units, e.g. 5.99) and tax rate (fraction, e.g. 0.07).
func NewCalculator(shippingFee, taxRate decimal.Decimal) *Calculator {
	return &Calculator{shippingFee: shippingFee, taxRate: taxRate}
}

// Quote is a derived breakdown of the order total. All amounts are in major
// currency units.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Quote computes the breakdown for the snapshot: subtotal is the sum of line
// totals, tax applies to the subtotal only, and shipping is the flat fee.
func (c *Calculator) Quote(snapshot domain.CartSnapshot) Quote {
	subtotal := decimal.Zero
	for _, item := range snapshot.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	tax := subtotal.Mul(c.taxRate).Round(2)
	total := subtotal.Add(c.shippingFee).Add(tax)

	return Quote{
		Subtotal: subtotal.Round(2),
		Shipping: c.shippingFee.Round(2),
		Tax:      tax,
		Total:    total.Round(2),
	}
}

// TotalMinorUnits converts the quote total to integer minor units (cents),
// rounding half up. This is the only place a display amount becomes a gateway
// amount.
func (q Quote) TotalMinorUnits() int64 {
	return q.Total.Mul(oneHundred).Round(0).IntPart()
}
