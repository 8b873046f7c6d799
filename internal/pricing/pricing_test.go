package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(
		decimal.RequireFromString("5.99"),
		decimal.RequireFromString("0.07"),
	)
}

func snapshot(items ...domain.CartLineItem) domain.CartSnapshot {
	return domain.CartSnapshot{Items: items}
}

func TestQuote_SingleLine(t *testing.T) {
	calc := newCalculator(t)

	q := calc.Quote(snapshot(domain.CartLineItem{
		ID:        "jersey-home",
		UnitPrice: decimal.RequireFromString("25.00"),
		Quantity:  2,
	}))

	assert.Equal(t, "50.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "5.99", q.Shipping.StringFixed(2))
	assert.Equal(t, "3.50", q.Tax.StringFixed(2))
	assert.Equal(t, "59.49", q.Total.StringFixed(2))
	assert.Equal(t, int64(5949), q.TotalMinorUnits())
}

func TestQuote_MultipleLines(t *testing.T) {
	calc := newCalculator(t)

	q := calc.Quote(snapshot(
		domain.CartLineItem{ID: "scarf", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 1},
		domain.CartLineItem{ID: "mug", UnitPrice: decimal.RequireFromString("8.25"), Quantity: 3},
	))

	// 12.50 + 24.75 = 37.25; tax 2.6075 -> 2.61; total 37.25 + 5.99 + 2.61 = 45.85
	assert.Equal(t, "37.25", q.Subtotal.StringFixed(2))
	assert.Equal(t, "2.61", q.Tax.StringFixed(2))
	assert.Equal(t, "45.85", q.Total.StringFixed(2))
	assert.Equal(t, int64(4585), q.TotalMinorUnits())
}

func TestQuote_TaxRoundsHalfUp(t *testing.T) {
	calc := newCalculator(t)

	// Subtotal 10.50 at 7% is 0.735, which rounds up to 0.74.
	q := calc.Quote(snapshot(domain.CartLineItem{
		ID:        "pin",
		UnitPrice: decimal.RequireFromString("10.50"),
		Quantity:  1,
	}))

	assert.Equal(t, "0.74", q.Tax.StringFixed(2))
}

func TestQuote_EmptySnapshot(t *testing.T) {
	calc := newCalculator(t)

	q := calc.Quote(snapshot())

	assert.Equal(t, "0.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", q.Tax.StringFixed(2))
	assert.Equal(t, "5.99", q.Total.StringFixed(2))
}

func TestQuote_Deterministic(t *testing.T) {
	calc := newCalculator(t)
	snap := snapshot(domain.CartLineItem{
		ID:        "jersey-home",
		UnitPrice: decimal.RequireFromString("25.00"),
		Quantity:  2,
	})

	first := calc.Quote(snap)
	second := calc.Quote(snap)

	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, first.TotalMinorUnits(), second.TotalMinorUnits())
}

func TestQuote_TotalNeverBelowSubtotal(t *testing.T) {
	calc := newCalculator(t)

	q := calc.Quote(snapshot(domain.CartLineItem{
		ID:        "ball",
		UnitPrice: decimal.RequireFromString("19.99"),
		Quantity:  4,
	}))

	assert.True(t, q.Total.GreaterThanOrEqual(q.Subtotal))
}

func TestTotalMinorUnits_ExactCents(t *testing.T) {
	q := Quote{Total: decimal.RequireFromString("59.49")}
	assert.Equal(t, int64(5949), q.TotalMinorUnits())
}

func TestTotalMinorUnits_ZeroRates(t *testing.T) {
	calc := NewCalculator(decimal.Zero, decimal.Zero)

	q := calc.Quote(snapshot(domain.CartLineItem{
		ID:        "sticker",
		UnitPrice: decimal.RequireFromString("1.05"),
		Quantity:  1,
	}))

	assert.Equal(t, int64(105), q.TotalMinorUnits())
	assert.True(t, q.Total.Equal(q.Subtotal))
}
