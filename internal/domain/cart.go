package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem is a read-only snapshot of one cart line. UnitPrice is the
// display price in major currency units (e.g. 25.00).
type CartLineItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unit price times quantity for the line.
func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot is the cart contents captured when checkout starts. The
// snapshot is read-only for the rest of the flow; the live cart is only
// touched again when the order completes.
type CartSnapshot struct {
	Items      []CartLineItem `json:"items"`
	CapturedAt time.Time      `json:"captured_at"`
}

// ItemCount returns the total quantity across all lines.
func (c CartSnapshot) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the snapshot holds no items.
func (c CartSnapshot) IsEmpty() bool {
	return len(c.Items) == 0
}
