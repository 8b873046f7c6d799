// Package cart talks to the cart collaborator service. The checkout flow reads
// the cart exactly once (to snapshot it) and writes exactly once (to clear it
// after the order completes).
package cart

import (
	"context"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
)

// Store provides access to a shopper's cart.
type Store interface {
	// Get returns the current cart contents for the user.
	Get(ctx context.Context, userID string) (*domain.CartSnapshot, error)

	// Clear empties the user's cart. Called only when an order completes.
	Clear(ctx context.Context, userID string) error
}
