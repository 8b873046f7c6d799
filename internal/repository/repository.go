// Package repository defines persistence contracts for checkout sessions.
package repository

import (
	"context"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
)

// SessionRepository stores checkout sessions. Sessions are ephemeral; the
// store applies a TTL and abandoned sessions simply expire.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.CheckoutSession) error
	GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, session *domain.CheckoutSession) error
	Delete(ctx context.Context, id string) error
}
