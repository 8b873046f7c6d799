package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
	apperrors "github.com/otonielcp/eagles-fc-website-sub000/pkg/errors"
)

const keyPrefix = "checkout:session:"

// SessionRepository implements repository.SessionRepository using Redis.
// Every write refreshes the TTL, so a session stays alive as long as the
// shopper keeps moving through the flow.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a new Redis-backed session repository.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create persists a new session with the configured TTL.
func (r *SessionRepository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	return r.write(ctx, session)
}

// GetByID retrieves a session from Redis. A missing or expired session comes
// back as NotFound.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	key := keyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("checkout session", id)
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &session, nil
}

// Update persists session changes and refreshes the TTL.
func (r *SessionRepository) Update(ctx context.Context, session *domain.CheckoutSession) error {
	return r.write(ctx, session)
}

// Delete removes a session from Redis.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	key := keyPrefix + id

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}

	return nil
}

func (r *SessionRepository) write(ctx context.Context, session *domain.CheckoutSession) error {
	key := keyPrefix + session.ID

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}
