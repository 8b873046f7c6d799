package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
	pkgkafka "github.com/otonielcp/eagles-fc-website-sub000/pkg/kafka"
)

// Kafka topic constants for shop checkout events.
const (
	TopicOrderCompleted    = "shop.order.completed"
	TopicCheckoutAbandoned = "shop.checkout.abandoned"
)

// Aggregate type constant.
const AggregateTypeCheckout = "checkout"

// Source identifier for events originating from the checkout service.
const SourceCheckoutService = "shop-checkout"

// OrderLineData is one order line in a completed-order payload.
type OrderLineData struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// OrderCompletedData is the payload for an order.completed event.
type OrderCompletedData struct {
	OrderNumber     string          `json:"order_number"`
	SessionID       string          `json:"session_id"`
	UserID          string          `json:"user_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Items           []OrderLineData `json:"items"`
	TotalMinorUnits int64           `json:"total_minor_units"`
	Currency        string          `json:"currency"`
}

// CheckoutAbandonedData is the payload for a checkout.abandoned event.
type CheckoutAbandonedData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Stage     string `json:"stage"`
}

// Publisher publishes checkout lifecycle events.
type Publisher interface {
	PublishOrderCompleted(ctx context.Context, data OrderCompletedData) error
	PublishCheckoutAbandoned(ctx context.Context, session *domain.CheckoutSession) error
}

// Producer publishes checkout events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the checkout service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCompleted publishes an order.completed event.
func (p *Producer) PublishOrderCompleted(ctx context.Context, data OrderCompletedData) error {
	event, err := pkgkafka.NewEvent(TopicOrderCompleted, data.SessionID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create order.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCompleted, event); err != nil {
		return fmt.Errorf("publish order.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.completed event",
		slog.String("order_number", data.OrderNumber),
		slog.String("session_id", data.SessionID),
	)

	return nil
}

// PublishCheckoutAbandoned publishes a checkout.abandoned event.
func (p *Producer) PublishCheckoutAbandoned(ctx context.Context, session *domain.CheckoutSession) error {
	data := CheckoutAbandonedData{
		SessionID: session.ID,
		UserID:    session.UserID,
		Stage:     session.Stage,
	}

	event, err := pkgkafka.NewEvent(TopicCheckoutAbandoned, session.ID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create checkout.abandoned event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutAbandoned, event); err != nil {
		return fmt.Errorf("publish checkout.abandoned event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.abandoned event",
		slog.String("session_id", session.ID),
		slog.String("stage", session.Stage),
	)

	return nil
}
