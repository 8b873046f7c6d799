package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/cart"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/event"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/gateway"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/pricing"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/repository"
	apperrors "github.com/otonielcp/eagles-fc-website-sub000/pkg/errors"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/tracing"
)

// tracer covers the gateway round trips, the slowest part of the flow.
var tracer = tracing.Tracer("github.com/otonielcp/eagles-fc-website-sub000/internal/service")

// sessionLocks is a per-session, in-process processing guard. A payment
// operation holds the session's slot for its whole duration; a second
// operation on the same session is rejected instead of queued.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[string]struct{})}
}

func (l *sessionLocks) acquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[id]; ok {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

func (l *sessionLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}

// CheckoutService implements the three-stage checkout flow: shipping capture,
// payment, confirmation. Totals are derived from the cart snapshot on every
// use and never stored.
type CheckoutService struct {
	repo     repository.SessionRepository
	carts    cart.Store
	provider gateway.Provider
	producer event.Publisher
	calc     *pricing.Calculator
	logger   *slog.Logger
	currency string
	locks    *sessionLocks
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	repo repository.SessionRepository,
	carts cart.Store,
	provider gateway.Provider,
	producer event.Publisher,
	calc *pricing.Calculator,
	logger *slog.Logger,
	currency string,
) *CheckoutService {
	return &CheckoutService{
		repo:     repo,
		carts:    carts,
		provider: provider,
		producer: producer,
		calc:     calc,
		logger:   logger,
		currency: currency,
		locks:    newSessionLocks(),
	}
}

// Start opens a checkout session for the user's current cart. An empty cart
// never produces a session; the shopper is sent back to the shop instead.
func (s *CheckoutService) Start(ctx context.Context, userID string) (*domain.CheckoutSession, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	snapshot, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "snapshot cart")
	}

	if snapshot.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Stage:     domain.StageShipping,
		Cart:      *snapshot,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, "create checkout session")
	}

	s.logger.InfoContext(ctx, "checkout started",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.Int("item_count", snapshot.ItemCount()),
	)

	return session, nil
}

// Get returns the session after an ownership check.
func (s *CheckoutService) Get(ctx context.Context, id, userID string) (*domain.CheckoutSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.Forbidden("checkout session belongs to another user")
	}
	return session, nil
}

// Summary is the order summary shown alongside every stage: the snapshot
// lines, the freshly derived quote, and the stage progress indicator.
type Summary struct {
	Session  *domain.CheckoutSession `json:"session"`
	Quote    pricing.Quote           `json:"quote"`
	Progress []domain.StageState     `json:"progress"`
}

// GetSummary derives the summary for the session. The quote is recomputed on
// every call.
func (s *CheckoutService) GetSummary(ctx context.Context, id, userID string) (*Summary, error) {
	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Session:  session,
		Quote:    s.calc.Quote(session.Cart),
		Progress: session.StageProgress(),
	}, nil
}

// ShippingInput is the shipping form. Every field is required.
type ShippingInput struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

func (in *ShippingInput) validate() error {
	required := []struct{ name, value string }{
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"email", in.Email},
		{"phone", in.Phone},
		{"address", in.Address},
		{"city", in.City},
		{"state", in.State},
		{"zip", in.Zip},
		{"country", in.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperrors.InvalidInput(f.name + " is required")
		}
	}
	return nil
}

// SubmitShipping captures and freezes the shipping info, then advances the
// session to the payment stage. This step makes no network calls.
func (s *CheckoutService) SubmitShipping(ctx context.Context, id, userID string, input *ShippingInput) (*domain.CheckoutSession, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("shipping info is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if session.Stage != domain.StageShipping {
		return nil, apperrors.StageConflict("shipping can only be submitted from the shipping stage")
	}

	session.Shipping = &domain.ShippingInfo{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Zip:       strings.TrimSpace(input.Zip),
		Country:   strings.TrimSpace(input.Country),
	}
	session.ShippingFrozen = true
	session.Stage = domain.StagePayment
	session.Touch()

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, "update checkout session")
	}

	s.logger.InfoContext(ctx, "shipping captured",
		slog.String("session_id", session.ID),
	)

	return session, nil
}

// ReturnToShipping takes the single allowed back edge, payment -> shipping.
// The captured values stay on the session so the form can be pre-filled; only
// the frozen flag is lifted.
func (s *CheckoutService) ReturnToShipping(ctx context.Context, id, userID string) (*domain.CheckoutSession, error) {
	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(session.Stage, domain.StageShipping) {
		return nil, apperrors.StageConflict("can only return to shipping from the payment stage")
	}

	session.ShippingFrozen = false
	session.Stage = domain.StageShipping
	session.Touch()

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, "update checkout session")
	}

	return session, nil
}

// IntentOutput is returned when a payment intent is created. The client
// secret drives the browser-side gateway flow; the quote is what the intent
// was priced from.
type IntentOutput struct {
	IntentID     string        `json:"intent_id"`
	ClientSecret string        `json:"client_secret"`
	Quote        pricing.Quote `json:"quote"`
}

// CreatePaymentIntent quotes the snapshot, converts the total to minor units,
// and creates a fresh intent at the gateway. Every call produces a new
// intent; any predecessor is simply left to expire gateway-side.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, id, userID string) (*IntentOutput, error) {
	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if session.Stage != domain.StagePayment {
		return nil, apperrors.StageConflict("payment intent can only be created in the payment stage")
	}
	if session.Shipping == nil || !session.ShippingFrozen {
		return nil, apperrors.StageConflict("shipping must be submitted before payment")
	}

	if !s.locks.acquire(session.ID) {
		return nil, apperrors.Conflict("a payment operation is already in progress for this session")
	}
	defer s.locks.release(session.ID)

	quote := s.calc.Quote(session.Cart)

	items := make([]gateway.IntentItem, 0, len(session.Cart.Items))
	for _, line := range session.Cart.Items {
		items = append(items, gateway.IntentItem{Name: line.Title, Quantity: line.Quantity})
	}

	gwCtx, span := tracer.Start(ctx, "gateway.create_intent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("checkout.session_id", session.ID),
			attribute.Int64("payment.amount_minor_units", quote.TotalMinorUnits()),
		),
	)
	intent, err := s.provider.CreateIntent(gwCtx, gateway.IntentRequest{
		AmountMinorUnits: quote.TotalMinorUnits(),
		Currency:         s.currency,
		Items:            items,
		SessionID:        session.ID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create intent failed")
	}
	span.End()
	if err != nil {
		s.logger.ErrorContext(ctx, "payment intent creation failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.GatewayRequest("could not reach the payment service, please try again")
	}

	session.LastPaymentIntentID = intent.ID
	session.Touch()
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, "update checkout session")
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("session_id", session.ID),
		slog.String("intent_id", intent.ID),
		slog.Int64("amount_minor_units", quote.TotalMinorUnits()),
	)

	return &IntentOutput{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Quote:        quote,
	}, nil
}

// ConfirmInput holds the parameters for confirming the latest payment intent.
type ConfirmInput struct {
	IntentID        string `json:"intent_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	CardholderName  string `json:"cardholder_name" validate:"required"`
}

// ConfirmPayment confirms the latest intent with the shopper's payment
// method. A declined payment keeps the session in the payment stage with the
// failure recorded; the shopper may retry as many times as they like, and a
// fresh intent is created for each retry via CreatePaymentIntent.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, id, userID string, input *ConfirmInput) (*domain.CheckoutSession, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("confirm input is required")
	}
	if strings.TrimSpace(input.IntentID) == "" {
		return nil, apperrors.InvalidInput("intent_id is required")
	}
	if strings.TrimSpace(input.PaymentMethodID) == "" {
		return nil, apperrors.InvalidInput("payment_method_id is required")
	}
	if strings.TrimSpace(input.CardholderName) == "" {
		return nil, apperrors.InvalidInput("cardholder_name is required")
	}

	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if session.Stage != domain.StagePayment {
		return nil, apperrors.StageConflict("payment can only be confirmed in the payment stage")
	}
	if input.IntentID != session.LastPaymentIntentID {
		return nil, apperrors.InvalidInput("intent is not the latest for this session")
	}

	if !s.locks.acquire(session.ID) {
		return nil, apperrors.Conflict("a payment operation is already in progress for this session")
	}
	defer s.locks.release(session.ID)

	// Billing details mirror the frozen shipping info; the cardholder name is
	// display data on the session, not what the gateway bills against.
	billing := gateway.BillingDetails{
		Name:    session.Shipping.FullName(),
		Email:   session.Shipping.Email,
		Phone:   session.Shipping.Phone,
		Address: session.Shipping.Address,
		City:    session.Shipping.City,
		State:   session.Shipping.State,
		Zip:     session.Shipping.Zip,
		Country: session.Shipping.Country,
	}

	gwCtx, span := tracer.Start(ctx, "gateway.confirm_intent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("checkout.session_id", session.ID),
			attribute.String("payment.intent_id", input.IntentID),
		),
	)
	result, err := s.provider.ConfirmIntent(gwCtx, gateway.ConfirmRequest{
		IntentID:        input.IntentID,
		PaymentMethodID: input.PaymentMethodID,
		Billing:         billing,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm request failed")
	}
	span.End()
	if err != nil {
		// A network drop mid-confirmation is a confirmation failure from the
		// shopper's point of view; no result is recorded and they may retry.
		s.logger.ErrorContext(ctx, "payment confirmation request failed",
			slog.String("session_id", session.ID),
			slog.String("intent_id", input.IntentID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.PaymentFailed("could not reach the payment service, please try again")
	}

	session.CardholderName = strings.TrimSpace(input.CardholderName)
	session.LastResult = &domain.PaymentResult{
		Status:   result.Status,
		IntentID: result.IntentID,
		Message:  result.FailureMessage,
	}

	if result.Status != domain.StatusSucceeded {
		session.Touch()
		if err := s.repo.Update(ctx, session); err != nil {
			return nil, apperrors.Wrap(err, "update checkout session")
		}

		s.logger.InfoContext(ctx, "payment declined",
			slog.String("session_id", session.ID),
			slog.String("intent_id", result.IntentID),
		)
		return nil, apperrors.PaymentFailed(result.FailureMessage)
	}

	session.Stage = domain.StageConfirmation
	session.Touch()
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, "update checkout session")
	}

	s.logger.InfoContext(ctx, "payment confirmed",
		slog.String("session_id", session.ID),
		slog.String("intent_id", result.IntentID),
	)

	return session, nil
}

// Receipt is returned when the order completes.
type Receipt struct {
	OrderNumber     string        `json:"order_number"`
	PaymentIntentID string        `json:"payment_intent_id"`
	Quote           pricing.Quote `json:"quote"`
	ItemCount       int           `json:"item_count"`
	RedirectTo      string        `json:"redirect_to"`
}

// CompleteOrder finishes the flow from the confirmation stage. Clearing the
// cart is the single external side effect; the session is then discarded and
// the shopper is pointed back at the shop.
func (s *CheckoutService) CompleteOrder(ctx context.Context, id, userID string) (*Receipt, error) {
	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if session.Stage != domain.StageConfirmation || !session.PaymentSucceeded() {
		return nil, apperrors.StageConflict("order can only be completed from the confirmation stage")
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// The session is kept so completion can be retried.
		return nil, apperrors.Wrap(err, "clear cart")
	}

	quote := s.calc.Quote(session.Cart)
	orderNumber := "ORD-" + strings.ToUpper(uuid.New().String()[:8])

	lines := make([]event.OrderLineData, 0, len(session.Cart.Items))
	for _, item := range session.Cart.Items {
		lines = append(lines, event.OrderLineData{
			ProductID: item.ID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
		})
	}

	if err := s.producer.PublishOrderCompleted(ctx, event.OrderCompletedData{
		OrderNumber:     orderNumber,
		SessionID:       session.ID,
		UserID:          session.UserID,
		PaymentIntentID: session.LastPaymentIntentID,
		Items:           lines,
		TotalMinorUnits: quote.TotalMinorUnits(),
		Currency:        s.currency,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.completed event",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.repo.Delete(ctx, session.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete completed session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order completed",
		slog.String("session_id", session.ID),
		slog.String("order_number", orderNumber),
		slog.String("intent_id", session.LastPaymentIntentID),
	)

	return &Receipt{
		OrderNumber:     orderNumber,
		PaymentIntentID: session.LastPaymentIntentID,
		Quote:           quote,
		ItemCount:       session.Cart.ItemCount(),
		RedirectTo:      "/shop",
	}, nil
}

// Cancel discards the session. The cart is untouched and any open intent is
// left to expire at the gateway.
func (s *CheckoutService) Cancel(ctx context.Context, id, userID string) error {
	session, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.producer.PublishCheckoutAbandoned(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "failed to publish checkout.abandoned event",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.repo.Delete(ctx, session.ID); err != nil {
		return apperrors.Wrap(err, "delete checkout session")
	}

	s.logger.InfoContext(ctx, "checkout cancelled",
		slog.String("session_id", session.ID),
		slog.String("stage", session.Stage),
	)

	return nil
}
