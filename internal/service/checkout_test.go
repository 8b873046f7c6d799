package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/event"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/gateway"
	gatewaymock "github.com/otonielcp/eagles-fc-website-sub000/internal/gateway/mock"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/pricing"
	apperrors "github.com/otonielcp/eagles-fc-website-sub000/pkg/errors"
)

// fakeSessionRepo is an in-memory SessionRepository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.CheckoutSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *s
	r.sessions[s.ID] = &cpy
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("checkout session", id)
	}
	cpy := *s
	return &cpy, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *s
	r.sessions[s.ID] = &cpy
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// fakeCartStore serves a fixed snapshot and records Clear calls.
type fakeCartStore struct {
	mu         sync.Mutex
	items      []domain.CartLineItem
	clearCalls int
	clearErr   error
	getErr     error
}

func (c *fakeCartStore) Get(_ context.Context, _ string) (*domain.CartSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	items := make([]domain.CartLineItem, len(c.items))
	copy(items, c.items)
	return &domain.CartSnapshot{Items: items}, nil
}

func (c *fakeCartStore) Clear(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	c.clearCalls++
	c.items = nil
	return nil
}

func (c *fakeCartStore) clears() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearCalls
}

// fakePublisher records published events.
type fakePublisher struct {
	mu        sync.Mutex
	completed []event.OrderCompletedData
	abandoned []event.CheckoutAbandonedData
	err       error
}

func (p *fakePublisher) PublishOrderCompleted(_ context.Context, data event.OrderCompletedData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.completed = append(p.completed, data)
	return nil
}

func (p *fakePublisher) PublishCheckoutAbandoned(_ context.Context, s *domain.CheckoutSession) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.abandoned = append(p.abandoned, event.CheckoutAbandonedData{
		SessionID: s.ID, UserID: s.UserID, Stage: s.Stage,
	})
	return nil
}

// stubProvider lets individual tests script gateway behavior.
type stubProvider struct {
	mu          sync.Mutex
	createErr   error
	confirmErr  error
	result      *gateway.Result
	createCalls int
	lastCreate  gateway.IntentRequest
	lastConfirm gateway.ConfirmRequest
	block       chan struct{} // when set, CreateIntent blocks until closed
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) CreateIntent(_ context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	p.mu.Lock()
	p.createCalls++
	n := p.createCalls
	p.lastCreate = req
	block := p.block
	err := p.createErr
	p.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &gateway.Intent{
		ID:           "pi_" + strconv.Itoa(n),
		ClientSecret: "secret",
	}, nil
}

func (p *stubProvider) ConfirmIntent(_ context.Context, req gateway.ConfirmRequest) (*gateway.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastConfirm = req
	if p.confirmErr != nil {
		return nil, p.confirmErr
	}
	if p.result != nil {
		r := *p.result
		r.IntentID = req.IntentID
		return &r, nil
	}
	return &gateway.Result{Status: "succeeded", IntentID: req.IntentID}, nil
}

type fixture struct {
	svc      *CheckoutService
	repo     *fakeSessionRepo
	carts    *fakeCartStore
	provider *stubProvider
	events   *fakePublisher
}

func jerseyCart() []domain.CartLineItem {
	return []domain.CartLineItem{
		{ID: "jersey-home", Title: "Home Jersey", UnitPrice: decimal.RequireFromString("25.00"), Quantity: 2},
	}
}

func newFixture(items []domain.CartLineItem) *fixture {
	repo := newFakeSessionRepo()
	carts := &fakeCartStore{items: items}
	provider := &stubProvider{}
	events := &fakePublisher{}
	calc := pricing.NewCalculator(
		decimal.RequireFromString("5.99"),
		decimal.RequireFromString("0.07"),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		svc:      NewCheckoutService(repo, carts, provider, events, calc, logger, "usd"),
		repo:     repo,
		carts:    carts,
		provider: provider,
		events:   events,
	}
}

func validShipping() *ShippingInput {
	return &ShippingInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		Address:   "1 Stadium Way",
		City:      "Eagleton",
		State:     "CA",
		Zip:       "90210",
		Country:   "US",
	}
}

// advanceToPayment starts a session and submits shipping.
func advanceToPayment(t *testing.T, f *fixture) *domain.CheckoutSession {
	t.Helper()
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	session, err = f.svc.SubmitShipping(ctx, session.ID, "user-1", validShipping())
	require.NoError(t, err)
	return session
}

// advanceToConfirmation additionally creates and confirms an intent.
func advanceToConfirmation(t *testing.T, f *fixture) *domain.CheckoutSession {
	t.Helper()
	ctx := context.Background()

	session := advanceToPayment(t, f)

	intent, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	session, err = f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        intent.IntentID,
		PaymentMethodID: "pm_card_visa",
		CardholderName:  "Ada Lovelace",
	})
	require.NoError(t, err)
	return session
}

func TestStart(t *testing.T) {
	f := newFixture(jerseyCart())

	session, err := f.svc.Start(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, domain.StageShipping, session.Stage)
	assert.Equal(t, 2, session.Cart.ItemCount())
	assert.False(t, session.ShippingFrozen)
}

func TestStart_EmptyCartGuard(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Start(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyCart))

	// No session may exist after a guarded start.
	assert.Empty(t, f.repo.sessions)
}

func TestStart_RequiresUserID(t *testing.T) {
	f := newFixture(jerseyCart())

	_, err := f.svc.Start(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestStart_CartUnavailable(t *testing.T) {
	f := newFixture(jerseyCart())
	f.carts.getErr = errors.New("connection refused")

	_, err := f.svc.Start(context.Background(), "user-1")
	require.Error(t, err)
	assert.Empty(t, f.repo.sessions)
}

func TestGet_OwnershipEnforced(t *testing.T) {
	f := newFixture(jerseyCart())
	session, err := f.svc.Start(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), session.ID, "user-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestSubmitShipping_AdvancesAndFreezes(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	session, err = f.svc.SubmitShipping(ctx, session.ID, "user-1", validShipping())
	require.NoError(t, err)

	assert.Equal(t, domain.StagePayment, session.Stage)
	assert.True(t, session.ShippingFrozen)
	require.NotNil(t, session.Shipping)
	assert.Equal(t, "Ada", session.Shipping.FirstName)
	// Submitting shipping never talks to the gateway.
	assert.Equal(t, 0, f.provider.createCalls)
}

func TestSubmitShipping_MissingFields(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	input := validShipping()
	input.Zip = "  "
	_, err = f.svc.SubmitShipping(ctx, session.ID, "user-1", input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	// Session stays in shipping.
	got, err := f.svc.Get(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageShipping, got.Stage)
}

func TestSubmitShipping_MissingPhone(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	input := validShipping()
	input.Phone = ""
	_, err = f.svc.SubmitShipping(ctx, session.ID, "user-1", input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	got, err := f.svc.Get(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageShipping, got.Stage)
	assert.False(t, got.ShippingFrozen)
}

func TestSubmitShipping_WrongStage(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)

	_, err := f.svc.SubmitShipping(context.Background(), session.ID, "user-1", validShipping())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStageConflict))
}

func TestReturnToShipping_KeepsValues(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()
	session := advanceToPayment(t, f)

	session, err := f.svc.ReturnToShipping(ctx, session.ID, "user-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StageShipping, session.Stage)
	assert.False(t, session.ShippingFrozen)
	// Values are preserved for form pre-fill.
	require.NotNil(t, session.Shipping)
	assert.Equal(t, "1 Stadium Way", session.Shipping.Address)
}

func TestReturnToShipping_OnlyFromPayment(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, err = f.svc.ReturnToShipping(ctx, session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStageConflict))
}

func TestReturnToShipping_NotFromConfirmation(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToConfirmation(t, f)

	_, err := f.svc.ReturnToShipping(context.Background(), session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStageConflict))
}

func TestCreatePaymentIntent_SendsMinorUnits(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)

	out, err := f.svc.CreatePaymentIntent(context.Background(), session.ID, "user-1")
	require.NoError(t, err)

	// 50.00 subtotal + 5.99 shipping + 3.50 tax = 59.49 -> 5949 cents.
	assert.Equal(t, int64(5949), f.provider.lastCreate.AmountMinorUnits)
	assert.Equal(t, "usd", f.provider.lastCreate.Currency)
	assert.Equal(t, session.ID, f.provider.lastCreate.SessionID)
	assert.Equal(t, "59.49", out.Quote.Total.StringFixed(2))
	assert.NotEmpty(t, out.ClientSecret)

	got, err := f.svc.Get(context.Background(), session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, out.IntentID, got.LastPaymentIntentID)
}

func TestCreatePaymentIntent_FreshIntentPerCall(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	first, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)
	second, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.IntentID, second.IntentID)
	assert.Equal(t, 2, f.provider.createCalls)

	// The session tracks only the latest intent.
	got, err := f.svc.Get(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.IntentID, got.LastPaymentIntentID)
}

func TestCreatePaymentIntent_WrongStage(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, err = f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStageConflict))
}

func TestCreatePaymentIntent_GatewayFailure(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	f.provider.createErr = errors.New("tls handshake timeout")

	_, err := f.svc.CreatePaymentIntent(context.Background(), session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGatewayRequest))

	// Session survives and can be retried.
	got, err := f.svc.Get(context.Background(), session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StagePayment, got.Stage)
	assert.Empty(t, got.LastPaymentIntentID)
}

func TestCreatePaymentIntent_ProcessingGuard(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	block := make(chan struct{})
	f.provider.block = block

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
		done <- err
	}()

	// Wait until the first call is inside the provider.
	for {
		f.provider.mu.Lock()
		calls := f.provider.createCalls
		f.provider.mu.Unlock()
		if calls == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	f.provider.mu.Lock()
	f.provider.block = nil
	f.provider.mu.Unlock()

	_, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	close(block)
	require.NoError(t, <-done)
}

func TestConfirmPayment_Success(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToConfirmation(t, f)

	assert.Equal(t, domain.StageConfirmation, session.Stage)
	assert.True(t, session.PaymentSucceeded())
	assert.Equal(t, "Ada Lovelace", session.CardholderName)

	// Billing details mirror the frozen shipping info.
	assert.Equal(t, "Ada Lovelace", f.provider.lastConfirm.Billing.Name)
	assert.Equal(t, "ada@example.com", f.provider.lastConfirm.Billing.Email)
	assert.Equal(t, "1 Stadium Way", f.provider.lastConfirm.Billing.Address)
	assert.Equal(t, "90210", f.provider.lastConfirm.Billing.Zip)
}

func TestConfirmPayment_BillingNameMirrorsShipping(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	intent, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	got, err := f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        intent.IntentID,
		PaymentMethodID: "pm_card_visa",
		CardholderName:  "Grace Hopper",
	})
	require.NoError(t, err)

	// The gateway bills against the frozen shipping name, not the card form.
	assert.Equal(t, "Ada Lovelace", f.provider.lastConfirm.Billing.Name)
	assert.Equal(t, "Grace Hopper", got.CardholderName)
}

func TestConfirmPayment_DeclineStaysInPayment(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	intent, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	f.provider.result = &gateway.Result{Status: "failed", FailureMessage: "your card was declined"}

	_, err = f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        intent.IntentID,
		PaymentMethodID: "pm_card_declined",
		CardholderName:  "Ada Lovelace",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))

	got, err := f.svc.Get(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StagePayment, got.Stage)
	require.NotNil(t, got.LastResult)
	assert.Equal(t, "your card was declined", got.LastResult.Message)
}

func TestConfirmPayment_RetryAfterDeclineWithFreshIntent(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	first, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	f.provider.result = &gateway.Result{Status: "failed", FailureMessage: "your card was declined"}
	_, err = f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        first.IntentID,
		PaymentMethodID: "pm_card_declined",
		CardholderName:  "Ada Lovelace",
	})
	require.Error(t, err)

	// Retry: new intent, then a successful confirmation.
	second, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.IntentID, second.IntentID)

	f.provider.result = nil
	got, err := f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        second.IntentID,
		PaymentMethodID: "pm_card_visa",
		CardholderName:  "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageConfirmation, got.Stage)
}

func TestConfirmPayment_StaleIntentRejected(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	first, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)
	_, err = f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        first.IntentID,
		PaymentMethodID: "pm_card_visa",
		CardholderName:  "Ada Lovelace",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestConfirmPayment_TransportErrorIsConfirmationFailure(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	intent, err := f.svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	f.provider.confirmErr = errors.New("connection reset")
	_, err = f.svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        intent.IntentID,
		PaymentMethodID: "pm_card_visa",
		CardholderName:  "Ada Lovelace",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))

	// No result is recorded for a transport failure; the shopper may retry.
	got, err := f.svc.Get(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StagePayment, got.Stage)
	assert.Nil(t, got.LastResult)
}

func TestCompleteOrder(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToConfirmation(t, f)
	ctx := context.Background()

	receipt, err := f.svc.CompleteOrder(ctx, session.ID, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.OrderNumber)
	assert.Equal(t, session.LastPaymentIntentID, receipt.PaymentIntentID)
	assert.Equal(t, "59.49", receipt.Quote.Total.StringFixed(2))
	assert.Equal(t, 2, receipt.ItemCount)
	assert.Equal(t, "/shop", receipt.RedirectTo)

	// Clearing the cart is the single external side effect.
	assert.Equal(t, 1, f.carts.clears())

	// The session is gone.
	_, err = f.svc.Get(ctx, session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// An order.completed event went out.
	require.Len(t, f.events.completed, 1)
	assert.Equal(t, int64(5949), f.events.completed[0].TotalMinorUnits)
	assert.Equal(t, receipt.OrderNumber, f.events.completed[0].OrderNumber)
}

func TestCompleteOrder_OnlyFromConfirmation(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)

	_, err := f.svc.CompleteOrder(context.Background(), session.ID, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStageConflict))
	assert.Equal(t, 0, f.carts.clears())
}

func TestCompleteOrder_CartClearFailureKeepsSession(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToConfirmation(t, f)
	ctx := context.Background()

	f.carts.clearErr = errors.New("cart service down")
	_, err := f.svc.CompleteOrder(ctx, session.ID, "user-1")
	require.Error(t, err)

	// Completion can be retried once the cart service recovers.
	f.carts.clearErr = nil
	receipt, err := f.svc.CompleteOrder(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.OrderNumber)
}

func TestCompleteOrder_EventFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToConfirmation(t, f)

	f.events.err = errors.New("kafka unavailable")
	receipt, err := f.svc.CompleteOrder(context.Background(), session.ID, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.OrderNumber)
	assert.Equal(t, 1, f.carts.clears())
}

func TestCancel(t *testing.T) {
	f := newFixture(jerseyCart())
	session := advanceToPayment(t, f)
	ctx := context.Background()

	require.NoError(t, f.svc.Cancel(ctx, session.ID, "user-1"))

	_, err := f.svc.Get(ctx, session.ID, "user-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// Cancelling never touches the cart.
	assert.Equal(t, 0, f.carts.clears())

	require.Len(t, f.events.abandoned, 1)
	assert.Equal(t, domain.StagePayment, f.events.abandoned[0].Stage)
}

func TestGetSummary_QuoteDerivedFreshEachCall(t *testing.T) {
	f := newFixture(jerseyCart())
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	first, err := f.svc.GetSummary(ctx, session.ID, "user-1")
	require.NoError(t, err)
	second, err := f.svc.GetSummary(ctx, session.ID, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "50.00", first.Quote.Subtotal.StringFixed(2))
	assert.Equal(t, "3.50", first.Quote.Tax.StringFixed(2))
	assert.Equal(t, "59.49", first.Quote.Total.StringFixed(2))
	assert.True(t, first.Quote.Total.Equal(second.Quote.Total))

	require.Len(t, first.Progress, 3)
	assert.Equal(t, "active", first.Progress[0].State)
}

func TestFullFlow_WithMockGateway(t *testing.T) {
	repo := newFakeSessionRepo()
	carts := &fakeCartStore{items: jerseyCart()}
	events := &fakePublisher{}
	provider := gatewaymock.NewProvider()
	calc := pricing.NewCalculator(
		decimal.RequireFromString("5.99"),
		decimal.RequireFromString("0.07"),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewCheckoutService(repo, carts, provider, events, calc, logger, "usd")
	ctx := context.Background()

	session, err := svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.SubmitShipping(ctx, session.ID, "user-1", validShipping())
	require.NoError(t, err)

	intent, err := svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)

	// A declined card keeps the shopper in the payment stage.
	_, err = svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        intent.IntentID,
		PaymentMethodID: "pm_card_declined",
		CardholderName:  "Ada Lovelace",
	})
	require.Error(t, err)

	retry, err := svc.CreatePaymentIntent(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, intent.IntentID, retry.IntentID)
	assert.Equal(t, 2, provider.IntentCount())

	_, err = svc.ConfirmPayment(ctx, session.ID, "user-1", &ConfirmInput{
		IntentID:        retry.IntentID,
		PaymentMethodID: "pm_card_visa",
		CardholderName:  "Ada Lovelace",
	})
	require.NoError(t, err)

	receipt, err := svc.CompleteOrder(ctx, session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "59.49", receipt.Quote.Total.StringFixed(2))
	assert.Equal(t, 1, carts.clearCalls)
}
