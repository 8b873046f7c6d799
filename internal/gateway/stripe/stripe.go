// Package stripe implements the payment gateway against the Stripe
// PaymentIntents API.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/gateway"
)

// paymentIntentAPI is the slice of the Stripe client the provider uses. Tests
// substitute a stub.
type paymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

// Provider implements gateway.Provider using Stripe.
type Provider struct {
	intents paymentIntentAPI
	logger  *slog.Logger
}

// NewProvider creates a Stripe provider with the given secret API key.
func NewProvider(apiKey string, logger *slog.Logger) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("stripe: api key is required")
	}

	sc := client.New(apiKey, nil)
	return &Provider{intents: sc.PaymentIntents, logger: logger}, nil
}

// newWithAPI is used by tests to inject a stubbed PaymentIntents API.
func newWithAPI(api paymentIntentAPI, logger *slog.Logger) *Provider {
	return &Provider{intents: api, logger: logger}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

// CreateIntent creates a fresh PaymentIntent. No idempotency key is set, so
// repeated calls always produce distinct intents.
func (p *Provider) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	if err := gateway.ValidateIntentRequest(req); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinorUnits),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"checkout_session_id": req.SessionID,
		},
	}
	params.Context = ctx

	if desc := describeItems(req.Items); desc != "" {
		params.Description = stripe.String(desc)
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	p.logger.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", req.AmountMinorUnits),
		slog.String("currency", req.Currency),
	)

	return &gateway.Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmIntent confirms the intent with the shopper's payment method. Card
// declines are normalized into a failed Result; anything else surfaces as an
// error.
func (p *Provider) ConfirmIntent(ctx context.Context, req gateway.ConfirmRequest) (*gateway.Result, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Shipping: &stripe.ShippingDetailsParams{
			Name:  stripe.String(req.Billing.Name),
			Phone: stripe.String(req.Billing.Phone),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(req.Billing.Address),
				City:       stripe.String(req.Billing.City),
				State:      stripe.String(req.Billing.State),
				PostalCode: stripe.String(req.Billing.Zip),
				Country:    stripe.String(req.Billing.Country),
			},
		},
		ReceiptEmail: stripe.String(req.Billing.Email),
	}
	params.Context = ctx

	intent, err := p.intents.Confirm(req.IntentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			p.logger.InfoContext(ctx, "payment declined",
				slog.String("intent_id", req.IntentID),
				slog.String("decline_code", string(stripeErr.Code)),
			)
			return &gateway.Result{
				Status:         "failed",
				IntentID:       req.IntentID,
				FailureMessage: declineMessage(stripeErr),
			}, nil
		}
		return nil, fmt.Errorf("stripe: confirm payment intent: %w", err)
	}

	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		p.logger.InfoContext(ctx, "payment confirmed",
			slog.String("intent_id", intent.ID),
		)
		return &gateway.Result{Status: "succeeded", IntentID: intent.ID}, nil
	}

	return &gateway.Result{
		Status:         "failed",
		IntentID:       intent.ID,
		FailureMessage: fmt.Sprintf("payment not completed (status %s)", intent.Status),
	}, nil
}

// declineMessage turns a Stripe card error into a message safe to show the
// shopper.
func declineMessage(err *stripe.Error) string {
	switch err.Code {
	case stripe.ErrorCodeCardDeclined:
		return "your card was declined"
	case stripe.ErrorCodeExpiredCard:
		return "your card has expired"
	case stripe.ErrorCodeIncorrectCVC:
		return "the card's security code is incorrect"
	case stripe.ErrorCodeProcessingError:
		return "an error occurred while processing your card, try again"
	default:
		if err.Msg != "" {
			return err.Msg
		}
		return "your payment could not be processed"
	}
}

func describeItems(items []gateway.IntentItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}
