// Package gateway defines the payment gateway contract. Checkout creates a
// payment intent for the quoted amount and later confirms it with the
// shopper's payment method.
package gateway

import (
	"context"

	apperrors "github.com/otonielcp/eagles-fc-website-sub000/pkg/errors"
)

// IntentItem describes one order line sent along with an intent, for the
// gateway's dashboard and receipts.
type IntentItem struct {
	Name     string
	Quantity int
}

// IntentRequest holds the parameters for creating a payment intent. Amount is
// in minor currency units and must be positive.
type IntentRequest struct {
	AmountMinorUnits int64
	Currency         string
	Items            []IntentItem
	SessionID        string
}

// Intent is a freshly created payment intent. ClientSecret is handed to the
// browser to drive the gateway's client-side confirmation flow.
type Intent struct {
	ID           string
	ClientSecret string
}

// BillingDetails mirror the frozen shipping info at confirmation time.
type BillingDetails struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	Zip     string
	Country string
}

// ConfirmRequest holds the parameters for confirming an intent.
type ConfirmRequest struct {
	IntentID        string
	PaymentMethodID string
	Billing         BillingDetails
}

// Result is the outcome of a confirmation attempt. A declined card is a
// failed Result, not an error; errors are reserved for transport problems and
// malformed requests.
type Result struct {
	Status         string // "succeeded" or "failed"
	IntentID       string
	FailureMessage string
}

// Provider is the payment gateway integration.
type Provider interface {
	// Name returns the provider name (e.g. "mock", "stripe").
	Name() string

	// CreateIntent creates a fresh payment intent for the given amount. Every
	// call produces a new intent; superseded intents are left to expire on the
	// gateway side.
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)

	// ConfirmIntent attempts to confirm the intent with the given payment
	// method. Declines come back as a failed Result.
	ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Result, error)
}

// ValidateIntentRequest rejects requests no provider should ever see. Called
// by implementations before any network traffic.
func ValidateIntentRequest(req IntentRequest) error {
	if req.AmountMinorUnits <= 0 {
		return apperrors.InvalidInput("payment amount must be positive")
	}
	if req.Currency == "" {
		return apperrors.InvalidInput("currency is required")
	}
	return nil
}
