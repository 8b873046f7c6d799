// Package mock provides a payment gateway for development and testing. It
// succeeds unless the payment method token carries a "declined" marker.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/gateway"
)

// Provider is an in-memory payment gateway.
type Provider struct {
	mu      sync.Mutex
	intents map[string]int64 // intent ID -> amount
}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{intents: make(map[string]int64)}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateIntent records a fresh intent and returns it with a fake client
// secret.
func (p *Provider) CreateIntent(_ context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	if err := gateway.ValidateIntentRequest(req); err != nil {
		return nil, err
	}

	id := "mock_pi_" + uuid.New().String()

	p.mu.Lock()
	p.intents[id] = req.AmountMinorUnits
	p.mu.Unlock()

	return &gateway.Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String(),
	}, nil
}

// ConfirmIntent succeeds unless the payment method token contains "declined".
func (p *Provider) ConfirmIntent(_ context.Context, req gateway.ConfirmRequest) (*gateway.Result, error) {
	if strings.Contains(req.PaymentMethodID, "declined") {
		return &gateway.Result{
			Status:         "failed",
			IntentID:       req.IntentID,
			FailureMessage: "your card was declined",
		}, nil
	}

	return &gateway.Result{Status: "succeeded", IntentID: req.IntentID}, nil
}

// IntentCount returns how many intents have been created. Used by tests to
// assert that resubmission always creates a fresh intent.
func (p *Provider) IntentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.intents)
}
