package domain

import (
	"time"
)

// Checkout stage constants. The flow is linear with a single back edge:
// shipping -> payment -> confirmation, plus payment -> shipping.
const (
	StageShipping     = "shipping"
	StagePayment      = "payment"
	StageConfirmation = "confirmation"
)

// Payment result status constants.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// CheckoutSession represents an ongoing checkout.
type CheckoutSession struct {
	ID                  string         `json:"id"`
	UserID              string         `json:"user_id"`
	Stage               string         `json:"stage"`
	Cart                CartSnapshot   `json:"cart"`
	Shipping            *ShippingInfo  `json:"shipping,omitempty"`
	ShippingFrozen      bool           `json:"shipping_frozen"`
	CardholderName      string         `json:"cardholder_name,omitempty"`
	LastPaymentIntentID string         `json:"last_payment_intent_id,omitempty"`
	LastResult          *PaymentResult `json:"last_result,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// ShippingInfo is the delivery address and contact details captured during the
// shipping stage. Every field is required.
type ShippingInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// FullName returns the shipping recipient's display name.
func (s *ShippingInfo) FullName() string {
	return s.FirstName + " " + s.LastName
}

// PaymentResult records the outcome of the most recent confirmation attempt.
type PaymentResult struct {
	Status   string `json:"status"`
	IntentID string `json:"intent_id"`
	Message  string `json:"message,omitempty"`
}

// Succeeded reports whether the result represents a successful payment.
func (r *PaymentResult) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}

// CanTransition reports whether moving from one stage to another is allowed.
// Forward edges are shipping->payment and payment->confirmation. The only back
// edge is payment->shipping; once the confirmation stage is reached there is no
// way back.
func CanTransition(from, to string) bool {
	switch from {
	case StageShipping:
		return to == StagePayment
	case StagePayment:
		return to == StageConfirmation || to == StageShipping
	default:
		return false
	}
}

// Stages returns the ordered list of checkout stages.
func Stages() []string {
	return []string{StageShipping, StagePayment, StageConfirmation}
}

// IsValidStage checks whether the given stage string is a valid checkout stage.
func IsValidStage(stage string) bool {
	for _, s := range Stages() {
		if s == stage {
			return true
		}
	}
	return false
}

// StageState describes one step of the progress indicator.
type StageState struct {
	Stage string `json:"stage"`
	State string `json:"state"` // pending, active, or complete
}

// StageProgress returns the progress indicator for the session: every stage
// before the current one is complete, the current one is active, and the rest
// are pending.
func (s *CheckoutSession) StageProgress() []StageState {
	stages := Stages()
	progress := make([]StageState, len(stages))

	current := 0
	for i, stage := range stages {
		if stage == s.Stage {
			current = i
			break
		}
	}

	for i, stage := range stages {
		state := "pending"
		switch {
		case i < current:
			state = "complete"
		case i == current:
			state = "active"
		}
		progress[i] = StageState{Stage: stage, State: state}
	}
	return progress
}

// PaymentSucceeded reports whether the session holds a successful payment
// result. The confirmation stage is unreachable without one.
func (s *CheckoutSession) PaymentSucceeded() bool {
	return s.LastResult.Succeeded()
}

// Touch updates the session's UpdatedAt timestamp.
func (s *CheckoutSession) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
