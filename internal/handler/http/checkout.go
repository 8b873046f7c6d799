package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/service"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/httputil"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/validator"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ShippingRequest is the JSON request body for submitting shipping info.
type ShippingRequest struct {
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

// ConfirmRequest is the JSON request body for confirming a payment.
type ConfirmRequest struct {
	IntentID        string `json:"intent_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	CardholderName  string `json:"cardholder_name" validate:"required"`
}

// --- Handlers ---

// StartCheckout handles POST /api/v1/checkout
// @Summary Start a checkout session
// @Description Snapshots the user's cart and opens a checkout session. An empty cart is rejected with 409 and no session is created.
// @Tags checkout
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/checkout/ [post]
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	session, err := h.service.Start(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: session})
}

// GetCheckout handles GET /api/v1/checkout/{id}
// @Summary Get checkout session
// @Description Returns a checkout session by ID. Only the session owner (X-User-ID) may access it.
// @Tags checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{id} [get]
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	session, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// GetSummary handles GET /api/v1/checkout/{id}/summary
// @Summary Get order summary
// @Description Returns the session with a freshly derived quote and stage progress. Totals are recomputed on every call.
// @Tags checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{id}/summary [get]
func (h *CheckoutHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// SubmitShipping handles PUT /api/v1/checkout/{id}/shipping
// @Summary Submit shipping info
// @Description Captures and freezes the shipping info, advancing the session to the payment stage.
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body ShippingRequest true "Shipping info"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/checkout/{id}/shipping [put]
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ShippingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	session, err := h.service.SubmitShipping(r.Context(), chi.URLParam(r, "id"), userID, &service.ShippingInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// ReturnToShipping handles POST /api/v1/checkout/{id}/return-to-shipping
// @Summary Return to the shipping stage
// @Description Takes the single back edge from payment to shipping. Captured values are kept for form pre-fill.
// @Tags checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/checkout/{id}/return-to-shipping [post]
func (h *CheckoutHandler) ReturnToShipping(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	session, err := h.service.ReturnToShipping(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// CreatePaymentIntent handles POST /api/v1/checkout/{id}/payment-intent
// @Summary Create a payment intent
// @Description Quotes the cart snapshot and creates a fresh intent at the payment gateway. Every call creates a new intent.
// @Tags checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/checkout/{id}/payment-intent [post]
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	out, err := h.service.CreatePaymentIntent(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: out})
}

// ConfirmPayment handles POST /api/v1/checkout/{id}/confirm
// @Summary Confirm the payment
// @Description Confirms the latest payment intent. A decline or an unreachable gateway returns 422 and the session stays in the payment stage for retry.
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body ConfirmRequest true "Confirmation data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/checkout/{id}/confirm [post]
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ConfirmRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	session, err := h.service.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), userID, &service.ConfirmInput{
		IntentID:        req.IntentID,
		PaymentMethodID: req.PaymentMethodID,
		CardholderName:  req.CardholderName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// CompleteOrder handles POST /api/v1/checkout/{id}/complete
// @Summary Complete the order
// @Description Clears the cart, discards the session, and returns the receipt with a redirect back to the shop.
// @Tags checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/checkout/{id}/complete [post]
func (h *CheckoutHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.CompleteOrder(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: receipt})
}

// CancelCheckout handles DELETE /api/v1/checkout/{id}
// @Summary Cancel the checkout
// @Description Discards the session. The cart is untouched and any open payment intent is left to expire at the gateway.
// @Tags checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/checkout/{id} [delete]
func (h *CheckoutHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireUserID extracts the X-User-ID header or writes a 400.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "X-User-ID header is required"},
		})
		return "", false
	}
	return userID, true
}
