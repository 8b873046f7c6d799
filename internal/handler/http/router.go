package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/service"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/health"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/middleware"
)

// NewRouter creates a chi router with all checkout routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("checkout"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("checkout"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	checkoutHandler := NewCheckoutHandler(checkoutService, logger)

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", checkoutHandler.StartCheckout)
		r.Get("/{id}", checkoutHandler.GetCheckout)
		r.Get("/{id}/summary", checkoutHandler.GetSummary)
		r.Put("/{id}/shipping", checkoutHandler.SubmitShipping)
		r.Post("/{id}/return-to-shipping", checkoutHandler.ReturnToShipping)
		r.Post("/{id}/payment-intent", checkoutHandler.CreatePaymentIntent)
		r.Post("/{id}/confirm", checkoutHandler.ConfirmPayment)
		r.Post("/{id}/complete", checkoutHandler.CompleteOrder)
		r.Delete("/{id}", checkoutHandler.CancelCheckout)
	})

	return r
}

// ContentTypeJSON sets the response content type for API routes.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
