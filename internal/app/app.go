package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/cart"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/config"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/event"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/gateway"
	gatewaymock "github.com/otonielcp/eagles-fc-website-sub000/internal/gateway/mock"
	gatewaystripe "github.com/otonielcp/eagles-fc-website-sub000/internal/gateway/stripe"
	handler "github.com/otonielcp/eagles-fc-website-sub000/internal/handler/http"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/pricing"
	redisrepo "github.com/otonielcp/eagles-fc-website-sub000/internal/repository/redis"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/service"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/health"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/httpclient"
	pkgkafka "github.com/otonielcp/eagles-fc-website-sub000/pkg/kafka"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/middleware"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/tracing"
)

// App wires together all dependencies of the checkout service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redisClient    *redis.Client
	kafkaProducer  *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp builds the dependency graph for the checkout service.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "shop-checkout",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	producer := event.NewProducer(kafkaProducer, logger)

	cartHTTP := httpclient.New(httpclient.DefaultConfig())
	cartCB := httpclient.NewCircuitBreakerClient(cartHTTP, httpclient.CircuitBreakerConfig{
		Name:         "cart",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}, logger)
	cartClient := cart.NewClient(cartCB, cfg.CartServiceURL)

	provider, err := newGatewayProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("payment gateway configured", "provider", provider.Name())

	calc := pricing.NewCalculator(cfg.ShippingFeeDecimal(), cfg.TaxRateDecimal())
	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	sessionRepo := redisrepo.NewSessionRepository(redisClient, sessionTTL)

	checkoutService := service.NewCheckoutService(
		sessionRepo,
		cartClient,
		provider,
		producer,
		calc,
		logger,
		cfg.Currency,
	)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", kafkaProducer.Ping)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(checkoutService, healthHandler, corsCfg, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		redisClient:    redisClient,
		kafkaProducer:  kafkaProducer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newGatewayProvider selects the payment gateway. Without a Stripe API key the
// in-memory mock is used so the service runs in local development.
func newGatewayProvider(cfg *config.Config, logger *slog.Logger) (gateway.Provider, error) {
	if cfg.StripeAPIKey == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("STRIPE_API_KEY is required in production")
		}
		return gatewaymock.NewProvider(), nil
	}
	return gatewaystripe.NewProvider(cfg.StripeAPIKey, logger)
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		return a.shutdown()
	}
}

// shutdown releases resources in dependency order.
func (a *App) shutdown() error {
	// 1. Drain in-flight HTTP requests.
	httpCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown", "error", err)
	}

	// 2. Flush pending trace spans.
	traceCtx, cancelTrace := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelTrace()
	if err := a.tracerShutdown(traceCtx); err != nil {
		a.logger.Error("tracer shutdown", "error", err)
	}

	// 3. Close the Kafka producer so buffered events are flushed.
	if err := a.kafkaProducer.Close(); err != nil {
		a.logger.Error("kafka producer close", "error", err)
	}

	// 4. Close the Redis client last; nothing above publishes after drain.
	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
