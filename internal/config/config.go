package config

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/otonielcp/eagles-fc-website-sub000/pkg/config"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CHECKOUT_HTTP_PORT" envDefault:"8080"`

	// Redis session store
	RedisAddr         string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword     string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	SessionTTLMinutes int    `env:"CHECKOUT_SESSION_TTL_MINUTES" envDefault:"30"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Cart collaborator
	CartServiceURL string `env:"CART_SERVICE_URL" envDefault:"http://localhost:8081"`

	// Payment gateway. With an empty key the mock provider is used.
	StripeAPIKey string `env:"STRIPE_API_KEY" envDefault:""`

	// Pricing
	Currency    string `env:"CHECKOUT_CURRENCY" envDefault:"usd"`
	ShippingFee string `env:"CHECKOUT_SHIPPING_FEE" envDefault:"5.99"`
	TaxRate     string `env:"CHECKOUT_TAX_RATE" envDefault:"0.07"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Circuit breaker settings for the cart collaborator
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables. Validation runs inside
// pkgconfig.Load via the Validatable hook.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load checkout config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.SessionTTLMinutes < 1 {
		return fmt.Errorf("CHECKOUT_SESSION_TTL_MINUTES must be positive, got %d", c.SessionTTLMinutes)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.CartServiceURL == "" {
		return fmt.Errorf("CART_SERVICE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.CartServiceURL); err != nil {
		return fmt.Errorf("invalid CART_SERVICE_URL %q: %w", c.CartServiceURL, err)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CHECKOUT_CURRENCY must be a 3-letter ISO code, got %q", c.Currency)
	}
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return fmt.Errorf("invalid CHECKOUT_SHIPPING_FEE %q: %w", c.ShippingFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("CHECKOUT_SHIPPING_FEE must not be negative")
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid CHECKOUT_TAX_RATE %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("CHECKOUT_TAX_RATE must be between 0 and 1, got %s", c.TaxRate)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// ShippingFeeDecimal returns the parsed flat shipping fee. validate has
// already checked the string parses.
func (c *Config) ShippingFeeDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.ShippingFee)
}

// TaxRateDecimal returns the parsed tax rate.
func (c *Config) TaxRateDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.TaxRate)
}
