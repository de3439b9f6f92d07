package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/joy095/property-booking/logger"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration. It is read once at start-up and
// handed to constructors; no package reads the environment afterwards.
type Config struct {
	Port    string `envconfig:"PORT" default:"8081"`
	GinMode string `envconfig:"GIN_MODE" default:"release"`

	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns     int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns     int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	DBConnLifetime time.Duration `envconfig:"DB_CONN_LIFETIME" default:"1h"`
	DBConnIdleTime time.Duration `envconfig:"DB_CONN_IDLE_TIME" default:"30m"`

	RedisURL      string        `envconfig:"REDIS_URL"`
	AssignLockTTL time.Duration `envconfig:"ASSIGN_LOCK_TTL" default:"15s"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	PaymentProvider       string        `envconfig:"PAYMENT_PROVIDER" default:"stripe"`
	PaymentTimeout        time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	PaymentSuccessURL     string        `envconfig:"PAYMENT_SUCCESS_URL" default:"http://localhost:3000/payment/success"`
	PaymentCancelURL      string        `envconfig:"PAYMENT_CANCEL_URL" default:"http://localhost:3000/payment/cancel"`
	DefaultCurrency       string        `envconfig:"DEFAULT_CURRENCY" default:"usd"`
	StripeSecretKey       string        `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string        `envconfig:"STRIPE_WEBHOOK_SECRET"`
	RazorpayKeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`

	CRMWebhookURL    string        `envconfig:"CRM_WEBHOOK_URL"`
	CRMWebhookSecret string        `envconfig:"CRM_WEBHOOK_SECRET"`
	NotifyTimeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"FROM_EMAIL"`
	AdminEmail   string `envconfig:"ADMIN_EMAIL"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogFile   string `envconfig:"LOG_FILE"`
}

// LoadEnv loads variables from a .env file if one is present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.InfoLogger.Info("No .env file found, relying on process environment")
	}
}

// Load reads the process environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	c.PaymentProvider = strings.ToLower(strings.TrimSpace(c.PaymentProvider))
	switch c.PaymentProvider {
	case "stripe":
		if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required for the stripe provider")
		}
	case "razorpay":
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" || c.RazorpayWebhookSecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET and RAZORPAY_WEBHOOK_SECRET are required for the razorpay provider")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.NotifyTimeout <= 0 || c.PaymentTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT and PAYMENT_TIMEOUT must be positive")
	}
	c.DefaultCurrency = strings.ToLower(c.DefaultCurrency)
	return nil
}

// LoggerOptions maps the logging keys onto logger.Options.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		File:   c.LogFile,
	}
}
