package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	Addr string `envconfig:"ADDR" default:":8000"`
	Env  string `envconfig:"ENV" default:"dev"`

	// Store
	StoreDriver       string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI          string        `envconfig:"MONGO_URI"`
	MongoDatabase     string        `envconfig:"MONGO_DATABASE" default:"TrendMart"`
	MongoTimeout      time.Duration `envconfig:"MONGO_TIMEOUT" default:"5s"`
	MongoTransactions bool          `envconfig:"MONGO_TRANSACTIONS" default:"true"`

	// Tokens
	TokenSecret string        `envconfig:"ACCESS_TOKEN_SECRET" required:"true"`
	TokenTTL    time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`

	// Payments
	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	PaymentCurrency string `envconfig:"PAYMENT_CURRENCY" default:"usd"`

	// Events and tracing
	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"trendmart.events"`
	OTLPEndpoint   string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// HTTP policy
	CORSOrigins               []string `envconfig:"CORS_ORIGINS" default:"https://trendmart-2a783.web.app,http://localhost:5173"`
	StatusUpdateRequiresAdmin bool     `envconfig:"STATUS_UPDATE_REQUIRES_ADMIN" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (App, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("load env file: %w", err)
	}

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, err
	}
	return c, c.validate()
}

func (c App) validate() error {
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI is required when STORE_DRIVER=mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}
	return nil
}
