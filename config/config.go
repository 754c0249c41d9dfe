package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kataras/golog"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Env      string `envconfig:"ENV" default:"dev"`

	// DB
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	// Redis (optional)
	RedisURL      string `envconfig:"REDIS_URL" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// JWT
	AccessTokenSecret  string `envconfig:"ACCESS_TOKEN_SECRET" required:"true"`
	RefreshTokenSecret string `envconfig:"REFRESH_TOKEN_SECRET" required:"true"`

	// RabbitMQ (optional)
	RabbitURL      string `envconfig:"RABBIT_URL" default:""`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"dwell.events"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"dwell.notifications.q"`

	// Tracing (optional)
	OTELEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:""`

	SearchCacheTTL time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"60s"`

	Mpesa
	Payments
}

// Mpesa holds the Daraja credentials. The defaults point at the sandbox.
type Mpesa struct {
	BaseURL           string        `envconfig:"MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey       string        `envconfig:"MPESA_CONSUMER_KEY" default:""`
	ConsumerSecret    string        `envconfig:"MPESA_CONSUMER_SECRET" default:""`
	BusinessShortCode string        `envconfig:"MPESA_BUSINESS_SHORT_CODE" default:"174379"`
	Passkey           string        `envconfig:"MPESA_PASSKEY" default:""`
	CallbackURL       string        `envconfig:"MPESA_CALLBACK_URL" default:""`
	TransactionDesc   string        `envconfig:"MPESA_TRANSACTION_DESC" default:"Kenya Dwell Connect Listing Fee"`
	RequestTimeout    time.Duration `envconfig:"MPESA_REQUEST_TIMEOUT" default:"15s"`
}

type Payments struct {
	PendingTimeout time.Duration `envconfig:"PAYMENT_PENDING_TIMEOUT" default:"10m"`
	SweepInterval  time.Duration `envconfig:"PAYMENT_SWEEP_INTERVAL" default:"1m"`
}

// Load reads .env in development (when RENDER is unset) and then the process environment.
func Load() (App, error) {
	if os.Getenv("RENDER") == "" {
		if err := godotenv.Load(); err != nil {
			golog.Warn("could not load .env file (this is normal in production)")
		}
	}

	var c App
	err := envconfig.Process("", &c)
	return c, err
}
