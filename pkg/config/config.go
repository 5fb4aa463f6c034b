package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Provider     ProviderConfig
	Stripe       StripeConfig
	PayU         PayUConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.parseAmounts(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLORELINK_APP_ENV" required:"true"`
	Port         string `envconfig:"FLORELINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLORELINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLORELINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLORELINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLORELINK_DB_DSN"`
	Driver string `envconfig:"FLORELINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FLORELINK_DB_HOST"`
	LegacyPort     int    `envconfig:"FLORELINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLORELINK_DB_USER"`
	LegacyPassword string `envconfig:"FLORELINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLORELINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLORELINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLORELINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLORELINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLORELINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLORELINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLORELINK_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"FLORELINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLORELINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLORELINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLORELINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLORELINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FLORELINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FLORELINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FLORELINK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FLORELINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FLORELINK_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the pricing knobs applied when assembling orders.
type CheckoutConfig struct {
	FreeShippingThresholdStr string `envconfig:"FLORELINK_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"200"`
	ShippingFeeStr           string `envconfig:"FLORELINK_CHECKOUT_SHIPPING_FEE" default:"25"`
	TaxRateStr               string `envconfig:"FLORELINK_CHECKOUT_TAX_RATE" default:"0.23"`
	Currency                 string `envconfig:"FLORELINK_CHECKOUT_CURRENCY" default:"EUR"`

	FreeShippingThreshold decimal.Decimal `ignored:"true"`
	ShippingFee           decimal.Decimal `ignored:"true"`
	TaxRate               decimal.Decimal `ignored:"true"`
}

func (c *CheckoutConfig) parseAmounts() error {
	amounts := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"free shipping threshold", c.FreeShippingThresholdStr, &c.FreeShippingThreshold},
		{"shipping fee", c.ShippingFeeStr, &c.ShippingFee},
		{"tax rate", c.TaxRateStr, &c.TaxRate},
	}
	for _, amount := range amounts {
		value, err := decimal.NewFromString(strings.TrimSpace(amount.raw))
		if err != nil {
			return fmt.Errorf("parsing checkout %s %q: %w", amount.name, amount.raw, err)
		}
		*amount.dst = value
	}
	return nil
}

// ProviderConfig bounds outbound payment provider calls.
type ProviderConfig struct {
	Timeout    time.Duration `envconfig:"FLORELINK_PROVIDER_TIMEOUT" default:"10s"`
	RetryDelay time.Duration `envconfig:"FLORELINK_PROVIDER_RETRY_DELAY" default:"200ms"`
}

type StripeConfig struct {
	APIKey string `envconfig:"FLORELINK_STRIPE_API_KEY"`
	Env    string `envconfig:"FLORELINK_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayUConfig struct {
	BaseURL      string        `envconfig:"FLORELINK_PAYU_BASE_URL" default:"https://secure.snd.payu.com"`
	PosID        string        `envconfig:"FLORELINK_PAYU_POS_ID"`
	ClientID     string        `envconfig:"FLORELINK_PAYU_CLIENT_ID"`
	ClientSecret string        `envconfig:"FLORELINK_PAYU_CLIENT_SECRET"`
	NotifyURL    string        `envconfig:"FLORELINK_PAYU_NOTIFY_URL"`
	ContinueURL  string        `envconfig:"FLORELINK_PAYU_CONTINUE_URL"`
	TokenTTL     time.Duration `envconfig:"FLORELINK_PAYU_TOKEN_TTL" default:"10m"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"FLORELINK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"FLORELINK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"FLORELINK_PUBSUB_ORDERS_TOPIC" default:"florelink-order-events"`
	OrdersSubscription string `envconfig:"FLORELINK_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FLORELINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FLORELINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FLORELINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
