package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Razorpay     RazorpayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FASHIONSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"FASHIONSTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FASHIONSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FASHIONSTORE_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is a comma separated list of storefront origins.
	CORSOrigins []string `envconfig:"FASHIONSTORE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FASHIONSTORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FASHIONSTORE_DB_DSN"`
	Driver string `envconfig:"FASHIONSTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FASHIONSTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"FASHIONSTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FASHIONSTORE_DB_USER"`
	LegacyPassword string `envconfig:"FASHIONSTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FASHIONSTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FASHIONSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FASHIONSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FASHIONSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FASHIONSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FASHIONSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the embedded sqlite driver was requested.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FASHIONSTORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FASHIONSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"FASHIONSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FASHIONSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FASHIONSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FASHIONSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FASHIONSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FASHIONSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FASHIONSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries the verification side of the access tokens minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"FASHIONSTORE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"FASHIONSTORE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FASHIONSTORE_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	Currency               string        `envconfig:"FASHIONSTORE_CHECKOUT_CURRENCY" default:"INR"`
	MaxOrderNumberAttempts int           `envconfig:"FASHIONSTORE_CHECKOUT_ORDER_NUMBER_ATTEMPTS" default:"5"`
	IdempotencyTTL         time.Duration `envconfig:"FASHIONSTORE_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	RateLimitPerMinute     int           `envconfig:"FASHIONSTORE_CHECKOUT_RATE_LIMIT_PER_MINUTE" default:"10"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"FASHIONSTORE_RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"FASHIONSTORE_RAZORPAY_KEY_SECRET"`
	BaseURL   string        `envconfig:"FASHIONSTORE_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout   time.Duration `envconfig:"FASHIONSTORE_RAZORPAY_TIMEOUT" default:"10s"`
}

// Enabled reports whether gateway credentials are configured.
func (r RazorpayConfig) Enabled() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"FASHIONSTORE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"FASHIONSTORE_PUBSUB_ORDERS_TOPIC" default:"fs-order-events"`
	PaymentsTopic string `envconfig:"FASHIONSTORE_PUBSUB_PAYMENTS_TOPIC" default:"fs-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FASHIONSTORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FASHIONSTORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FASHIONSTORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"FASHIONSTORE_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"FASHIONSTORE_CRON_INTERVAL" default:"5m"`
	PaymentTTL time.Duration `envconfig:"FASHIONSTORE_CRON_PAYMENT_TTL" default:"30m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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
