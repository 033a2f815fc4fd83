package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "PACKDROP_APP_ENV"
	EnvPort     = "PACKDROP_APP_PORT"
	EnvDBDSN    = "PACKDROP_DB_DSN"
	EnvDBHost   = "PACKDROP_DB_HOST"
	EnvDBUser   = "PACKDROP_DB_USER"
	EnvDBName   = "PACKDROP_DB_NAME"
	EnvRedisURL = "PACKDROP_REDIS_URL"

	EnvVendorCommissionRate = "PACKDROP_VENDOR_COMMISSION_RATE"
	EnvDriverCommissionRate = "PACKDROP_DRIVER_COMMISSION_RATE"
	EnvMinDeliveryPay       = "PACKDROP_MIN_DELIVERY_PAY"
	EnvAutoReleaseDays      = "PACKDROP_WALLET_AUTO_RELEASE_DAYS"
	EnvLifecycleTopic       = "PACKDROP_PUBSUB_LIFECYCLE_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Commission   CommissionConfig
	Cron         CronConfig
	Platform     PlatformConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PACKDROP_APP_ENV" required:"true"`
	Port         string   `envconfig:"PACKDROP_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PACKDROP_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"PACKDROP_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"PACKDROP_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PACKDROP_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// ConsoleLogs reports whether logs should be written for a terminal.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PACKDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PACKDROP_DB_DSN"`
	Driver string `envconfig:"PACKDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PACKDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"PACKDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PACKDROP_DB_USER"`
	LegacyPassword string `envconfig:"PACKDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PACKDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PACKDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PACKDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PACKDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PACKDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PACKDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PACKDROP_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKDROP_REDIS_URL" required:"true"`
	Password     string        `envconfig:"PACKDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACKDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACKDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACKDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PACKDROP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PACKDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PACKDROP_GOOGLE_APPLICATION_CREDENTIALS"`
}

// PubSubConfig names the analytics topic lifecycle events are mirrored to.
// An empty topic disables publishing; events are still stored locally.
type PubSubConfig struct {
	LifecycleTopic string `envconfig:"PACKDROP_PUBSUB_LIFECYCLE_TOPIC"`
}

// CommissionConfig holds the platform rates and floors consumed by pricing,
// commission and wallet logic. Rates are percentages.
type CommissionConfig struct {
	VendorRate      decimal.Decimal `envconfig:"PACKDROP_VENDOR_COMMISSION_RATE" default:"15"`
	DriverRate      decimal.Decimal `envconfig:"PACKDROP_DRIVER_COMMISSION_RATE" default:"10"`
	MinDeliveryPay  decimal.Decimal `envconfig:"PACKDROP_MIN_DELIVERY_PAY" default:"15"`
	MinDeliveryFee  decimal.Decimal `envconfig:"PACKDROP_MIN_DELIVERY_FEE" default:"20"`
	PerKmRate       decimal.Decimal `envconfig:"PACKDROP_DELIVERY_PER_KM_RATE" default:"5"`
	AutoReleaseDays int             `envconfig:"PACKDROP_WALLET_AUTO_RELEASE_DAYS" default:"3"`
	MaxDriverDebt   decimal.Decimal `envconfig:"PACKDROP_MAX_DRIVER_DEBT" default:"500"`
}

func (c CommissionConfig) validate() error {
	for name, rate := range map[string]decimal.Decimal{
		EnvVendorCommissionRate: c.VendorRate,
		EnvDriverCommissionRate: c.DriverRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if c.MinDeliveryPay.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvMinDeliveryPay)
	}
	if c.AutoReleaseDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvAutoReleaseDays)
	}
	return nil
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"PACKDROP_CRON_INTERVAL" default:"1m"`
	LockTTL            time.Duration `envconfig:"PACKDROP_CRON_LOCK_TTL" default:"5m"`
	AutoReleaseBatch   int           `envconfig:"PACKDROP_CRON_AUTO_RELEASE_BATCH" default:"100"`
	ReadyReminderAfter time.Duration `envconfig:"PACKDROP_CRON_READY_REMINDER_AFTER" default:"10m"`
	ReminderBatch      int           `envconfig:"PACKDROP_CRON_REMINDER_BATCH" default:"100"`
}

// PlatformConfig names the platform administrators. They receive dispute
// alerts; admin access itself is asserted by the gateway.
type PlatformConfig struct {
	AdminUserIDs []uuid.UUID `envconfig:"PACKDROP_ADMIN_USER_IDS"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PACKDROP_AUTO_MIGRATE" default:"false"`
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
