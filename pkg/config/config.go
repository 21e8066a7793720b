package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "cartlink"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CARTLINK_DB_DSN"
	EnvDBHost = "CARTLINK_DB_HOST"
	EnvDBUser = "CARTLINK_DB_USER"
	EnvDBName = "CARTLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Settlement   SettlementConfig
	Gateway      GatewayConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARTLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARTLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARTLINK_DB_DSN"`
	Driver string `envconfig:"CARTLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARTLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTLINK_DB_USER"`
	LegacyPassword string `envconfig:"CARTLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARTLINK_REDIS_ADDR"`
	Password     string        `envconfig:"CARTLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SettlementConfig tunes the two settlement sweeps.
type SettlementConfig struct {
	RefundAfterDays int           `envconfig:"CARTLINK_SETTLEMENT_REFUND_AFTER_DAYS" default:"14"`
	PayoutAfterDays int           `envconfig:"CARTLINK_SETTLEMENT_PAYOUT_AFTER_DAYS" default:"14"`
	SweepInterval   time.Duration `envconfig:"CARTLINK_SETTLEMENT_SWEEP_INTERVAL" default:"24h"`
}

// RefundCutoff returns the refund sweep cutoff age.
func (s SettlementConfig) RefundCutoff() time.Duration {
	return time.Duration(s.RefundAfterDays) * 24 * time.Hour
}

// PayoutCutoff returns the payout sweep cutoff age.
func (s SettlementConfig) PayoutCutoff() time.Duration {
	return time.Duration(s.PayoutAfterDays) * 24 * time.Hour
}

// GatewayConfig holds the payment gateway callback settings. The gateway
// itself is an external notifier; we only verify its shared secret.
type GatewayConfig struct {
	WebhookSecret string `envconfig:"CARTLINK_GATEWAY_WEBHOOK_SECRET"`
	Currency      string `envconfig:"CARTLINK_GATEWAY_DEFAULT_CURRENCY" default:"NGN"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTLINK_AUTO_MIGRATE" default:"false"`
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
