package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Supplier     SupplierConfig
	Storefront   StorefrontConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.Sync.PolledStatuses(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DISTRIBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"DISTRIBRIDGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DISTRIBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISTRIBRIDGE_LOG_WARN_STACK" default:"false"`
	// JobsToken guards the HTTP job triggers and admin endpoints.
	JobsToken string `envconfig:"DISTRIBRIDGE_JOBS_TOKEN"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISTRIBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISTRIBRIDGE_DB_DSN"`
	Driver string `envconfig:"DISTRIBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISTRIBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"DISTRIBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISTRIBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"DISTRIBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISTRIBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISTRIBRIDGE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"DISTRIBRIDGE_SQLITE_PATH" default:"distribridge.db"`

	MaxOpenConns    int           `envconfig:"DISTRIBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISTRIBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISTRIBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISTRIBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISTRIBRIDGE_REDIS_URL"`
	Address      string        `envconfig:"DISTRIBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"DISTRIBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISTRIBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISTRIBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISTRIBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISTRIBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISTRIBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISTRIBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SupplierConfig carries the credentials and transport tuning for the
// distribution catalog API.
type SupplierConfig struct {
	BaseURL   string        `envconfig:"DISTRIBRIDGE_SUPPLIER_BASE_URL" required:"true"`
	AccountID string        `envconfig:"DISTRIBRIDGE_SUPPLIER_ACCOUNT_ID" required:"true"`
	APIKey    string        `envconfig:"DISTRIBRIDGE_SUPPLIER_API_KEY" required:"true"`
	Language  string        `envconfig:"DISTRIBRIDGE_SUPPLIER_LANGUAGE" default:"de"`
	Timeout   time.Duration `envconfig:"DISTRIBRIDGE_SUPPLIER_TIMEOUT" default:"30s"`
	// Charset decodes responses that are not valid UTF-8 and declare no encoding.
	Charset string `envconfig:"DISTRIBRIDGE_SUPPLIER_CHARSET" default:"windows-1252"`

	RequestsPerSecond float64 `envconfig:"DISTRIBRIDGE_SUPPLIER_RPS" default:"5"`
	Burst             int     `envconfig:"DISTRIBRIDGE_SUPPLIER_BURST" default:"5"`

	BreakerFailures uint32        `envconfig:"DISTRIBRIDGE_SUPPLIER_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"DISTRIBRIDGE_SUPPLIER_BREAKER_TIMEOUT" default:"30s"`
}

type StorefrontConfig struct {
	APIVersion      string        `envconfig:"DISTRIBRIDGE_STOREFRONT_API_VERSION" default:"2025-01"`
	WebhookSecret   string        `envconfig:"DISTRIBRIDGE_STOREFRONT_WEBHOOK_SECRET" required:"true"`
	NotifyCustomer  bool          `envconfig:"DISTRIBRIDGE_STOREFRONT_NOTIFY_CUSTOMER" default:"true"`
	Timeout         time.Duration `envconfig:"DISTRIBRIDGE_STOREFRONT_TIMEOUT" default:"30s"`
	WebhookGuardTTL time.Duration `envconfig:"DISTRIBRIDGE_STOREFRONT_WEBHOOK_GUARD_TTL" default:"72h"`
	BreakerFailures uint32        `envconfig:"DISTRIBRIDGE_STOREFRONT_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"DISTRIBRIDGE_STOREFRONT_BREAKER_TIMEOUT" default:"30s"`
}

type SyncConfig struct {
	// Statuses holds the comma separated order statuses polled by the status job.
	Statuses         string        `envconfig:"DISTRIBRIDGE_SYNC_ORDER_STATUSES" default:"sent,confirmed,shipped"`
	ShopConcurrency  int           `envconfig:"DISTRIBRIDGE_SYNC_SHOP_CONCURRENCY" default:"4"`
	LockTTL          time.Duration `envconfig:"DISTRIBRIDGE_SYNC_LOCK_TTL" default:"30m"`
	LockEnabled      bool          `envconfig:"DISTRIBRIDGE_SYNC_LOCK_ENABLED" default:"true"`
	StatusBatchLimit int           `envconfig:"DISTRIBRIDGE_SYNC_STATUS_BATCH_LIMIT" default:"500"`
}

// PolledStatuses parses Statuses into order statuses, rejecting unknown values.
func (s SyncConfig) PolledStatuses() ([]enums.OrderStatus, error) {
	var out []enums.OrderStatus
	for _, raw := range strings.Split(s.Statuses, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		status, err := enums.ParseOrderStatus(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSyncOrderStatuses, err)
		}
		out = append(out, status)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s must list at least one status", EnvSyncOrderStatuses)
	}
	return out, nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DISTRIBRIDGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DISTRIBRIDGE_AUTO_MIGRATE" default:"false"`
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
