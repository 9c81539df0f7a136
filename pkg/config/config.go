package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "UNIVEND"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"

	EnvAppEnv  = "UNIVEND_APP_ENV"
	EnvPort    = "UNIVEND_APP_PORT"
	EnvDBDSN   = "UNIVEND_DB_DSN"
	EnvDBHost  = "UNIVEND_DB_HOST"
	EnvDBUser  = "UNIVEND_DB_USER"
	EnvDBName  = "UNIVEND_DB_NAME"
	EnvUseSQL  = "UNIVEND_USE_SQLITE"
	EnvRedis   = "UNIVEND_REDIS_URL"
	EnvGCPProj = "UNIVEND_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	Firebase     FirebaseConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Wallet       WalletConfig
	Lifecycle    LifecycleConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"UNIVEND_APP_ENV" required:"true"`
	Port         string   `envconfig:"UNIVEND_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"UNIVEND_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"UNIVEND_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"UNIVEND_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"UNIVEND_CORS_ORIGINS"`
}

// ConsoleLogs reports whether logs should be rendered for a terminal.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"UNIVEND_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"UNIVEND_DB_DSN"`
	SQLitePath string `envconfig:"UNIVEND_SQLITE_PATH" default:"univend.db"`

	Host     string `envconfig:"UNIVEND_DB_HOST"`
	Port     int    `envconfig:"UNIVEND_DB_PORT" default:"5432"`
	User     string `envconfig:"UNIVEND_DB_USER"`
	Password string `envconfig:"UNIVEND_DB_PASSWORD"`
	Name     string `envconfig:"UNIVEND_DB_NAME"`
	SSLMode  string `envconfig:"UNIVEND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"UNIVEND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"UNIVEND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"UNIVEND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"UNIVEND_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"UNIVEND_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"UNIVEND_REDIS_URL"`
	Address      string        `envconfig:"UNIVEND_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"UNIVEND_REDIS_PASSWORD"`
	DB           int           `envconfig:"UNIVEND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"UNIVEND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"UNIVEND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"UNIVEND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"UNIVEND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"UNIVEND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig selects how bearer tokens are verified. Sessions are issued
// elsewhere; the API only checks them.
type AuthConfig struct {
	Provider  string `envconfig:"UNIVEND_AUTH_PROVIDER" default:"jwt"`
	JWTSecret string `envconfig:"UNIVEND_JWT_SECRET"`
	JWTIssuer string `envconfig:"UNIVEND_JWT_ISSUER" default:"univend"`
}

func (a AuthConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.Provider)) {
	case AuthProviderJWT:
		if strings.TrimSpace(a.JWTSecret) == "" {
			return fmt.Errorf("UNIVEND_JWT_SECRET is required when auth provider is %q", AuthProviderJWT)
		}
	case AuthProviderFirebase:
	default:
		return fmt.Errorf("unsupported auth provider %q", a.Provider)
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"UNIVEND_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"UNIVEND_AUTO_MIGRATE" default:"false"`
	PushEnabled bool `envconfig:"UNIVEND_PUSH_ENABLED" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"UNIVEND_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"UNIVEND_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"UNIVEND_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"UNIVEND_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirebaseConfig struct {
	ProjectID string `envconfig:"UNIVEND_FIREBASE_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"UNIVEND_PUBSUB_ORDERS_TOPIC" default:"univend-order-events"`
	OrdersSubscription    string `envconfig:"UNIVEND_PUBSUB_ORDERS_SUBSCRIPTION" default:"univend-order-events-notifications"`
	AnalyticsSubscription string `envconfig:"UNIVEND_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"univend-order-events-analytics"`
}

type BigQueryConfig struct {
	Enabled                bool   `envconfig:"UNIVEND_BIGQUERY_ENABLED" default:"false"`
	Dataset                string `envconfig:"UNIVEND_BIGQUERY_DATASET" default:"univend"`
	MarketplaceEventsTable string `envconfig:"UNIVEND_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"UNIVEND_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"UNIVEND_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"UNIVEND_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"UNIVEND_OUTBOX_RETENTION" default:"720h"`
}

type WalletConfig struct {
	StartingBalance int64 `envconfig:"UNIVEND_WALLET_STARTING_BALANCE" default:"50000"`
}

// LifecycleConfig bounds the optimistic retry loop around each atomic unit.
type LifecycleConfig struct {
	MaxConflictRetries uint64        `envconfig:"UNIVEND_LIFECYCLE_MAX_CONFLICT_RETRIES" default:"5"`
	RetryBaseDelay     time.Duration `envconfig:"UNIVEND_LIFECYCLE_RETRY_BASE_DELAY" default:"15ms"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"UNIVEND_CRON_INTERVAL" default:"5m"`
	OrderConfirmationTTL      time.Duration `envconfig:"UNIVEND_ORDER_CONFIRMATION_TTL" default:"48h"`
	StaleOrderBatchSize       int           `envconfig:"UNIVEND_CRON_STALE_ORDER_BATCH" default:"100"`
	LockTTL                   time.Duration `envconfig:"UNIVEND_CRON_LOCK_TTL" default:"4m"`
	ReadNotificationRetention time.Duration `envconfig:"UNIVEND_READ_NOTIFICATION_RETENTION" default:"720h"`
	NotificationRetention     time.Duration `envconfig:"UNIVEND_NOTIFICATION_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range legacyDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
