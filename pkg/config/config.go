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
	Eventing     EventingConfig
	Consumer     ConsumerConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
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
	Env          string `envconfig:"SAGABANK_APP_ENV" required:"true"`
	Port         string `envconfig:"SAGABANK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SAGABANK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAGABANK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ServiceConfig names the deployable; it doubles as performedByService on
// emitted messages when the binary does not override it.
type ServiceConfig struct {
	Kind string `envconfig:"SAGABANK_SERVICE_KIND" default:"transaction-api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SAGABANK_DB_DSN"`
	Driver string `envconfig:"SAGABANK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SAGABANK_DB_HOST"`
	LegacyPort     int    `envconfig:"SAGABANK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SAGABANK_DB_USER"`
	LegacyPassword string `envconfig:"SAGABANK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SAGABANK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SAGABANK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAGABANK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAGABANK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAGABANK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAGABANK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAGABANK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SAGABANK_REDIS_ADDR"`
	Password     string        `envconfig:"SAGABANK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAGABANK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAGABANK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAGABANK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAGABANK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAGABANK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAGABANK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SAGABANK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SAGABANK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SAGABANK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"SAGABANK_AUTO_MIGRATE" default:"false"`
	HistoryExport bool `envconfig:"SAGABANK_FEATURE_HISTORY_EXPORT" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SAGABANK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// ConsumerConfig is the receive-endpoint retry policy applied by every consumer.
type ConsumerConfig struct {
	RetryLimit             int           `envconfig:"SAGABANK_CONSUMER_RETRY_LIMIT" default:"3"`
	RetryInterval          time.Duration `envconfig:"SAGABANK_CONSUMER_RETRY_INTERVAL" default:"500ms"`
	MaxOutstandingMessages int           `envconfig:"SAGABANK_CONSUMER_MAX_OUTSTANDING" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SAGABANK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SAGABANK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SAGABANK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	TransactionCreatedTopic          string `envconfig:"SAGABANK_PUBSUB_TRANSACTION_CREATED_TOPIC" default:"transaction-created"`
	HistoryAccountActionDoneTopic    string `envconfig:"SAGABANK_PUBSUB_HISTORY_ACCOUNT_ACTION_DONE_TOPIC" default:"history-account-action-done"`
	FinalizerAccountActionDoneTopic  string `envconfig:"SAGABANK_PUBSUB_TRANSACTION_ACCOUNT_ACTION_DONE_TOPIC" default:"transaction-account-action-done"`
	TransactionCompletedTopic        string `envconfig:"SAGABANK_PUBSUB_TRANSACTION_COMPLETED_TOPIC" default:"transaction-completed"`
	UserCreatedTopic                 string `envconfig:"SAGABANK_PUBSUB_USER_CREATED_TOPIC" default:"user-created"`
	LedgerSubscription               string `envconfig:"SAGABANK_PUBSUB_LEDGER_SUBSCRIPTION"`
	UserBootstrapSubscription        string `envconfig:"SAGABANK_PUBSUB_USER_BOOTSTRAP_SUBSCRIPTION"`
	FinalizerSubscription            string `envconfig:"SAGABANK_PUBSUB_FINALIZER_SUBSCRIPTION"`
	HistoryCreatedSubscription       string `envconfig:"SAGABANK_PUBSUB_HISTORY_CREATED_SUBSCRIPTION"`
	HistoryAccountActionSubscription string `envconfig:"SAGABANK_PUBSUB_HISTORY_ACCOUNT_ACTION_SUBSCRIPTION"`
	HistoryCompletedSubscription     string `envconfig:"SAGABANK_PUBSUB_HISTORY_COMPLETED_SUBSCRIPTION"`
}

// Subscriptions lists every non-empty subscription configured for this process.
func (p PubSubConfig) Subscriptions() []string {
	names := []string{}
	for _, name := range []string{
		p.LedgerSubscription,
		p.UserBootstrapSubscription,
		p.FinalizerSubscription,
		p.HistoryCreatedSubscription,
		p.HistoryAccountActionSubscription,
		p.HistoryCompletedSubscription,
	} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

type BigQueryConfig struct {
	Dataset      string `envconfig:"SAGABANK_BIGQUERY_DATASET" default:"sagabank"`
	HistoryTable string `envconfig:"SAGABANK_BIGQUERY_HISTORY_TABLE" default:"history_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SAGABANK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SAGABANK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SAGABANK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"SAGABANK_CRON_INTERVAL" default:"1h"`
	LockTTL                   time.Duration `envconfig:"SAGABANK_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention           time.Duration `envconfig:"SAGABANK_CRON_OUTBOX_RETENTION" default:"720h"`
	ProcessedMessageRetention time.Duration `envconfig:"SAGABANK_CRON_PROCESSED_MESSAGE_RETENTION" default:"2160h"`
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
