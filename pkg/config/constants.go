package config

const (
	EnvPrefix = "SAGABANK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "SAGABANK_APP_ENV"
	EnvPort        = "SAGABANK_APP_PORT"
	EnvServiceKind = "SAGABANK_SERVICE_KIND"

	EnvDBDSN  = "SAGABANK_DB_DSN"
	EnvDBHost = "SAGABANK_DB_HOST"
	EnvDBUser = "SAGABANK_DB_USER"
	EnvDBName = "SAGABANK_DB_NAME"

	EnvRedisURL     = "SAGABANK_REDIS_URL"
	EnvJWTSecret    = "SAGABANK_JWT_SECRET"
	EnvJWTIssuer    = "SAGABANK_JWT_ISSUER"
	EnvGCPProjectID = "SAGABANK_GCP_PROJECT_ID"

	EnvConsumerRetryLimit    = "SAGABANK_CONSUMER_RETRY_LIMIT"
	EnvConsumerRetryInterval = "SAGABANK_CONSUMER_RETRY_INTERVAL"
	EnvLedgerSubscription    = "SAGABANK_PUBSUB_LEDGER_SUBSCRIPTION"
	EnvFinalizerSubscription = "SAGABANK_PUBSUB_FINALIZER_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
