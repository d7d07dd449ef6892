package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so
// the prefix only matters for unnamed fields.
const EnvPrefix = "DISTRIBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DISTRIBRIDGE_APP_ENV"
	EnvPort     = "DISTRIBRIDGE_APP_PORT"
	EnvLogLevel = "DISTRIBRIDGE_LOG_LEVEL"

	EnvDBDSN  = "DISTRIBRIDGE_DB_DSN"
	EnvDBHost = "DISTRIBRIDGE_DB_HOST"
	EnvDBUser = "DISTRIBRIDGE_DB_USER"
	EnvDBName = "DISTRIBRIDGE_DB_NAME"

	EnvRedisURL = "DISTRIBRIDGE_REDIS_URL"

	EnvSupplierBaseURL   = "DISTRIBRIDGE_SUPPLIER_BASE_URL"
	EnvSupplierAccountID = "DISTRIBRIDGE_SUPPLIER_ACCOUNT_ID"
	EnvSupplierAPIKey    = "DISTRIBRIDGE_SUPPLIER_API_KEY"

	EnvStorefrontWebhookSecret = "DISTRIBRIDGE_STOREFRONT_WEBHOOK_SECRET"

	EnvSyncOrderStatuses = "DISTRIBRIDGE_SYNC_ORDER_STATUSES"
	EnvUseSQLite         = "DISTRIBRIDGE_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
