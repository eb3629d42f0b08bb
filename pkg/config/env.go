package config

const (
	EnvPrefix = "FASHIONSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv       = "FASHIONSTORE_APP_ENV"
	EnvPort         = "FASHIONSTORE_APP_PORT"
	EnvDBDSN        = "FASHIONSTORE_DB_DSN"
	EnvDBDriver     = "FASHIONSTORE_DB_DRIVER"
	EnvDBHost       = "FASHIONSTORE_DB_HOST"
	EnvDBUser       = "FASHIONSTORE_DB_USER"
	EnvDBName       = "FASHIONSTORE_DB_NAME"
	EnvDBPassword   = "FASHIONSTORE_DB_PASSWORD"
	EnvRedisURL     = "FASHIONSTORE_REDIS_URL"
	EnvJWTSecret    = "FASHIONSTORE_JWT_SECRET"
	EnvJWTIssuer    = "FASHIONSTORE_JWT_ISSUER"
	EnvRazorpayKey  = "FASHIONSTORE_RAZORPAY_KEY_ID"
	EnvCronInterval = "FASHIONSTORE_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
