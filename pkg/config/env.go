package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "PASABUY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                 = "PASABUY_APP_ENV"
	EnvPort                   = "PASABUY_APP_PORT"
	EnvLogLevel               = "PASABUY_LOG_LEVEL"
	EnvDBDSN                  = "PASABUY_DB_DSN"
	EnvDBDriver               = "PASABUY_DB_DRIVER"
	EnvDBHost                 = "PASABUY_DB_HOST"
	EnvDBUser                 = "PASABUY_DB_USER"
	EnvDBPassword             = "PASABUY_DB_PASSWORD"
	EnvDBName                 = "PASABUY_DB_NAME"
	EnvUseSQLite              = "PASABUY_USE_SQLITE"
	EnvRedisURL               = "PASABUY_REDIS_URL"
	EnvJWTSecret              = "PASABUY_JWT_SECRET"
	EnvJWTIssuer              = "PASABUY_JWT_ISSUER"
	EnvJWTExpMins             = "PASABUY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PASABUY_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "PASABUY_GCP_PROJECT_ID"
	EnvPubSubRequestsTopic    = "PASABUY_PUBSUB_REQUESTS_TOPIC"
	EnvPubSubNotificationSub  = "PASABUY_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvMatchingRadiusKM       = "PASABUY_MATCHING_RADIUS_KM"
	EnvPresenceStaleAfter     = "PASABUY_PRESENCE_STALE_AFTER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
