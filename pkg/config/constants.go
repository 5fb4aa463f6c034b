package config

const (
	EnvPrefix = "FLORELINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "FLORELINK_APP_ENV"
	EnvPort     = "FLORELINK_APP_PORT"
	EnvRedisURL = "FLORELINK_REDIS_URL"

	EnvJWTSecret  = "FLORELINK_JWT_SECRET"
	EnvJWTIssuer  = "FLORELINK_JWT_ISSUER"
	EnvJWTExpMins = "FLORELINK_JWT_EXPIRATION_MINUTES"

	EnvDBDSN  = "FLORELINK_DB_DSN"
	EnvDBHost = "FLORELINK_DB_HOST"
	EnvDBUser = "FLORELINK_DB_USER"
	EnvDBName = "FLORELINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
