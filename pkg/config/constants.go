package config

const (
	EnvPrefix = "shelfrival"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "SHELFRIVAL_DB_DSN"
	EnvDBHost = "SHELFRIVAL_DB_HOST"
	EnvDBUser = "SHELFRIVAL_DB_USER"
	EnvDBName = "SHELFRIVAL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
