package config

const (
	EnvPrefix = "chatcart"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN = "CHATCART_DB_DSN"

	StoreBackendFile     = "file"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendSQLite   = "sqlite"
)
