package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	DB       DBConfig
	Redis    RedisConfig
	Admin    AdminConfig
	WhatsApp WhatsAppConfig
	Razorpay RazorpayConfig
	Invoice  InvoiceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() && cfg.DB.DSN == "" {
		return nil, fmt.Errorf("%s is required when the %s store backend is selected", EnvDBDSN, cfg.Store.Backend)
	}
	if cfg.Store.Backend == StoreBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("redis url or address is required for the redis store backend")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"CHATCART_APP_ENV" required:"true"`
	Port          string `envconfig:"CHATCART_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"CHATCART_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"CHATCART_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"CHATCART_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	Backend  string `envconfig:"CHATCART_STORE_BACKEND" default:"file"`
	FilePath string `envconfig:"CHATCART_STORE_FILE_PATH" default:"data/carts.json"`
}

func (s StoreConfig) UsesSQL() bool {
	return s.Backend == StoreBackendPostgres || s.Backend == StoreBackendSQLite
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case StoreBackendFile, StoreBackendRedis, StoreBackendPostgres, StoreBackendSQLite:
		return nil
	}
	return fmt.Errorf("unknown store backend %q", s.Backend)
}

type DBConfig struct {
	DSN             string        `envconfig:"CHATCART_DB_DSN"`
	MaxOpenConns    int           `envconfig:"CHATCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHATCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHATCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHATCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CHATCART_REDIS_URL"`
	Address      string        `envconfig:"CHATCART_REDIS_ADDR"`
	Password     string        `envconfig:"CHATCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHATCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHATCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHATCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHATCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHATCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHATCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AdminConfig covers dashboard authentication.
type AdminConfig struct {
	JWTSecret       string        `envconfig:"CHATCART_ADMIN_JWT_SECRET"`
	JWTIssuer       string        `envconfig:"CHATCART_ADMIN_JWT_ISSUER" default:"chatcart"`
	TokenTTL        time.Duration `envconfig:"CHATCART_ADMIN_TOKEN_TTL" default:"168h"`
	Email           string        `envconfig:"CHATCART_ADMIN_EMAIL"`
	PasswordHash    string        `envconfig:"CHATCART_ADMIN_PASSWORD_HASH"`
	DashboardOrigin string        `envconfig:"CHATCART_ADMIN_DASHBOARD_ORIGIN" default:"http://localhost:5173"`
}

type WhatsAppConfig struct {
	Token         string `envconfig:"CHATCART_WHATSAPP_TOKEN"`
	PhoneNumberID string `envconfig:"CHATCART_WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken   string `envconfig:"CHATCART_WHATSAPP_VERIFY_TOKEN"`
	GraphBaseURL  string `envconfig:"CHATCART_WHATSAPP_GRAPH_BASE_URL" default:"https://graph.facebook.com/v18.0"`
	UseMock       bool   `envconfig:"CHATCART_WHATSAPP_USE_MOCK" default:"true"`
}

type RazorpayConfig struct {
	Key            string `envconfig:"CHATCART_RAZORPAY_KEY"`
	Secret         string `envconfig:"CHATCART_RAZORPAY_SECRET"`
	WebhookSecret  string `envconfig:"CHATCART_RAZORPAY_WEBHOOK_SECRET"`
	WebhookEnabled bool   `envconfig:"CHATCART_RAZORPAY_WEBHOOK_ENABLED" default:"false"`
	BaseURL        string `envconfig:"CHATCART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	UseMock        bool   `envconfig:"CHATCART_RAZORPAY_USE_MOCK" default:"true"`
}

type InvoiceConfig struct {
	Dir            string `envconfig:"CHATCART_INVOICE_DIR" default:"data/invoices"`
	GSTPercent     int    `envconfig:"CHATCART_INVOICE_GST_PERCENT" default:"0"`
	DeliveryFee    int    `envconfig:"CHATCART_INVOICE_DELIVERY_FEE" default:"0"`
	CompanyName    string `envconfig:"CHATCART_INVOICE_COMPANY_NAME"`
	CompanyAddress string `envconfig:"CHATCART_INVOICE_COMPANY_ADDRESS"`
	CompanyPhone   string `envconfig:"CHATCART_INVOICE_COMPANY_PHONE"`
	LogoPath       string `envconfig:"CHATCART_INVOICE_LOGO_PATH"`
}
