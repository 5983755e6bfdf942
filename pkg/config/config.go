package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "frutaseca"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Cart   CartConfig
	GCP    GCPConfig
	PubSub PubSubConfig
	CORS   CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FRUTASECA_APP_ENV" required:"true"`
	Port         string `envconfig:"FRUTASECA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FRUTASECA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRUTASECA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"FRUTASECA_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"FRUTASECA_DB_DSN" default:"frutaseca.db"`

	MaxOpenConns    int           `envconfig:"FRUTASECA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRUTASECA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRUTASECA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRUTASECA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"FRUTASECA_DB_AUTO_MIGRATE" default:"false"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FRUTASECA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRUTASECA_REDIS_ADDR"`
	Password     string        `envconfig:"FRUTASECA_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRUTASECA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRUTASECA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRUTASECA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRUTASECA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRUTASECA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRUTASECA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CartConfig tunes the cart store, its detectors, and persistence.
type CartConfig struct {
	MaxQuantityPerItem int           `envconfig:"FRUTASECA_CART_MAX_QTY_PER_ITEM" default:"99"`
	SaveDebounce       time.Duration `envconfig:"FRUTASECA_CART_SAVE_DEBOUNCE" default:"500ms"`
	SnapshotTTL        time.Duration `envconfig:"FRUTASECA_CART_SNAPSHOT_TTL" default:"720h"`

	IdleMinWait time.Duration `envconfig:"FRUTASECA_CART_IDLE_MIN_WAIT" default:"15s"`
	IdleMaxWait time.Duration `envconfig:"FRUTASECA_CART_IDLE_MAX_WAIT" default:"25s"`

	BurstWindow    time.Duration `envconfig:"FRUTASECA_CART_BURST_WINDOW" default:"2s"`
	BurstThreshold int           `envconfig:"FRUTASECA_CART_BURST_THRESHOLD" default:"3"`
	BurstQuiet     time.Duration `envconfig:"FRUTASECA_CART_BURST_QUIET" default:"1200ms"`

	SessionTTL   time.Duration `envconfig:"FRUTASECA_CART_SESSION_TTL" default:"30m"`
	ReapInterval time.Duration `envconfig:"FRUTASECA_CART_REAP_INTERVAL" default:"1m"`

	WhatsAppNumber string `envconfig:"FRUTASECA_WHATSAPP_NUMBER" default:"5215512345678"`
}

func (c CartConfig) validate() error {
	if c.MaxQuantityPerItem < 1 {
		return fmt.Errorf("cart max quantity per item must be at least 1")
	}
	if c.IdleMinWait <= 0 || c.IdleMaxWait < c.IdleMinWait {
		return fmt.Errorf("cart idle wait window [%s, %s] is invalid", c.IdleMinWait, c.IdleMaxWait)
	}
	if c.BurstWindow <= 0 || c.BurstQuiet <= 0 || c.BurstThreshold < 1 {
		return fmt.Errorf("cart burst detector settings are invalid")
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FRUTASECA_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"FRUTASECA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AnalyticsTopic string `envconfig:"FRUTASECA_PUBSUB_ANALYTICS_TOPIC"`
}

// Enabled reports whether analytics forwarding is configured.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.AnalyticsTopic) != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FRUTASECA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,https://frutaseca.mx"`
}
