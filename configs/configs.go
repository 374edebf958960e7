package configs

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const envPrefix = "LEDGER_"

const (
	StoreTypeGorm   = "gorm"
	StoreTypeRedis  = "redis"
	StoreTypeMemory = "memory"
)

type Config struct {
	// -- Server --

	Host                 string        `env:"HOST"`
	Port                 int           `env:"PORT" envDefault:"3000"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`

	// -- Logging --

	// Logrus level name, e.g. "debug", "info", "warn".
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// Log as JSON instead of text.
	LogJSON bool `env:"LOG_JSON" envDefault:"false"`

	// -- Persistence --

	// Backend for ledgers and the address book: "gorm", "redis" or "memory".
	StoreType    string `env:"STORE_TYPE" envDefault:"gorm"`
	DatabaseDSN  string `env:"DATABASE_DSN" envDefault:"ledger.db"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	RedisURL     string `env:"REDIS_URL"`

	// -- Ledger --

	// Maximum number of records kept per account.
	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"10"`
	// Token shown next to amounts.
	TokenSymbol string `env:"TOKEN_SYMBOL" envDefault:"TST"`
	// ERC-20 contract used for balance queries. Balance is disabled when empty.
	TokenAddress string `env:"TOKEN_ADDRESS"`

	// -- Reconciliation --

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10s"`
	// Maximum receipt queries per second.
	ReconcileMaxRate int `env:"RECONCILE_MAX_RATE" envDefault:"10"`
	// How long reconciliation stays paused after a connection error to the node.
	PauseDuration time.Duration `env:"PAUSE_DURATION" envDefault:"60s"`

	// -- Chain --

	RPCURL         string        `env:"RPC_URL" envDefault:"http://localhost:8545"`
	RPCRateLimit   float64       `env:"RPC_RATE_LIMIT" envDefault:"4"`
	RPCDialTimeout time.Duration `env:"RPC_DIAL_TIMEOUT" envDefault:"30s"`
	// Optional YAML file adding networks to the built-in list.
	NetworksFile string `env:"NETWORKS_FILE"`

	// -- Notifications --

	WebhookURL     string        `env:"EVENTS_WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"EVENTS_WEBHOOK_TIMEOUT" envDefault:"30s"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic     string        `env:"KAFKA_TOPIC" envDefault:"ledger-events"`

	// -- Tracing --

	TracingEnabled     bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingProjectID   string  `env:"TRACING_PROJECT_ID"`
	TracingSampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"0.1"`
}

type Options struct {
	EnvFilePath string
}

// ParseConfig parses the environment into a Config, loading the env file
// given in opts first if any.
func ParseConfig(opts *Options) (*Config, error) {
	if opts != nil && opts.EnvFilePath != "" {
		if err := godotenv.Load(opts.EnvFilePath); err != nil {
			return nil, fmt.Errorf("error while loading env file: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.StoreType {
	case StoreTypeGorm, StoreTypeMemory:
	case StoreTypeRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("store type set to redis but %sREDIS_URL is empty", envPrefix)
		}
	default:
		return fmt.Errorf("store type '%s' not supported", cfg.StoreType)
	}

	if cfg.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", cfg.HistoryLimit)
	}

	if cfg.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", cfg.ReconcileInterval)
	}

	if cfg.ReconcileMaxRate <= 0 {
		return fmt.Errorf("reconcile max rate must be positive, got %d", cfg.ReconcileMaxRate)
	}

	return nil
}
