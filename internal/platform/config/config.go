package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool
	LogLevel     string

	StoreDriver    string
	DatabaseURL    string
	DBMaxConns     int32
	MigrationsPath string

	AMQPURL           string
	EventsExchange    string
	PaymentsExchange  string
	PaymentEventQueue string

	RedisURL       string
	RedisKeyPrefix string
	LockTTL        time.Duration

	DefaultSplit           domain.RevenueSplit
	DeadlineSweepInterval  time.Duration
	PaymentDispatchWorkers int
	PaymentDispatchBuffer  int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PGSQL_MAX_CONNS", 10)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "fundflow_events")
	v.SetDefault("PAYMENTS_EXCHANGE", "payment_commands")
	v.SetDefault("PAYMENT_EVENTS_QUEUE", "fundflow_payment_events")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_KEY_PREFIX", "fundflow:lock")
	v.SetDefault("LOCK_TTL", "30s")
	v.SetDefault("DEFAULT_PLATFORM_FEE_PERCENT", "10")
	v.SetDefault("DEFAULT_ARTIST_SHARE_PERCENT", "70")
	v.SetDefault("DEFAULT_BACKER_SHARE_PERCENT", "20")
	v.SetDefault("DEADLINE_SWEEP_INTERVAL", "1m")
	v.SetDefault("PAYMENT_DISPATCH_WORKERS", 4)
	v.SetDefault("PAYMENT_DISPATCH_BUFFER", 256)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:              v.GetString("PORT"),
		IsProduction:      v.GetBool("IS_PRODUCTION"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		StoreDriver:       strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:       v.GetString("PGSQL_URL"),
		DBMaxConns:        v.GetInt32("PGSQL_MAX_CONNS"),
		MigrationsPath:    v.GetString("MIGRATIONS_PATH"),
		AMQPURL:           v.GetString("AMQP_URL"),
		EventsExchange:    v.GetString("EVENTS_EXCHANGE"),
		PaymentsExchange:  v.GetString("PAYMENTS_EXCHANGE"),
		PaymentEventQueue: v.GetString("PAYMENT_EVENTS_QUEUE"),
		RedisURL:          v.GetString("REDIS_URL"),
		RedisKeyPrefix:    v.GetString("REDIS_KEY_PREFIX"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.AMQPURL == "" {
		log.Println("Warning: AMQP_URL not set. Events will be logged only and payment commands will not be delivered.")
	}

	cfg.LockTTL = durationOrDefault(v, "LOCK_TTL", 30*time.Second)
	cfg.DeadlineSweepInterval = durationOrDefault(v, "DEADLINE_SWEEP_INTERVAL", time.Minute)

	cfg.PaymentDispatchWorkers = v.GetInt("PAYMENT_DISPATCH_WORKERS")
	if cfg.PaymentDispatchWorkers <= 0 {
		cfg.PaymentDispatchWorkers = 4
		log.Printf("Warning: PAYMENT_DISPATCH_WORKERS must be positive. Defaulting to %d.\n", cfg.PaymentDispatchWorkers)
	}
	cfg.PaymentDispatchBuffer = v.GetInt("PAYMENT_DISPATCH_BUFFER")
	if cfg.PaymentDispatchBuffer < 0 {
		cfg.PaymentDispatchBuffer = 0
	}

	split, err := parseSplit(v)
	if err != nil {
		return nil, err
	}
	cfg.DefaultSplit = split

	return cfg, nil
}

func parseSplit(v *viper.Viper) (domain.RevenueSplit, error) {
	platform, err := domain.ParsePercentage(v.GetString("DEFAULT_PLATFORM_FEE_PERCENT"))
	if err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("DEFAULT_PLATFORM_FEE_PERCENT: %w", err)
	}
	artist, err := domain.ParsePercentage(v.GetString("DEFAULT_ARTIST_SHARE_PERCENT"))
	if err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("DEFAULT_ARTIST_SHARE_PERCENT: %w", err)
	}
	backer, err := domain.ParsePercentage(v.GetString("DEFAULT_BACKER_SHARE_PERCENT"))
	if err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("DEFAULT_BACKER_SHARE_PERCENT: %w", err)
	}
	split := domain.RevenueSplit{
		PlatformFeePercent: platform,
		ArtistSharePercent: artist,
		BackerSharePercent: backer,
	}
	if err := split.Validate(); err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("default revenue split: %w", err)
	}
	return split, nil
}

func durationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}
