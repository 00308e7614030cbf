package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	AppEnv               string
	DatabaseURL          string
	RunMigrations        bool
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	StoreBackend         string
	StoreTimezone        string
	StockPolicy          string
	KhataReversalPolicy  string
	StatsCacheTTLSeconds int
	LogLevel             string
	LogFormat            string
}

// Load reads the process environment. Empty variables fall back to defaults.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STORE_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("STOCK_POLICY", "clamp")
	v.SetDefault("KHATA_REVERSAL_POLICY", "delete")
	v.SetDefault("STATS_CACHE_TTL_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := Config{
		Port:                 v.GetString("PORT"),
		AllowedOrigin:        v.GetString("ALLOWED_ORIGIN"),
		AppEnv:               strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		DatabaseURL:          strings.TrimSpace(v.GetString("DATABASE_URL")),
		RunMigrations:        v.GetBool("RUN_MIGRATIONS"),
		RedisAddr:            strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		StoreBackend:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		StoreTimezone:        strings.TrimSpace(v.GetString("STORE_TIMEZONE")),
		StockPolicy:          strings.ToLower(strings.TrimSpace(v.GetString("STOCK_POLICY"))),
		KhataReversalPolicy:  strings.ToLower(strings.TrimSpace(v.GetString("KHATA_REVERSAL_POLICY"))),
		StatsCacheTTLSeconds: v.GetInt("STATS_CACHE_TTL_SECONDS"),
		LogLevel:             strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:            strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
	}
	if cfg.StatsCacheTTLSeconds < 0 {
		cfg.StatsCacheTTLSeconds = 0
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = inferBackend(cfg)
	}
	return cfg
}

// inferBackend picks postgres when a database is configured, then redis.
func inferBackend(cfg Config) string {
	switch {
	case cfg.DatabaseURL != "":
		return BackendPostgres
	case cfg.RedisAddr != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

func (c Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
