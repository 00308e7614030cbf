package main

import (
	"testing"

	"kirana/backend/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		StoreBackend:        config.BackendMemory,
		StockPolicy:         "clamp",
		KhataReversalPolicy: "delete",
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("expected defaults to pass, got %v", err)
	}
}

func TestValidateConfigRejectsUnknownValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"backend":      func(c *config.Config) { c.StoreBackend = "sqlite" },
		"postgres url": func(c *config.Config) { c.StoreBackend = config.BackendPostgres },
		"redis addr":   func(c *config.Config) { c.StoreBackend = config.BackendRedis },
		"stock policy": func(c *config.Config) { c.StockPolicy = "ignore" },
		"reversal":     func(c *config.Config) { c.KhataReversalPolicy = "refund" },
		"log level":    func(c *config.Config) { c.LogLevel = "loud" },
		"log format":   func(c *config.Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestValidateConfigAcceptsConfiguredBackends(t *testing.T) {
	cfg := validConfig()
	cfg.StoreBackend = config.BackendPostgres
	cfg.DatabaseURL = "postgres://kirana@localhost/kirana"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected postgres config to pass, got %v", err)
	}

	cfg = validConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisAddr = "localhost:6379"
	cfg.StockPolicy = "reject"
	cfg.KhataReversalPolicy = "offset"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected redis config to pass, got %v", err)
	}
}
