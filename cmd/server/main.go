package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"kirana/backend/internal/billing"
	"kirana/backend/internal/cache"
	"kirana/backend/internal/cashbook"
	"kirana/backend/internal/clock"
	"kirana/backend/internal/config"
	"kirana/backend/internal/customer"
	"kirana/backend/internal/httpapi"
	"kirana/backend/internal/inventory"
	"kirana/backend/internal/journal"
	"kirana/backend/internal/khata"
	"kirana/backend/internal/logger"
	"kirana/backend/internal/metrics"
	"kirana/backend/internal/service"
	"kirana/backend/internal/stats"
	"kirana/backend/internal/store"
	"kirana/backend/internal/store/memory"
	pgstore "kirana/backend/internal/store/postgres"
	"kirana/backend/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()

	if err := validateConfig(cfg); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	kv, closeKV, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store unavailable", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	if closeKV != nil {
		closers = append(closers, closeKV)
	}

	statsCache := cache.StatsCache(cache.NewMemoryStatsCache())
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisStatsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using in-process stats cache", zap.Error(err))
		} else {
			statsCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("stats cache: redis")
		}
	} else {
		log.Info("stats cache: memory")
	}

	clk := clock.System{Location: loc}
	m := metrics.New()

	inv := inventory.New(kv, inventory.StockPolicy(cfg.StockPolicy), log)
	customers := customer.New(kv)
	bills := billing.NewLedger(kv)
	kh := khata.New(kv, customers, khata.ReversalPolicy(cfg.KhataReversalPolicy))
	agg := stats.New(bills, kh, stats.Options{
		Cache:    statsCache,
		TTL:      cfg.StatsCacheTTL(),
		Location: loc,
		Logger:   log,
	})
	coordinator := service.NewCoordinator(service.CoordinatorDeps{
		Bills:     bills,
		Inventory: inv,
		Customers: customers,
		Khata:     kh,
		Journal:   journal.New(kv, clk),
		Clock:     clk,
		Metrics:   m,
		Logger:    log,
	})
	svc := service.New(service.Deps{
		Inventory:   inv,
		Customers:   customers,
		Bills:       bills,
		Khata:       kh,
		Stats:       agg,
		Cashbook:    cashbook.New(kv, agg, clk, log),
		Coordinator: coordinator,
		Clock:       clk,
		Metrics:     m,
		Logger:      log,
	})

	report, err := svc.Recover(ctx)
	if err != nil {
		log.Error("journal recovery failed", zap.Error(err))
	} else if len(report.Failed) > 0 {
		log.Warn("journal recovery left intents pending", zap.Int("failed", len(report.Failed)))
	}

	api := httpapi.New(svc, m, log, cfg.AllowedOrigin)
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("kirana backend listening",
			zap.String("addr", cfg.Address()),
			zap.String("backend", cfg.StoreBackend),
			zap.String("timezone", loc.String()),
			zap.String("stock_policy", string(inv.Policy())),
			zap.String("khata_reversal", string(kh.Policy())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close error", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

// openStore connects the configured KV backend. A configured backend that
// cannot be reached is fatal; there is no silent in-memory fallback.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.KV, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RunMigrations {
			if err := pg.Migrate(log); err != nil {
				_ = pg.Close()
				return nil, nil, err
			}
		}
		log.Info("store: postgres")
		return pg, pg.Close, nil
	case config.BackendRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		log.Info("store: redis")
		return rs, rs.Close, nil
	default:
		if cfg.IsProduction() {
			log.Warn("store: in-memory in production, data is lost on restart")
		} else {
			log.Info("store: in-memory")
		}
		return memory.New(), nil, nil
	}
}

func validateConfig(cfg config.Config) error {
	switch cfg.StoreBackend {
	case config.BackendMemory:
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, redis or postgres, got %q", cfg.StoreBackend)
	}
	if !inventory.StockPolicy(cfg.StockPolicy).IsValid() {
		return fmt.Errorf("STOCK_POLICY must be clamp, allow_negative or reject, got %q", cfg.StockPolicy)
	}
	if !khata.ReversalPolicy(cfg.KhataReversalPolicy).IsValid() {
		return fmt.Errorf("KHATA_REVERSAL_POLICY must be delete or offset, got %q", cfg.KhataReversalPolicy)
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("LOG_LEVEL %q is not recognised", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}
	return nil
}
