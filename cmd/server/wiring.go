package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kjannette/pse-price-backend/internal/cache"
	"github.com/kjannette/pse-price-backend/internal/clock"
	"github.com/kjannette/pse-price-backend/internal/config"
	"github.com/kjannette/pse-price-backend/internal/db"
	"github.com/kjannette/pse-price-backend/internal/metrics"
	"github.com/kjannette/pse-price-backend/internal/pricing"
	"github.com/kjannette/pse-price-backend/internal/repository"
	"github.com/kjannette/pse-price-backend/internal/repository/sqlite"
)

// buildService opens the configured store and cache. The returned cleanup
// releases both and is safe to call once.
func buildService(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*pricing.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeStore)

	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, closeCache)

	clk, err := clock.New(cfg.PriceTimezone)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svc := pricing.NewService(store, c, clk, m, pricing.ServiceConfig{
		HistoryDefaultHours: cfg.HistoryDefaultHours,
		HistoryMaxHours:     cfg.HistoryMaxHours,
		StatsWindowHours:    cfg.StatsWindowHours,
	})
	return svc, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config) (pricing.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			s.Close()
			slog.Info("sqlite store closed", slog.String("component", "sqlite"))
		}, nil
	default:
		slog.Info("connecting to postgres", slog.String("component", "db"),
			slog.String("host", cfg.DBHost), slog.Int("port", cfg.DBPort), slog.String("name", cfg.DBName))
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.TestConnection(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPriceRepo(pool), func() {
			pool.Close()
			slog.Info("connection pool closed", slog.String("component", "db"))
		}, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTLDuration(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return r, func() { r.Close() }, nil
	default:
		return cache.NewMemory(cfg.CacheTTLDuration()), func() {}, nil
	}
}
