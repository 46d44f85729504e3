package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kjannette/pse-price-backend/internal/cache"
	"github.com/kjannette/pse-price-backend/internal/clock"
	"github.com/kjannette/pse-price-backend/internal/logger"
	"github.com/kjannette/pse-price-backend/internal/metrics"
	"github.com/kjannette/pse-price-backend/internal/models"
)

const (
	DefaultHistoryHours = 24
	MaxHistoryHours     = 720
	DefaultStatsHours   = 24

	defaultComputeTimeout = 15 * time.Second
)

type ServiceConfig struct {
	HistoryDefaultHours int
	HistoryMaxHours     int
	StatsWindowHours    int
	// ComputeTimeout bounds a reconciliation that outlives its caller.
	ComputeTimeout time.Duration
}

// Service serves the engine's results through the cache. On a miss it
// computes, stores and returns the value; failed computations are never
// cached.
type Service struct {
	engine  *Engine
	store   Store
	cache   cache.Cache
	clock   *clock.Resolver
	metrics *metrics.Metrics
	cfg     ServiceConfig
	group   singleflight.Group
}

func NewService(store Store, c cache.Cache, clk *clock.Resolver, m *metrics.Metrics, cfg ServiceConfig) *Service {
	if cfg.HistoryDefaultHours <= 0 {
		cfg.HistoryDefaultHours = DefaultHistoryHours
	}
	if cfg.HistoryMaxHours <= 0 {
		cfg.HistoryMaxHours = MaxHistoryHours
	}
	if cfg.HistoryDefaultHours > cfg.HistoryMaxHours {
		cfg.HistoryDefaultHours = cfg.HistoryMaxHours
	}
	if cfg.StatsWindowHours <= 0 {
		cfg.StatsWindowHours = DefaultStatsHours
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = defaultComputeTimeout
	}
	return &Service{
		engine:  NewEngine(store, clk),
		store:   store,
		cache:   c,
		clock:   clk,
		metrics: m,
		cfg:     cfg,
	}
}

// Current returns the reconciled current price. Cached reports provenance.
func (s *Service) Current(ctx context.Context) (*models.CurrentPrice, error) {
	var out models.CurrentPrice
	cached, err := s.readThrough(ctx, cache.KeyCurrent, "current", &out, func(ctx context.Context) (any, error) {
		return s.engine.Current(ctx, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	out.Cached = cached
	return &out, nil
}

// History returns the trailing window of records. hours outside
// (0, max] is normalized before it becomes part of the cache key.
func (s *Service) History(ctx context.Context, hours int) (*models.History, error) {
	hours = s.NormalizeHours(hours)

	var out models.History
	cached, err := s.readThrough(ctx, cache.HistoryKey(hours), "history", &out, func(ctx context.Context) (any, error) {
		recs, err := s.engine.History(ctx, s.clock.Now(), time.Duration(hours)*time.Hour)
		if err != nil {
			return nil, err
		}
		return &models.History{Hours: hours, Data: recs}, nil
	})
	if err != nil {
		return nil, err
	}
	out.Cached = cached
	return &out, nil
}

func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	window := time.Duration(s.cfg.StatsWindowHours) * time.Hour

	var out models.Stats
	cached, err := s.readThrough(ctx, cache.KeyStats, "stats", &out, func(ctx context.Context) (any, error) {
		return s.engine.Stats(ctx, s.clock.Now(), window)
	})
	if err != nil {
		return nil, err
	}
	out.Cached = cached
	return &out, nil
}

func (s *Service) FlushCache(ctx context.Context) error {
	if err := s.cache.FlushAll(ctx); err != nil {
		return err
	}
	s.metrics.CacheFlushed()
	logger.FromContext(ctx).Info("cache cleared")
	return nil
}

func (s *Service) CacheSize(ctx context.Context) (int, error) {
	return s.cache.Len(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) NormalizeHours(hours int) int {
	if hours <= 0 {
		return s.cfg.HistoryDefaultHours
	}
	if hours > s.cfg.HistoryMaxHours {
		return s.cfg.HistoryMaxHours
	}
	return hours
}

// readThrough decodes a cached value into dst, or runs compute, stores its
// JSON encoding and decodes that into dst. Concurrent misses on one key
// share a single computation, which runs detached from any one caller.
func (s *Service) readThrough(ctx context.Context, key, kind string, dst any, compute func(context.Context) (any, error)) (bool, error) {
	log := logger.FromContext(ctx).With(slog.String("key", key))

	raw, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.CacheLookup(kind, "error")
		log.Warn("cache read failed, computing", slog.Any("error", err))
	case ok:
		if err := json.Unmarshal(raw, dst); err == nil {
			s.metrics.CacheLookup(kind, "hit")
			log.Debug("serving cached value")
			return true, nil
		}
		log.Warn("discarding undecodable cache entry")
	default:
		s.metrics.CacheLookup(kind, "miss")
	}

	ch := s.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ComputeTimeout)
		defer cancel()

		start := time.Now()
		v, err := compute(cctx)
		s.metrics.ObserveCompute(kind, time.Since(start))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.metrics.ComputeError(kind, "not_found")
			} else {
				s.metrics.ComputeError(kind, "io")
			}
			return nil, err
		}

		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(cctx, key, b); err != nil {
			log.Warn("cache write failed", slog.Any("error", err))
		}
		return b, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return false, json.Unmarshal(res.Val.([]byte), dst)
	}
}
