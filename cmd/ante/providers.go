package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/burugo/ante"
	"github.com/burugo/ante/config"
	"github.com/burugo/ante/drivers/cache/memory"
	"github.com/burugo/ante/drivers/cache/redis"
	"github.com/burugo/ante/drivers/db/sqlstore"
	"github.com/burugo/ante/server"
)

// application is everything `ante serve` runs.
type application struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *sqlstore.Store
	Cache  *ante.TenantCache
	Server *server.Server
}

// --- Logging ---

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger: text or JSON on stderr, fanned out
// to a JSON log file when one is configured.
func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var console slog.Handler
	if cfg.Format == "json" {
		console = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		console = slog.NewTextHandler(os.Stderr, opts)
	}
	if cfg.File == "" {
		return slog.New(console), func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slogmulti.Fanout(console, slog.NewJSONHandler(f, opts)))
	return logger, func() { _ = f.Close() }, nil
}

// --- Providers ---

func provideLogger() *slog.Logger {
	return slog.Default()
}

// provideCacheClient creates the configured cache store. Redis is not pinged
// at startup: the cache fails open, so the service runs while Redis is down.
func provideCacheClient(cfg *config.Config, logger *slog.Logger) (ante.CacheClient, func(), error) {
	var (
		client ante.CacheClient
		err    error
	)
	switch cfg.Cache.Driver {
	case "memory":
		client = memory.NewClient(&memory.Options{Capacity: cfg.Cache.Capacity})
	case "redis":
		client, err = redis.NewClient(nil, &redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			Namespace:   cfg.Redis.Namespace,
			DialTimeout: cfg.Redis.DialTimeout,
			SkipPing:    true,
		})
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("error closing cache client", slog.Any("error", err))
		}
	}
	return client, cleanup, nil
}

// provideEventSink logs cache events and counts them on the global meter.
func provideEventSink(logger *slog.Logger) (ante.EventSink, error) {
	metrics, err := ante.NewMetricsSink(nil)
	if err != nil {
		return nil, err
	}
	return ante.MultiSink{ante.NewLogSink(logger), metrics}, nil
}

func provideTenantCache(client ante.CacheClient, cfg *config.Config, sink ante.EventSink) (*ante.TenantCache, error) {
	return ante.New(client, cfg.Cache.Config, ante.WithEventSink(sink))
}

func provideStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlstore.Store, func(), error) {
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("error closing database", slog.Any("error", err))
		}
	}
	return store, cleanup, nil
}
