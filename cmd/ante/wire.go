//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/burugo/ante"
	"github.com/burugo/ante/config"
	"github.com/burugo/ante/content"
	"github.com/burugo/ante/drivers/db/sqlstore"
	"github.com/burugo/ante/server"
)

var cacheSet = wire.NewSet(
	provideLogger,
	provideCacheClient,
	provideEventSink,
	provideTenantCache,
)

// initializeApplication wires the HTTP service.
func initializeApplication(ctx context.Context, cfg *config.Config) (*application, func(), error) {
	wire.Build(
		cacheSet,
		provideStore,
		wire.Bind(new(content.Store), new(*sqlstore.Store)),
		wire.Bind(new(server.Pinger), new(*sqlstore.Store)),
		wire.Bind(new(ante.TenantScopedCache), new(*ante.TenantCache)),
		content.NewService,
		server.New,
		wire.Struct(new(application), "*"),
	)
	return nil, nil, nil
}

// initializeCache wires the cache alone, for the cache subcommands.
func initializeCache(cfg *config.Config) (*ante.TenantCache, func(), error) {
	wire.Build(cacheSet)
	return nil, nil, nil
}

// initializeStore wires the database alone, for migrate.
func initializeStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, func(), error) {
	wire.Build(provideLogger, provideStore)
	return nil, nil, nil
}
