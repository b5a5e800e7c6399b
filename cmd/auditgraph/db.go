package main

import (
	"context"
	"fmt"
	"log/slog"

	"auditgraph/internal/config"
	"auditgraph/internal/graph"
	"auditgraph/internal/store"
	"auditgraph/internal/store/postgres"
	"auditgraph/internal/store/sqlite"
)

// dialStore opens the configured graph store and ensures its schema. It
// returns nil, nil when the driver is none.
func dialStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverSQLite:
		var c *sqlite.Client
		c, err = sqlite.New(ctx, cfg.Store.DSN)
		if err == nil {
			s = c
		}
	case config.DriverPostgres:
		var c *postgres.Client
		c, err = postgres.New(ctx, cfg.Store.DSN)
		if err == nil {
			s = c
		}
	case config.DriverNeo4j:
		n := cfg.Store.Neo4j
		var c *graph.Client
		c, err = graph.NewClient(ctx, n.URI, n.Username, n.Password, n.Database)
		if err == nil {
			s = c
		}
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	if err := s.EnsureSchema(ctx); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("ensuring %s schema: %w", cfg.Store.Driver, err)
	}
	return s, nil
}

// openStore is dialStore for the review path: a store that cannot be opened
// is logged and the run continues uncached.
func openStore(ctx context.Context, cfg *config.ProjectConfig, logger *slog.Logger) store.Store {
	s, err := dialStore(ctx, cfg)
	if err != nil {
		logger.Warn("store: unavailable, continuing without cache", "driver", cfg.Store.Driver, "error", err)
		return nil
	}
	return s
}

// requireStore is dialStore for commands that only make sense with a store.
func requireStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	s, err := dialStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("no graph store configured (store.driver is %s)", config.DriverNone)
	}
	return s, nil
}
