// Package database implements core.Store on SQLite (the default, a local
// file) and on PostgreSQL. Both create their schema on open.
package database

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/core"
)

// Open returns the store selected by cfg: PostgreSQL when a URL is set,
// otherwise the SQLite file at cfg.Path.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, error) {
	if cfg.UsePostgres() {
		store, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("database opened", "backend", "postgres",
			"max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
		return store, nil
	}

	store, err := OpenSQLite(ctx, cfg.Path, cfg.BusyTimeout)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "backend", "sqlite", "path", cfg.Path)
	return store, nil
}
