package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/snapshot"
)

// runMigrations applies a goose command to the configured SQL snapshot
// backend. Opening a SQL store already migrates up, so "up" only needs the
// open itself.
func runMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	var (
		store *snapshot.SQLStore
		err   error
	)
	switch cfg.Snapshot.Backend {
	case snapshot.BackendPostgres:
		store, err = snapshot.OpenPostgres(ctx, cfg.Snapshot.DatabaseURL, logger)
	case snapshot.BackendSQLite:
		store, err = snapshot.OpenSQLite(ctx, cfg.Snapshot.Path, logger)
	default:
		return fmt.Errorf("snapshot backend %q has no schema to migrate", cfg.Snapshot.Backend)
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("failed to close snapshot store", "error", cerr)
		}
	}()

	if command == snapshot.MigrateUp {
		logger.Info("Snapshot schema is up to date", "backend", cfg.Snapshot.Backend)
		return nil
	}
	return snapshot.Migrate(ctx, store.DB(), store.Dialect(), command, logger)
}
