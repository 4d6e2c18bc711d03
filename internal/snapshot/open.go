package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-chat/internal/config"
)

// Backend names accepted by Open.
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Open builds the store selected by cfg.Backend. It returns a nil Store
// for BackendNone.
func Open(ctx context.Context, cfg config.SnapshotConfig, logger *slog.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendFile:
		store, err = NewFileStore(cfg.Path)
	case BackendSQLite:
		store, err = OpenSQLite(ctx, cfg.Path, logger)
	case BackendPostgres:
		store, err = OpenPostgres(ctx, cfg.DatabaseURL, logger)
	case BackendRedis:
		store, err = OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
