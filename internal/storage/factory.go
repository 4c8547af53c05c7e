// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/internal/storage/memory"
	"github.com/broadside/server/internal/storage/postgres"
	sqlitestorage "github.com/broadside/server/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Dependencies holds the loggers handed to the backends.
type Dependencies struct {
	Logger   *slog.Logger
	DBLogger zerolog.Logger
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(deps.Logger, deps.DBLogger), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:         cfg.SQLite.Path,
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, deps.Logger, deps.DBLogger)
	case "memory", "":
		return memory.New(cfg.Memory, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
