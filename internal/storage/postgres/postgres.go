// Package postgres implements the storage backend on PostgreSQL through the shared
// GORM backend. If Postgres is unreachable at startup the database manager falls
// back to a local SQLite file.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/broadside/server/internal/database"
	gormstorage "github.com/broadside/server/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// FallbackPath is the SQLite file used when Postgres cannot be reached.
const FallbackPath = "broadside_fallback.db"

// Backend connects lazily in Init and then delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	log     *slog.Logger
}

// New creates a new Postgres storage backend. Connection settings come from the db.* config keys.
func New(logger *slog.Logger, dbLogger zerolog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	manager := database.NewManager(dbLogger)
	manager.SqliteFilePath = FallbackPath
	return &Backend{
		manager: manager,
		log:     logger,
	}
}

// Init connects, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if b.manager.ShouldSaveLocal {
		b.log.Warn("postgres unreachable, storing to local SQLite", "path", b.manager.SqliteFilePath)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:       b.manager.DB,
		Logger:   b.log,
		DBLogger: b.manager.Logger,
	})
	return b.Backend.Init()
}

// Close stops the writer and closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if b.manager.SqlDB != nil {
		if cerr := b.manager.SqlDB.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}
