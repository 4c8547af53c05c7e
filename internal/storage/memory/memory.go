// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/pkg/core"
)

// Backend keeps accounts and match history in memory and exports the history to
// JSON on Close.
type Backend struct {
	cfg    config.MemoryConfig
	logger *slog.Logger

	users   map[string]*core.User // keyed by Name
	order   []string              // registration order
	matches []core.MatchRecord

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:    cfg,
		logger: logger,
		users:  make(map[string]*core.User),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the recorded history if an output directory is configured.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" || len(b.matches) == 0 {
		return nil
	}
	if err := b.exportJSON(); err != nil {
		return fmt.Errorf("export history: %w", err)
	}
	b.logger.Info("match history exported", "path", b.lastExportPath, "matches", len(b.matches))
	return nil
}

// GetUser returns a copy of the named user.
func (b *Backend) GetUser(name string) (*core.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	u, ok := b.users[name]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateUser stores a new user. Names are unique.
func (b *Backend) CreateUser(u *core.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.users[u.Name]; ok {
		return core.ErrUserExists
	}
	cp := *u
	b.users[u.Name] = &cp
	b.order = append(b.order, u.Name)
	return nil
}

// IncrementWins adds one win to the named user.
func (b *Backend) IncrementWins(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[name]
	if !ok {
		return core.ErrUserNotFound
	}
	u.Wins++
	return nil
}

// ListUsers returns all users in registration order.
func (b *Backend) ListUsers() ([]core.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	users := make([]core.User, 0, len(b.order))
	for _, name := range b.order {
		users = append(users, *b.users[name])
	}
	return users, nil
}

// RecordMatch appends a finished match to the history and assigns its ID.
func (b *Backend) RecordMatch(rec *core.MatchRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	rec.ID = b.idCounter
	b.matches = append(b.matches, *rec)
	return nil
}

// Matches returns the recorded history in order.
func (b *Backend) Matches() []core.MatchRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.MatchRecord(nil), b.matches...)
}
