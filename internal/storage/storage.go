// internal/storage/storage.go
package storage

import "github.com/broadside/server/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Lookups of unknown users return core.ErrUserNotFound.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Accounts
	GetUser(name string) (*core.User, error)
	CreateUser(u *core.User) error
	IncrementWins(name string) error
	ListUsers() ([]core.User, error)

	// History
	RecordMatch(rec *core.MatchRecord) error
}

// Exportable is an optional interface for backends that write their history to a
// file on Close.
type Exportable interface {
	ExportedFilePath() string
}
