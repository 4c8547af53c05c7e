// Package gormstorage implements the storage backend on top of GORM. Accounts are
// read and written synchronously; match history is queued and written in batches
// by a background goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/broadside/server/internal/database"
	"github.com/broadside/server/internal/model"
	"github.com/broadside/server/internal/model/convert"
	"github.com/broadside/server/internal/queue"
	"github.com/broadside/server/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued match records are written.
const DefaultFlushInterval = 2 * time.Second

// maxPendingMatches bounds the history queue while the database is unreachable.
const maxPendingMatches = 10000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps    Dependencies
	matches *queue.Queue[model.Match]

	stopChan    chan struct{}
	done        chan struct{}
	lastWriteNs atomic.Int64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		matches: queue.NewBounded[model.Match](maxPendingMatches),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := database.Setup(b.deps.DB, b.deps.DBLogger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer after a final flush of pending match records.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil

	if n := b.matches.Len(); n > 0 {
		return fmt.Errorf("%d match records were not written", n)
	}
	return nil
}

// GetUser looks up a user by name.
func (b *Backend) GetUser(name string) (*core.User, error) {
	var u model.User
	err := b.deps.DB.Where("name = ?", name).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	cu := convert.UserToCore(u)
	return &cu, nil
}

// CreateUser inserts a new user. Names are unique.
func (b *Backend) CreateUser(u *core.User) error {
	var count int64
	if err := b.deps.DB.Model(&model.User{}).Where("name = ?", u.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return core.ErrUserExists
	}

	gu := convert.CoreToUser(*u)
	if err := b.deps.DB.Create(&gu).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// IncrementWins adds one win to the named user in a single UPDATE.
func (b *Backend) IncrementWins(name string) error {
	res := b.deps.DB.Model(&model.User{}).
		Where("name = ?", name).
		UpdateColumn("wins", gorm.Expr("wins + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users in registration order.
func (b *Backend) ListUsers() ([]core.User, error) {
	var rows []model.User
	if err := b.deps.DB.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]core.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, convert.UserToCore(r))
	}
	return users, nil
}

// RecordMatch queues a finished match for the background writer.
func (b *Backend) RecordMatch(rec *core.MatchRecord) error {
	m, err := convert.CoreToMatch(*rec)
	if err != nil {
		return err
	}
	b.matches.Push(m)
	return nil
}

// ListMatches returns the most recent written matches, newest first.
func (b *Backend) ListMatches(limit int) ([]core.MatchRecord, error) {
	var rows []model.Match
	if err := b.deps.DB.Order("finished_at desc, id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	recs := make([]core.MatchRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, convert.MatchToCore(r))
	}
	return recs, nil
}

// PendingMatches returns how many match records wait for the writer.
func (b *Backend) PendingMatches() int {
	return b.matches.Len()
}

// GetLastDBWriteDuration returns the duration of the last non-empty write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNs.Load())
}

// Flush writes all queued match records now.
func (b *Backend) Flush() error {
	return writeQueue(b.deps.DB, b.matches, func(d time.Duration) {
		b.lastWriteNs.Store(int64(d))
	})
}

func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], onSuccess func(time.Duration)) error {
	if q.Empty() {
		return nil
	}

	start := time.Now()
	items := q.Drain()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items)
		return err
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return err
	}

	if onSuccess != nil {
		onSuccess(time.Since(start))
	}
	return nil
}

// writeLoop periodically drains the history queue into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("final match history flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("failed to write match history",
					"error", err,
					"pending", b.matches.Len(),
					"dropped", b.matches.Dropped())
			}
		}
	}
}
