package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/broadside/server/internal/database"
	"github.com/broadside/server/internal/model"
	"github.com/broadside/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend creates a Backend on a private file-backed SQLite database.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestUsers(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.GetUser("nobody")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, b.CreateUser(&core.User{ID: "u-1", Name: "first", PasswordHash: []byte("h1"), CreatedAt: now}))
	require.NoError(t, b.CreateUser(&core.User{ID: "u-2", Name: "second", PasswordHash: []byte("h2"), CreatedAt: now}))
	assert.ErrorIs(t, b.CreateUser(&core.User{ID: "u-3", Name: "first"}), core.ErrUserExists)

	u, err := b.GetUser("first")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, []byte("h1"), u.PasswordHash)
	assert.Equal(t, 0, u.Wins)

	require.NoError(t, b.IncrementWins("second"))
	require.NoError(t, b.IncrementWins("second"))
	assert.ErrorIs(t, b.IncrementWins("nobody"), core.ErrUserNotFound)

	users, err := b.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "first", users[0].Name)
	assert.Equal(t, 2, users[1].Wins)
}

func TestRecordMatch_QueuedUntilFlush(t *testing.T) {
	b := newTestBackend(t)

	start := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	rec := &core.MatchRecord{
		MatchID:    "m-1",
		WinnerName: "first",
		LoserName:  "second",
		ShotsFired: [2]int{9, 4},
		Fleets: [2][]core.ShipSpec{
			{{Position: core.Position{X: 3, Y: 3}, Length: 2, Type: core.ShipMedium}},
			{{Position: core.Position{X: 0, Y: 0}, Length: 1, Type: core.ShipSmall}},
		},
		Kills: [2][]core.Kill{
			{{
				Ship:    core.ShipSpec{Position: core.Position{X: 0, Y: 0}, Length: 1, Type: core.ShipSmall},
				Cleared: []core.Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
			}},
		},
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
	}
	require.NoError(t, b.RecordMatch(rec))
	assert.Equal(t, 1, b.PendingMatches())

	var count int64
	require.NoError(t, b.DB().Model(&model.Match{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.PendingMatches())
	assert.Greater(t, b.GetLastDBWriteDuration(), time.Duration(0))

	recs, err := b.ListMatches(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "m-1", recs[0].MatchID)
	assert.Equal(t, [2]int{9, 4}, recs[0].ShotsFired)
	assert.Equal(t, rec.Fleets, recs[0].Fleets)
	assert.Equal(t, rec.Kills[0], recs[0].Kills[0])
	assert.Empty(t, recs[0].Kills[1])
	assert.Equal(t, time.Minute, recs[0].Duration())
}

func TestClose_FlushesPending(t *testing.T) {
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "close.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	now := time.Now()
	require.NoError(t, b.RecordMatch(&core.MatchRecord{MatchID: "m-close", StartedAt: now, FinishedAt: now}))
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWriteLoop_FlushesOnTicker(t *testing.T) {
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "tick.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 20 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	now := time.Now()
	require.NoError(t, b.RecordMatch(&core.MatchRecord{MatchID: "m-tick", StartedAt: now, FinishedAt: now}))

	assert.Eventually(t, func() bool { return b.PendingMatches() == 0 }, time.Second, 10*time.Millisecond)
}
