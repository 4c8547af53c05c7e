package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/broadside/server/internal/database"
	"github.com/broadside/server/internal/model"
	"github.com/broadside/server/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.db")
	b, err := New(Config{Path: path}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.CreateUser(&core.User{ID: "u-1", Name: "sailor"}))
	require.NoError(t, b.IncrementWins("sailor"))
	require.NoError(t, b.Close())

	disk, err := database.GetSqliteDBStandalone(path)
	require.NoError(t, err)
	var u model.User
	require.NoError(t, disk.Where("name = ?", "sailor").First(&u).Error)
	assert.Equal(t, 1, u.Wins)
}

func TestInMemoryBackend_DumpsToDisk(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	b, err := New(Config{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.CreateUser(&core.User{ID: "u-mem", Name: "memory"}))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	now := time.Now()
	require.NoError(t, b.RecordMatch(&core.MatchRecord{MatchID: "m-mem", WinnerName: "memory", StartedAt: now, FinishedAt: now}))
	require.NoError(t, b.Close())

	disk, err := database.GetSqliteDBStandalone(dump)
	require.NoError(t, err)
	var m model.Match
	require.NoError(t, disk.Where("match_id = ?", "m-mem").First(&m).Error)
	assert.Equal(t, "memory", m.WinnerName)
}
