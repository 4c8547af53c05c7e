package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	b := New(config.MemoryConfig{}, nil)
	require.NoError(t, b.Init())

	_, err := b.GetUser("ghost")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	require.NoError(t, b.CreateUser(&core.User{ID: "1", Name: "zelda"}))
	require.NoError(t, b.CreateUser(&core.User{ID: "2", Name: "alpha"}))
	assert.ErrorIs(t, b.CreateUser(&core.User{ID: "3", Name: "zelda"}), core.ErrUserExists)

	require.NoError(t, b.IncrementWins("alpha"))
	require.NoError(t, b.IncrementWins("alpha"))
	assert.ErrorIs(t, b.IncrementWins("ghost"), core.ErrUserNotFound)

	u, err := b.GetUser("alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Wins)

	// returned users are copies
	u.Wins = 100
	u, _ = b.GetUser("alpha")
	assert.Equal(t, 2, u.Wins)

	users, err := b.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "zelda", users[0].Name)
	assert.Equal(t, "alpha", users[1].Name)

	require.NoError(t, b.Close())
	assert.Empty(t, b.ExportedFilePath())
}

func sampleRecord() *core.MatchRecord {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &core.MatchRecord{
		MatchID:    "m-1",
		WinnerName: "alpha",
		LoserName:  "zelda",
		ShotsFired: [2]int{20, 17},
		Fleets: [2][]core.ShipSpec{
			{{Position: core.Position{X: 1, Y: 2}, Length: 2, Type: core.ShipMedium}},
			{{Position: core.Position{X: 4, Y: 4}, Direction: true, Length: 1, Type: core.ShipSmall}},
		},
		Kills: [2][]core.Kill{
			{{
				Ship:    core.ShipSpec{Position: core.Position{X: 4, Y: 4}, Direction: true, Length: 1, Type: core.ShipSmall},
				Cleared: []core.Position{{X: 3, Y: 3}, {X: 5, Y: 5}},
			}},
		},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
}

func TestRecordMatch(t *testing.T) {
	b := New(config.MemoryConfig{}, nil)

	first, second := sampleRecord(), sampleRecord()
	require.NoError(t, b.RecordMatch(first))
	require.NoError(t, b.RecordMatch(second))
	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)
	assert.Len(t, b.Matches(), 2)
}

func TestClose_ExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, nil)
	require.NoError(t, b.RecordMatch(sampleRecord()))
	require.NoError(t, b.Close())

	path := b.ExportedFilePath()
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export HistoryExport
	require.NoError(t, json.Unmarshal(data, &export))
	require.Len(t, export.Matches, 1)
	m := export.Matches[0]
	assert.Equal(t, "alpha", m.Winner)
	assert.Equal(t, int64(90000), m.DurationMs)
	assert.Equal(t, [2]int{20, 17}, m.ShotsFired)
	require.Len(t, m.Fleets[1], 1)
	assert.Equal(t, []any{[]any{4.0, 4.0}, true, 1.0, "small"}, m.Fleets[1][0])
	require.Len(t, m.Kills[0], 1)
	assert.Empty(t, m.Kills[1])
	assert.Equal(t, []any{
		[]any{[]any{4.0, 4.0}, true, 1.0, "small"},
		[]any{[]any{3.0, 3.0}, []any{5.0, 5.0}},
	}, m.Kills[0][0])
}

func TestClose_ExportsGzip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true}, nil)
	require.NoError(t, b.RecordMatch(sampleRecord()))
	require.NoError(t, b.Close())

	path := b.ExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export HistoryExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Len(t, export.Matches, 1)
}
