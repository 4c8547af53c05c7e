package convert

import (
	"testing"
	"time"

	"github.com/broadside/server/internal/model"
	"github.com/broadside/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConversion(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u := core.User{ID: "0b7c", Name: "player", PasswordHash: []byte("hash"), Wins: 3, CreatedAt: now}

	g := CoreToUser(u)
	assert.Equal(t, uint(0), g.ID)
	assert.Equal(t, "0b7c", g.UUID)
	assert.Equal(t, 3, g.Wins)

	assert.Equal(t, u, UserToCore(g))
}

func TestCoreToMatch(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := core.MatchRecord{
		MatchID:    "m-1",
		WinnerName: "alice",
		LoserName:  "bobby",
		ShotsFired: [2]int{14, 11},
		Fleets: [2][]core.ShipSpec{
			{{Position: core.Position{X: 1, Y: 2}, Direction: true, Length: 3, Type: core.ShipLarge}},
			nil,
		},
		Kills: [2][]core.Kill{
			nil,
			{{
				Ship:    core.ShipSpec{Position: core.Position{X: 0, Y: 0}, Length: 1, Type: core.ShipSmall},
				Cleared: []core.Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
			}},
		},
		StartedAt:  start,
		FinishedAt: start.Add(5 * time.Minute),
	}

	m, err := CoreToMatch(rec)
	require.NoError(t, err)
	assert.Equal(t, 14, m.ShotsFirst)
	assert.Equal(t, 11, m.ShotsSecond)
	assert.JSONEq(t, `[{"position":{"x":1,"y":2},"direction":true,"length":3,"type":"large"}]`, string(m.FleetFirst))
	assert.JSONEq(t, `[]`, string(m.FleetSecond))
	assert.JSONEq(t, `[]`, string(m.KillsFirst))
	assert.JSONEq(t, `[{"ship":{"position":{"x":0,"y":0},"direction":false,"length":1,"type":"small"},"cleared":[{"x":1,"y":0},{"x":0,"y":1},{"x":1,"y":1}]}]`, string(m.KillsSecond))

	back := MatchToCore(m)
	assert.Equal(t, rec.Fleets[0], back.Fleets[0])
	assert.Empty(t, back.Fleets[1])
	assert.Empty(t, back.Kills[0])
	assert.Equal(t, rec.Kills[1], back.Kills[1])
	assert.Equal(t, 5*time.Minute, back.Duration())
}

func TestMatchToCore_BadFleetJSON(t *testing.T) {
	rec := MatchToCore(model.Match{MatchID: "m-2", FleetFirst: []byte("{not json"), KillsSecond: []byte("[{")})
	assert.Nil(t, rec.Fleets[0])
	assert.Nil(t, rec.Kills[1])
	assert.Equal(t, "m-2", rec.MatchID)
}
