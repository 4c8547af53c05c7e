package match

import (
	"sync"
	"time"

	"github.com/broadside/server/internal/game"
	"github.com/broadside/server/pkg/core"
)

// Participant is a connected user taking a seat in a match.
type Participant struct {
	UserID string
	Name   string
}

// Player is a participant seated in a match under a match-scoped id.
type Player struct {
	ID string
	Participant
	Slot game.Slot
}

// Match pairs a Game with the ids of its two players. All access to the game goes
// through mu so a match sees at most one mutation at a time.
type Match struct {
	ID string

	mu        sync.Mutex
	game      *game.Game
	players   [2]Player
	kills     [2][]core.Kill
	createdAt time.Time
	startedAt time.Time
	done      bool
}

func newMatch(id string, g *game.Game, players [2]Player) *Match {
	return &Match{
		ID:        id,
		game:      g,
		players:   players,
		createdAt: time.Now(),
	}
}

// Players returns both seats in slot order.
func (m *Match) Players() [2]Player {
	return m.players
}

// Player looks up a seat by match-scoped player id.
func (m *Match) Player(playerID string) (Player, bool) {
	for _, p := range m.players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerByUser looks up a seat by user id.
func (m *Match) PlayerByUser(userID string) (Player, bool) {
	for _, p := range m.players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// Fleet returns the placement submitted by the player, or nil if none yet.
func (m *Match) Fleet(playerID string) []core.ShipSpec {
	p, ok := m.Player(playerID)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.game.Placed(p.Slot) {
		return nil
	}
	return m.game.Fleet(p.Slot)
}

// CurrentPlayer returns the id of the player holding the turn.
func (m *Match) CurrentPlayer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[m.game.Turn()].ID
}

// Ready reports whether both players have placed their ships.
func (m *Match) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.Ready()
}

func (m *Match) record(winner game.Slot, forfeit bool) *core.MatchRecord {
	rec := &core.MatchRecord{
		MatchID:    m.ID,
		WinnerName: m.players[winner].Name,
		LoserName:  m.players[winner.Other()].Name,
		Forfeit:    forfeit,
		StartedAt:  m.startedAt,
		FinishedAt: time.Now(),
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = m.createdAt
	}
	for _, slot := range []game.Slot{game.SlotFirst, game.SlotSecond} {
		rec.ShotsFired[slot] = m.game.ShotsFired(slot)
		if m.game.Placed(slot) {
			rec.Fleets[slot] = m.game.Fleet(slot)
		}
		rec.Kills[slot] = append([]core.Kill(nil), m.kills[slot]...)
	}
	return rec
}
