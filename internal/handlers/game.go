package handlers

import (
	"fmt"

	"github.com/broadside/server/internal/dispatcher"
	"github.com/broadside/server/internal/match"
	"github.com/broadside/server/pkg/core"
	"github.com/broadside/server/pkg/protocol"
)

// seat resolves the match and checks that playerID belongs to the client's user.
func (m *Manager) seat(c dispatcher.Client, matchID, playerID string) (*match.Match, error) {
	if err := requireUser(c); err != nil {
		return nil, err
	}
	mt, ok := m.deps.Matches.Get(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", match.ErrMatchNotFound, matchID)
	}
	p, ok := mt.Player(playerID)
	if !ok || p.UserID != c.UserID() {
		return nil, fmt.Errorf("%w: %s", match.ErrPlayerNotFound, playerID)
	}
	return mt, nil
}

// emitter delivers match events to both seated users in order. MatchStarted goes
// only to the player it names.
func (m *Manager) emitter(mt *match.Match) match.Emitter {
	players := mt.Players()
	return func(events ...core.Event) {
		for _, ev := range events {
			msgType, payload := protocol.FromEvent(ev)
			to := ""
			if started, ok := ev.(core.MatchStarted); ok {
				to = started.PlayerID
			}
			for _, p := range players {
				if to != "" && p.ID != to {
					continue
				}
				m.sendToUser(p.UserID, msgType, payload)
			}
		}
	}
}

func (m *Manager) handleAddShips(e dispatcher.Event) (any, error) {
	var req protocol.AddShipsRequest
	if err := m.decode(e, &req); err != nil {
		return nil, err
	}
	mt, err := m.seat(e.Client, string(req.GameID), string(req.IndexPlayer))
	if err != nil {
		return nil, err
	}

	ready, err := m.deps.Matches.AddShips(mt.ID, string(req.IndexPlayer), req.Ships, m.emitter(mt))
	if err != nil {
		return nil, err
	}
	return ready, nil
}

func (m *Manager) handleAttack(e dispatcher.Event) (any, error) {
	var req protocol.AttackRequest
	if err := m.decode(e, &req); err != nil {
		return nil, err
	}
	pos := core.Position{X: req.X, Y: req.Y}
	return m.strike(e.Client, string(req.GameID), string(req.IndexPlayer), &pos)
}

func (m *Manager) handleRandomAttack(e dispatcher.Event) (any, error) {
	var req protocol.RandomAttackRequest
	if err := m.decode(e, &req); err != nil {
		return nil, err
	}
	return m.strike(e.Client, string(req.GameID), string(req.IndexPlayer), nil)
}

func (m *Manager) strike(c dispatcher.Client, matchID, playerID string, pos *core.Position) (*match.Outcome, error) {
	mt, err := m.seat(c, matchID, playerID)
	if err != nil {
		return nil, err
	}
	out, err := m.deps.Matches.Strike(mt.ID, playerID, pos, m.emitter(mt))
	if err != nil {
		return nil, err
	}
	if out.WinnerID != "" {
		m.broadcastWinners()
	}
	return out, nil
}
