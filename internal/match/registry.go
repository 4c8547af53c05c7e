package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/broadside/server/internal/game"
	"github.com/broadside/server/pkg/core"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrPlayerNotFound   = errors.New("player not in match")
	ErrNotReady         = errors.New("match is still in placement")
	ErrAlreadyPlaced    = errors.New("ships already placed")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidPlacement = game.ErrInvalidPlacement
	ErrCellUnavailable  = game.ErrCellUnavailable
)

// WinRecorder credits a win to a user account by name.
type WinRecorder interface {
	RecordWin(name string) error
}

// HistoryRecorder stores a finished match.
type HistoryRecorder interface {
	RecordMatch(rec *core.MatchRecord) error
}

// Observer is notified of resolved attacks and finished matches.
type Observer interface {
	ObserveAttack(matchID string, status core.AttackStatus)
	ObserveFinish(rec *core.MatchRecord)
}

// Emitter receives the events produced by one action, in delivery order.
type Emitter func(events ...core.Event)

// Outcome is what one attack did to a match.
type Outcome struct {
	MatchID    string
	AttackerID string
	DefenderID string
	Position   core.Position
	Result     game.Result
	// NextTurn is the player holding the turn after the attack.
	NextTurn string
	// WinnerID is set when the attack finished the match.
	WinnerID string
}

// Dependencies holds the collaborators of a Registry. Any of them may be nil.
type Dependencies struct {
	Wins     WinRecorder
	History  HistoryRecorder
	Observer Observer
	Logger   *slog.Logger
}

// Registry maps match ids to live matches.
type Registry struct {
	deps   Dependencies
	width  int
	height int

	mu      sync.RWMutex
	matches map[string]*Match

	created  metric.Int64Counter
	finished metric.Int64Counter
	attacks  metric.Int64Counter
}

// NewRegistry creates an empty registry for games on a width×height grid.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewRegistry(deps Dependencies, width, height int) (*Registry, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		deps:    deps,
		width:   width,
		height:  height,
		matches: make(map[string]*Match),
	}

	m := meter()
	var err error

	r.created, err = m.Int64Counter("match.created", metric.WithDescription("Total matches created"))
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}
	r.finished, err = m.Int64Counter("match.finished", metric.WithDescription("Total matches finished"))
	if err != nil {
		return nil, fmt.Errorf("creating finished counter: %w", err)
	}
	r.attacks, err = m.Int64Counter("match.attacks", metric.WithDescription("Total attacks resolved"))
	if err != nil {
		return nil, fmt.Errorf("creating attacks counter: %w", err)
	}

	_, err = m.Int64ObservableGauge(
		"match.active",
		metric.WithDescription("Matches currently in the registry"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(r.Len()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}

	return r, nil
}

// Create seats two participants in a new match. Player ids are fresh and unrelated to user ids.
// The first participant holds the first turn.
func (r *Registry) Create(a, b Participant) (*Match, error) {
	if a.UserID == b.UserID {
		return nil, fmt.Errorf("create match: %s cannot play against themselves", a.Name)
	}

	players := [2]Player{
		{ID: uuid.NewString(), Participant: a, Slot: game.SlotFirst},
		{ID: uuid.NewString(), Participant: b, Slot: game.SlotSecond},
	}
	m := newMatch(uuid.NewString(), game.New(r.width, r.height), players)

	r.mu.Lock()
	r.matches[m.ID] = m
	r.mu.Unlock()

	r.created.Add(context.Background(), 1)
	r.deps.Logger.Info("match created", "match", m.ID, "first", a.Name, "second", b.Name)
	return m, nil
}

// Get returns the match with the given id.
func (r *Registry) Get(matchID string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	return m, ok
}

// FindByUser returns the match the user is seated in, if any.
func (r *Registry) FindByUser(userID string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matches {
		if _, ok := m.PlayerByUser(userID); ok {
			return m, true
		}
	}
	return nil, false
}

// Len returns the number of live matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// Remove discards a match.
func (r *Registry) Remove(matchID string) {
	r.mu.Lock()
	delete(r.matches, matchID)
	r.mu.Unlock()
}

func (r *Registry) lookup(matchID, playerID string) (*Match, Player, error) {
	m, ok := r.Get(matchID)
	if !ok {
		return nil, Player{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	p, ok := m.Player(playerID)
	if !ok {
		return nil, Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return m, p, nil
}

// AddShips submits a player's fleet. Resubmitting during placement replaces the earlier
// fleet; once both fleets are in, further submissions fail with ErrAlreadyPlaced.
// It reports whether the match is now ready to start. When it is, emit receives one
// MatchStarted per player and the opening TurnChanged while the match is still locked.
func (r *Registry) AddShips(matchID, playerID string, specs []core.ShipSpec, emit Emitter) (bool, error) {
	m, p, err := r.lookup(matchID, playerID)
	if err != nil {
		return false, err
	}
	if err := game.ValidatePlacement(r.width, r.height, specs); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.game.Ready() {
		return false, ErrAlreadyPlaced
	}
	ready := m.game.AddShips(p.Slot, specs)
	if !ready {
		return false, nil
	}
	m.startedAt = time.Now()
	r.deps.Logger.Info("match started", "match", m.ID)
	if emit != nil {
		for _, pl := range m.players {
			emit(core.MatchStarted{PlayerID: pl.ID, Ships: m.game.Fleet(pl.Slot)})
		}
		emit(core.TurnChanged{PlayerID: m.players[m.game.Turn()].ID})
	}
	return true, nil
}

// Attack fires at pos on the defender's battlefield on behalf of the defender's opponent.
func (r *Registry) Attack(matchID, defenderID string, pos core.Position) (*Outcome, error) {
	return r.attack(matchID, defenderID, &pos)
}

// AttackRandomly fires at a uniformly drawn available cell of the defender's battlefield.
func (r *Registry) AttackRandomly(matchID, defenderID string) (*Outcome, error) {
	return r.attack(matchID, defenderID, nil)
}

func (r *Registry) attack(matchID, defenderID string, pos *core.Position) (*Outcome, error) {
	m, defender, err := r.lookup(matchID, defenderID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	out, err := r.resolve(m, defender.Slot, pos)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if out.WinnerID != "" {
		r.Remove(m.ID)
	}
	return out, nil
}

// Strike is an attack declared by the attacker. It checks turn ownership, targets the
// opponent and emits the resulting events while the match is still locked, so the
// events of one action are delivered before those of the next. A nil pos draws a random
// available cell.
func (r *Registry) Strike(matchID, attackerID string, pos *core.Position, emit Emitter) (*Outcome, error) {
	m, attacker, err := r.lookup(matchID, attackerID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.game.Ready() && m.game.Turn() != attacker.Slot {
		m.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	out, err := r.resolve(m, attacker.Slot.Other(), pos)
	if err == nil && emit != nil {
		emit(outcomeEvents(out)...)
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if out.WinnerID != "" {
		r.Remove(m.ID)
	}
	return out, nil
}

// resolve runs one attack. m.mu must be held.
func (r *Registry) resolve(m *Match, defender game.Slot, pos *core.Position) (*Outcome, error) {
	if m.done {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, m.ID)
	}
	if !m.game.Ready() {
		return nil, ErrNotReady
	}

	var target core.Position
	if pos == nil {
		cells := m.game.AvailableCells(defender)
		if len(cells) == 0 {
			return nil, ErrCellUnavailable
		}
		target = cells[rand.IntN(len(cells))]
	} else {
		target = *pos
		if !m.game.IsAvailable(defender, target) {
			return nil, fmt.Errorf("%w: %s", ErrCellUnavailable, target)
		}
	}

	res, err := m.game.Attack(defender, target)
	if err != nil {
		return nil, err
	}
	if res.Status == core.StatusMiss {
		m.game.ChangeTurn()
	}

	attacker := defender.Other()
	if res.Status == core.StatusKilled {
		m.kills[attacker] = append(m.kills[attacker], core.Kill{
			Ship:    res.Sunk,
			Cleared: append([]core.Position(nil), res.Perimeter...),
		})
	}
	out := &Outcome{
		MatchID:    m.ID,
		AttackerID: m.players[attacker].ID,
		DefenderID: m.players[defender].ID,
		Position:   target,
		Result:     res,
		NextTurn:   m.players[m.game.Turn()].ID,
	}

	r.attacks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	if r.deps.Observer != nil {
		r.deps.Observer.ObserveAttack(m.ID, res.Status)
	}

	if res.Finished {
		out.WinnerID = m.players[attacker].ID
		r.finish(m, attacker, false)
	}
	return out, nil
}

// Forfeit ends the match the user is seated in, crediting the win to the opponent.
// It is used when a player disconnects.
func (r *Registry) Forfeit(matchID, leaverUserID string, emit Emitter) (string, error) {
	m, ok := r.Get(matchID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	leaver, ok := m.PlayerByUser(leaverUserID)
	if !ok {
		return "", fmt.Errorf("%w: user %s", ErrPlayerNotFound, leaverUserID)
	}

	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrMatchNotFound, m.ID)
	}
	winner := leaver.Slot.Other()
	r.finish(m, winner, true)
	winnerID := m.players[winner].ID
	if emit != nil {
		emit(core.MatchFinished{WinnerID: winnerID})
	}
	m.mu.Unlock()

	r.Remove(m.ID)
	return winnerID, nil
}

// finish marks the match done and records the result. m.mu must be held.
func (r *Registry) finish(m *Match, winner game.Slot, forfeit bool) {
	m.done = true
	rec := m.record(winner, forfeit)

	r.finished.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("forfeit", forfeit)))
	r.deps.Logger.Info("match finished",
		"match", m.ID,
		"winner", rec.WinnerName,
		"loser", rec.LoserName,
		"forfeit", forfeit,
		"duration", rec.Duration())

	if r.deps.Wins != nil {
		if err := r.deps.Wins.RecordWin(rec.WinnerName); err != nil {
			r.deps.Logger.Error("failed to record win", "match", m.ID, "winner", rec.WinnerName, "error", err)
		}
	}
	if r.deps.History != nil {
		if err := r.deps.History.RecordMatch(rec); err != nil {
			r.deps.Logger.Error("failed to record match", "match", m.ID, "error", err)
		}
	}
	if r.deps.Observer != nil {
		r.deps.Observer.ObserveFinish(rec)
	}
}

// outcomeEvents expands an outcome into the events delivered to both players: the attack
// and the turn, one cleared-miss and turn pair per perimeter cell of a kill, then the finish.
func outcomeEvents(out *Outcome) []core.Event {
	events := make([]core.Event, 0, 2+2*len(out.Result.Perimeter)+1)
	events = append(events,
		core.AttackResult{AttackerID: out.AttackerID, Position: out.Position, Status: out.Result.Status},
		core.TurnChanged{PlayerID: out.NextTurn},
	)
	for _, p := range out.Result.Perimeter {
		events = append(events,
			core.AttackResult{AttackerID: out.AttackerID, Position: p, Status: core.StatusMiss},
			core.TurnChanged{PlayerID: out.NextTurn},
		)
	}
	if out.WinnerID != "" {
		events = append(events, core.MatchFinished{WinnerID: out.WinnerID})
	}
	return events
}
