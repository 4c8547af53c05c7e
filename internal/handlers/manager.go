// Package handlers turns client commands into calls on the user, room and match
// services and delivers the resulting messages through the hub.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/broadside/server/internal/dispatcher"
	"github.com/broadside/server/internal/match"
	"github.com/broadside/server/internal/rooms"
	"github.com/broadside/server/internal/users"
	"github.com/broadside/server/pkg/protocol"
)

// CommandBroadcastWinners is the internal command that pushes the winners table to every client.
const CommandBroadcastWinners = ":BROADCAST:WINNERS:"

var (
	ErrNotRegistered     = errors.New("register first")
	ErrAlreadyConnected  = errors.New("user is already connected")
	ErrAlreadyRegistered = errors.New("this connection is already registered")
	ErrRoomAlreadyExists = errors.New("you already have an open room")
	ErrOpponentGone      = errors.New("room owner is no longer connected")
)

// Hub gives access to the connected clients.
type Hub interface {
	Each(fn func(dispatcher.Client))
	Lookup(userID string) (dispatcher.Client, bool)
}

// Dependencies holds all dependencies for the handler manager
type Dependencies struct {
	Users   *users.Service
	Rooms   *rooms.Service
	Matches *match.Registry
	Hub     Hub
	Codec   protocol.Codec
	Logger  *slog.Logger
}

// Manager owns the command handlers.
type Manager struct {
	deps       Dependencies
	dispatcher *dispatcher.Dispatcher

	// bindMu serialises the already-connected check with binding a user to a client.
	bindMu sync.Mutex
}

// NewManager creates a new handler manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{deps: deps}
}

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.dispatcher = d

	// Lobby - sync, replies go out before the next command is read
	d.Register(protocol.TypeReg, m.handleReg, dispatcher.Logged())
	d.Register(protocol.TypeCreateRoom, m.handleCreateRoom, dispatcher.Logged())
	d.Register(protocol.TypeAddUserToRoom, m.handleAddUserToRoom, dispatcher.Logged())

	// Match actions - sync, the registry serialises per match
	d.Register(protocol.TypeAddShips, m.handleAddShips, dispatcher.Logged())
	d.Register(protocol.TypeAttack, m.handleAttack, dispatcher.Logged())
	d.Register(protocol.TypeRandomAttack, m.handleRandomAttack, dispatcher.Logged())

	// Winners table reads storage - buffered
	d.Register(CommandBroadcastWinners, m.handleBroadcastWinners, dispatcher.Buffered(64), dispatcher.Blocking())
}

func (m *Manager) decode(e dispatcher.Event, v any) error {
	return protocol.DecodePayload(m.deps.Codec, protocol.Message{Type: e.Command, Data: e.Data}, v)
}

func (m *Manager) send(c dispatcher.Client, msgType string, payload any) {
	if err := c.Send(msgType, payload); err != nil {
		m.deps.Logger.Warn("failed to send message", "client", c.ID(), "type", msgType, "error", err)
	}
}

func (m *Manager) sendToUser(userID, msgType string, payload any) {
	if c, ok := m.deps.Hub.Lookup(userID); ok {
		m.send(c, msgType, payload)
	}
}

func requireUser(c dispatcher.Client) error {
	if c.UserID() == "" {
		return ErrNotRegistered
	}
	return nil
}

// broadcastWinners queues a winners update for every client.
func (m *Manager) broadcastWinners() {
	if m.dispatcher == nil {
		return
	}
	if _, err := m.dispatcher.Dispatch(dispatcher.Event{Command: CommandBroadcastWinners}); err != nil {
		m.deps.Logger.Error("failed to queue winners update", "error", err)
	}
}

func (m *Manager) handleBroadcastWinners(dispatcher.Event) (any, error) {
	winners, err := m.deps.Users.Winners()
	if err != nil {
		return nil, err
	}
	m.deps.Hub.Each(func(c dispatcher.Client) {
		m.send(c, protocol.TypeUpdateWinners, winners)
	})
	return nil, nil
}
