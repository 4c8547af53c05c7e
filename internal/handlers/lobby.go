package handlers

import (
	"github.com/broadside/server/internal/dispatcher"
	"github.com/broadside/server/internal/match"
	"github.com/broadside/server/internal/rooms"
	"github.com/broadside/server/pkg/protocol"
)

func (m *Manager) handleReg(e dispatcher.Event) (any, error) {
	var req protocol.RegRequest
	if err := m.decode(e, &req); err != nil {
		return nil, err
	}

	resp := protocol.RegResponse{Name: req.Name}
	userID, err := m.bind(e.Client, req.Name, req.Password)
	if err != nil {
		resp.Error = true
		resp.ErrorText = err.Error()
	} else {
		resp.Index = userID
	}

	// a failed registration is answered in the reg reply itself
	m.send(e.Client, protocol.TypeReg, resp)
	m.sendRooms(e.Client)
	m.broadcastWinners()
	return resp, nil
}

// bind logs the user in and attaches it to the client. A client binds at most once and
// a user is bound to at most one client.
func (m *Manager) bind(c dispatcher.Client, name, password string) (string, error) {
	if c.UserID() != "" {
		return "", ErrAlreadyRegistered
	}
	user, err := m.deps.Users.Register(name, password)
	if err != nil {
		return "", err
	}

	m.bindMu.Lock()
	defer m.bindMu.Unlock()
	if c.UserID() != "" {
		return "", ErrAlreadyRegistered
	}
	if _, ok := m.deps.Hub.Lookup(user.ID); ok {
		return "", ErrAlreadyConnected
	}
	c.SetUser(user.ID, user.Name)
	return user.ID, nil
}

// roomList renders the open rooms a user may join.
func (m *Manager) roomList(userID string) []protocol.RoomInfo {
	list := []protocol.RoomInfo{}
	if userID == "" {
		return list
	}
	for _, r := range m.deps.Rooms.List(userID) {
		list = append(list, protocol.RoomInfo{
			RoomID:    r.ID,
			RoomUsers: []protocol.RoomUser{{Name: r.Owner.Name, Index: r.Owner.UserID}},
		})
	}
	return list
}

func (m *Manager) sendRooms(c dispatcher.Client) {
	m.send(c, protocol.TypeUpdateRoom, m.roomList(c.UserID()))
}

func (m *Manager) broadcastRooms() {
	m.deps.Hub.Each(m.sendRooms)
}

func member(c dispatcher.Client) rooms.Member {
	return rooms.Member{UserID: c.UserID(), Name: c.UserName()}
}

func (m *Manager) handleCreateRoom(e dispatcher.Event) (any, error) {
	if err := requireUser(e.Client); err != nil {
		return nil, err
	}
	room, ok := m.deps.Rooms.Create(member(e.Client))
	if !ok {
		return nil, ErrRoomAlreadyExists
	}
	m.broadcastRooms()
	return room, nil
}

func (m *Manager) handleAddUserToRoom(e dispatcher.Event) (any, error) {
	if err := requireUser(e.Client); err != nil {
		return nil, err
	}
	var req protocol.AddUserToRoomRequest
	if err := m.decode(e, &req); err != nil {
		return nil, err
	}

	members, err := m.deps.Rooms.Join(string(req.IndexRoom), member(e.Client))
	if err != nil {
		return nil, err
	}
	m.broadcastRooms()

	owner, ok := m.deps.Hub.Lookup(members[0].UserID)
	if !ok {
		return nil, ErrOpponentGone
	}

	mt, err := m.deps.Matches.Create(
		match.Participant{UserID: members[0].UserID, Name: members[0].Name},
		match.Participant{UserID: members[1].UserID, Name: members[1].Name},
	)
	if err != nil {
		return nil, err
	}

	players := mt.Players()
	m.send(owner, protocol.TypeCreateGame, protocol.CreateGame{IDGame: mt.ID, IDPlayer: players[0].ID})
	m.send(e.Client, protocol.TypeCreateGame, protocol.CreateGame{IDGame: mt.ID, IDPlayer: players[1].ID})
	return mt.ID, nil
}

// Disconnect releases everything the client's user holds: the open room is closed and
// a running match is forfeited to the opponent.
func (m *Manager) Disconnect(c dispatcher.Client) {
	userID := c.UserID()
	if userID == "" {
		return
	}

	if m.deps.Rooms.RemoveOwnedBy(userID) {
		m.broadcastRooms()
	}

	mt, ok := m.deps.Matches.FindByUser(userID)
	if !ok {
		return
	}
	winnerID, err := m.deps.Matches.Forfeit(mt.ID, userID, m.emitter(mt))
	if err != nil {
		m.deps.Logger.Warn("failed to forfeit match", "match", mt.ID, "user", userID, "error", err)
		return
	}
	m.deps.Logger.Info("match forfeited", "match", mt.ID, "leaver", userID, "winner", winnerID)
	m.broadcastWinners()
}
