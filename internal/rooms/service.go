// Package rooms pairs waiting players. A room holds its owner until a second
// player joins; joining closes the room and hands both members to match creation.
package rooms

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrOwnRoom      = errors.New("cannot join own room")
)

// Member is a user waiting in or joining a room.
type Member struct {
	UserID string `json:"index" msgpack:"index"`
	Name   string `json:"name" msgpack:"name"`
}

// Room is an open room with its single owner.
type Room struct {
	ID    string
	Owner Member
}

// Service keeps the list of open rooms in creation order.
type Service struct {
	mu    sync.Mutex
	rooms []*Room
}

// NewService creates an empty room list.
func NewService() *Service {
	return &Service{}
}

func (s *Service) indexOf(roomID string) int {
	for i, r := range s.rooms {
		if r.ID == roomID {
			return i
		}
	}
	return -1
}

func (s *Service) ownedBy(userID string) int {
	for i, r := range s.rooms {
		if r.Owner.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Service) removeAt(i int) {
	s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
}

// Create opens a room owned by owner. A user owns at most one open room; a second
// call returns false and no room.
func (s *Service) Create(owner Member) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ownedBy(owner.UserID) >= 0 {
		return nil, false
	}
	r := &Room{ID: uuid.NewString(), Owner: owner}
	s.rooms = append(s.rooms, r)
	return r, true
}

// List returns the open rooms not owned by forUserID.
func (s *Service) List(forUserID string) []Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.Owner.UserID != forUserID {
			list = append(list, *r)
		}
	}
	return list
}

// Len returns the number of open rooms.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Join closes the room and any room the joiner owns, returning owner and joiner in that order.
func (s *Service) Join(roomID string, joiner Member) ([2]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(roomID)
	if i < 0 {
		return [2]Member{}, ErrRoomNotFound
	}
	room := s.rooms[i]
	if room.Owner.UserID == joiner.UserID {
		return [2]Member{}, ErrOwnRoom
	}
	s.removeAt(i)

	if j := s.ownedBy(joiner.UserID); j >= 0 {
		s.removeAt(j)
	}
	return [2]Member{room.Owner, joiner}, nil
}

// RemoveOwnedBy closes the user's open room and reports whether there was one.
func (s *Service) RemoveOwnedBy(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.ownedBy(userID); i >= 0 {
		s.removeAt(i)
		return true
	}
	return false
}
