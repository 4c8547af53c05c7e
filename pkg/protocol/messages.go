// Package protocol defines the messages exchanged with game clients over the WebSocket.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/broadside/server/pkg/core"
)

// Message type constants. Client requests and server replies share a name where
// the reply answers the request.
const (
	TypeReg           = "reg"
	TypeUpdateWinners = "update_winners"
	TypeCreateRoom    = "create_room"
	TypeAddUserToRoom = "add_user_to_room"
	TypeUpdateRoom    = "update_room"
	TypeCreateGame    = "create_game"
	TypeAddShips      = "add_ships"
	TypeStartGame     = "start_game"
	TypeAttack        = "attack"
	TypeRandomAttack  = "random_attack"
	TypeTurn          = "turn"
	TypeFinish        = "finish"
	TypeError         = "error"
)

// Message is a decoded envelope. Data holds the codec-specific payload bytes and is
// empty for requests without a payload.
type Message struct {
	Type string
	ID   int
	Data []byte
}

// ID is an identifier clients may send either as a string or as a number.
type ID string

// UnmarshalJSON accepts "abc", 17 and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		*id = ID(n.String())
	}
	return nil
}

// RegRequest registers or logs in a player.
type RegRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// RegResponse answers RegRequest. Index is the user id.
type RegResponse struct {
	Name      string `json:"name"`
	Index     string `json:"index"`
	Error     bool   `json:"error"`
	ErrorText string `json:"errorText"`
}

// RoomUser is a member listed in an open room.
type RoomUser struct {
	Name  string `json:"name"`
	Index string `json:"index"`
}

// RoomInfo is one entry of update_room.
type RoomInfo struct {
	RoomID    string     `json:"roomId"`
	RoomUsers []RoomUser `json:"roomUsers"`
}

// AddUserToRoomRequest joins an open room.
type AddUserToRoomRequest struct {
	IndexRoom ID `json:"indexRoom"`
}

// CreateGame tells each member of a closed room its match and player id.
type CreateGame struct {
	IDGame   string `json:"idGame"`
	IDPlayer string `json:"idPlayer"`
}

// AddShipsRequest submits a fleet.
type AddShipsRequest struct {
	GameID      ID              `json:"gameId"`
	Ships       []core.ShipSpec `json:"ships"`
	IndexPlayer ID              `json:"indexPlayer"`
}

// StartGame echoes a player's own fleet when both fleets are placed.
type StartGame struct {
	Ships              []core.ShipSpec `json:"ships"`
	CurrentPlayerIndex string          `json:"currentPlayerIndex"`
}

// AttackRequest fires at a declared cell.
type AttackRequest struct {
	GameID      ID  `json:"gameId"`
	X           int `json:"x"`
	Y           int `json:"y"`
	IndexPlayer ID  `json:"indexPlayer"`
}

// RandomAttackRequest fires at a random available cell.
type RandomAttackRequest struct {
	GameID      ID `json:"gameId"`
	IndexPlayer ID `json:"indexPlayer"`
}

// AttackFeedback reports one attacked cell.
type AttackFeedback struct {
	Position      core.Position     `json:"position"`
	CurrentPlayer string            `json:"currentPlayer"`
	Status        core.AttackStatus `json:"status"`
}

// Turn names the player to move.
type Turn struct {
	CurrentPlayer string `json:"currentPlayer"`
}

// Finish names the winner.
type Finish struct {
	WinPlayer string `json:"winPlayer"`
}

// ErrorPayload reports a rejected request to its sender.
type ErrorPayload struct {
	For       string `json:"for"`
	ErrorText string `json:"errorText"`
}

// FromEvent maps a match event to its message type and payload.
func FromEvent(e core.Event) (string, any) {
	switch ev := e.(type) {
	case core.MatchStarted:
		return TypeStartGame, StartGame{Ships: ev.Ships, CurrentPlayerIndex: ev.PlayerID}
	case core.AttackResult:
		return TypeAttack, AttackFeedback{Position: ev.Position, CurrentPlayer: ev.AttackerID, Status: ev.Status}
	case core.TurnChanged:
		return TypeTurn, Turn{CurrentPlayer: ev.PlayerID}
	case core.MatchFinished:
		return TypeFinish, Finish{WinPlayer: ev.WinnerID}
	default:
		return core.EventName(e), e
	}
}

// IsInput reports whether clients may send msgType.
func IsInput(msgType string) bool {
	switch msgType {
	case TypeReg, TypeCreateRoom, TypeAddUserToRoom, TypeAddShips, TypeAttack, TypeRandomAttack:
		return true
	}
	return false
}
