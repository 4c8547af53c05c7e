// pkg/core/events.go
package core

// AttackStatus is the outcome of a single attack on one cell.
type AttackStatus string

const (
	StatusMiss   AttackStatus = "miss"
	StatusShot   AttackStatus = "shot"
	StatusKilled AttackStatus = "killed"
)

// Event is emitted by a match for delivery to both participants.
// Implementations are MatchStarted, AttackResult, TurnChanged and MatchFinished.
// MatchStarted is addressed to one player only.
type Event interface {
	eventName() string
}

// MatchStarted echoes one player's own fleet once both fleets are placed.
type MatchStarted struct {
	PlayerID string
	Ships    []ShipSpec
}

// AttackResult reports the status of one attacked (or perimeter-cleared) cell.
type AttackResult struct {
	AttackerID string
	Position   Position
	Status     AttackStatus
}

// TurnChanged names the player who holds the next turn.
type TurnChanged struct {
	PlayerID string
}

// MatchFinished names the winning player of a match.
type MatchFinished struct {
	WinnerID string
}

func (MatchStarted) eventName() string  { return "start_game" }
func (AttackResult) eventName() string  { return "attack" }
func (TurnChanged) eventName() string   { return "turn" }
func (MatchFinished) eventName() string { return "finish" }

// EventName returns the wire name of an event.
func EventName(e Event) string {
	return e.eventName()
}
