// pkg/core/user.go
package core

import "time"

// User is a registered player account.
type User struct {
	ID           string
	Name         string
	PasswordHash []byte
	Wins         int
	CreatedAt    time.Time
}

// Winner is one row of the winners table sent to clients.
type Winner struct {
	Name string `json:"name" msgpack:"name"`
	Wins int    `json:"wins" msgpack:"wins"`
}

// Kill is one sunk ship and the perimeter cells cleared around it.
type Kill struct {
	Ship    ShipSpec   `json:"ship"`
	Cleared []Position `json:"cleared"`
}

// MatchRecord is the history entry written when a match ends.
// Kills[i] lists the ships sunk by the player in slot i, in order.
type MatchRecord struct {
	ID         uint
	MatchID    string
	WinnerName string
	LoserName  string
	Forfeit    bool
	ShotsFired [2]int
	Fleets     [2][]ShipSpec
	Kills      [2][]Kill
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the match lasted.
func (r MatchRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
