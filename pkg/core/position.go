// pkg/core/position.go
package core

import "fmt"

// Position is a zero-indexed grid coordinate. X is the horizontal axis, Y the vertical one.
type Position struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// ShipType is the size label a client attaches to a ship. It is echoed back but never
// used for game logic; Length is authoritative.
type ShipType string

const (
	ShipSmall  ShipType = "small"
	ShipMedium ShipType = "medium"
	ShipLarge  ShipType = "large"
	ShipHuge   ShipType = "huge"
)

// ShipSpec describes one ship as submitted by a player during placement.
// Direction false means horizontal (extends along X), true means vertical (extends along Y).
type ShipSpec struct {
	Position  Position `json:"position" msgpack:"position"`
	Direction bool     `json:"direction" msgpack:"direction"`
	Length    int      `json:"length" msgpack:"length"`
	Type      ShipType `json:"type" msgpack:"type"`
}
