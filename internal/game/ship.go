package game

import "github.com/broadside/server/pkg/core"

// Direction is the axis a ship extends along from its origin.
type Direction bool

const (
	Horizontal Direction = false
	Vertical   Direction = true
)

// MinShipLength and MaxShipLength bound the length of a single ship.
const (
	MinShipLength = 1
	MaxShipLength = 4
)

// Ship is one vessel on a battlefield. The footprint never changes after construction;
// integrity counts down with every hit. Ships are compared by pointer.
type Ship struct {
	origin    core.Position
	length    int
	direction Direction
	kind      core.ShipType
	integrity int
}

// NewShip builds a ship from a placement spec with full integrity.
func NewShip(spec core.ShipSpec) *Ship {
	return &Ship{
		origin:    spec.Position,
		length:    spec.Length,
		direction: Direction(spec.Direction),
		kind:      spec.Type,
		integrity: spec.Length,
	}
}

// Shoot registers a hit and reports StatusKilled once integrity reaches zero,
// StatusShot otherwise. A ship never reports a miss.
func (s *Ship) Shoot() core.AttackStatus {
	s.integrity--
	if s.integrity == 0 {
		return core.StatusKilled
	}
	return core.StatusShot
}

// Killed reports whether every cell of the ship has been hit.
func (s *Ship) Killed() bool {
	return s.integrity <= 0
}

func (s *Ship) Origin() core.Position { return s.origin }
func (s *Ship) Length() int           { return s.length }
func (s *Ship) Direction() Direction  { return s.direction }

// Cells returns the footprint in order from the origin.
func (s *Ship) Cells() []core.Position {
	cells := make([]core.Position, 0, s.length)
	for i := 0; i < s.length; i++ {
		if s.direction == Vertical {
			cells = append(cells, core.Position{X: s.origin.X, Y: s.origin.Y + i})
		} else {
			cells = append(cells, core.Position{X: s.origin.X + i, Y: s.origin.Y})
		}
	}
	return cells
}

// Spec returns the placement the ship was built from.
func (s *Ship) Spec() core.ShipSpec {
	return core.ShipSpec{
		Position:  s.origin,
		Direction: bool(s.direction),
		Length:    s.length,
		Type:      s.kind,
	}
}
