package game

import (
	"errors"
	"fmt"

	"github.com/broadside/server/pkg/core"
)

var (
	// ErrInvalidPlacement is returned for fleets that leave the grid, overlap or use a bad length.
	ErrInvalidPlacement = errors.New("invalid ship placement")
	// ErrCellUnavailable is returned when attacking a cell that was already attacked or cleared.
	ErrCellUnavailable = errors.New("cell is not available")
)

// Slot is one of the two fixed seats of a game, assigned at creation.
type Slot int

const (
	SlotFirst Slot = iota
	SlotSecond
)

// Other returns the opposing slot.
func (s Slot) Other() Slot {
	if s == SlotFirst {
		return SlotSecond
	}
	return SlotFirst
}

// Valid reports whether s is SlotFirst or SlotSecond.
func (s Slot) Valid() bool {
	return s == SlotFirst || s == SlotSecond
}

func (s Slot) String() string {
	switch s {
	case SlotFirst:
		return "first"
	case SlotSecond:
		return "second"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Result is what an attack did to the defender's battlefield.
// Sunk is set only when Status is StatusKilled.
type Result struct {
	Status    core.AttackStatus
	Sunk      core.ShipSpec
	Perimeter []core.Position
	Finished  bool
}

// Game is the state of one match: two battlefields, two live fleets and the turn.
// It is not safe for concurrent use; callers serialise access per game.
type Game struct {
	width  int
	height int

	fields [2]*Battlefield
	fleets [2][]*Ship
	alive  [2]map[*Ship]struct{}
	shots  [2]int

	turn Slot
}

// New creates a game on a width×height grid. The first slot holds the first turn.
func New(width, height int) *Game {
	return &Game{
		width:  width,
		height: height,
		turn:   SlotFirst,
	}
}

func (g *Game) mustSlot(slot Slot) {
	if !slot.Valid() {
		panic(fmt.Sprintf("game: invalid slot %d", int(slot)))
	}
}

func (g *Game) field(slot Slot) *Battlefield {
	g.mustSlot(slot)
	if g.fields[slot] == nil {
		panic(fmt.Sprintf("game: %s slot has not placed ships", slot))
	}
	return g.fields[slot]
}

// ValidatePlacement checks that every ship has a legal length, stays inside the grid
// and does not overlap another ship of the same fleet.
func ValidatePlacement(width, height int, specs []core.ShipSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: empty fleet", ErrInvalidPlacement)
	}
	occupied := make(map[core.Position]int, len(specs)*MaxShipLength)
	for i, spec := range specs {
		if spec.Length < MinShipLength || spec.Length > MaxShipLength {
			return fmt.Errorf("%w: ship %d has length %d", ErrInvalidPlacement, i, spec.Length)
		}
		for _, p := range NewShip(spec).Cells() {
			if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
				return fmt.Errorf("%w: ship %d leaves the grid at %s", ErrInvalidPlacement, i, p)
			}
			if other, ok := occupied[p]; ok {
				return fmt.Errorf("%w: ships %d and %d overlap at %s", ErrInvalidPlacement, other, i, p)
			}
			occupied[p] = i
		}
	}
	return nil
}

// AddShips builds the slot's battlefield and live fleet, replacing any earlier placement.
// It reports whether both slots have now placed.
func (g *Game) AddShips(slot Slot, specs []core.ShipSpec) bool {
	g.mustSlot(slot)

	ships := make([]*Ship, 0, len(specs))
	alive := make(map[*Ship]struct{}, len(specs))
	for _, spec := range specs {
		ship := NewShip(spec)
		ships = append(ships, ship)
		alive[ship] = struct{}{}
	}

	g.fields[slot] = NewBattlefield(g.width, g.height, ships)
	g.fleets[slot] = ships
	g.alive[slot] = alive

	return g.Ready()
}

// Placed reports whether the slot has submitted its fleet.
func (g *Game) Placed(slot Slot) bool {
	g.mustSlot(slot)
	return g.fields[slot] != nil
}

// Ready reports whether both slots have placed ships.
func (g *Game) Ready() bool {
	return g.fields[SlotFirst] != nil && g.fields[SlotSecond] != nil
}

// Finished reports whether either fleet has been destroyed.
func (g *Game) Finished() bool {
	if !g.Ready() {
		return false
	}
	return len(g.alive[SlotFirst]) == 0 || len(g.alive[SlotSecond]) == 0
}

// AvailableCells lists the not-yet-attacked cells of the slot's battlefield.
func (g *Game) AvailableCells(slot Slot) []core.Position {
	return g.field(slot).AvailableCells()
}

// IsAvailable reports whether p can still be attacked on the slot's battlefield.
func (g *Game) IsAvailable(slot Slot, p core.Position) bool {
	return g.field(slot).IsAvailable(p)
}

// Attack resolves an attack on the defender's battlefield. It never changes the turn.
func (g *Game) Attack(defender Slot, p core.Position) (Result, error) {
	field := g.field(defender)

	ship, state := field.Cell(p)
	switch state {
	case CellRemoved:
		return Result{}, fmt.Errorf("%w: %s", ErrCellUnavailable, p)
	case CellEmpty:
		field.RemoveCell(p)
		g.shots[defender.Other()]++
		return Result{Status: core.StatusMiss}, nil
	}

	g.shots[defender.Other()]++
	status := ship.Shoot()
	field.RemoveCell(p)
	if status != core.StatusKilled {
		return Result{Status: status}, nil
	}

	alive := g.alive[defender]
	delete(alive, ship)

	return Result{
		Status:    core.StatusKilled,
		Sunk:      ship.Spec(),
		Perimeter: clearPerimeter(ship, field),
		Finished:  len(alive) == 0,
	}, nil
}

// Turn returns the slot that attacks next.
func (g *Game) Turn() Slot {
	return g.turn
}

// ChangeTurn hands the turn to the other slot.
func (g *Game) ChangeTurn() {
	g.turn = g.turn.Other()
}

// Fleet returns the slot's placement as submitted.
func (g *Game) Fleet(slot Slot) []core.ShipSpec {
	g.mustSlot(slot)
	specs := make([]core.ShipSpec, 0, len(g.fleets[slot]))
	for _, ship := range g.fleets[slot] {
		specs = append(specs, ship.Spec())
	}
	return specs
}

// AliveShips returns how many ships of the slot are still afloat.
func (g *Game) AliveShips(slot Slot) int {
	g.mustSlot(slot)
	return len(g.alive[slot])
}

// ShotsFired returns how many attacks the slot has made.
func (g *Game) ShotsFired(slot Slot) int {
	g.mustSlot(slot)
	return g.shots[slot]
}
