package game

import "github.com/broadside/server/pkg/core"

// Default grid dimensions.
const (
	DefaultWidth  = 10
	DefaultHeight = 10
)

// CellState is the three-way result of looking up a cell.
type CellState uint8

const (
	// CellEmpty is an available cell no ship occupies.
	CellEmpty CellState = iota
	// CellShip is an available cell occupied by a ship.
	CellShip
	// CellRemoved is a cell that was already attacked or cleared, or lies outside the grid.
	CellRemoved
)

// Battlefield is one player's grid. Cells are stored column-major (x*height + y) so
// AvailableCells comes out x-major without sorting.
type Battlefield struct {
	width     int
	height    int
	ships     []*Ship
	available []bool
	remaining int
}

// NewBattlefield lays the ships out on a width×height grid. Every cell starts available.
// Ship cells falling outside the grid are ignored; use ValidatePlacement beforehand.
func NewBattlefield(width, height int, ships []*Ship) *Battlefield {
	b := &Battlefield{
		width:     width,
		height:    height,
		ships:     make([]*Ship, width*height),
		available: make([]bool, width*height),
		remaining: width * height,
	}
	for i := range b.available {
		b.available[i] = true
	}
	for _, ship := range ships {
		for _, p := range ship.Cells() {
			if b.inBounds(p) {
				b.ships[b.index(p)] = ship
			}
		}
	}
	return b
}

func (b *Battlefield) Width() int  { return b.width }
func (b *Battlefield) Height() int { return b.height }

func (b *Battlefield) inBounds(p core.Position) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

func (b *Battlefield) index(p core.Position) int {
	return p.X*b.height + p.Y
}

// Cell returns the ship on p, if any, and the state of the cell.
func (b *Battlefield) Cell(p core.Position) (*Ship, CellState) {
	if !b.inBounds(p) || !b.available[b.index(p)] {
		return nil, CellRemoved
	}
	if ship := b.ships[b.index(p)]; ship != nil {
		return ship, CellShip
	}
	return nil, CellEmpty
}

// IsAvailable reports whether p is inside the grid and not yet attacked.
func (b *Battlefield) IsAvailable(p core.Position) bool {
	return b.inBounds(p) && b.available[b.index(p)]
}

// AvailableCells lists every cell not yet attacked, x-major then y.
func (b *Battlefield) AvailableCells() []core.Position {
	cells := make([]core.Position, 0, b.remaining)
	for x := 0; x < b.width; x++ {
		for y := 0; y < b.height; y++ {
			if b.available[x*b.height+y] {
				cells = append(cells, core.Position{X: x, Y: y})
			}
		}
	}
	return cells
}

// AvailableCount is len(AvailableCells()) without the allocation.
func (b *Battlefield) AvailableCount() int {
	return b.remaining
}

// RemoveCell marks p as attacked and reports whether it was available.
// Removed cells never become available again.
func (b *Battlefield) RemoveCell(p core.Position) bool {
	if !b.IsAvailable(p) {
		return false
	}
	b.available[b.index(p)] = false
	b.remaining--
	return true
}
