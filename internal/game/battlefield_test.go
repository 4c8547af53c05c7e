package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadside/server/pkg/core"
)

func testFleet() []*Ship {
	return []*Ship{
		NewShip(core.ShipSpec{Position: core.Position{X: 0, Y: 0}, Length: 1, Type: core.ShipSmall}),
		NewShip(core.ShipSpec{Position: core.Position{X: 0, Y: 7}, Direction: true, Length: 3, Type: core.ShipLarge}),
		NewShip(core.ShipSpec{Position: core.Position{X: 9, Y: 0}, Direction: true, Length: 2, Type: core.ShipMedium}),
		NewShip(core.ShipSpec{Position: core.Position{X: 6, Y: 9}, Length: 4, Type: core.ShipHuge}),
	}
}

func TestBattlefield_AllCellsAvailableAfterPlacement(t *testing.T) {
	b := NewBattlefield(DefaultWidth, DefaultHeight, testFleet())

	cells := b.AvailableCells()
	require.Len(t, cells, 100)
	assert.Equal(t, 100, b.AvailableCount())
	assert.Equal(t, core.Position{X: 0, Y: 0}, cells[0])
	assert.Equal(t, core.Position{X: 4, Y: 4}, cells[4*DefaultHeight+4])
	assert.Equal(t, core.Position{X: 9, Y: 9}, cells[99])
}

func TestBattlefield_Cell(t *testing.T) {
	fleet := testFleet()
	b := NewBattlefield(DefaultWidth, DefaultHeight, fleet)

	ship, state := b.Cell(core.Position{X: 0, Y: 0})
	assert.Equal(t, CellShip, state)
	assert.Same(t, fleet[0], ship)

	ship, state = b.Cell(core.Position{X: 7, Y: 8})
	assert.Equal(t, CellEmpty, state)
	assert.Nil(t, ship)

	for i := 0; i < 3; i++ {
		ship, state = b.Cell(core.Position{X: 0, Y: 7 + i})
		assert.Equal(t, CellShip, state)
		assert.Same(t, fleet[1], ship)
	}
	for i := 0; i < 2; i++ {
		ship, _ = b.Cell(core.Position{X: 9, Y: i})
		assert.Same(t, fleet[2], ship)
	}
	for i := 0; i < 4; i++ {
		ship, _ = b.Cell(core.Position{X: 6 + i, Y: 9})
		assert.Same(t, fleet[3], ship)
	}
}

func TestBattlefield_RemoveCell(t *testing.T) {
	b := NewBattlefield(DefaultWidth, DefaultHeight, testFleet())

	assert.True(t, b.RemoveCell(core.Position{X: 7, Y: 8}))
	_, state := b.Cell(core.Position{X: 7, Y: 8})
	assert.Equal(t, CellRemoved, state)
	assert.Len(t, b.AvailableCells(), 99)

	// second removal reports the cell was already gone
	assert.False(t, b.RemoveCell(core.Position{X: 7, Y: 8}))
	assert.Len(t, b.AvailableCells(), 99)

	// ship cells stay removed too
	assert.True(t, b.RemoveCell(core.Position{X: 0, Y: 0}))
	_, state = b.Cell(core.Position{X: 0, Y: 0})
	assert.Equal(t, CellRemoved, state)
	assert.False(t, b.RemoveCell(core.Position{X: 0, Y: 0}))
	assert.Equal(t, 98, b.AvailableCount())
}

func TestBattlefield_OutOfGrid(t *testing.T) {
	b := NewBattlefield(DefaultWidth, DefaultHeight, nil)

	for _, p := range []core.Position{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 10, Y: 0}, {X: 0, Y: 10}} {
		_, state := b.Cell(p)
		assert.Equal(t, CellRemoved, state, p.String())
		assert.False(t, b.IsAvailable(p))
		assert.False(t, b.RemoveCell(p))
	}
	assert.Equal(t, 100, b.AvailableCount())
}

func TestBattlefield_AvailableCellsIsStable(t *testing.T) {
	b := NewBattlefield(DefaultWidth, DefaultHeight, testFleet())
	b.RemoveCell(core.Position{X: 3, Y: 3})

	first := b.AvailableCells()
	second := b.AvailableCells()
	assert.Equal(t, first, second)
}
