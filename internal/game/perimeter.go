package game

import "github.com/broadside/server/pkg/core"

// perimeter returns the one-cell halo around a ship clipped to the grid: both side
// lines along the ship with one cell of overhang at each end, then the two end caps.
func perimeter(s *Ship, width, height int) []core.Position {
	if s.direction == Vertical {
		return halo(s.origin.Y, s.origin.X, s.length, height, width, func(along, across int) core.Position {
			return core.Position{X: across, Y: along}
		})
	}
	return halo(s.origin.X, s.origin.Y, s.length, width, height, func(along, across int) core.Position {
		return core.Position{X: along, Y: across}
	})
}

// halo works in a frame where the ship lies on the "along" axis at a fixed "across" coordinate.
// at maps frame coordinates back to grid positions.
func halo(along, across, length, alongSize, acrossSize int, at func(along, across int) core.Position) []core.Position {
	start, end := 0, length
	if along-1 >= 0 {
		start = -1
	}
	if along+length < alongSize {
		end = length + 1
	}

	cells := make([]core.Position, 0, 2*(length+2)+2)
	for i := start; i < end; i++ {
		if across-1 >= 0 {
			cells = append(cells, at(along+i, across-1))
		}
		if across+1 < acrossSize {
			cells = append(cells, at(along+i, across+1))
		}
	}

	if along-1 >= 0 {
		cells = append(cells, at(along-1, across))
	}
	if along+length < alongSize {
		cells = append(cells, at(along+length, across))
	}
	return cells
}

// clearPerimeter removes the halo of a killed ship from the battlefield and returns the
// cells that were still available. Cells already removed are skipped.
func clearPerimeter(s *Ship, b *Battlefield) []core.Position {
	var cleared []core.Position
	for _, p := range perimeter(s, b.width, b.height) {
		if b.RemoveCell(p) {
			cleared = append(cleared, p)
		}
	}
	return cleared
}
