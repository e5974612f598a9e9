// Package spatial provides the occupancy raster the collision engine tests
// every swept sample against.
//
// The grid is a packed bitset in row-major order (bits[(y*width+x)/64]) so a
// full 800x600 field costs 60KB and a lookup is a shift and a mask.
package spatial

import (
	"math"
	"math/bits"
)

// OccupancyGrid records every cell ever painted by a trail.
// Cells only go from free to occupied; Reset is the only way back.
type OccupancyGrid struct {
	width, height int
	bits          []uint64
	occupied      int
}

// NewOccupancyGrid creates an empty grid matching the field resolution.
// Non-positive dimensions yield a 1x1 grid so lookups never panic.
func NewOccupancyGrid(width, height int) *OccupancyGrid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &OccupancyGrid{
		width:  width,
		height: height,
		bits:   make([]uint64, (width*height+63)/64),
	}
}

// CellOf maps a continuous coordinate to the cell that contains it.
func CellOf(x, y float64) (int, int) {
	return int(math.Floor(x)), int(math.Floor(y))
}

// InBounds reports whether the cell lies inside the field.
func (g *OccupancyGrid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Occupied reports whether an in-bounds cell has been painted.
// Out-of-bounds cells report false; use Blocked for collision tests.
func (g *OccupancyGrid) Occupied(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	idx := y*g.width + x
	return g.bits[idx>>6]&(1<<(uint(idx)&63)) != 0
}

// Blocked reports whether entering the cell is a collision: either it is
// outside the field or it already carries trail.
func (g *OccupancyGrid) Blocked(x, y int) bool {
	return !g.InBounds(x, y) || g.Occupied(x, y)
}

// Mark paints a cell. Returns true if the cell was previously free.
// Out-of-bounds cells are ignored.
func (g *OccupancyGrid) Mark(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	idx := y*g.width + x
	word, mask := idx>>6, uint64(1)<<(uint(idx)&63)
	if g.bits[word]&mask != 0 {
		return false
	}
	g.bits[word] |= mask
	g.occupied++
	return true
}

// MarkLine paints the inclusive raster line between two cells (Bresenham).
// Returns the number of newly painted cells.
func (g *OccupancyGrid) MarkLine(x0, y0, x1, y1 int) int {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	painted := 0
	err := dx + dy
	for {
		if g.Mark(x0, y0) {
			painted++
		}
		if x0 == x1 && y0 == y1 {
			return painted
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Reset clears every cell without reallocating.
func (g *OccupancyGrid) Reset() {
	for i := range g.bits {
		g.bits[i] = 0
	}
	g.occupied = 0
}

// Count returns the number of occupied cells.
func (g *OccupancyGrid) Count() int {
	return g.occupied
}

// Recount recomputes the occupied total from the raw bits.
// Used by tests to check that Count stays in sync.
func (g *OccupancyGrid) Recount() int {
	n := 0
	for _, w := range g.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Stats returns grid statistics for debugging/profiling.
func (g *OccupancyGrid) Stats() GridStats {
	total := g.width * g.height
	return GridStats{
		TotalCells:    total,
		OccupiedCells: g.occupied,
		FillRatio:     float64(g.occupied) / float64(total),
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells    int
	OccupiedCells int
	FillRatio     float64
}

// Dimensions returns the grid dimensions.
func (g *OccupancyGrid) Dimensions() (width, height int) {
	return g.width, g.height
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
