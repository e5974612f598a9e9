package terminal

import (
	"math"

	"light-cycles/internal/game"
)

// Cell glyphs
const (
	glyphTrail  = '█'
	glyphDead   = 'X'
	glyphPickup = '◆'
	glyphEmpty  = ' '
)

// headGlyphs are indexed by heading: right, down, left, up.
var headGlyphs = [4]rune{'>', 'v', '<', '^'}

// Cell is one character of the scaled field.
type Cell struct {
	Rune     rune
	Color    string // Hex color, empty for the default foreground
	Bold     bool
	Shielded bool
}

// Canvas is the play field scaled down to terminal cells. Many field units
// map onto one cell, so a cell shows the last thing drawn onto it: trails,
// then the pickup, then the cycles.
type Canvas struct {
	Cols, Rows int
	cells      []Cell
	sx, sy     float64 // Field units per cell
}

// Rasterize scales snap onto a cols x rows canvas.
func Rasterize(snap *game.GameSnapshot, cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	c := &Canvas{
		Cols:  cols,
		Rows:  rows,
		cells: make([]Cell, cols*rows),
		sx:    float64(snap.Width) / float64(cols),
		sy:    float64(snap.Height) / float64(rows),
	}
	for i := range c.cells {
		c.cells[i].Rune = glyphEmpty
	}

	colors := make(map[int]string, len(snap.Cycles))
	for _, cy := range snap.Cycles {
		colors[cy.ID] = cy.Color
	}
	for _, seg := range snap.Trails {
		c.line(seg.X0, seg.Y0, seg.X1, seg.Y1, Cell{Rune: glyphTrail, Color: colors[seg.CycleID]})
	}

	if p := snap.Pickup; p.Active {
		c.plot(p.X, p.Y, Cell{Rune: glyphPickup, Color: "#00c8ff", Bold: true})
	}

	for _, cy := range snap.Cycles {
		cell := Cell{Rune: glyphDead, Color: "#787878", Bold: true}
		if cy.Alive {
			cell = Cell{Rune: headGlyphs[cy.Heading&3], Color: cy.Color, Bold: true, Shielded: cy.Shielded}
		}
		c.plot(cy.X, cy.Y, cell)
	}
	return c
}

// At returns the cell at column x, row y.
func (c *Canvas) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= c.Cols || y >= c.Rows {
		return Cell{Rune: glyphEmpty}
	}
	return c.cells[y*c.Cols+x]
}

// CellOf maps a field position to its column and row, clamped to the canvas.
func (c *Canvas) CellOf(x, y float64) (int, int) {
	col := clampInt(int(x/c.sx), 0, c.Cols-1)
	row := clampInt(int(y/c.sy), 0, c.Rows-1)
	return col, row
}

func (c *Canvas) plot(x, y float64, cell Cell) {
	col, row := c.CellOf(x, y)
	c.cells[row*c.Cols+col] = cell
}

// line marks every cell the segment passes through, sampling at half a
// cell so no cell is skipped.
func (c *Canvas) line(x0, y0, x1, y1 float64, cell Cell) {
	dx, dy := x1-x0, y1-y0
	step := math.Min(c.sx, c.sy) / 2
	n := int(math.Ceil(math.Hypot(dx, dy) / step))
	for i := 0; i <= n; i++ {
		t := 0.0
		if n > 0 {
			t = float64(i) / float64(n)
		}
		c.plot(x0+dx*t, y0+dy*t, cell)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
