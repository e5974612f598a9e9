package game

import (
	"math"

	"light-cycles/internal/game/spatial"
)

// sweepEpsilon absorbs float noise so a 3.0000000001 unit move is 3 samples.
const sweepEpsilon = 1e-9

func cellOf(x, y float64) (int, int) {
	return spatial.CellOf(x, y)
}

// CrashCause tells why a sweep collided.
type CrashCause string

const (
	CrashNone   CrashCause = ""
	CrashWall   CrashCause = "wall"
	CrashTrail  CrashCause = "trail"
	CrashHeadOn CrashCause = "head_on"
)

// SweepResult is the outcome of testing one movement segment.
type SweepResult struct {
	Collided   bool
	Cause      CrashCause
	HitX, HitY int // First blocked cell
	Samples    int // Samples tested before stopping
}

// Sweep tests the path from (fromX, fromY) to (toX, toY) against the grid.
//
// The path is split into n = ceil(length) equal steps and the cell under
// every step i = 1..n is tested, so no cell can be tunnelled through at any
// speed. The start cell (the cycle's own head) is never tested, even when a
// fractional step lands back inside it.
// Sweep only reads the grid.
func Sweep(grid *spatial.OccupancyGrid, fromX, fromY, toX, toY float64) SweepResult {
	dx, dy := toX-fromX, toY-fromY
	n := int(math.Ceil(math.Hypot(dx, dy) - sweepEpsilon))

	startX, startY := cellOf(fromX, fromY)
	var res SweepResult
	for i := 1; i <= n; i++ {
		// Multiply before dividing so integral moves land on exact cells.
		sx := fromX + dx*float64(i)/float64(n)
		sy := fromY + dy*float64(i)/float64(n)
		cx, cy := cellOf(sx, sy)
		res.Samples = i
		if cx == startX && cy == startY {
			continue
		}

		if !grid.InBounds(cx, cy) {
			res.Collided, res.Cause, res.HitX, res.HitY = true, CrashWall, cx, cy
			return res
		}
		if grid.Occupied(cx, cy) {
			res.Collided, res.Cause, res.HitX, res.HitY = true, CrashTrail, cx, cy
			return res
		}
	}
	return res
}

// TrailSegment is one straight run of a cycle's trail in field units.
// Consecutive moves in the same direction are merged into one segment.
type TrailSegment struct {
	CycleID int     `json:"cycleId" msgpack:"cycleId"`
	X0      float64 `json:"x0" msgpack:"x0"`
	Y0      float64 `json:"y0" msgpack:"y0"`
	X1      float64 `json:"x1" msgpack:"x1"`
	Y1      float64 `json:"y1" msgpack:"y1"`
}

// Crash records one cycle death.
type Crash struct {
	CycleID int        `json:"cycleId"`
	Cause   CrashCause `json:"cause"`
	X       int        `json:"x"`
	Y       int        `json:"y"`
	OtherID int        `json:"otherId,omitempty"` // Other rider in a head-on
}

// Resolver moves cycles one at a time, kills those whose sweep collides and
// paints the trail of those that survive. Cycles are resolved in roster
// order, so trail committed by an earlier cycle blocks a later one in the
// same tick.
type Resolver struct {
	grid   *spatial.OccupancyGrid
	speed  float64
	trails []TrailSegment
	// Index of each cycle's latest segment in trails
	open map[int]int
}

// NewResolver creates a resolver painting into grid.
func NewResolver(grid *spatial.OccupancyGrid, speed float64) *Resolver {
	return &Resolver{
		grid:   grid,
		speed:  speed,
		trails: make([]TrailSegment, 0, 64),
		open:   make(map[int]int),
	}
}

// MoveResult describes what happened to one cycle during Advance.
type MoveResult struct {
	Moved       bool
	ShieldSaved bool // Collided but survived
	Crashes     []Crash
}

// Advance resolves one cycle's movement for this tick.
//
// A cycle whose sweep collides dies in place unless shielded; a shielded
// cycle keeps moving and only free cells along its path are painted. If the
// first blocked cell is another live cycle's head both riders have
// collided, and each dies unless shielded.
func (r *Resolver) Advance(c *Cycle, cycles []*Cycle) MoveResult {
	var res MoveResult
	if !c.Alive {
		return res
	}

	dx, dy := c.Heading.Vector()
	toX, toY := c.X+dx*r.speed, c.Y+dy*r.speed
	sweep := Sweep(r.grid, c.X, c.Y, toX, toY)

	if sweep.Collided {
		other := headAt(cycles, c, sweep.HitX, sweep.HitY)
		if other != nil && !other.Shielded {
			other.Alive = false
			res.Crashes = append(res.Crashes, Crash{
				CycleID: other.ID, Cause: CrashHeadOn, X: sweep.HitX, Y: sweep.HitY, OtherID: c.ID,
			})
		}

		if !c.Shielded {
			c.Alive = false
			crash := Crash{CycleID: c.ID, Cause: sweep.Cause, X: sweep.HitX, Y: sweep.HitY}
			if other != nil {
				crash.Cause, crash.OtherID = CrashHeadOn, other.ID
			}
			res.Crashes = append(res.Crashes, crash)
			return res
		}
		res.ShieldSaved = true
	}

	fromX, fromY := cellOf(c.X, c.Y)
	endX, endY := cellOf(toX, toY)
	r.grid.MarkLine(fromX, fromY, endX, endY)
	r.extendTrail(c, toX, toY)

	c.X, c.Y = toX, toY
	c.Distance += r.speed
	res.Moved = true
	return res
}

// headAt returns the live cycle other than self whose head sits in (x, y).
func headAt(cycles []*Cycle, self *Cycle, x, y int) *Cycle {
	for _, o := range cycles {
		if o == self || !o.Alive {
			continue
		}
		if ox, oy := o.Cell(); ox == x && oy == y {
			return o
		}
	}
	return nil
}

func (r *Resolver) extendTrail(c *Cycle, toX, toY float64) {
	if idx, ok := r.open[c.ID]; ok && idx >= 0 {
		seg := &r.trails[idx]
		if seg.X1 == c.X && seg.Y1 == c.Y && collinear(seg, toX, toY) {
			seg.X1, seg.Y1 = toX, toY
			return
		}
	}
	r.trails = append(r.trails, TrailSegment{CycleID: c.ID, X0: c.X, Y0: c.Y, X1: toX, Y1: toY})
	r.open[c.ID] = len(r.trails) - 1
}

// collinear reports whether extending seg to (x, y) keeps it axis aligned
// in the same direction.
func collinear(seg *TrailSegment, x, y float64) bool {
	sdx, sdy := sign(seg.X1-seg.X0), sign(seg.Y1-seg.Y0)
	ndx, ndy := sign(x-seg.X1), sign(y-seg.Y1)
	return sdx == ndx && sdy == ndy
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Trails returns the merged trail segments painted so far.
// The slice is owned by the resolver; callers must copy it.
func (r *Resolver) Trails() []TrailSegment {
	return r.trails
}
