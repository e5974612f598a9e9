package game

import (
	"testing"

	"light-cycles/internal/config"
	"light-cycles/internal/game/spatial"
)

func cycleAt(id int, x, y float64, h Heading) *Cycle {
	return NewCycle(id, config.PlayerConfig{Name: "C", StartX: x, StartY: y, Heading: int(h)}, &HumanControl{})
}

func TestSweepHitsEveryCell(t *testing.T) {
	grid := spatial.NewOccupancyGrid(20, 20)
	grid.Mark(5, 5)

	res := Sweep(grid, 2, 5, 7, 5)
	if !res.Collided || res.Cause != CrashTrail {
		t.Fatalf("Expected trail collision, got %+v", res)
	}
	if res.HitX != 5 || res.HitY != 5 {
		t.Errorf("Expected hit at (5,5), got (%d,%d)", res.HitX, res.HitY)
	}
	if res.Samples != 3 {
		t.Errorf("Expected to stop after 3 samples, got %d", res.Samples)
	}
}

func TestSweepSkipsOwnHead(t *testing.T) {
	grid := spatial.NewOccupancyGrid(20, 20)
	grid.Mark(2, 5)

	if res := Sweep(grid, 2, 5, 5, 5); res.Collided {
		t.Errorf("start cell should never be tested, got %+v", res)
	}
	// A fractional step landing back in the start cell is skipped too
	if res := Sweep(grid, 2, 5, 4.5, 5); res.Collided {
		t.Errorf("fractional step inside own cell should not collide, got %+v", res)
	}
}

func TestSweepWall(t *testing.T) {
	grid := spatial.NewOccupancyGrid(20, 20)

	tests := []struct {
		name           string
		fx, fy, tx, ty float64
		hitX, hitY     int
	}{
		{"right wall", 18, 5, 21, 5, 20, 5},
		{"left wall", 1, 5, -2, 5, -1, 5},
		{"top wall", 5, 0, 5, -3, 5, -1},
		{"bottom wall", 5, 19, 5, 22, 5, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Sweep(grid, tt.fx, tt.fy, tt.tx, tt.ty)
			if !res.Collided || res.Cause != CrashWall {
				t.Fatalf("Expected wall collision, got %+v", res)
			}
			if res.HitX != tt.hitX || res.HitY != tt.hitY {
				t.Errorf("Expected hit at (%d,%d), got (%d,%d)", tt.hitX, tt.hitY, res.HitX, res.HitY)
			}
		})
	}
}

// TestSweepNoTunnelling moves fast enough to jump a one-cell wall if only
// the endpoint were tested.
func TestSweepNoTunnelling(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	grid.MarkLine(50, 0, 50, 99)

	res := Sweep(grid, 40, 10, 60, 10)
	if !res.Collided || res.HitX != 50 {
		t.Errorf("20 unit move should hit the wall at x=50, got %+v", res)
	}
}

// TestSweepIsPure checks collision determinism: the result depends only on
// the path and the grid, and the grid is untouched.
func TestSweepIsPure(t *testing.T) {
	grid := spatial.NewOccupancyGrid(50, 50)
	grid.MarkLine(10, 10, 10, 40)
	before := grid.Count()

	first := Sweep(grid, 5, 20, 12, 20)
	second := Sweep(grid, 5, 20, 12, 20)
	if first != second {
		t.Errorf("same inputs gave %+v then %+v", first, second)
	}
	if grid.Count() != before {
		t.Errorf("Sweep must not paint cells: %d -> %d", before, grid.Count())
	}
}

func TestAdvanceUnshieldedDiesInPlace(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	grid.MarkLine(52, 0, 52, 99)
	r := NewResolver(grid, 3)
	c := cycleAt(0, 50, 50, HeadingRight)

	res := r.Advance(c, []*Cycle{c})
	if c.Alive {
		t.Fatal("cycle should die on the trail")
	}
	if res.Moved || c.X != 50 {
		t.Errorf("dead cycle should not move, at %v", c.X)
	}
	if len(res.Crashes) != 1 || res.Crashes[0].Cause != CrashTrail {
		t.Errorf("Expected one trail crash, got %+v", res.Crashes)
	}
}

// TestAdvanceShieldedPassesThrough checks shield immunity: a collision that
// would kill an unshielded cycle is survived and movement proceeds.
func TestAdvanceShieldedPassesThrough(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	grid.MarkLine(52, 0, 52, 99)
	r := NewResolver(grid, 3)
	c := cycleAt(0, 50, 50, HeadingRight)
	c.GrantShield(0, 1e9)

	res := r.Advance(c, []*Cycle{c})
	if !c.Alive {
		t.Fatal("shielded cycle should survive")
	}
	if !res.ShieldSaved || !res.Moved {
		t.Errorf("Expected a shield save and a move, got %+v", res)
	}
	if c.X != 53 {
		t.Errorf("Expected x=53, got %v", c.X)
	}
	if !grid.Occupied(51, 50) || !grid.Occupied(53, 50) {
		t.Error("free cells along the path should still be painted")
	}
}

func TestAdvanceCommitsInclusiveTrail(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	r := NewResolver(grid, 3)
	c := cycleAt(0, 10, 10, HeadingDown)

	r.Advance(c, []*Cycle{c})
	for y := 10; y <= 13; y++ {
		if !grid.Occupied(10, y) {
			t.Errorf("cell (10,%d) should be painted", y)
		}
	}
	if c.Y != 13 || c.Distance != 3 {
		t.Errorf("Expected y=13 distance=3, got y=%v distance=%v", c.Y, c.Distance)
	}
}

// TestAdvanceOrderMatters: trail committed by an earlier cycle is visible
// to a later cycle in the same tick.
func TestAdvanceOrderMatters(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	r := NewResolver(grid, 3)
	a := cycleAt(0, 20, 48, HeadingDown) // paints (20,48..51)
	b := cycleAt(1, 18, 50, HeadingRight)
	cycles := []*Cycle{a, b}
	grid.Mark(a.Cell())
	grid.Mark(b.Cell())

	r.Advance(a, cycles)
	r.Advance(b, cycles)

	if !a.Alive {
		t.Error("first cycle should survive")
	}
	if b.Alive {
		t.Error("second cycle should hit the trail painted this tick")
	}
}

func TestAdvanceHeadOnKillsBoth(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	r := NewResolver(grid, 3)
	a := cycleAt(0, 49, 50, HeadingRight)
	b := cycleAt(1, 52, 50, HeadingLeft)
	cycles := []*Cycle{a, b}
	grid.Mark(a.Cell())
	grid.Mark(b.Cell())

	res := r.Advance(a, cycles)
	if a.Alive || b.Alive {
		t.Fatalf("head-on should kill both, alive a=%v b=%v", a.Alive, b.Alive)
	}
	if len(res.Crashes) != 2 {
		t.Fatalf("Expected 2 crashes, got %+v", res.Crashes)
	}
	for _, cr := range res.Crashes {
		if cr.Cause != CrashHeadOn {
			t.Errorf("Expected head_on cause, got %q", cr.Cause)
		}
	}
	if r.Advance(b, cycles).Moved {
		t.Error("dead cycle should be skipped")
	}
}

func TestAdvanceHeadOnShieldedOtherSurvives(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	r := NewResolver(grid, 3)
	a := cycleAt(0, 49, 50, HeadingRight)
	b := cycleAt(1, 52, 50, HeadingLeft)
	b.GrantShield(0, 1e9)
	cycles := []*Cycle{a, b}
	grid.Mark(a.Cell())
	grid.Mark(b.Cell())

	r.Advance(a, cycles)
	if a.Alive {
		t.Error("unshielded rider should die")
	}
	if !b.Alive {
		t.Error("shielded rider should survive the head-on")
	}
}

func TestTrailSegmentsMerge(t *testing.T) {
	grid := spatial.NewOccupancyGrid(100, 100)
	r := NewResolver(grid, 3)
	c := cycleAt(0, 10, 10, HeadingRight)
	cycles := []*Cycle{c}

	for i := 0; i < 3; i++ {
		r.Advance(c, cycles)
	}
	if n := len(r.Trails()); n != 1 {
		t.Fatalf("straight run should be one segment, got %d", n)
	}
	seg := r.Trails()[0]
	if seg.X0 != 10 || seg.X1 != 19 {
		t.Errorf("Expected segment 10->19, got %v->%v", seg.X0, seg.X1)
	}

	c.SetHeading(HeadingDown)
	r.Advance(c, cycles)
	r.Advance(c, cycles)
	if n := len(r.Trails()); n != 2 {
		t.Errorf("a turn should open a second segment, got %d", n)
	}
}
