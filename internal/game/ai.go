package game

import (
	"math/rand"

	"light-cycles/internal/config"
	"light-cycles/internal/game/spatial"
)

// AIController is the rule-based opponent: it raycasts ahead, turns away
// from walls and trails, and occasionally wanders.
//
// All randomness comes from the injected source, so a seeded controller
// replays the same decisions against the same grid.
type AIController struct {
	cfg config.AIConfig
	rng *rand.Rand
}

// NewAIController creates a controller drawing from rng.
func NewAIController(cfg config.AIConfig, rng *rand.Rand) *AIController {
	return &AIController{cfg: cfg, rng: rng}
}

// IsSafe walks Lookahead unit steps from (x, y) along h and reports whether
// every probed cell is inside the field and free.
func (a *AIController) IsSafe(grid *spatial.OccupancyGrid, x, y float64, h Heading) bool {
	dx, dy := h.Vector()
	for i := 1; i <= a.cfg.Lookahead; i++ {
		cx, cy := cellOf(x+dx*float64(i), y+dy*float64(i))
		if grid.Blocked(cx, cy) {
			return false
		}
	}
	return true
}

// Decide returns the heading the cycle should take this tick.
//
// When the way ahead is blocked it turns to whichever side is safe,
// choosing by TurnBias if both are, and holds course if neither is.
// When the way ahead is clear it tries a random safe turn with
// probability WanderChance.
func (a *AIController) Decide(c *Cycle, grid *spatial.OccupancyGrid) Heading {
	current := c.Heading
	left, right := current.Left(), current.Right()

	if !a.IsSafe(grid, c.X, c.Y, current) {
		leftSafe := a.IsSafe(grid, c.X, c.Y, left)
		rightSafe := a.IsSafe(grid, c.X, c.Y, right)
		switch {
		case leftSafe && rightSafe:
			return a.pickSide(left, right)
		case leftSafe:
			return left
		case rightSafe:
			return right
		}
		return current
	}

	if a.rng.Float64() < a.cfg.WanderChance {
		turn := a.pickSide(left, right)
		if a.IsSafe(grid, c.X, c.Y, turn) {
			return turn
		}
	}
	return current
}

func (a *AIController) pickSide(left, right Heading) Heading {
	if a.rng.Float64() < a.cfg.TurnBias {
		return left
	}
	return right
}
