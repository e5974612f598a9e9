package game

import (
	"time"

	"light-cycles/internal/config"
)

// Cycle is one light cycle. It is created once per match, mutated every tick
// by its controller and the resolver, and kept (dead) until the match ends.
type Cycle struct {
	ID    int
	Name  string
	Color string

	// Position is continuous; the occupied cell is its floor.
	X, Y    float64
	Heading Heading

	Alive        bool
	Shielded     bool
	ShieldExpiry time.Duration // Simulation time the shield lapses after

	Control ControlSource

	// Bookkeeping for the render feed and reports
	DiedAt   uint64  // Tick of death, 0 while alive
	Distance float64 // Units travelled
	Pickups  int     // Shields collected
}

// NewCycle creates a live cycle at its configured start.
func NewCycle(id int, p config.PlayerConfig, control ControlSource) *Cycle {
	return &Cycle{
		ID:      id,
		Name:    p.Name,
		Color:   p.Color,
		X:       p.StartX,
		Y:       p.StartY,
		Heading: Heading(p.Heading),
		Alive:   true,
		Control: control,
	}
}

// SetHeading applies a heading change request. Reversals are silently
// ignored; requesting the current heading is an accepted no-op.
// Returns true if the request was accepted.
func (c *Cycle) SetHeading(h Heading) bool {
	if !h.Valid() || IsReversal(c.Heading, h) {
		return false
	}
	c.Heading = h
	return true
}

// TickShield clears the shield once now has passed its expiry.
// Returns true if the shield lapsed on this call.
func (c *Cycle) TickShield(now time.Duration) bool {
	if c.Shielded && now > c.ShieldExpiry {
		c.Shielded = false
		return true
	}
	return false
}

// GrantShield shields the cycle until now+d. A re-grant restarts the timer
// rather than extending it.
func (c *Cycle) GrantShield(now, d time.Duration) {
	c.Shielded = true
	c.ShieldExpiry = now + d
}

// ShieldRemaining returns how much immunity is left at now.
func (c *Cycle) ShieldRemaining(now time.Duration) time.Duration {
	if !c.Shielded || now >= c.ShieldExpiry {
		return 0
	}
	return c.ShieldExpiry - now
}

// IsAI reports whether the AI drives this cycle.
func (c *Cycle) IsAI() bool {
	return c.Control != nil && c.Control.Kind() == ControlAI
}

// Cell returns the grid cell under the cycle.
func (c *Cycle) Cell() (int, int) {
	return cellOf(c.X, c.Y)
}

// ToSnapshot copies the cycle into an immutable value for rendering.
func (c *Cycle) ToSnapshot(now time.Duration) CycleSnapshot {
	return CycleSnapshot{
		ID:              c.ID,
		Name:            c.Name,
		Color:           c.Color,
		X:               c.X,
		Y:               c.Y,
		Heading:         c.Heading,
		Alive:           c.Alive,
		Shielded:        c.Shielded,
		ShieldRemaining: c.ShieldRemaining(now),
		AI:              c.IsAI(),
		Distance:        c.Distance,
		Pickups:         c.Pickups,
	}
}
