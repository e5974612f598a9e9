package game

import (
	"light-cycles/internal/config"
	"light-cycles/internal/game/spatial"
)

// Input is the per-tick snapshot of which direction controls are held for
// one cycle. It is produced by a client and consumed once by Step.
type Input struct {
	Right bool `json:"right" msgpack:"right"`
	Down  bool `json:"down" msgpack:"down"`
	Left  bool `json:"left" msgpack:"left"`
	Up    bool `json:"up" msgpack:"up"`
}

// Pressed reports whether the control for h is held.
func (in Input) Pressed(h Heading) bool {
	switch h {
	case HeadingRight:
		return in.Right
	case HeadingDown:
		return in.Down
	case HeadingLeft:
		return in.Left
	case HeadingUp:
		return in.Up
	}
	return false
}

// Any reports whether any control is held.
func (in Input) Any() bool {
	return in.Right || in.Down || in.Left || in.Up
}

// InputFor builds an Input holding only h.
func InputFor(h Heading) Input {
	var in Input
	switch h {
	case HeadingRight:
		in.Right = true
	case HeadingDown:
		in.Down = true
	case HeadingLeft:
		in.Left = true
	case HeadingUp:
		in.Up = true
	}
	return in
}

// ControlKind distinguishes human and AI control.
type ControlKind int

const (
	ControlHuman ControlKind = iota
	ControlAI
)

func (k ControlKind) String() string {
	if k == ControlAI {
		return "ai"
	}
	return "human"
}

// ControlSource decides a cycle's heading for the coming tick.
// Decide may only change the heading through Cycle.SetHeading.
type ControlSource interface {
	Kind() ControlKind
	Decide(c *Cycle, in Input, grid *spatial.OccupancyGrid)
}

// HumanControl applies the held controls of one key binding set.
type HumanControl struct {
	Keys string // config.KeysWASD or config.KeysArrows
}

// Kind implements ControlSource.
func (h *HumanControl) Kind() ControlKind { return ControlHuman }

// Decide applies every held control in the fixed order right, down, left,
// up. When several are held the last accepted one wins.
func (h *HumanControl) Decide(c *Cycle, in Input, _ *spatial.OccupancyGrid) {
	for _, dir := range [...]Heading{HeadingRight, HeadingDown, HeadingLeft, HeadingUp} {
		if in.Pressed(dir) {
			c.SetHeading(dir)
		}
	}
}

// AIControl lets an AIController steer the cycle. Input is ignored.
type AIControl struct {
	Controller *AIController
}

// Kind implements ControlSource.
func (a *AIControl) Kind() ControlKind { return ControlAI }

// Decide implements ControlSource.
func (a *AIControl) Decide(c *Cycle, _ Input, grid *spatial.OccupancyGrid) {
	c.SetHeading(a.Controller.Decide(c, grid))
}

// newControl builds the control source described by a roster entry.
func newControl(p config.PlayerConfig, ai *AIController) ControlSource {
	if p.AI {
		return &AIControl{Controller: ai}
	}
	return &HumanControl{Keys: p.Keys}
}
