package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"light-cycles/internal/config"
	"light-cycles/internal/game/spatial"
)

var (
	// ErrMatchFinished is returned by Step once an outcome is decided.
	ErrMatchFinished = errors.New("match finished")
	// ErrUnknownCycle is returned when an input names no cycle.
	ErrUnknownCycle = errors.New("unknown cycle")
)

// SimClock is simulation time: tick count times a fixed tick duration.
// Every timing rule (shield expiry, spawn interval) reads this clock, never
// the wall clock.
type SimClock struct {
	tick uint64
	step time.Duration
}

// NewSimClock creates a clock advancing step per tick.
func NewSimClock(step time.Duration) SimClock {
	return SimClock{step: step}
}

// Advance moves to the next tick and returns the new time.
func (c *SimClock) Advance() time.Duration {
	c.tick++
	return c.Now()
}

// Now returns the current simulation time.
func (c SimClock) Now() time.Duration {
	return time.Duration(c.tick) * c.step
}

// Tick returns the number of completed ticks.
func (c SimClock) Tick() uint64 {
	return c.tick
}

// MatchState is the round state machine: InProgress until fewer than two
// cycles are alive, then Finished for good.
type MatchState int

const (
	StateInProgress MatchState = iota
	StateFinished
)

func (s MatchState) String() string {
	if s == StateFinished {
		return "finished"
	}
	return "in_progress"
}

// Outcome is the result of a match.
type Outcome struct {
	State    MatchState
	WinnerID int // -1 unless exactly one cycle survived
	Tie      bool
	Tick     uint64 // Tick the match ended on
}

// Finished reports whether the match is over.
func (o Outcome) Finished() bool {
	return o.State == StateFinished
}

// TickReport is everything that happened during one Step.
type TickReport struct {
	Tick    uint64
	Now     time.Duration
	Spawn   SpawnResult
	Pickup  *Pickup // Set when Spawn is SpawnPlaced
	Expired []int   // Cycles whose shield lapsed
	Turns   []HeadingChange
	Saves   []int // Cycles that collided but survived on a shield
	Crashes []Crash
	Grabbed []int // Cycles that picked up a shield
	Outcome Outcome
}

// HeadingChange records an accepted turn.
type HeadingChange struct {
	CycleID int     `json:"cycleId"`
	From    Heading `json:"from"`
	To      Heading `json:"to"`
}

// Match is one round: the grid, the cycles, the shield subsystem and the
// clock. It is single threaded; the Engine serializes access to it.
type Match struct {
	ID  string
	cfg config.MatchConfig

	grid     *spatial.OccupancyGrid
	cycles   []*Cycle
	resolver *Resolver
	shields  *ShieldSubsystem
	clock    SimClock
	outcome  Outcome
}

// NewMatch validates cfg and sets up a fresh round. A zero seed seeds from
// the wall clock. Each AI draws from its own stream derived from the seed so
// shield spawns and AI choices do not perturb each other.
func NewMatch(cfg config.MatchConfig) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	grid := spatial.NewOccupancyGrid(cfg.Field.Width, cfg.Field.Height)
	m := &Match{
		ID:       uuid.NewString(),
		cfg:      cfg,
		grid:     grid,
		resolver: NewResolver(grid, cfg.Cycle.Speed),
		shields:  NewShieldSubsystem(cfg.Shield, cfg.Field, cfg.Cycle.Radius, rand.New(rand.NewSource(cfg.Seed))),
		clock:    NewSimClock(cfg.TickDuration()),
		outcome:  Outcome{State: StateInProgress, WinnerID: -1},
	}

	m.cycles = make([]*Cycle, len(cfg.Players))
	for i, p := range cfg.Players {
		var ai *AIController
		if p.AI {
			ai = NewAIController(cfg.AI, rand.New(rand.NewSource(cfg.Seed+int64(i)+1)))
		}
		c := NewCycle(i, p, newControl(p, ai))
		m.cycles[i] = c
		// The start cell is trail from tick zero.
		grid.Mark(c.Cell())
	}
	return m, nil
}

// Step advances the match by one tick. inputs is indexed by cycle ID;
// missing entries count as no controls held.
//
// Phases run in a fixed order: shield spawn, shield decay, heading
// decisions, movement and collision, shield pickup, end check.
func (m *Match) Step(inputs []Input) (TickReport, error) {
	if m.outcome.Finished() {
		return TickReport{Tick: m.clock.Tick(), Now: m.clock.Now(), Outcome: m.outcome}, ErrMatchFinished
	}

	now := m.clock.Advance()
	rep := TickReport{Tick: m.clock.Tick(), Now: now}

	rep.Spawn = m.shields.MaybeSpawn(now, m.grid)
	if rep.Spawn == SpawnPlaced {
		p, _ := m.shields.Active()
		rep.Pickup = &p
	}

	for _, c := range m.cycles {
		if c.TickShield(now) {
			rep.Expired = append(rep.Expired, c.ID)
		}
	}

	for _, c := range m.cycles {
		if !c.Alive {
			continue
		}
		var in Input
		if c.ID < len(inputs) {
			in = inputs[c.ID]
		}
		before := c.Heading
		c.Control.Decide(c, in, m.grid)
		if c.Heading != before {
			rep.Turns = append(rep.Turns, HeadingChange{CycleID: c.ID, From: before, To: c.Heading})
		}
	}

	for _, c := range m.cycles {
		if !c.Alive {
			continue
		}
		res := m.resolver.Advance(c, m.cycles)
		if res.ShieldSaved {
			rep.Saves = append(rep.Saves, c.ID)
		}
		for _, cr := range res.Crashes {
			m.cycles[cr.CycleID].DiedAt = rep.Tick
			rep.Crashes = append(rep.Crashes, cr)
		}
	}

	for _, c := range m.cycles {
		if m.shields.CheckPickup(c, now) {
			rep.Grabbed = append(rep.Grabbed, c.ID)
		}
	}

	m.checkEnd(rep.Tick)
	rep.Outcome = m.outcome
	return rep, nil
}

func (m *Match) checkEnd(tick uint64) {
	alive, last := 0, -1
	for _, c := range m.cycles {
		if c.Alive {
			alive++
			last = c.ID
		}
	}
	if alive >= 2 {
		return
	}
	m.outcome.State = StateFinished
	m.outcome.Tick = tick
	if alive == 1 {
		m.outcome.WinnerID = last
	} else {
		m.outcome.Tie = true
	}
}

// Outcome returns the current match outcome.
func (m *Match) Outcome() Outcome {
	return m.outcome
}

// Cycles returns the roster in resolution order.
func (m *Match) Cycles() []*Cycle {
	return m.cycles
}

// Cycle returns the cycle with id.
func (m *Match) Cycle(id int) (*Cycle, error) {
	if id < 0 || id >= len(m.cycles) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCycle, id)
	}
	return m.cycles[id], nil
}

// Grid returns the occupancy grid.
func (m *Match) Grid() *spatial.OccupancyGrid {
	return m.grid
}

// Shields returns the shield subsystem.
func (m *Match) Shields() *ShieldSubsystem {
	return m.shields
}

// Trails returns the merged trail segments. The slice is owned by the match.
func (m *Match) Trails() []TrailSegment {
	return m.resolver.Trails()
}

// Now returns the current simulation time.
func (m *Match) Now() time.Duration {
	return m.clock.Now()
}

// Tick returns the number of completed ticks.
func (m *Match) Tick() uint64 {
	return m.clock.Tick()
}

// Config returns the configuration the match was built with, including the
// resolved seed.
func (m *Match) Config() config.MatchConfig {
	return m.cfg
}

// AliveCount returns the number of live cycles.
func (m *Match) AliveCount() int {
	n := 0
	for _, c := range m.cycles {
		if c.Alive {
			n++
		}
	}
	return n
}

// WinnerName returns the label of the winner, or "" for a tie or an
// unfinished match.
func (m *Match) WinnerName() string {
	if !m.outcome.Finished() || m.outcome.WinnerID < 0 {
		return ""
	}
	return m.cycles[m.outcome.WinnerID].Name
}
