package game

import (
	"sync/atomic"
	"time"
)

// CycleSnapshot is an immutable copy of cycle state for rendering.
// Uses value types (not pointers) to ensure immutability.
type CycleSnapshot struct {
	ID              int           `json:"id" msgpack:"id"`
	Name            string        `json:"name" msgpack:"name"`
	Color           string        `json:"color" msgpack:"color"`
	X               float64       `json:"x" msgpack:"x"`
	Y               float64       `json:"y" msgpack:"y"`
	Heading         Heading       `json:"heading" msgpack:"heading"`
	Alive           bool          `json:"alive" msgpack:"alive"`
	Shielded        bool          `json:"shielded" msgpack:"shielded"`
	ShieldRemaining time.Duration `json:"shieldRemainingNs" msgpack:"shieldRemainingNs"`
	AI              bool          `json:"ai" msgpack:"ai"`
	Distance        float64       `json:"distance" msgpack:"distance"`
	Pickups         int           `json:"pickups" msgpack:"pickups"`
}

// PickupSnapshot is the shield pickup on the field.
type PickupSnapshot struct {
	Active bool    `json:"active" msgpack:"active"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
}

// OutcomeSnapshot is the match state as shown on the game-over screen.
type OutcomeSnapshot struct {
	State    string `json:"state" msgpack:"state"`
	WinnerID int    `json:"winnerId" msgpack:"winnerId"`
	Winner   string `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Tie      bool   `json:"tie" msgpack:"tie"`
	Tick     uint64 `json:"tick,omitempty" msgpack:"tick,omitempty"`
}

// Finished reports whether the snapshot shows a decided match.
func (o OutcomeSnapshot) Finished() bool {
	return o.State == StateFinished.String()
}

// Label returns the game-over banner text.
func (o OutcomeSnapshot) Label() string {
	switch {
	case !o.Finished():
		return ""
	case o.Tie:
		return "It's a Tie!"
	default:
		return o.Winner + " Wins!"
	}
}

// GameSnapshot is an immutable frame of the simulation.
// Produced once per tick by the engine and read by the API, the renderer
// and the clients without taking the engine lock.
type GameSnapshot struct {
	Sequence  uint64    `json:"sequence" msgpack:"sequence"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`

	MatchID     string        `json:"matchId" msgpack:"matchId"`
	Mode        string        `json:"mode" msgpack:"mode"`
	TickNumber  uint64        `json:"tick" msgpack:"tick"`
	SimTime     time.Duration `json:"simTimeNs" msgpack:"simTimeNs"`
	Width       int           `json:"width" msgpack:"width"`
	Height      int           `json:"height" msgpack:"height"`
	CycleRadius float64       `json:"cycleRadius" msgpack:"cycleRadius"`

	Cycles  []CycleSnapshot `json:"cycles" msgpack:"cycles"`
	Trails  []TrailSegment  `json:"trails" msgpack:"trails"`
	Pickup  PickupSnapshot  `json:"pickup" msgpack:"pickup"`
	Outcome OutcomeSnapshot `json:"outcome" msgpack:"outcome"`

	AliveCount    int     `json:"aliveCount" msgpack:"aliveCount"`
	OccupiedCells int     `json:"occupiedCells" msgpack:"occupiedCells"`
	FillRatio     float64 `json:"fillRatio" msgpack:"fillRatio"`
}

// SnapshotPool hands finished frames from the tick goroutine to readers.
//
// Every frame is a fresh allocation published through an atomic pointer,
// so a reader may hold a snapshot for as long as it likes while the engine
// keeps ticking. Slice capacities are carried over from the previous frame.
type SnapshotPool struct {
	current  atomic.Pointer[GameSnapshot]
	sequence atomic.Uint64
}

// NewSnapshotPool creates an empty pool.
func NewSnapshotPool() *SnapshotPool {
	return &SnapshotPool{}
}

// AcquireWrite returns a new frame to fill (producer only, called from the
// game tick).
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	cyclesCap, trailsCap := 2, 64
	if prev := p.current.Load(); prev != nil {
		cyclesCap, trailsCap = cap(prev.Cycles), cap(prev.Trails)
	}
	return &GameSnapshot{
		Sequence:  p.sequence.Add(1),
		Timestamp: time.Now(),
		Cycles:    make([]CycleSnapshot, 0, cyclesCap),
		Trails:    make([]TrailSegment, 0, trailsCap),
	}
}

// PublishWrite makes snap the latest frame. snap must not be mutated after.
func (p *SnapshotPool) PublishWrite(snap *GameSnapshot) {
	p.current.Store(snap)
}

// AcquireRead gets the latest complete snapshot.
// Returns nil if no snapshot has been published yet.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	return p.current.Load()
}

// BuildSnapshot fills snap from the match state.
func (m *Match) BuildSnapshot(snap *GameSnapshot) {
	now := m.clock.Now()
	stats := m.grid.Stats()

	snap.MatchID = m.ID
	snap.Mode = string(m.cfg.Mode)
	snap.TickNumber = m.clock.Tick()
	snap.SimTime = now
	snap.Width = m.cfg.Field.Width
	snap.Height = m.cfg.Field.Height
	snap.CycleRadius = m.cfg.Cycle.Radius
	snap.OccupiedCells = stats.OccupiedCells
	snap.FillRatio = stats.FillRatio

	for _, c := range m.cycles {
		snap.Cycles = append(snap.Cycles, c.ToSnapshot(now))
		if c.Alive {
			snap.AliveCount++
		}
	}
	snap.Trails = append(snap.Trails, m.resolver.Trails()...)

	if p, ok := m.shields.Active(); ok {
		snap.Pickup = PickupSnapshot{Active: true, X: p.X, Y: p.Y, Radius: m.cfg.Shield.PickupRadius}
	}

	snap.Outcome = OutcomeSnapshot{
		State:    m.outcome.State.String(),
		WinnerID: m.outcome.WinnerID,
		Winner:   m.WinnerName(),
		Tie:      m.outcome.Tie,
		Tick:     m.outcome.Tick,
	}
}
