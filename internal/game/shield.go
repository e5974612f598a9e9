package game

import (
	"math"
	"math/rand"
	"time"

	"light-cycles/internal/config"
	"light-cycles/internal/game/spatial"
)

// Pickup is a shield waiting on the field.
type Pickup struct {
	X, Y      float64
	SpawnedAt time.Duration
}

// SpawnResult reports what MaybeSpawn did.
type SpawnResult int

const (
	SpawnNone    SpawnResult = iota // Not due, or a pickup is already out
	SpawnPlaced                     // A new pickup was placed
	SpawnStarved                    // Every attempt hit trail; skipped until the next interval
)

// ShieldSubsystem spawns at most one pickup at a time and grants immunity
// to the cycle that touches it.
type ShieldSubsystem struct {
	cfg         config.ShieldConfig
	cycleRadius float64
	width       int
	height      int
	rng         *rand.Rand

	pickup    *Pickup
	lastSpawn time.Duration

	spawned int
	starved int
	granted int
}

// NewShieldSubsystem creates the subsystem for one match. lastSpawn starts
// at zero, so the first pickup appears once SpawnInterval has elapsed.
func NewShieldSubsystem(cfg config.ShieldConfig, field config.FieldConfig, cycleRadius float64, rng *rand.Rand) *ShieldSubsystem {
	return &ShieldSubsystem{
		cfg:         cfg,
		cycleRadius: cycleRadius,
		width:       field.Width,
		height:      field.Height,
		rng:         rng,
	}
}

// MaybeSpawn places a pickup if none is active and more than SpawnInterval
// has passed since the last spawn. Positions are sampled uniformly from the
// margin-inset field and rejected if the cell holds trail; after
// MaxSpawnAttempts rejections the spawn is skipped and the interval restarts.
func (s *ShieldSubsystem) MaybeSpawn(now time.Duration, grid *spatial.OccupancyGrid) SpawnResult {
	if s.pickup != nil || now-s.lastSpawn <= s.cfg.SpawnInterval {
		return SpawnNone
	}

	m := s.cfg.SpawnMargin
	spanX := s.width - 2*m
	spanY := s.height - 2*m
	for attempt := 0; attempt < s.cfg.MaxSpawnAttempts; attempt++ {
		x := m + s.rng.Intn(spanX)
		y := m + s.rng.Intn(spanY)
		if grid.Occupied(x, y) {
			continue
		}
		s.pickup = &Pickup{X: float64(x), Y: float64(y), SpawnedAt: now}
		s.lastSpawn = now
		s.spawned++
		return SpawnPlaced
	}

	s.lastSpawn = now
	s.starved++
	return SpawnStarved
}

// CheckPickup grants the shield to c if it overlaps the active pickup.
// The pickup is consumed; the spawn interval keeps counting from the last
// spawn.
func (s *ShieldSubsystem) CheckPickup(c *Cycle, now time.Duration) bool {
	if s.pickup == nil || !c.Alive {
		return false
	}
	if math.Hypot(c.X-s.pickup.X, c.Y-s.pickup.Y) >= s.cfg.PickupRadius+s.cycleRadius {
		return false
	}

	c.GrantShield(now, s.cfg.Duration)
	c.Pickups++
	s.pickup = nil
	s.granted++
	return true
}

// Active returns the pickup on the field, if any.
func (s *ShieldSubsystem) Active() (Pickup, bool) {
	if s.pickup == nil {
		return Pickup{}, false
	}
	return *s.pickup, true
}

// Place forces a pickup at (x, y). Used by tools and tests to stage a field.
func (s *ShieldSubsystem) Place(x, y float64, now time.Duration) {
	s.pickup = &Pickup{X: x, Y: y, SpawnedAt: now}
	s.lastSpawn = now
}

// ShieldStats counts subsystem activity over a match.
type ShieldStats struct {
	Spawned int `json:"spawned"`
	Starved int `json:"starved"`
	Granted int `json:"granted"`
}

// Stats returns activity counters.
func (s *ShieldSubsystem) Stats() ShieldStats {
	return ShieldStats{Spawned: s.spawned, Starved: s.starved, Granted: s.granted}
}
