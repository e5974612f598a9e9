package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"light-cycles/internal/config"
)

// EngineConfig configures the real-time engine.
type EngineConfig struct {
	Match config.MatchConfig
	// AutoRestartDelay starts a fresh match this long (simulated time)
	// after one finishes. Zero disables auto restart.
	AutoRestartDelay time.Duration
}

// EngineStats aggregates results across every match the engine has run.
type EngineStats struct {
	MatchID       string         `json:"matchId"`
	MatchesPlayed int            `json:"matchesPlayed"`
	Ties          int            `json:"ties"`
	Wins          map[string]int `json:"wins"`
	TotalTicks    int64          `json:"totalTicks"`
	Crashes       int            `json:"crashes"`
	ShieldSaves   int            `json:"shieldSaves"`
	Pickups       int            `json:"pickups"`
	Running       bool           `json:"running"`
	TickRate      int            `json:"tickRate"`
	Shield        ShieldStats    `json:"shield"`
}

// Engine runs a Match on a fixed-rate ticker, latches remote input and
// publishes an immutable snapshot after every tick.
type Engine struct {
	mu sync.RWMutex

	cfg    config.MatchConfig
	match  *Match
	inputs []Input

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	autoRestart time.Duration
	finishedFor time.Duration // Simulated time since the current match ended

	// Stats
	stats     EngineStats
	tickCount int64

	// Event callbacks, invoked after the engine lock is released.
	// They may call back into the engine.
	OnTick       func(rep TickReport, elapsed time.Duration)
	OnCrash      func(crash Crash, cycle CycleSnapshot)
	OnPickup     func(cycle CycleSnapshot)
	OnMatchStart func(matchID string, cfg config.MatchConfig)
	OnMatchEnd   func(matchID string, outcome Outcome, winner string)

	// Snapshot system for lock-free render separation
	snapshotPool *SnapshotPool

	eventLog  *EventLog
	standings *Standings

	// Deterministic RNG for the seeds of successive matches
	rng *rand.Rand
}

// NewEngine validates the match config and prepares the first match.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Match.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Match.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:          cfg.Match,
		tickRate:     cfg.Match.TickRate,
		stopChan:     make(chan struct{}),
		autoRestart:  cfg.AutoRestartDelay,
		stats:        EngineStats{Wins: make(map[string]int), TickRate: cfg.Match.TickRate},
		snapshotPool: NewSnapshotPool(),
		eventLog:     NewEventLog(),
		standings:    NewStandings(),
		rng:          rand.New(rand.NewSource(seed)),
	}

	first := cfg.Match
	first.Seed = seed
	if err := e.startMatch(first); err != nil {
		return nil, err
	}
	return e, nil
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Game engine stopped")
}

// tick is called at tickRate times per second
func (e *Engine) tick() {
	start := time.Now()

	e.mu.Lock()
	e.tickCount++

	if e.match.Outcome().Finished() {
		restarted := e.maybeAutoRestart()
		e.mu.Unlock()
		if restarted != nil {
			e.fireMatchStart(restarted)
		}
		return
	}

	rep, err := e.match.Step(e.inputs)
	if err != nil {
		e.mu.Unlock()
		return
	}
	e.recordReport(rep)
	e.ProduceSnapshot()

	// Copy what the callbacks need before releasing the lock.
	var crashed []CycleSnapshot
	for _, cr := range rep.Crashes {
		c, _ := e.match.Cycle(cr.CycleID)
		crashed = append(crashed, c.ToSnapshot(rep.Now))
	}
	var grabbed []CycleSnapshot
	for _, id := range rep.Grabbed {
		c, _ := e.match.Cycle(id)
		grabbed = append(grabbed, c.ToSnapshot(rep.Now))
	}
	matchID := e.match.ID
	winner := e.match.WinnerName()
	e.mu.Unlock()

	for i, cr := range rep.Crashes {
		log.Printf("💥 %s crashed (%s) at (%d,%d) on tick %d", crashed[i].Name, cr.Cause, cr.X, cr.Y, rep.Tick)
		if e.OnCrash != nil {
			e.OnCrash(cr, crashed[i])
		}
	}
	for _, c := range grabbed {
		log.Printf("🛡️ %s picked up a shield", c.Name)
		if e.OnPickup != nil {
			e.OnPickup(c)
		}
	}
	if rep.Outcome.Finished() {
		if rep.Outcome.Tie {
			log.Printf("🤝 Match %s ended in a tie after %d ticks", matchID, rep.Tick)
		} else {
			log.Printf("🏆 %s wins match %s after %d ticks", winner, matchID, rep.Tick)
		}
		if e.OnMatchEnd != nil {
			e.OnMatchEnd(matchID, rep.Outcome, winner)
		}
	}
	if e.OnTick != nil {
		e.OnTick(rep, time.Since(start))
	}
}

// recordReport folds a tick into the stats and the event log.
// Caller must hold e.mu.
func (e *Engine) recordReport(rep TickReport) {
	id := e.match.ID
	el := e.eventLog

	e.stats.TotalTicks++
	switch rep.Spawn {
	case SpawnPlaced:
		el.EmitSimple(EventTypeShieldSpawn, id, rep.Tick, -1, PickupPayload{X: rep.Pickup.X, Y: rep.Pickup.Y})
	case SpawnStarved:
		el.EmitSimple(EventTypeSpawnStarved, id, rep.Tick, -1, nil)
	}
	for _, cid := range rep.Expired {
		el.EmitSimple(EventTypeShieldExpire, id, rep.Tick, cid, nil)
	}
	for _, t := range rep.Turns {
		el.EmitSimple(EventTypeHeadingChange, id, rep.Tick, t.CycleID, t)
	}
	for _, cid := range rep.Saves {
		e.stats.ShieldSaves++
		el.EmitSimple(EventTypeShieldSave, id, rep.Tick, cid, nil)
	}
	for _, cr := range rep.Crashes {
		e.stats.Crashes++
		el.EmitSimple(EventTypeCrash, id, rep.Tick, cr.CycleID, cr)
	}
	for _, cid := range rep.Grabbed {
		e.stats.Pickups++
		c, _ := e.match.Cycle(cid)
		el.EmitSimple(EventTypeShieldPickup, id, rep.Tick, cid, ShieldPayload{ExpiresAtNs: int64(c.ShieldExpiry)})
	}

	if rep.Outcome.Finished() {
		e.finishedFor = 0
		e.stats.MatchesPlayed++
		winner := e.match.WinnerName()
		if rep.Outcome.Tie {
			e.stats.Ties++
		} else {
			e.stats.Wins[winner]++
		}
		riders := make([]string, len(e.match.cycles))
		for i, c := range e.match.cycles {
			riders[i] = c.Name
		}
		e.standings.Record(riders, winner, rep.Outcome.Tie)
		el.EmitSimple(EventTypeMatchEnd, id, rep.Tick, -1, MatchEndPayload{
			WinnerID: rep.Outcome.WinnerID,
			Winner:   winner,
			Tie:      rep.Outcome.Tie,
			Ticks:    rep.Tick,
		})
		el.ForgetMatch(id)
	}
}

// maybeAutoRestart counts simulated time on a finished match and starts
// the next one once the delay has passed. Caller must hold e.mu.
// Returns the new match, or nil.
func (e *Engine) maybeAutoRestart() *Match {
	if e.autoRestart <= 0 {
		return nil
	}
	e.finishedFor += e.cfg.TickDuration()
	if e.finishedFor < e.autoRestart {
		return nil
	}
	cfg := e.cfg
	cfg.Seed = e.nextSeed()
	if err := e.startMatch(cfg); err != nil {
		log.Printf("⚠️ Auto restart failed: %v", err)
		return nil
	}
	return e.match
}

func (e *Engine) nextSeed() int64 {
	for {
		if s := e.rng.Int63(); s != 0 {
			return s
		}
	}
}

// startMatch replaces the current match. Caller must hold e.mu (or be the
// constructor).
func (e *Engine) startMatch(cfg config.MatchConfig) error {
	m, err := NewMatch(cfg)
	if err != nil {
		return err
	}
	e.match = m
	e.cfg = cfg
	e.inputs = make([]Input, len(m.Cycles()))
	e.finishedFor = 0

	e.emitMatchStart()
	e.ProduceSnapshot()
	log.Printf("🏁 Match %s started (%s mode, seed %d)", m.ID, cfg.Mode, m.Config().Seed)
	return nil
}

func (e *Engine) emitMatchStart() {
	cfg := e.match.Config()
	names := make([]string, 0, len(cfg.Players))
	for _, p := range cfg.Players {
		names = append(names, p.Name)
	}
	e.eventLog.EmitSimple(EventTypeMatchStart, e.match.ID, e.match.Tick(), -1, MatchStartPayload{
		Mode:    string(cfg.Mode),
		Seed:    cfg.Seed,
		Width:   cfg.Field.Width,
		Height:  cfg.Field.Height,
		Speed:   cfg.Cycle.Speed,
		Players: names,
	})
}

func (e *Engine) fireMatchStart(m *Match) {
	if e.OnMatchStart != nil {
		e.OnMatchStart(m.ID, m.Config())
	}
}

// Restart abandons the current match and starts a new one in mode.
// An empty mode keeps the current one.
func (e *Engine) Restart(mode config.Mode) error {
	e.mu.Lock()
	cfg := e.cfg
	if mode != "" && mode != cfg.Mode {
		cfg.Mode = mode
		cfg.Players = config.DefaultRoster(mode, cfg.Field)
	}
	cfg.Seed = e.nextSeed()
	if err := e.startMatch(cfg); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("restart: %w", err)
	}
	m := e.match
	e.mu.Unlock()

	e.fireMatchStart(m)
	return nil
}

// SetInput latches the held controls of a cycle until the next call.
// Input for AI cycles is accepted and ignored.
func (e *Engine) SetInput(cycleID int, in Input) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cycleID < 0 || cycleID >= len(e.inputs) {
		return fmt.Errorf("%w: %d", ErrUnknownCycle, cycleID)
	}
	e.inputs[cycleID] = in
	return nil
}

// GetSnapshot returns the latest immutable snapshot for rendering
// This is lock-free and safe to call from any goroutine
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// ProduceSnapshot creates an immutable snapshot of the current match.
// Called at the end of each tick with e.mu held.
func (e *Engine) ProduceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	e.match.BuildSnapshot(snap)
	e.snapshotPool.PublishWrite(snap)
}

// Stats returns a copy of the aggregate stats.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.stats
	s.Wins = make(map[string]int, len(e.stats.Wins))
	for k, v := range e.stats.Wins {
		s.Wins[k] = v
	}
	s.MatchID = e.match.ID
	s.Running = e.running
	s.Shield = e.match.Shields().Stats()
	return s
}

// Standings returns the n best riders across every match played, or all
// of them when n <= 0.
func (e *Engine) Standings(n int) []StandingsEntry {
	return e.standings.Top(n)
}

// Config returns the configuration of the current match.
func (e *Engine) Config() config.MatchConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.match.Config()
}

// TickCount returns the number of ticks the engine has run.
func (e *Engine) TickCount() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// StartEventLog initializes the event logging system and records the
// match already in progress.
func (e *Engine) StartEventLog(filePath string) error {
	if err := e.eventLog.Start(filePath); err != nil {
		return err
	}
	e.mu.Lock()
	e.emitMatchStart()
	e.mu.Unlock()
	return nil
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// RecentEvents returns up to n of the newest logged events.
func (e *Engine) RecentEvents(n int) []Event {
	return e.eventLog.Recent(n)
}
