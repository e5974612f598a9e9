// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for match rules and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
// A match must never start with a config that fails Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// FIELD & CYCLE CONFIGURATION
// =============================================================================

// FieldConfig is the play-field resolution in cells.
type FieldConfig struct {
	Width  int
	Height int
}

// DefaultField returns the classic 800x600 arena.
func DefaultField() FieldConfig {
	return FieldConfig{Width: 800, Height: 600}
}

// CycleConfig holds the movement constants shared by every cycle.
type CycleConfig struct {
	Speed  float64 // Units per tick
	Radius float64 // Body radius used for shield pickup overlap
}

// DefaultCycle returns the default movement constants.
func DefaultCycle() CycleConfig {
	return CycleConfig{
		Speed:  3,
		Radius: 6,
	}
}

// =============================================================================
// SHIELD CONFIGURATION
// =============================================================================

// ShieldConfig controls shield pickup spawning and immunity timing.
// Durations are simulation time (tick count x tick duration), not wall clock.
type ShieldConfig struct {
	Duration         time.Duration // Immunity length after pickup
	SpawnInterval    time.Duration // Minimum gap between spawns
	PickupRadius     float64       // Radius of the pickup itself
	SpawnMargin      int           // Inset from the field edge for spawn sampling
	MaxSpawnAttempts int           // Retry cap before skipping a spawn
}

// DefaultShield returns the default shield timings.
func DefaultShield() ShieldConfig {
	return ShieldConfig{
		Duration:         5 * time.Second,
		SpawnInterval:    7 * time.Second,
		PickupRadius:     12,
		SpawnMargin:      40,
		MaxSpawnAttempts: 100,
	}
}

// =============================================================================
// AI CONFIGURATION
// =============================================================================

// AIConfig tunes the rule-based AI controller.
type AIConfig struct {
	Lookahead    int     // Raycast length in units
	TurnBias     float64 // Probability of choosing left when picking at random
	WanderChance float64 // Per-tick chance of trying an unforced turn
}

// DefaultAI returns the default AI tuning.
func DefaultAI() AIConfig {
	return AIConfig{
		Lookahead:    50,
		TurnBias:     0.5,
		WanderChance: 0.01,
	}
}

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// Mode selects the roster of a match.
type Mode string

const (
	ModeSingle Mode = "single" // Player 1 vs AI
	ModeMulti  Mode = "multi"  // Two humans on one keyboard
	ModeAI     Mode = "ai"     // AI vs AI
)

// ParseMode maps a user supplied string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle:
		return ModeSingle, nil
	case ModeMulti:
		return ModeMulti, nil
	case ModeAI:
		return ModeAI, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

// Key binding sets for human controlled cycles.
const (
	KeysWASD   = "wasd"
	KeysArrows = "arrows"
)

// PlayerConfig describes one cycle at match start.
type PlayerConfig struct {
	Name    string  // Winner label shown at game over
	Color   string  // Hex color, presentation only
	StartX  float64 // Start position
	StartY  float64
	Heading int    // 0=right 1=down 2=left 3=up
	AI      bool   // Controlled by the AI instead of input
	Keys    string // KeysWASD or KeysArrows for humans
}

// MatchConfig is every recognized option of a match.
type MatchConfig struct {
	Field    FieldConfig
	Cycle    CycleConfig
	Shield   ShieldConfig
	AI       AIConfig
	Mode     Mode
	Seed     int64 // 0 means seed from time
	TickRate int   // Simulation ticks per second
	Players  []PlayerConfig
}

// TickDuration is the simulation time covered by one tick.
func (c MatchConfig) TickDuration() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

// DefaultMatch returns the classic two-cycle roster for a mode.
func DefaultMatch(mode Mode) MatchConfig {
	cfg := MatchConfig{
		Field:    DefaultField(),
		Cycle:    DefaultCycle(),
		Shield:   DefaultShield(),
		AI:       DefaultAI(),
		Mode:     mode,
		TickRate: 60,
	}
	cfg.Players = DefaultRoster(mode, cfg.Field)
	return cfg
}

// DefaultRoster places green on the left heading right and magenta on the
// right heading left, 100 units in from the walls.
func DefaultRoster(mode Mode, field FieldConfig) []PlayerConfig {
	midY := float64(field.Height / 2)
	p1 := PlayerConfig{
		Name:    "Player 1 (Green)",
		Color:   "#00ff00",
		StartX:  100,
		StartY:  midY,
		Heading: 0,
		Keys:    KeysWASD,
	}
	p2 := PlayerConfig{
		Name:    "Player 2 (Magenta)",
		Color:   "#ff00ff",
		StartX:  float64(field.Width - 100),
		StartY:  midY,
		Heading: 2,
		Keys:    KeysArrows,
	}

	switch mode {
	case ModeSingle:
		p1.Keys = KeysArrows
		p2.Name = "AI (Magenta)"
		p2.AI = true
		p2.Keys = ""
	case ModeAI:
		p1.Name = "AI (Green)"
		p1.AI = true
		p1.Keys = ""
		p2.Name = "AI (Magenta)"
		p2.AI = true
		p2.Keys = ""
	}

	return []PlayerConfig{p1, p2}
}

// MatchFromEnv returns match configuration with environment variable overrides.
// The roster is rebuilt after field overrides so start positions follow the field.
func MatchFromEnv() MatchConfig {
	mode := ModeSingle
	if v := os.Getenv("MATCH_MODE"); v != "" {
		if m, err := ParseMode(v); err == nil {
			mode = m
		}
	}
	cfg := DefaultMatch(mode)

	if w := getEnvInt("FIELD_WIDTH", 0); w > 0 {
		cfg.Field.Width = w
	}
	if h := getEnvInt("FIELD_HEIGHT", 0); h > 0 {
		cfg.Field.Height = h
	}
	cfg.Players = DefaultRoster(mode, cfg.Field)

	if s := getEnvFloat("CYCLE_SPEED", 0); s > 0 {
		cfg.Cycle.Speed = s
	}
	if r := getEnvFloat("CYCLE_RADIUS", -1); r >= 0 {
		cfg.Cycle.Radius = r
	}
	cfg.Shield.Duration = getEnvDuration("SHIELD_DURATION", cfg.Shield.Duration)
	cfg.Shield.SpawnInterval = getEnvDuration("SHIELD_SPAWN_INTERVAL", cfg.Shield.SpawnInterval)
	if r := getEnvFloat("SHIELD_RADIUS", -1); r >= 0 {
		cfg.Shield.PickupRadius = r
	}
	if m := getEnvInt("SHIELD_SPAWN_MARGIN", -1); m >= 0 {
		cfg.Shield.SpawnMargin = m
	}
	if n := getEnvInt("SHIELD_SPAWN_ATTEMPTS", 0); n > 0 {
		cfg.Shield.MaxSpawnAttempts = n
	}
	if l := getEnvInt("AI_LOOKAHEAD", 0); l > 0 {
		cfg.AI.Lookahead = l
	}
	if b := getEnvFloat("AI_TURN_BIAS", -1); b >= 0 {
		cfg.AI.TurnBias = b
	}
	if w := getEnvFloat("AI_WANDER_CHANCE", -1); w >= 0 {
		cfg.AI.WanderChance = w
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	cfg.Seed = int64(getEnvInt("MATCH_SEED", 0))

	return cfg
}

// Validate reports every problem with the config joined into one error.
// Each problem wraps ErrInvalidConfig.
func (c MatchConfig) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}

	if c.Field.Width <= 0 || c.Field.Height <= 0 {
		bad("field must be positive, got %dx%d", c.Field.Width, c.Field.Height)
	}
	if !finite(c.Cycle.Speed) || c.Cycle.Speed <= 0 {
		bad("cycle speed must be positive, got %v", c.Cycle.Speed)
	}
	if !finite(c.Cycle.Radius) || c.Cycle.Radius < 0 {
		bad("cycle radius must not be negative, got %v", c.Cycle.Radius)
	}
	if c.TickRate <= 0 {
		bad("tick rate must be positive, got %d", c.TickRate)
	}
	if c.Shield.Duration < 0 || c.Shield.SpawnInterval < 0 {
		bad("shield timings must not be negative")
	}
	if !finite(c.Shield.PickupRadius) || c.Shield.PickupRadius < 0 {
		bad("shield radius must not be negative, got %v", c.Shield.PickupRadius)
	}
	if c.Shield.SpawnMargin < 0 || 2*c.Shield.SpawnMargin > c.Field.Width-1 || 2*c.Shield.SpawnMargin > c.Field.Height-1 {
		bad("shield spawn margin %d leaves no spawnable area", c.Shield.SpawnMargin)
	}
	if c.Shield.MaxSpawnAttempts <= 0 {
		bad("shield spawn attempts must be positive, got %d", c.Shield.MaxSpawnAttempts)
	}
	if c.AI.Lookahead < 1 {
		bad("ai lookahead must be at least 1, got %d", c.AI.Lookahead)
	}
	if !finite(c.AI.TurnBias) || c.AI.TurnBias < 0 || c.AI.TurnBias > 1 {
		bad("ai turn bias must be within [0,1], got %v", c.AI.TurnBias)
	}
	if !finite(c.AI.WanderChance) || c.AI.WanderChance < 0 || c.AI.WanderChance > 1 {
		bad("ai wander chance must be within [0,1], got %v", c.AI.WanderChance)
	}
	if len(c.Players) < 2 {
		bad("a match needs at least 2 players, got %d", len(c.Players))
	}
	for i, p := range c.Players {
		if p.Heading < 0 || p.Heading > 3 {
			bad("player %d heading %d out of range", i, p.Heading)
		}
		if !finite(p.StartX) || !finite(p.StartY) || p.StartX < 0 || p.StartY < 0 || p.StartX >= float64(c.Field.Width) || p.StartY >= float64(c.Field.Height) {
			bad("player %d starts outside the field at (%v, %v)", i, p.StartX, p.StartY)
		}
		if !p.AI && p.Keys != KeysWASD && p.Keys != KeysArrows && p.Keys != "" {
			bad("player %d has unknown key set %q", i, p.Keys)
		}
	}

	return errors.Join(errs...)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             int
	AutoRestartDelay time.Duration // 0 disables auto restart after a match ends
	EventLogPath     string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:             3000,
		AutoRestartDelay: 3 * time.Second,
		EventLogPath:     "events.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	cfg.AutoRestartDelay = getEnvDuration("AUTO_RESTART_DELAY", cfg.AutoRestartDelay)
	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = v
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig configures the pprof/metrics debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // Localhost only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns debug server settings with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DEBUG_SERVER") == "false" {
		cfg.Enabled = false
	}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig controls the desktop and terminal client sound effects.
type AudioConfig struct {
	Enabled     bool
	Volume      float64 // 0.0 to 1.0
	MusicPath   string  // Optional looping OGG Vorbis track
	MusicVolume float64 // 0.0 to 1.0, kept low under the effects
}

// DefaultAudio returns sound on, no music.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		Enabled:     true,
		Volume:      0.5,
		MusicVolume: 0.15,
	}
}

// AudioFromEnv returns audio settings with environment overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if os.Getenv("SOUND") == "false" {
		cfg.Enabled = false
	}
	cfg.Volume = clamp01(getEnvFloat("SOUND_VOLUME", cfg.Volume))
	cfg.MusicPath = os.Getenv("MUSIC_PATH")
	cfg.MusicVolume = clamp01(getEnvFloat("MUSIC_VOLUME", cfg.MusicVolume))

	return cfg
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Match         MatchConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Audio         AudioConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Match:         MatchFromEnv(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
		Audio:         AudioFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && finite(f) {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("5s") or bare seconds ("5", "2.5").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && finite(f) {
		return time.Duration(f * float64(time.Second))
	}
	return defaultVal
}
