package api

import (
	"net/http"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
	"light-cycles/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// Keep this minimal so tests can mock it without a running game loop.
type EngineInterface interface {
	// GetSnapshot returns the latest immutable snapshot (nil before the first)
	GetSnapshot() *game.GameSnapshot
	// SetInput latches the held controls of a cycle
	SetInput(cycleID int, in game.Input) error
	// Restart abandons the current match; an empty mode keeps the current one
	Restart(mode config.Mode) error
	// Stats returns aggregate results across matches
	Stats() game.EngineStats
	// Config returns the configuration of the current match
	Config() config.MatchConfig
	// RecentEvents returns up to n of the newest event log entries
	RecentEvents(n int) []game.Event
	// GetEventLogStats returns event log counters
	GetEventLogStats() map[string]interface{}
	// Standings returns the n best riders across matches, all when n <= 0
	Standings(n int) []game.StandingsEntry
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:          mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// RateLimiter guards the polling routes. If nil, one is created from
	// RateLimitConfig (or DefaultRateLimitConfig).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// InputRateLimiter guards POST /api/input. If nil, one is created from
	// InputRateLimitConfig.
	InputRateLimiter *IPRateLimiter

	// Frames renders /api/frame.png. If nil, one is created over Engine.
	Frames *render.FrameCache

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine EngineInterface
	frames *render.FrameCache
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// Apart from the rate limiters' cleanup goroutines it has no side effects,
// so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	inputLimiter := cfg.InputRateLimiter
	if inputLimiter == nil {
		inputLimiter = NewIPRateLimiter(InputRateLimitConfig)
	}

	frames := cfg.Frames
	if frames == nil {
		frames = render.NewFrameCache(cfg.Engine)
	}

	h := &routerHandlers{
		engine: cfg.Engine,
		frames: frames,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(metricsMiddleware)

		// Input gets its own, larger budget
		r.With(inputLimiter.Middleware).Post("/input", h.handleInput)

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Middleware)

			r.Get("/state", h.handleGetState)
			r.Get("/stats", h.handleGetStats)
			r.Get("/trails", h.handleGetTrails)
			r.Get("/config", h.handleGetConfig)
			r.Get("/frame.png", h.handleGetFrame)
			r.Get("/events", h.handleGetEvents)
			r.Get("/standings", h.handleGetStandings)

			r.Post("/match/restart", h.handleRestart)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}
