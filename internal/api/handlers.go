package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = game.EventBufferSize
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) snapshot(w http.ResponseWriter) *game.GameSnapshot {
	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "no snapshot yet", http.StatusServiceUnavailable)
	}
	return snap
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	resp := map[string]interface{}{
		"engine":   stats,
		"eventLog": h.engine.GetEventLogStats(),
	}
	if snap := h.engine.GetSnapshot(); snap != nil {
		resp["tick"] = snap.TickNumber
		resp["aliveCount"] = snap.AliveCount
		resp["outcome"] = snap.Outcome
	}
	writeJSON(w, resp)
}

func (h *routerHandlers) handleGetTrails(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, map[string]interface{}{
		"matchId":       snap.MatchID,
		"tick":          snap.TickNumber,
		"trails":        snap.Trails,
		"occupiedCells": snap.OccupiedCells,
		"fillRatio":     snap.FillRatio,
	})
}

// playerView is the JSON shape of a roster entry.
type playerView struct {
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	StartX  float64 `json:"startX"`
	StartY  float64 `json:"startY"`
	Heading string  `json:"heading"`
	AI      bool    `json:"ai"`
	Keys    string  `json:"keys,omitempty"`
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.Config()

	players := make([]playerView, 0, len(cfg.Players))
	for _, p := range cfg.Players {
		players = append(players, playerView{
			Name:    p.Name,
			Color:   p.Color,
			StartX:  p.StartX,
			StartY:  p.StartY,
			Heading: game.Heading(p.Heading).String(),
			AI:      p.AI,
			Keys:    p.Keys,
		})
	}

	writeJSON(w, map[string]interface{}{
		"mode":     cfg.Mode,
		"seed":     cfg.Seed,
		"tickRate": cfg.TickRate,
		"field":    map[string]int{"width": cfg.Field.Width, "height": cfg.Field.Height},
		"cycle":    map[string]float64{"speed": cfg.Cycle.Speed, "radius": cfg.Cycle.Radius},
		"shield": map[string]interface{}{
			"durationMs":       cfg.Shield.Duration.Milliseconds(),
			"spawnIntervalMs":  cfg.Shield.SpawnInterval.Milliseconds(),
			"pickupRadius":     cfg.Shield.PickupRadius,
			"spawnMargin":      cfg.Shield.SpawnMargin,
			"maxSpawnAttempts": cfg.Shield.MaxSpawnAttempts,
		},
		"ai": map[string]interface{}{
			"lookahead":    cfg.AI.Lookahead,
			"turnBias":     cfg.AI.TurnBias,
			"wanderChance": cfg.AI.WanderChance,
		},
		"players": players,
	})
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	frame, seq, err := h.frames.PNG()
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Snapshot-Sequence", strconv.FormatUint(seq, 10))
	w.Write(frame)
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}

	events := h.engine.RecentEvents(limit)
	if events == nil {
		events = []game.Event{}
	}
	writeJSON(w, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

// handleGetStandings serves the rider table; limit=0 or no limit returns
// every rider.
func (h *routerHandlers) handleGetStandings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows := h.engine.Standings(limit)
	if rows == nil {
		rows = []game.StandingsEntry{}
	}
	writeJSON(w, map[string]interface{}{
		"count":     len(rows),
		"standings": rows,
	})
}

// inputRequest is the body of POST /api/input and of websocket input
// messages.
type inputRequest struct {
	CycleID    int `json:"cycleId" msgpack:"cycleId"`
	game.Input `msgpack:",inline"`
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.engine.SetInput(req.CycleID, req.Input); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	// An empty body keeps the current mode
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var mode config.Mode
	if req.Mode != "" {
		m, err := config.ParseMode(req.Mode)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = m
	}

	log.Printf("🔄 Match restart requested via API (mode=%q)", mode)
	start := time.Now()
	if err := h.engine.Restart(mode); err != nil {
		log.Printf("❌ Restart failed: %v", err)
		writeEngineError(w, err)
		return
	}

	resp := map[string]interface{}{"success": true, "tookMs": time.Since(start).Milliseconds()}
	if snap := h.engine.GetSnapshot(); snap != nil {
		resp["matchId"] = snap.MatchID
		resp["mode"] = snap.Mode
	}
	writeJSON(w, resp)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeEngineError maps engine sentinel errors to status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownCycle):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, config.ErrInvalidConfig):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, game.ErrMatchFinished):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
