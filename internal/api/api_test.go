package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"light-cycles/internal/api"
	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements api.EngineInterface for testing
type MockEngine struct {
	mu       sync.Mutex
	snap     *game.GameSnapshot
	cfg      config.MatchConfig
	inputs   map[int]game.Input
	restarts []config.Mode
	events   []game.Event
}

func NewMockEngine() *MockEngine {
	cfg := config.DefaultMatch(config.ModeMulti)
	return &MockEngine{
		cfg:    cfg,
		inputs: make(map[int]game.Input),
		snap: &game.GameSnapshot{
			Sequence:    1,
			MatchID:     "match-1",
			Mode:        string(cfg.Mode),
			TickNumber:  12,
			Width:       cfg.Field.Width,
			Height:      cfg.Field.Height,
			CycleRadius: cfg.Cycle.Radius,
			Cycles: []game.CycleSnapshot{
				{ID: 0, Name: "Player 1 (Green)", Color: "#00ff00", X: 136, Y: 300, Alive: true},
				{ID: 1, Name: "Player 2 (Magenta)", Color: "#ff00ff", X: 664, Y: 300, Heading: game.HeadingLeft, Alive: true},
			},
			Trails: []game.TrailSegment{
				{CycleID: 0, X0: 100, Y0: 300, X1: 136, Y1: 300},
				{CycleID: 1, X0: 700, Y0: 300, X1: 664, Y1: 300},
			},
			Outcome:    game.OutcomeSnapshot{State: "in_progress", WinnerID: -1},
			AliveCount: 2,
		},
	}
}

func (m *MockEngine) GetSnapshot() *game.GameSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *MockEngine) SetInput(cycleID int, in game.Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cycleID < 0 || cycleID >= len(m.cfg.Players) {
		return fmt.Errorf("%w: %d", game.ErrUnknownCycle, cycleID)
	}
	m.inputs[cycleID] = in
	return nil
}

func (m *MockEngine) Input(cycleID int) (game.Input, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inputs[cycleID]
	return in, ok
}

func (m *MockEngine) Restart(mode config.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts = append(m.restarts, mode)
	next := *m.snap
	next.Sequence++
	next.MatchID = fmt.Sprintf("match-%d", len(m.restarts)+1)
	if mode != "" {
		next.Mode = string(mode)
	}
	m.snap = &next
	return nil
}

func (m *MockEngine) Restarts() []config.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]config.Mode(nil), m.restarts...)
}

func (m *MockEngine) Stats() game.EngineStats {
	return game.EngineStats{MatchID: "match-1", MatchesPlayed: 3, Ties: 1, Wins: map[string]int{"Player 1 (Green)": 2}, TickRate: 60}
}

func (m *MockEngine) Config() config.MatchConfig {
	return m.cfg
}

func (m *MockEngine) RecentEvents(n int) []game.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.events) {
		n = len(m.events)
	}
	return m.events[len(m.events)-n:]
}

func (m *MockEngine) GetEventLogStats() map[string]interface{} {
	return map[string]interface{}{"total": uint64(len(m.events)), "dropped": uint64(0)}
}

func (m *MockEngine) Standings(n int) []game.StandingsEntry {
	rows := []game.StandingsEntry{
		{Rider: "Player 1 (Green)", Rank: 1, Played: 3, Wins: 2, Ties: 1, Points: 7},
		{Rider: "Player 2 (Magenta)", Rank: 2, Played: 3, Ties: 1, Losses: 2, Points: 1},
	}
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

func newTestRouter(engine api.EngineInterface) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Engine: engine,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
	})
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

func TestAPIGetState(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	var snap game.GameSnapshot
	resp := getJSON(t, ts.URL+"/api/state", &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if len(snap.Cycles) != 2 {
		t.Errorf("Expected 2 cycles, got %d", len(snap.Cycles))
	}
	if snap.MatchID != "match-1" || snap.TickNumber != 12 {
		t.Errorf("Unexpected snapshot header: %+v", snap)
	}
}

func TestAPIGetStateBeforeFirstSnapshot(t *testing.T) {
	engine := NewMockEngine()
	engine.snap = nil
	ts := httptest.NewServer(newTestRouter(engine))
	defer ts.Close()

	for _, path := range []string{"/api/state", "/api/trails", "/api/frame.png"} {
		resp := getJSON(t, ts.URL+path, nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, resp.StatusCode)
		}
	}
}

func TestAPIGetStats(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	var result struct {
		Engine     game.EngineStats       `json:"engine"`
		EventLog   map[string]interface{} `json:"eventLog"`
		AliveCount int                    `json:"aliveCount"`
		Tick       uint64                 `json:"tick"`
	}
	getJSON(t, ts.URL+"/api/stats", &result)

	if result.Engine.MatchesPlayed != 3 || result.Engine.Wins["Player 1 (Green)"] != 2 {
		t.Errorf("Unexpected engine stats: %+v", result.Engine)
	}
	if result.AliveCount != 2 || result.Tick != 12 {
		t.Errorf("Expected alive=2 tick=12, got %d and %d", result.AliveCount, result.Tick)
	}
	if result.EventLog == nil {
		t.Error("Response should include event log stats")
	}
}

func TestAPIGetTrails(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	var result struct {
		MatchID string              `json:"matchId"`
		Trails  []game.TrailSegment `json:"trails"`
	}
	getJSON(t, ts.URL+"/api/trails", &result)

	if len(result.Trails) != 2 {
		t.Fatalf("Expected 2 trail segments, got %d", len(result.Trails))
	}
	if result.Trails[1].X0 != 700 || result.Trails[1].X1 != 664 {
		t.Errorf("Unexpected magenta segment: %+v", result.Trails[1])
	}
}

func TestAPIGetConfig(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	var result struct {
		Mode    string `json:"mode"`
		Players []struct {
			Name    string `json:"name"`
			Heading string `json:"heading"`
			AI      bool   `json:"ai"`
		} `json:"players"`
		Shield struct {
			DurationMs int64 `json:"durationMs"`
		} `json:"shield"`
	}
	getJSON(t, ts.URL+"/api/config", &result)

	if result.Mode != "multi" {
		t.Errorf("Expected multi mode, got %q", result.Mode)
	}
	if len(result.Players) != 2 || result.Players[1].Heading != "left" {
		t.Errorf("Unexpected roster: %+v", result.Players)
	}
	if result.Shield.DurationMs != 5000 {
		t.Errorf("Expected 5000ms shield, got %d", result.Shield.DurationMs)
	}
}

func TestAPIGetFrame(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/frame.png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if seq := resp.Header.Get("X-Snapshot-Sequence"); seq != "1" {
		t.Errorf("Expected sequence 1, got %q", seq)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Body should be a PNG: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Errorf("Expected 800x600 frame, got %v", img.Bounds())
	}
}

func TestAPIGetEvents(t *testing.T) {
	engine := NewMockEngine()
	for i := 0; i < 5; i++ {
		engine.events = append(engine.events, game.NewEvent(game.EventTypeHeadingChange, "match-1", uint64(i), 0, nil))
	}
	ts := httptest.NewServer(newTestRouter(engine))
	defer ts.Close()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"default limit", "", http.StatusOK, 5},
		{"explicit limit", "?limit=2", http.StatusOK, 2},
		{"zero", "?limit=0", http.StatusBadRequest, 0},
		{"not a number", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result struct {
				Count  int `json:"count"`
				Events []struct {
					Type    string `json:"type"`
					TickNum uint64 `json:"tickNum"`
				} `json:"events"`
			}
			resp := getJSON(t, ts.URL+"/api/events"+tt.query, &result)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return
			}
			if result.Count != tt.wantCount || len(result.Events) != tt.wantCount {
				t.Errorf("Expected %d events, got %d", tt.wantCount, result.Count)
			}
			if result.Events[0].Type != "heading_change" {
				t.Errorf("Event type should be written by name, got %q", result.Events[0].Type)
			}
		})
	}
}

func TestAPIGetStandings(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"all riders", "", http.StatusOK, 2},
		{"top one", "?limit=1", http.StatusOK, 1},
		{"zero means all", "?limit=0", http.StatusOK, 2},
		{"negative", "?limit=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result struct {
				Count     int                   `json:"count"`
				Standings []game.StandingsEntry `json:"standings"`
			}
			resp := getJSON(t, ts.URL+"/api/standings"+tt.query, &result)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return
			}
			if result.Count != tt.wantCount || len(result.Standings) != tt.wantCount {
				t.Errorf("Expected %d rows, got %d", tt.wantCount, result.Count)
			}
			if result.Standings[0].Rider != "Player 1 (Green)" || result.Standings[0].Points != 7 {
				t.Errorf("Unexpected leader: %+v", result.Standings[0])
			}
		})
	}
}

func TestAPIInput(t *testing.T) {
	engine := NewMockEngine()
	ts := httptest.NewServer(newTestRouter(engine))
	defer ts.Close()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"press up", `{"cycleId": 1, "up": true}`, http.StatusOK},
		{"unknown cycle", `{"cycleId": 7, "up": true}`, http.StatusNotFound},
		{"invalid json", `{invalid}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/input", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}

	in, ok := engine.Input(1)
	if !ok || !in.Up || in.Down || in.Left || in.Right {
		t.Errorf("Expected cycle 1 to hold only up, got %+v (set=%v)", in, ok)
	}
}

func TestAPIRestart(t *testing.T) {
	engine := NewMockEngine()
	ts := httptest.NewServer(newTestRouter(engine))
	defer ts.Close()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMode   config.Mode
	}{
		{"empty body keeps mode", ``, http.StatusOK, ""},
		{"switch to ai", `{"mode": "ai"}`, http.StatusOK, config.ModeAI},
		{"unknown mode", `{"mode": "battle"}`, http.StatusBadRequest, ""},
		{"invalid json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(engine.Restarts())
			resp, err := http.Post(ts.URL+"/api/match/restart", "application/json", bytes.NewReader([]byte(tt.body)))
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantStatus != http.StatusOK {
				if len(engine.Restarts()) != before {
					t.Error("a rejected request must not restart the match")
				}
				return
			}
			restarts := engine.Restarts()
			if got := restarts[len(restarts)-1]; got != tt.wantMode {
				t.Errorf("Expected restart with mode %q, got %q", tt.wantMode, got)
			}
		})
	}
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestAPICORSHeaders(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Engine:         NewMockEngine(),
		DisableLogging: true,
		CORSOrigins:    []string{"http://test.example.com"},
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/api/state", nil)
	req.Header.Set("Origin", "http://test.example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://test.example.com" {
		t.Errorf("Expected Access-Control-Allow-Origin 'http://test.example.com', got '%s'", got)
	}
}

func TestAPIRateLimiting(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Engine: NewMockEngine(),
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	var gotRateLimited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			gotRateLimited = true
			break
		}
	}
	if !gotRateLimited {
		t.Error("Expected to be rate limited after burst exceeded")
	}

	// Input has its own budget and is not starved by polling
	resp, err := http.Post(ts.URL+"/api/input", "application/json", strings.NewReader(`{"cycleId":0,"right":true}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Input should not share the polling limit, got %d", resp.StatusCode)
	}
}

func TestAPIRootRedirect(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/api/state" {
		t.Errorf("Expected 302 to /api/state, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

// ============================================================================
// Against the real engine
// ============================================================================

func TestAPIWithRealEngine(t *testing.T) {
	cfg := config.DefaultMatch(config.ModeMulti)
	cfg.Seed = 3
	engine, err := game.NewEngine(game.EngineConfig{Match: cfg})
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(newTestRouter(engine))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/input", "application/json", strings.NewReader(`{"cycleId":0,"down":true}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/match/restart", "application/json", strings.NewReader(`{"mode":"single"}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	var snap game.GameSnapshot
	getJSON(t, ts.URL+"/api/state", &snap)
	if snap.Mode != "single" {
		t.Errorf("Expected single mode after restart, got %q", snap.Mode)
	}
	if !snap.Cycles[1].AI {
		t.Error("single mode should put the AI on cycle 1")
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkAPIGetState(b *testing.B) {
	ts := httptest.NewServer(newTestRouter(NewMockEngine()))
	defer ts.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
	}
}
