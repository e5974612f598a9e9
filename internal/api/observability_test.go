package api_test

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"light-cycles/internal/api"
	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

func TestDebugHandler(t *testing.T) {
	ts := httptest.NewServer(api.NewDebugHandler(config.DefaultObservability()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", resp.StatusCode, body)
	}

	api.RecordTick(time.Millisecond)
	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "lightcycle_tick_duration_seconds") {
		t.Error("metrics should expose the tick histogram")
	}
}

func TestDebugHandlerBasicAuth(t *testing.T) {
	cfg := config.DefaultObservability()
	cfg.BasicAuthUser, cfg.BasicAuthPass = "ops", "secret"
	ts := httptest.NewServer(api.NewDebugHandler(cfg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest("GET", ts.URL+"/health", nil)
	req.SetBasicAuth("ops", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", resp.StatusCode)
	}
}

func TestStartDebugServerDisabled(t *testing.T) {
	cfg := config.DefaultObservability()
	cfg.Enabled = false
	if srv := api.StartDebugServer(cfg); srv != nil {
		t.Error("a disabled debug server should not start")
	}
}

// scrapeMetric reads one sample from the text exposition format.
// Missing samples read as zero.
func scrapeMetric(t *testing.T, handler http.Handler, sample string) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, sample+" ") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, sample)), 64)
		if err != nil {
			t.Fatalf("bad sample %q: %v", line, err)
		}
		return v
	}
	return 0
}

// TestInstrumentEngine plays the head-on match and checks the outcome and
// crash counters move.
func TestInstrumentEngine(t *testing.T) {
	debug := api.NewDebugHandler(config.DefaultObservability())
	tieSample := `lightcycle_match_outcomes_total{result="tie"}`
	headOnSample := `lightcycle_crashes_total{cause="head_on"}`
	ties := scrapeMetric(t, debug, tieSample)
	headOn := scrapeMetric(t, debug, headOnSample)

	cfg := config.DefaultMatch(config.ModeMulti)
	cfg.Seed = 1
	cfg.TickRate = 1000
	engine, err := game.NewEngine(game.EngineConfig{Match: cfg})
	if err != nil {
		t.Fatal(err)
	}

	ended := make(chan struct{})
	api.InstrumentEngine(engine)
	instrumented := engine.OnMatchEnd
	engine.OnMatchEnd = func(id string, outcome game.Outcome, winner string) {
		instrumented(id, outcome, winner)
		close(ended)
	}

	engine.Start()
	defer engine.Stop()

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("match never ended")
	}

	if got := scrapeMetric(t, debug, tieSample); got != ties+1 {
		t.Errorf("Expected one more tie, got %v -> %v", ties, got)
	}
	if got := scrapeMetric(t, debug, headOnSample); got != headOn+2 {
		t.Errorf("Expected two head-on crashes, got %v -> %v", headOn, got)
	}
}
