package report

import (
	"bytes"
	"strings"
	"testing"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

func TestRunHeadOnTie(t *testing.T) {
	cfg := config.DefaultMatch(config.ModeMulti)
	cfg.Seed = 3

	stats, m, err := Run(1, cfg, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Finished || !stats.Tie || stats.Ticks != 100 {
		t.Fatalf("Expected a tie on tick 100, got %+v", stats)
	}
	if stats.Crashes[game.CrashHeadOn] != 2 {
		t.Errorf("Expected two head-on crashes, got %v", stats.Crashes)
	}
	if stats.Result() != "tie" {
		t.Errorf("Expected result tie, got %q", stats.Result())
	}
	if m == nil || !m.Outcome().Finished() {
		t.Error("the finished match should be returned")
	}
	if stats.FillRatio <= 0 {
		t.Error("trails should fill part of the grid")
	}
}

func TestRunStopsAtTickLimit(t *testing.T) {
	cfg := config.DefaultMatch(config.ModeMulti)
	cfg.Seed = 3

	stats, _, err := Run(1, cfg, 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Finished || stats.Ticks != 10 || stats.Result() != "unfinished" {
		t.Errorf("Expected an unfinished run after 10 ticks, got %+v", stats)
	}
}

func TestRunIsReproducible(t *testing.T) {
	cfg := config.DefaultMatch(config.ModeAI)
	cfg.Seed = 77

	a, _, err := Run(1, cfg, 5000)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Run(2, cfg, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if a.Ticks != b.Ticks || a.Result() != b.Result() || a.Turns != b.Turns || a.Pickups != b.Pickups {
		t.Errorf("Same seed should replay the same match:\n%+v\n%+v", a, b)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultMatch(config.ModeAI)
	cfg.TickRate = 0
	if _, _, err := Run(1, cfg, 10); err == nil {
		t.Error("Expected a validation error")
	}
}

func TestSummarize(t *testing.T) {
	runs := []RunStats{
		{Finished: true, Winner: "AI 1", Ticks: 100, Pickups: 1, Crashes: map[game.CrashCause]int{game.CrashWall: 1}},
		{Finished: true, Winner: "AI 1", Ticks: 300, Saves: 2, Crashes: map[game.CrashCause]int{game.CrashTrail: 1}},
		{Finished: true, Tie: true, Ticks: 200, Crashes: map[game.CrashCause]int{game.CrashHeadOn: 2}},
		{Ticks: 400},
	}
	agg := Summarize(runs)

	if agg.Runs != 4 || agg.Wins["AI 1"] != 2 || agg.Ties != 1 || agg.Unfinished != 1 {
		t.Errorf("Unexpected counts: %+v", agg)
	}
	if agg.MeanTicks != 250 {
		t.Errorf("Expected mean 250 ticks, got %v", agg.MeanTicks)
	}
	if agg.Pickups != 1 || agg.Saves != 2 {
		t.Errorf("Expected 1 pickup and 2 saves, got %d %d", agg.Pickups, agg.Saves)
	}
	want := map[game.CrashCause]int{game.CrashWall: 1, game.CrashTrail: 1, game.CrashHeadOn: 2}
	for cause, n := range want {
		if agg.Crashes[cause] != n {
			t.Errorf("crashes[%s] = %d, want %d", cause, agg.Crashes[cause], n)
		}
	}

	if empty := Summarize(nil); empty.MeanTicks != 0 || empty.Runs != 0 {
		t.Errorf("empty batch should be zero, got %+v", empty)
	}
}

func TestPrintFormats(t *testing.T) {
	var buf bytes.Buffer
	PrintRun(&buf, RunStats{Run: 2, Seed: 9, Mode: config.ModeAI, Finished: true, Winner: "AI 2", Ticks: 321,
		Crashes: map[game.CrashCause]int{game.CrashTrail: 1}})
	line := buf.String()
	for _, want := range []string{"run=2", "seed=9", "mode=ai", "result=win:AI 2", "ticks=321", "crashes=wall:0,trail:1,head_on:0"} {
		if !strings.Contains(line, want) {
			t.Errorf("run line %q missing %q", line, want)
		}
	}

	buf.Reset()
	PrintAggregate(&buf, Summarize([]RunStats{{Finished: true, Tie: true, Ticks: 10}}))
	if !strings.Contains(buf.String(), "ties 1") {
		t.Errorf("aggregate missing tie count: %q", buf.String())
	}
}
