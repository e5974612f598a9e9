package main

import (
	"path/filepath"
	"testing"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

func TestStartEventLogWithoutPathKeepsEvents(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"memory only", ""},
		{"file", filepath.Join(t.TempDir(), "events.jsonl")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultMatch(config.ModeMulti)
			cfg.Seed = 1
			engine, err := game.NewEngine(game.EngineConfig{Match: cfg})
			if err != nil {
				t.Fatal(err)
			}
			startEventLog(engine, tt.path)
			defer engine.StopEventLog()

			events := engine.RecentEvents(10)
			if len(events) == 0 || events[0].Type != game.EventTypeMatchStart {
				t.Errorf("Expected the running match to be logged, got %+v", events)
			}
		})
	}
}
