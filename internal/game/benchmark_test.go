package game

import (
	"math/rand"
	"testing"

	"light-cycles/internal/config"
	"light-cycles/internal/game/spatial"
)

// =============================================================================
// BENCHMARK SUITE: CRITICAL PATH PERFORMANCE TESTS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

func BenchmarkMatchStep_AI(b *testing.B) {
	cfg := config.DefaultMatch(config.ModeAI)
	cfg.Seed = 1

	m, err := NewMatch(cfg)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if m.Outcome().Finished() {
			b.StopTimer()
			cfg.Seed++
			m, _ = NewMatch(cfg)
			b.StartTimer()
		}
		m.Step(nil)
	}
}

func BenchmarkSweep_Speed3(b *testing.B)  { benchmarkSweep(b, 3) }
func BenchmarkSweep_Speed20(b *testing.B) { benchmarkSweep(b, 20) }

func benchmarkSweep(b *testing.B, speed float64) {
	grid := spatial.NewOccupancyGrid(800, 600)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		grid.Mark(rng.Intn(800), rng.Intn(600))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		x := float64(100 + i%600)
		Sweep(grid, x, 300, x+speed, 300)
	}
}

func BenchmarkAIIsSafe(b *testing.B) {
	grid := spatial.NewOccupancyGrid(800, 600)
	ai := NewAIController(config.DefaultAI(), rand.New(rand.NewSource(1)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ai.IsSafe(grid, 400, 300, Heading(i%4))
	}
}

func BenchmarkProduceSnapshot(b *testing.B) {
	cfg := config.DefaultMatch(config.ModeAI)
	cfg.Seed = 3
	engine, err := NewEngine(EngineConfig{Match: cfg})
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 500; i++ {
		engine.tick()
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.mu.Lock()
		engine.ProduceSnapshot()
		engine.mu.Unlock()
	}
}
