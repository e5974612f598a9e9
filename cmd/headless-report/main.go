package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
	"light-cycles/internal/render"
	"light-cycles/internal/report"
)

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var modeName string
	var pngDir string

	flag.IntVar(&runs, "runs", 10, "number of headless matches")
	flag.IntVar(&ticks, "ticks", 36000, "tick limit per match")
	flag.Int64Var(&seedBase, "seed-base", 42, "seed of run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&modeName, "mode", string(config.ModeAI), "match mode (single, multi, ai)")
	flag.StringVar(&pngDir, "png", "", "directory to write the final frame of each run")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		os.Exit(2)
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		os.Exit(2)
	}
	mode, err := config.ParseMode(modeName)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(2)
	}
	if pngDir != "" {
		if err := os.MkdirAll(pngDir, 0o755); err != nil {
			fmt.Printf("error: %v\n", err)
			os.Exit(1)
		}
	}

	base := config.MatchFromEnv()
	base.Mode = mode
	base.Players = config.DefaultRoster(mode, base.Field)

	fmt.Printf("=== Headless Match Report ===\n")
	fmt.Printf("mode=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", mode, runs, ticks, seedBase, seedStep)

	renderer := render.NewRenderer(base.Field.Width, base.Field.Height)
	all := make([]report.RunStats, 0, runs)
	for i := 0; i < runs; i++ {
		cfg := base
		cfg.Seed = seedBase + int64(i)*seedStep
		stats, m, err := report.Run(i+1, cfg, ticks)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			os.Exit(1)
		}
		all = append(all, stats)
		report.PrintRun(os.Stdout, stats)

		if pngDir != "" {
			if err := writeFrame(renderer, m, filepath.Join(pngDir, fmt.Sprintf("run-%03d.png", i+1))); err != nil {
				fmt.Printf("error: %v\n", err)
				os.Exit(1)
			}
		}
	}

	report.PrintAggregate(os.Stdout, report.Summarize(all))
}

func writeFrame(r *render.Renderer, m *game.Match, path string) error {
	var snap game.GameSnapshot
	m.BuildSnapshot(&snap)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.EncodePNG(f, &snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
