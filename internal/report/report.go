// Package report plays matches without a clock or a screen and collects
// per-run statistics for balancing the AI and the shield timings.
package report

import (
	"fmt"
	"io"
	"sort"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

// RunStats summarizes one headless match.
type RunStats struct {
	Run  int
	Seed int64
	Mode config.Mode

	Finished bool
	Tie      bool
	Winner   string
	Ticks    uint64

	Turns   int
	Spawns  int
	Pickups int
	Saves   int
	Crashes map[game.CrashCause]int

	FillRatio float64
}

// Run plays one match in cfg until it ends or maxTicks pass. Human cycles
// get no input, so they ride straight. The finished match is returned for
// rendering.
func Run(run int, cfg config.MatchConfig, maxTicks int) (RunStats, *game.Match, error) {
	m, err := game.NewMatch(cfg)
	if err != nil {
		return RunStats{}, nil, err
	}
	stats := RunStats{
		Run:     run,
		Seed:    cfg.Seed,
		Mode:    cfg.Mode,
		Crashes: make(map[game.CrashCause]int),
	}

	for i := 0; i < maxTicks && !m.Outcome().Finished(); i++ {
		rep, err := m.Step(nil)
		if err != nil {
			return stats, m, fmt.Errorf("run %d tick %d: %w", run, i+1, err)
		}
		stats.Turns += len(rep.Turns)
		stats.Pickups += len(rep.Grabbed)
		stats.Saves += len(rep.Saves)
		if rep.Spawn == game.SpawnPlaced {
			stats.Spawns++
		}
		for _, c := range rep.Crashes {
			stats.Crashes[c.Cause]++
		}
	}

	out := m.Outcome()
	stats.Finished = out.Finished()
	stats.Tie = out.Tie
	stats.Winner = m.WinnerName()
	stats.Ticks = m.Tick()

	var snap game.GameSnapshot
	m.BuildSnapshot(&snap)
	stats.FillRatio = snap.FillRatio
	return stats, m, nil
}

// Result is the one-word outcome of a run.
func (s RunStats) Result() string {
	switch {
	case !s.Finished:
		return "unfinished"
	case s.Tie:
		return "tie"
	default:
		return "win:" + s.Winner
	}
}

// Aggregate sums a batch of runs.
type Aggregate struct {
	Runs       int
	Wins       map[string]int
	Ties       int
	Unfinished int
	MeanTicks  float64
	Pickups    int
	Saves      int
	Crashes    map[game.CrashCause]int
}

// Summarize folds runs into an Aggregate.
func Summarize(runs []RunStats) Aggregate {
	agg := Aggregate{
		Runs:    len(runs),
		Wins:    make(map[string]int),
		Crashes: make(map[game.CrashCause]int),
	}
	var ticks uint64
	for _, r := range runs {
		switch {
		case !r.Finished:
			agg.Unfinished++
		case r.Tie:
			agg.Ties++
		default:
			agg.Wins[r.Winner]++
		}
		ticks += r.Ticks
		agg.Pickups += r.Pickups
		agg.Saves += r.Saves
		for cause, n := range r.Crashes {
			agg.Crashes[cause] += n
		}
	}
	if len(runs) > 0 {
		agg.MeanTicks = float64(ticks) / float64(len(runs))
	}
	return agg
}

// PrintRun writes one line per run.
func PrintRun(w io.Writer, s RunStats) {
	fmt.Fprintf(w, "run=%d seed=%d mode=%s result=%s ticks=%d turns=%d spawns=%d pickups=%d saves=%d crashes=%s fill=%.4f\n",
		s.Run, s.Seed, s.Mode, s.Result(), s.Ticks, s.Turns, s.Spawns, s.Pickups, s.Saves, formatCauses(s.Crashes), s.FillRatio)
}

// PrintAggregate writes the batch summary.
func PrintAggregate(w io.Writer, a Aggregate) {
	fmt.Fprintf(w, "\n=== Aggregate (%d runs) ===\n", a.Runs)
	names := make([]string, 0, len(a.Wins))
	for name := range a.Wins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "wins %-20s %d\n", name, a.Wins[name])
	}
	fmt.Fprintf(w, "ties %d  unfinished %d  mean_ticks %.1f\n", a.Ties, a.Unfinished, a.MeanTicks)
	fmt.Fprintf(w, "pickups %d  saves %d  crashes %s\n", a.Pickups, a.Saves, formatCauses(a.Crashes))
}

// formatCauses prints crash counts in a stable order.
func formatCauses(m map[game.CrashCause]int) string {
	causes := []game.CrashCause{game.CrashWall, game.CrashTrail, game.CrashHeadOn}
	out := ""
	for _, c := range causes {
		if out != "" {
			out += ","
		}
		out += fmt.Sprintf("%s:%d", c, m[c])
	}
	return out
}
