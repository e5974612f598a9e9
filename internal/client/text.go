package client

import (
	"fmt"

	"light-cycles/internal/game"
)

// MenuLines returns the menu text with a cursor on the highlighted entry.
func (s *Session) MenuLines() []string {
	lines := []string{"LIGHT CYCLES", ""}
	for i, m := range MenuModes {
		cursor := "  "
		if i == s.menu {
			cursor = "> "
		}
		lines = append(lines, cursor+MenuLabel(m))
	}
	return append(lines, "", "Up/Down choose, Enter start, Esc quit")
}

// HUDLines is the in-game status text: tick, then one line per cycle.
func HUDLines(snap *game.GameSnapshot) []string {
	if snap == nil {
		return nil
	}
	lines := []string{fmt.Sprintf("tick %d  %s", snap.TickNumber, snap.Mode)}
	for _, c := range snap.Cycles {
		status := "riding"
		switch {
		case !c.Alive:
			status = "crashed"
		case c.Shielded:
			status = fmt.Sprintf("shield %.1fs", c.ShieldRemaining.Seconds())
		}
		lines = append(lines, fmt.Sprintf("%s: %s", c.Name, status))
	}
	return lines
}

// GameOverLines is the text of the game-over screen.
func (s *Session) GameOverLines() []string {
	return []string{s.ResultLabel(), "", "Enter rematch, Esc menu"}
}
