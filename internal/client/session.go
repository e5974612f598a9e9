// Package client holds the front-end agnostic flow shared by the desktop
// and terminal clients: the mode menu, a locally simulated match driven by
// held keys, and the game-over screen.
package client

import (
	"fmt"
	"log"

	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

// Screen is the current page of the client.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenPlay
	ScreenGameOver
)

func (s Screen) String() string {
	switch s {
	case ScreenMenu:
		return "menu"
	case ScreenPlay:
		return "play"
	default:
		return "game_over"
	}
}

// MenuModes are the entries of the mode menu, top to bottom.
var MenuModes = []config.Mode{config.ModeSingle, config.ModeMulti, config.ModeAI}

// MenuLabel is the text shown for a menu entry.
func MenuLabel(m config.Mode) string {
	switch m {
	case config.ModeSingle:
		return "1 Player (vs AI)"
	case config.ModeMulti:
		return "2 Players"
	default:
		return "AI vs AI"
	}
}

// Sounds are optional hooks fired from Step.
type Sounds interface {
	Turn()
	Crash()
	Pickup()
	GameOver(tie bool)
}

// Session is one client run: menu, then any number of matches.
// Not safe for concurrent use; each front end drives it from its frame loop.
type Session struct {
	base   config.MatchConfig
	screen Screen
	menu   int
	seed   int64

	match   *game.Match
	pending []game.Input // Controls held since the last Step
	last    game.TickReport

	Sounds Sounds
}

// NewSession starts on the menu. base supplies every match option except
// the mode and roster, which the menu picks.
func NewSession(base config.MatchConfig) *Session {
	s := &Session{base: base, seed: base.Seed}
	for i, m := range MenuModes {
		if m == base.Mode {
			s.menu = i
		}
	}
	return s
}

// Screen returns the current page.
func (s *Session) Screen() Screen { return s.screen }

// MenuIndex returns the highlighted menu entry.
func (s *Session) MenuIndex() int { return s.menu }

// MenuUp moves the highlight up, wrapping around.
func (s *Session) MenuUp() {
	s.menu = (s.menu + len(MenuModes) - 1) % len(MenuModes)
}

// MenuDown moves the highlight down, wrapping around.
func (s *Session) MenuDown() {
	s.menu = (s.menu + 1) % len(MenuModes)
}

// Select starts a match in the highlighted mode.
func (s *Session) Select() error {
	return s.start(MenuModes[s.menu])
}

// Rematch starts a new match in the mode just played.
func (s *Session) Rematch() error {
	if s.match == nil {
		return s.Select()
	}
	return s.start(s.match.Config().Mode)
}

// BackToMenu abandons the current match.
func (s *Session) BackToMenu() {
	s.match = nil
	s.screen = ScreenMenu
}

func (s *Session) start(mode config.Mode) error {
	cfg := s.base
	cfg.Mode = mode
	cfg.Players = config.DefaultRoster(mode, cfg.Field)
	// A fixed seed replays the same sequence of matches
	if s.seed != 0 {
		cfg.Seed = s.seed
		s.seed++
	}

	m, err := game.NewMatch(cfg)
	if err != nil {
		return fmt.Errorf("start %s match: %w", mode, err)
	}
	s.match = m
	s.pending = make([]game.Input, len(cfg.Players))
	s.last = game.TickReport{}
	s.screen = ScreenPlay
	log.Printf("🏁 %s match %s started", mode, m.ID)
	return nil
}

// Press records that the control for h is held on the key set keys
// (config.KeysWASD or config.KeysArrows). Presses for key sets no human
// cycle uses are ignored.
func (s *Session) Press(keys string, h game.Heading) {
	if s.screen != ScreenPlay {
		return
	}
	for i, p := range s.match.Config().Players {
		if p.AI || p.Keys != keys {
			continue
		}
		in := &s.pending[i]
		switch h {
		case game.HeadingRight:
			in.Right = true
		case game.HeadingDown:
			in.Down = true
		case game.HeadingLeft:
			in.Left = true
		case game.HeadingUp:
			in.Up = true
		}
	}
}

// Step advances the match one tick with the controls pressed since the
// previous Step. It is a no-op outside the play screen.
func (s *Session) Step() (game.TickReport, error) {
	if s.screen != ScreenPlay {
		return game.TickReport{}, nil
	}

	rep, err := s.match.Step(s.pending)
	for i := range s.pending {
		s.pending[i] = game.Input{}
	}
	if err != nil {
		return rep, err
	}
	s.last = rep
	s.playSounds(rep)

	if rep.Outcome.Finished() {
		s.screen = ScreenGameOver
		log.Printf("🏆 %s", s.ResultLabel())
	}
	return rep, nil
}

func (s *Session) playSounds(rep game.TickReport) {
	if s.Sounds == nil {
		return
	}
	if len(rep.Turns) > 0 {
		s.Sounds.Turn()
	}
	if len(rep.Crashes) > 0 {
		s.Sounds.Crash()
	}
	if len(rep.Grabbed) > 0 {
		s.Sounds.Pickup()
	}
	if rep.Outcome.Finished() {
		s.Sounds.GameOver(rep.Outcome.Tie)
	}
}

// Match returns the match in play or just finished, nil on the menu.
func (s *Session) Match() *game.Match { return s.match }

// LastReport returns the report of the latest tick.
func (s *Session) LastReport() game.TickReport { return s.last }

// Snapshot builds a frame of the current match for drawing. Returns nil on
// the menu.
func (s *Session) Snapshot() *game.GameSnapshot {
	if s.match == nil {
		return nil
	}
	snap := &game.GameSnapshot{}
	s.match.BuildSnapshot(snap)
	return snap
}

// ResultLabel is the game-over banner: "<name> Wins!" or "It's a Tie!".
func (s *Session) ResultLabel() string {
	if snap := s.Snapshot(); snap != nil {
		return snap.Outcome.Label()
	}
	return ""
}

// Controls describes the key bindings of the mode being played.
func (s *Session) Controls() []string {
	if s.match == nil {
		return nil
	}
	var out []string
	for _, p := range s.match.Config().Players {
		switch {
		case p.AI:
			out = append(out, p.Name+": computer")
		case p.Keys == config.KeysWASD:
			out = append(out, p.Name+": W A S D")
		case p.Keys == config.KeysArrows:
			out = append(out, p.Name+": arrow keys")
		}
	}
	return out
}
