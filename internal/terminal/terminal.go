// Package terminal is the text-mode client. It scales the field down to
// the terminal and steps a local match on a ticker.
package terminal

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"light-cycles/internal/client"
	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

// runeBindings are the WASD keys, upper and lower case.
var runeBindings = map[rune]game.Heading{
	'w': game.HeadingUp, 'W': game.HeadingUp,
	'a': game.HeadingLeft, 'A': game.HeadingLeft,
	's': game.HeadingDown, 'S': game.HeadingDown,
	'd': game.HeadingRight, 'D': game.HeadingRight,
}

var arrowBindings = map[tcell.Key]game.Heading{
	tcell.KeyUp:    game.HeadingUp,
	tcell.KeyLeft:  game.HeadingLeft,
	tcell.KeyDown:  game.HeadingDown,
	tcell.KeyRight: game.HeadingRight,
}

// Client draws a session on a tcell screen.
type Client struct {
	screen  tcell.Screen
	session *client.Session
	tick    time.Duration
}

// New wraps an initialized screen. tick is the wall time between steps.
func New(screen tcell.Screen, session *client.Session, tick time.Duration) *Client {
	if tick <= 0 {
		tick = time.Second / 60
	}
	return &Client{screen: screen, session: session, tick: tick}
}

// Run handles keys and steps the match until the player quits or ctx ends.
// The screen is left open; the caller owns Fini.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := c.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	c.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				quit, err := c.HandleKey(ev.Key(), ev.Rune())
				if err != nil {
					return err
				}
				if quit {
					return nil
				}
			case *tcell.EventResize:
				c.screen.Sync()
			}
			c.Draw()

		case <-ticker.C:
			if _, err := c.session.Step(); err != nil {
				return err
			}
			c.Draw()
		}
	}
}

// HandleKey applies one key press. It reports true when the client should
// exit. Terminals send no key releases, so a steering key counts as held
// until the next step.
func (c *Client) HandleKey(key tcell.Key, r rune) (bool, error) {
	s := c.session
	if key == tcell.KeyCtrlC {
		return true, nil
	}

	switch s.Screen() {
	case client.ScreenMenu:
		switch {
		case key == tcell.KeyUp || (key == tcell.KeyRune && (r == 'w' || r == 'W')):
			s.MenuUp()
		case key == tcell.KeyDown || (key == tcell.KeyRune && (r == 's' || r == 'S')):
			s.MenuDown()
		case key == tcell.KeyEnter || (key == tcell.KeyRune && r == ' '):
			return false, s.Select()
		case key == tcell.KeyEscape || (key == tcell.KeyRune && (r == 'q' || r == 'Q')):
			return true, nil
		}

	case client.ScreenPlay:
		if key == tcell.KeyEscape {
			s.BackToMenu()
			return false, nil
		}
		if h, ok := arrowBindings[key]; ok {
			s.Press(config.KeysArrows, h)
		}
		if key == tcell.KeyRune {
			if h, ok := runeBindings[r]; ok {
				s.Press(config.KeysWASD, h)
			}
		}

	case client.ScreenGameOver:
		switch {
		case key == tcell.KeyEnter || (key == tcell.KeyRune && r == ' '):
			return false, s.Rematch()
		case key == tcell.KeyEscape:
			s.BackToMenu()
		}
	}
	return false, nil
}

// Draw repaints the whole screen. The bottom row holds the HUD.
func (c *Client) Draw() {
	scr := c.screen
	scr.Clear()
	cols, rows := scr.Size()
	s := c.session

	if s.Screen() == client.ScreenMenu {
		c.drawCentered(s.MenuLines(), cols, rows)
		scr.Show()
		return
	}

	snap := s.Snapshot()
	canvas := Rasterize(snap, cols, rows-1)
	for y := 0; y < canvas.Rows; y++ {
		for x := 0; x < canvas.Cols; x++ {
			cell := canvas.At(x, y)
			if cell.Rune == glyphEmpty {
				continue
			}
			scr.SetContent(x, y, cell.Rune, nil, styleOf(cell))
		}
	}

	c.drawText(0, rows-1, strings.Join(client.HUDLines(snap), " | "), tcell.StyleDefault.Reverse(true))
	if s.Screen() == client.ScreenGameOver {
		c.drawCentered(s.GameOverLines(), cols, rows)
	}
	scr.Show()
}

func styleOf(cell Cell) tcell.Style {
	style := tcell.StyleDefault
	if cell.Color != "" {
		style = style.Foreground(tcell.GetColor(cell.Color))
	}
	if cell.Bold {
		style = style.Bold(true)
	}
	if cell.Shielded {
		style = style.Reverse(true)
	}
	return style
}

func (c *Client) drawCentered(lines []string, cols, rows int) {
	top := (rows - len(lines)) / 2
	for i, line := range lines {
		x := (cols - len([]rune(line))) / 2
		c.drawText(x, top+i, line, tcell.StyleDefault.Bold(i == 0))
	}
}

func (c *Client) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		c.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
