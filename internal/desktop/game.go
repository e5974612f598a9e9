// Package desktop is the windowed client. It runs a local match on the
// ebiten frame loop, one simulation tick per ebiten update.
package desktop

import (
	"errors"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"light-cycles/internal/client"
	"light-cycles/internal/config"
	"light-cycles/internal/game"
	"light-cycles/internal/render"
)

// ErrQuit ends RunGame when the player leaves from the menu.
var ErrQuit = errors.New("quit")

const (
	gridSpacing = 50
	trailWidth  = 2
	lineHeight  = 16
)

var (
	gridColor  = color.RGBA{18, 18, 32, 255}
	panelColor = color.RGBA{0, 0, 0, 180}
)

// binding maps one physical key to a heading on a key set.
type binding struct {
	key     ebiten.Key
	keys    string
	heading game.Heading
}

var bindings = []binding{
	{ebiten.KeyW, config.KeysWASD, game.HeadingUp},
	{ebiten.KeyA, config.KeysWASD, game.HeadingLeft},
	{ebiten.KeyS, config.KeysWASD, game.HeadingDown},
	{ebiten.KeyD, config.KeysWASD, game.HeadingRight},
	{ebiten.KeyArrowUp, config.KeysArrows, game.HeadingUp},
	{ebiten.KeyArrowLeft, config.KeysArrows, game.HeadingLeft},
	{ebiten.KeyArrowDown, config.KeysArrows, game.HeadingDown},
	{ebiten.KeyArrowRight, config.KeysArrows, game.HeadingRight},
}

// Game implements ebiten.Game over a client session.
type Game struct {
	session       *client.Session
	width, height int
}

// New creates the desktop game for a field of the configured size.
// Run ebiten at cfg.TickRate ticks per second so game time matches.
func New(session *client.Session, field config.FieldConfig) *Game {
	return &Game{
		session: session,
		width:   field.Width,
		height:  field.Height,
	}
}

func (g *Game) Update() error {
	s := g.session
	switch s.Screen() {
	case client.ScreenMenu:
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp), inpututil.IsKeyJustPressed(ebiten.KeyW):
			s.MenuUp()
		case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown), inpututil.IsKeyJustPressed(ebiten.KeyS):
			s.MenuDown()
		case inpututil.IsKeyJustPressed(ebiten.KeyEnter), inpututil.IsKeyJustPressed(ebiten.KeySpace):
			return s.Select()
		case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
			return ErrQuit
		}

	case client.ScreenPlay:
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			s.BackToMenu()
			return nil
		}
		for _, b := range bindings {
			if ebiten.IsKeyPressed(b.key) {
				s.Press(b.keys, b.heading)
			}
		}
		if _, err := s.Step(); err != nil {
			return err
		}

	case client.ScreenGameOver:
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyEnter), inpututil.IsKeyJustPressed(ebiten.KeySpace):
			return s.Rematch()
		case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
			s.BackToMenu()
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(render.Background)
	g.drawGrid(screen)

	s := g.session
	if s.Screen() == client.ScreenMenu {
		g.drawPanel(screen, s.MenuLines())
		return
	}

	snap := s.Snapshot()
	g.drawField(screen, snap)
	for i, line := range client.HUDLines(snap) {
		ebitenutil.DebugPrintAt(screen, line, 8, 4+i*lineHeight)
	}
	if s.Screen() == client.ScreenPlay && snap.TickNumber < 120 {
		for i, line := range s.Controls() {
			ebitenutil.DebugPrintAt(screen, line, 8, g.height-(len(s.Controls())-i)*lineHeight-4)
		}
	}
	if s.Screen() == client.ScreenGameOver {
		g.drawPanel(screen, s.GameOverLines())
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

func (g *Game) drawGrid(screen *ebiten.Image) {
	w, h := float32(g.width), float32(g.height)
	for x := gridSpacing; x < g.width; x += gridSpacing {
		vector.StrokeLine(screen, float32(x), 0, float32(x), h, 1, gridColor, false)
	}
	for y := gridSpacing; y < g.height; y += gridSpacing {
		vector.StrokeLine(screen, 0, float32(y), w, float32(y), 1, gridColor, false)
	}
}

func (g *Game) drawField(screen *ebiten.Image, snap *game.GameSnapshot) {
	colors := make(map[int]color.RGBA, len(snap.Cycles))
	for _, c := range snap.Cycles {
		colors[c.ID] = render.ParseHexColor(c.Color)
	}
	for _, seg := range snap.Trails {
		vector.StrokeLine(screen, float32(seg.X0), float32(seg.Y0), float32(seg.X1), float32(seg.Y1),
			trailWidth, colors[seg.CycleID], false)
	}

	if p := snap.Pickup; p.Active {
		vector.FillCircle(screen, float32(p.X), float32(p.Y), float32(p.Radius), render.ShieldColor, true)
	}

	r := float32(snap.CycleRadius)
	for _, c := range snap.Cycles {
		x, y := float32(c.X), float32(c.Y)
		if !c.Alive {
			vector.StrokeLine(screen, x-r, y-r, x+r, y+r, 2, render.DeadColor, false)
			vector.StrokeLine(screen, x+r, y-r, x-r, y+r, 2, render.DeadColor, false)
			continue
		}
		if c.Shielded {
			vector.StrokeCircle(screen, x, y, r+4, 2, render.ShieldColor, true)
		}
		vector.FillCircle(screen, x, y, r, colors[c.ID], true)
	}
}

// drawPanel centers lines of text on a dark band.
func (g *Game) drawPanel(screen *ebiten.Image, lines []string) {
	h := len(lines)*lineHeight + 24
	top := (g.height - h) / 2
	vector.FillRect(screen, 0, float32(top), float32(g.width), float32(h), panelColor, false)

	for i, line := range lines {
		x := (g.width - len(line)*6) / 2 // debug font glyphs are 6px wide
		ebitenutil.DebugPrintAt(screen, line, x, top+12+i*lineHeight)
	}
}
