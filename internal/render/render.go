// Package render draws game snapshots into images with gg.
// It is used by the API frame endpoint and the headless report.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/fogleman/gg"

	"light-cycles/internal/game"
)

// Palette
var (
	Background  = color.RGBA{0, 0, 0, 255}
	GridLine    = color.RGBA{18, 18, 32, 255}
	ShieldColor = color.RGBA{0, 200, 255, 255}
	TextColor   = color.RGBA{255, 255, 255, 255}
	DeadColor   = color.RGBA{120, 120, 120, 255}
)

const (
	trailWidth  = 2
	gridSpacing = 50
)

// SnapshotSource is anything that can hand out the latest snapshot
type SnapshotSource interface {
	GetSnapshot() *game.GameSnapshot
}

// Renderer draws snapshots onto a reusable gg context.
// Not safe for concurrent use; FrameCache serializes access.
type Renderer struct {
	width, height int
	dc            *gg.Context
}

// NewRenderer creates a renderer for a field of the given size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		dc:     gg.NewContext(width, height),
	}
}

// Render draws snap and returns the context image. The image is reused by
// the next call.
func (r *Renderer) Render(snap *game.GameSnapshot) image.Image {
	dc := r.dc
	if snap.Width != r.width || snap.Height != r.height {
		r.width, r.height = snap.Width, snap.Height
		r.dc = gg.NewContext(r.width, r.height)
		dc = r.dc
	}

	r.drawBackground()

	dc.SetLineWidth(trailWidth)
	colors := make(map[int]color.RGBA, len(snap.Cycles))
	for _, c := range snap.Cycles {
		colors[c.ID] = ParseHexColor(c.Color)
	}
	for _, seg := range snap.Trails {
		dc.SetColor(colors[seg.CycleID])
		dc.DrawLine(seg.X0, seg.Y0, seg.X1, seg.Y1)
		dc.Stroke()
	}

	if snap.Pickup.Active {
		dc.SetColor(ShieldColor)
		dc.DrawCircle(snap.Pickup.X, snap.Pickup.Y, snap.Pickup.Radius)
		dc.Fill()
	}

	for _, c := range snap.Cycles {
		r.drawCycle(c, snap.CycleRadius)
	}

	r.drawHUD(snap)
	return dc.Image()
}

func (r *Renderer) drawBackground() {
	dc := r.dc
	dc.SetColor(Background)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	dc.SetColor(GridLine)
	dc.SetLineWidth(1)
	for x := gridSpacing; x < r.width; x += gridSpacing {
		dc.DrawLine(float64(x), 0, float64(x), float64(r.height))
		dc.Stroke()
	}
	for y := gridSpacing; y < r.height; y += gridSpacing {
		dc.DrawLine(0, float64(y), float64(r.width), float64(y))
		dc.Stroke()
	}
}

func (r *Renderer) drawCycle(c game.CycleSnapshot, radius float64) {
	dc := r.dc
	if radius <= 0 {
		radius = 6
	}

	if !c.Alive {
		// Cross where the rider went down
		dc.SetColor(DeadColor)
		dc.SetLineWidth(2)
		dc.DrawLine(c.X-radius, c.Y-radius, c.X+radius, c.Y+radius)
		dc.Stroke()
		dc.DrawLine(c.X+radius, c.Y-radius, c.X-radius, c.Y+radius)
		dc.Stroke()
		return
	}

	if c.Shielded {
		dc.SetColor(ShieldColor)
		dc.SetLineWidth(2)
		dc.DrawCircle(c.X, c.Y, radius+4)
		dc.Stroke()
	}

	dc.SetColor(ParseHexColor(c.Color))
	dc.DrawCircle(c.X, c.Y, radius)
	dc.Fill()
}

// drawHUD writes the tick counter and, once decided, the result banner.
// gg falls back to its built-in 7x13 face, so no font files are needed.
func (r *Renderer) drawHUD(snap *game.GameSnapshot) {
	dc := r.dc
	dc.SetColor(TextColor)
	dc.DrawString(fmt.Sprintf("tick %d", snap.TickNumber), 8, 16)

	for i, c := range snap.Cycles {
		if c.Shielded {
			dc.SetColor(ShieldColor)
			dc.DrawString(fmt.Sprintf("%s shield %.1fs", c.Name, c.ShieldRemaining.Seconds()), 8, float64(32+i*16))
		}
	}

	if label := snap.Outcome.Label(); label != "" {
		dc.SetColor(color.RGBA{0, 0, 0, 180})
		dc.DrawRectangle(0, float64(r.height)/2-30, float64(r.width), 60)
		dc.Fill()
		dc.SetColor(TextColor)
		dc.DrawStringAnchored(label, float64(r.width)/2, float64(r.height)/2, 0.5, 0.5)
	}
}

// EncodePNG renders snap and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	return png.Encode(w, r.Render(snap))
}

// FrameCache renders each snapshot sequence at most once.
type FrameCache struct {
	mu       sync.Mutex
	source   SnapshotSource
	renderer *Renderer
	lastSeq  uint64
	frame    []byte
}

// NewFrameCache creates a cache over source.
func NewFrameCache(source SnapshotSource) *FrameCache {
	return &FrameCache{source: source}
}

// PNG returns the encoded latest frame and its snapshot sequence.
func (fc *FrameCache) PNG() ([]byte, uint64, error) {
	snap := fc.source.GetSnapshot()
	if snap == nil {
		return nil, 0, fmt.Errorf("no snapshot yet")
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.frame != nil && fc.lastSeq == snap.Sequence {
		return fc.frame, fc.lastSeq, nil
	}
	if fc.renderer == nil {
		fc.renderer = NewRenderer(snap.Width, snap.Height)
	}

	var buf bytes.Buffer
	if err := fc.renderer.EncodePNG(&buf, snap); err != nil {
		return nil, 0, fmt.Errorf("encode frame: %w", err)
	}
	fc.frame = buf.Bytes()
	fc.lastSeq = snap.Sequence
	return fc.frame, fc.lastSeq, nil
}
