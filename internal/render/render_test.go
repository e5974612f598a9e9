package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"light-cycles/internal/game"
)

func testSnapshot(seq uint64) *game.GameSnapshot {
	return &game.GameSnapshot{
		Sequence:    seq,
		Width:       800,
		Height:      600,
		CycleRadius: 6,
		Cycles: []game.CycleSnapshot{
			{ID: 0, Name: "Player 1 (Green)", Color: "#00ff00", X: 400, Y: 300, Alive: true},
			{ID: 1, Name: "Player 2 (Magenta)", Color: "#ff00ff", X: 500, Y: 450, Alive: true, Shielded: true},
		},
		Trails: []game.TrailSegment{
			{CycleID: 0, X0: 100, Y0: 300, X1: 400, Y1: 300},
			{CycleID: 1, X0: 700, Y0: 450, X1: 500, Y1: 450},
		},
		Pickup: game.PickupSnapshot{Active: true, X: 600, Y: 150, Radius: 12},
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#00ff00", color.RGBA{0, 255, 0, 255}},
		{"#FF00FF", color.RGBA{255, 0, 255, 255}},
		{"#123abc", color.RGBA{0x12, 0x3a, 0xbc, 255}},
		{"green", color.RGBA{255, 255, 255, 255}},
		{"", color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		if got := ParseHexColor(tt.in); got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRenderDrawsTrailsAndPickup(t *testing.T) {
	r := NewRenderer(800, 600)
	img := r.Render(testSnapshot(1))

	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("Expected 800x600 frame, got %v", b)
	}

	checks := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"green trail", 260, 300, color.RGBA{0, 255, 0, 255}},
		{"magenta trail", 610, 450, color.RGBA{255, 0, 255, 255}},
		{"pickup", 600, 150, ShieldColor},
		{"background", 30, 580, Background},
	}
	for _, c := range checks {
		got := color.RGBAModel.Convert(img.At(c.x, c.y)).(color.RGBA)
		if got != c.want {
			t.Errorf("%s at (%d,%d): got %v, want %v", c.name, c.x, c.y, got, c.want)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(800, 600).EncodePNG(&buf, testSnapshot(1)); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output should be a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 800 {
		t.Errorf("Expected width 800, got %d", img.Bounds().Dx())
	}
}

type fakeSource struct{ snap *game.GameSnapshot }

func (f *fakeSource) GetSnapshot() *game.GameSnapshot { return f.snap }

func TestFrameCacheRendersOncePerSequence(t *testing.T) {
	src := &fakeSource{}
	fc := NewFrameCache(src)

	if _, _, err := fc.PNG(); err == nil {
		t.Error("Expected an error before the first snapshot")
	}

	src.snap = testSnapshot(7)
	first, seq, err := fc.PNG()
	if err != nil || seq != 7 {
		t.Fatalf("PNG: seq=%d err=%v", seq, err)
	}
	again, _, _ := fc.PNG()
	if &first[0] != &again[0] {
		t.Error("same sequence should reuse the cached frame")
	}

	src.snap = testSnapshot(8)
	if _, seq, _ := fc.PNG(); seq != 8 {
		t.Errorf("Expected a new frame for sequence 8, got %d", seq)
	}
}
