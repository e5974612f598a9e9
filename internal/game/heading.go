package game

// Heading is one of the four cardinal directions.
// The index order (right, down, left, up) matters: +1 is a right turn,
// -1 a left turn and +2 a reversal.
type Heading int

const (
	HeadingRight Heading = iota
	HeadingDown
	HeadingLeft
	HeadingUp
)

// headingVectors are unit vectors in screen space (y grows downward).
var headingVectors = [4][2]float64{
	{1, 0},
	{0, 1},
	{-1, 0},
	{0, -1},
}

// Valid reports whether h is one of the four headings.
func (h Heading) Valid() bool {
	return h >= HeadingRight && h <= HeadingUp
}

// Vector returns the unit vector for h.
func (h Heading) Vector() (dx, dy float64) {
	v := headingVectors[h.normalize()]
	return v[0], v[1]
}

// Left returns the heading after a 90° left turn.
func (h Heading) Left() Heading {
	return (h + 3).normalize()
}

// Right returns the heading after a 90° right turn.
func (h Heading) Right() Heading {
	return (h + 1).normalize()
}

// Opposite returns the reversed heading.
func (h Heading) Opposite() Heading {
	return (h + 2).normalize()
}

// IsReversal reports whether turning from current to requested is a 180° turn.
func IsReversal(current, requested Heading) bool {
	return (requested - current).normalize() == 2
}

func (h Heading) normalize() Heading {
	return ((h % 4) + 4) % 4
}

// String returns human-readable heading
func (h Heading) String() string {
	switch h.normalize() {
	case HeadingRight:
		return "right"
	case HeadingDown:
		return "down"
	case HeadingLeft:
		return "left"
	default:
		return "up"
	}
}
