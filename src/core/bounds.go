package core

import (
	"image"
	"math"

	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
)

// geometry locates the original rectangle inside a raster that was rotated
// with expansion, so rows never sort across the padding.
type geometry struct {
	width, height int
	tilted        bool

	sinAlpha, sinBeta float64
	x1, y1, x2, y2    float64
}

func newGeometry(angle int, original image.Point, width, height int) geometry {
	g := geometry{width: width, height: height}
	rem := floorMod(angle, 90)
	if rem == 0 {
		return g
	}
	g.tilted = true

	rad := float64(rem) * math.Pi / 180
	g.sinAlpha = math.Sin(rad)
	g.sinBeta = math.Sin(math.Pi/2 - rad)

	side := original.X
	if floorMod(floorDiv(angle, 90), 2) == 1 {
		side = original.Y
	}
	g.x1 = float64(side) * g.sinBeta
	g.y1 = float64(side) * g.sinAlpha
	g.x2 = float64(width) - g.x1
	g.y2 = float64(height) - g.y1
	return g
}

// bounds returns the half-open span of row y holding image content.
func (g geometry) bounds(y int) (start, end int) {
	if !g.tilted {
		return 0, g.width
	}
	fy := float64(y)
	fh := float64(g.height)
	s := math.Max(g.x1-(fy/g.sinAlpha)*g.sinBeta, g.x2-((fh-fy)/g.sinBeta)*g.sinAlpha)
	e := math.Min(g.x1+(fy/g.sinBeta)*g.sinAlpha, g.x2+((fh-fy)/g.sinAlpha)*g.sinBeta)

	start = psmath.Clamp(roundIndex(s), 0, g.width)
	end = psmath.Clamp(roundIndex(e), start, g.width)
	return start, end
}

type span struct {
	start, end int
}

func (s span) len() int {
	return s.end - s.start
}

// spans evaluates bounds once per row for the whole pass.
func (g geometry) spans() []span {
	out := make([]span, g.height)
	for y := range out {
		out[y].start, out[y].end = g.bounds(y)
	}
	return out
}

func roundIndex(v float64) int {
	return int(math.RoundToEven(v))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
