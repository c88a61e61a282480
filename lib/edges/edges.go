// Package edges builds the edge-intensity map used by edge segmentation.
package edges

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
	"github.com/faceplate-kleo/glitchsort/lib/nrgbautil"
)

// findEdges is the classic 3x3 Laplacian "find edges" kernel.
var findEdges = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// Map holds the lightness of the filtered image, one byte per pixel in
// row-major order.
type Map struct {
	Width  int
	Height int
	L      []uint8
}

// Detect filters imData with findEdges. The one pixel frame is not filtered
// and keeps the lightness of the source pixels.
func Detect(imData image.Image) *Map {
	src := nrgbautil.ToNrgba(imData)
	filtered := imaging.Convolve3x3(src, findEdges, nil)
	m := &Map{
		Width:  src.Rect.Dx(),
		Height: src.Rect.Dy(),
		L:      make([]uint8, src.Rect.Dx()*src.Rect.Dy()),
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			from := filtered
			if x == 0 || y == 0 || x == m.Width-1 || y == m.Height-1 {
				from = src
			}
			i := from.PixOffset(x, y)
			p := color.NRGBA{from.Pix[i], from.Pix[i+1], from.Pix[i+2], 255}
			m.L[y*m.Width+x] = uint8(psmath.Lightness.Value(p))
		}
	}
	return m
}

// FromPixels detects edges on a flat pixel buffer.
func FromPixels(px []color.NRGBA, width, height int) *Map {
	return Detect(nrgbautil.FromPixels(px, width, height))
}

// Row returns the half-open span [start,end) of row y. The slice aliases the map.
func (m *Map) Row(y, start, end int) []uint8 {
	off := y * m.Width
	return m.L[off+start : off+end]
}
