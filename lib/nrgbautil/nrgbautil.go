package nrgbautil

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Padding is the colour rotation with expansion fills the new corners with.
var Padding = color.NRGBA{0, 0, 0, 255}

func LoadImage(path string) (*image.NRGBA, error) {
	imData, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return ToNrgba(imData), nil
}

// WriteFile encodes imData in the format implied by the extension of path,
// creating parent directories as needed.
func WriteFile(imData image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := imaging.Save(imData, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ToNrgba returns imData as an *image.NRGBA with its
// bounds starting at the origin.
func ToNrgba(imData image.Image) *image.NRGBA {
	if nrgba, ok := imData.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	return imaging.Clone(imData)
}

// Pixels copies imData into a flat row-major buffer.
func Pixels(imData *image.NRGBA) []color.NRGBA {
	w, h := imData.Rect.Dx(), imData.Rect.Dy()
	out := make([]color.NRGBA, w*h)
	for y := 0; y < h; y++ {
		row := imData.Pix[y*imData.Stride : y*imData.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4 : x*4+4]
			out[y*w+x] = color.NRGBA{p[0], p[1], p[2], p[3]}
		}
	}
	return out
}

// PutPixels writes a buffer produced by Pixels back into imData.
func PutPixels(imData *image.NRGBA, px []color.NRGBA) {
	w, h := imData.Rect.Dx(), imData.Rect.Dy()
	if len(px) != w*h {
		panic(fmt.Sprintf("nrgbautil: buffer has %d pixels, image is %dx%d", len(px), w, h))
	}
	for y := 0; y < h; y++ {
		row := imData.Pix[y*imData.Stride : y*imData.Stride+w*4]
		for x := 0; x < w; x++ {
			c := px[y*w+x]
			row[x*4+0] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = c.A
		}
	}
}

func FromPixels(px []color.NRGBA, width, height int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	PutPixels(out, px)
	return out
}

// RotateNrgba rotates counter-clockwise by angle degrees about the centre,
// expanding the canvas so no content is lost. Pixels are sampled nearest
// neighbour, so the result only holds input colours and Padding.
func RotateNrgba(imData *image.NRGBA, angle int) *image.NRGBA {
	switch ((angle % 360) + 360) % 360 {
	case 0:
		return imaging.Clone(imData)
	case 90:
		return imaging.Rotate90(imData)
	case 180:
		return imaging.Rotate180(imData)
	case 270:
		return imaging.Rotate270(imData)
	}

	rad := float64(angle) * math.Pi / 180
	cos := roundTrig(math.Cos(rad))
	sin := roundTrig(math.Sin(rad))

	size := RotatedSize(imData.Rect.Size(), angle)
	out := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	xdraw.Draw(out, out.Rect, image.NewUniform(Padding), image.Point{}, xdraw.Src)

	// source to destination: translate the source centre to the origin,
	// rotate, then move it to the destination centre
	cx, cy := float64(imData.Rect.Dx())/2, float64(imData.Rect.Dy())/2
	ox, oy := float64(size.X)/2, float64(size.Y)/2
	s2d := f64.Aff3{
		cos, sin, ox - cos*cx - sin*cy,
		-sin, cos, oy + sin*cx - cos*cy,
	}
	xdraw.NearestNeighbor.Transform(out, s2d, imData, imData.Rect, xdraw.Src, nil)
	return out
}

// RotatedSize is the canvas RotateNrgba produces: the integer box around the
// rotated corners.
func RotatedSize(size image.Point, angle int) image.Point {
	switch ((angle % 360) + 360) % 360 {
	case 0, 180:
		return size
	case 90, 270:
		return image.Pt(size.Y, size.X)
	}
	rad := float64(angle) * math.Pi / 180
	cos := roundTrig(math.Cos(rad))
	sin := roundTrig(math.Sin(rad))

	w, h := float64(size.X), float64(size.Y)
	cx, cy := w/2, h/2
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		dx, dy := c[0]-cx, c[1]-cy
		x := cx + cos*dx + sin*dy
		y := cy - sin*dx + cos*dy
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Pt(
		int(math.Ceil(maxX)-math.Floor(minX)),
		int(math.Ceil(maxY)-math.Floor(minY)),
	)
}

// roundTrig drops float noise so that exact angles stay exact.
func roundTrig(v float64) float64 {
	return math.Round(v*1e15) / 1e15
}

func CropCenter(imData *image.NRGBA, width, height int) *image.NRGBA {
	if imData.Rect.Dx() == width && imData.Rect.Dy() == height {
		return imData
	}
	return imaging.CropCenter(imData, width, height)
}

func ResizeNrgba(imData *image.NRGBA, width, height int) *image.NRGBA {
	if imData.Rect.Dx() == width && imData.Rect.Dy() == height {
		return imaging.Clone(imData)
	}
	return imaging.Resize(imData, width, height, imaging.CatmullRom)
}
