package edges

import (
	"image"
	"image/color"
	"testing"
)

func at(m *Map, x, y int) uint8 {
	return m.Row(y, x, x+1)[0]
}

func TestDetectSpot(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
	}
	img.SetNRGBA(2, 2, color.NRGBA{255, 255, 255, 255})

	m := Detect(img)
	if m.Width != 5 || m.Height != 5 || len(m.L) != 25 {
		t.Fatalf("map is %dx%d with %d values", m.Width, m.Height, len(m.L))
	}
	if got := at(m, 2, 2); got != 255 {
		t.Errorf("spot = %d, want 255", got)
	}
	for _, p := range []image.Point{{0, 0}, {1, 1}, {3, 2}, {4, 4}} {
		if got := at(m, p.X, p.Y); got != 0 {
			t.Errorf("at %v = %d, want 0", p, got)
		}
	}
}

func TestDetectFrameKeepsSource(t *testing.T) {
	px := make([]color.NRGBA, 5*4)
	for i := range px {
		px[i] = color.NRGBA{200, 200, 200, 255}
	}
	m := FromPixels(px, 5, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			want := uint8(0)
			if x == 0 || y == 0 || x == 4 || y == 3 {
				want = 200
			}
			if got := at(m, x, y); got != want {
				t.Errorf("at (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestDetectSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
	}
	img.SetNRGBA(3, 3, color.NRGBA{255, 255, 255, 255})
	m := Detect(img.SubImage(image.Rect(1, 1, 6, 6)))
	if m.Width != 5 || m.Height != 5 || at(m, 2, 2) != 255 {
		t.Errorf("sub image map %dx%d, centre %d", m.Width, m.Height, at(m, 2, 2))
	}
}

func TestRow(t *testing.T) {
	m := &Map{Width: 3, Height: 2, L: []uint8{
		1, 2, 3,
		4, 5, 6,
	}}
	row := m.Row(1, 1, 3)
	if len(row) != 2 || row[0] != 5 || row[1] != 6 {
		t.Errorf("Row(1,1,3) = %v", row)
	}
}
