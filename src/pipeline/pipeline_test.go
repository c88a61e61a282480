package pipeline

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/faceplate-kleo/glitchsort/lib/flags"
	"github.com/faceplate-kleo/glitchsort/lib/keyframe"
	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
	"github.com/faceplate-kleo/glitchsort/lib/nrgbautil"
	"github.com/faceplate-kleo/glitchsort/src/core"
)

func TestCalcDims(t *testing.T) {
	size := image.Pt(200, 100)
	tests := []struct {
		name string
		fp   FrameParams
		want image.Point
	}{
		{"unchanged", FrameParams{Scale: 1}, image.Pt(200, 100)},
		{"width only", FrameParams{Scale: 1, Width: 50}, image.Pt(50, 25)},
		{"height only", FrameParams{Scale: 1, Height: 50}, image.Pt(100, 50)},
		{"both", FrameParams{Scale: 1, Width: 30, Height: 70}, image.Pt(30, 70)},
		{"width wins over scale", FrameParams{Scale: 3, Width: 20}, image.Pt(20, 10)},
		{"scale", FrameParams{Scale: 0.5}, image.Pt(100, 50)},
		{"never empty", FrameParams{Scale: 0.001}, image.Pt(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalcDims(size, tt.fp); got != tt.want {
				t.Errorf("CalcDims() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name               string
		input, output, ext string
		amount, frame      int
		want               string
	}{
		{"folder keeps extension", "in/cat.png", "out", "same", 1, 1, filepath.Join("out", "cat_0001.png")},
		{"folder with ext", "in/cat.png", "out", ".jpg", 2, 2, filepath.Join("out", "cat_0002.jpg")},
		{"single file", "in/cat.png", "res/final.jpg", "same", 1, 1, "res/final.jpg"},
		{"numbered file", "in/cat.png", "res/final.jpg", ".png", 3, 3, filepath.Join("res", "final_0003.jpg")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPath(tt.input, tt.output, tt.ext, tt.amount, tt.frame); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFrame(t *testing.T) {
	r := flags.Default().Resolve(func(string) {})
	r.Angle = keyframe.Range{Start: 0, End: 90, Int: true}
	r.Threshold = keyframe.Range{Start: 0.2, End: 0.4}

	first, last := Frame(r, 0), Frame(r, 1)
	if first.Sort.Angle != 0 || last.Sort.Angle != 90 {
		t.Errorf("angles %d, %d", first.Sort.Angle, last.Sort.Angle)
	}
	if mid := Frame(r, 0.5); mid.Sort.Angle != 45 || mid.Sort.Threshold != 0.3 {
		t.Errorf("mid frame = %+v", mid)
	}
	if first.Sort.Length != 10 || first.SAngle != 90 || first.Scale != 1 {
		t.Errorf("defaults not carried: %+v", first)
	}
}

func TestRatios(t *testing.T) {
	f := flags.Default()
	f.Amount = 3
	r, err := Ratios(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 3 || r[0] != 0 || r[1] != 0.5 || r[2] != 1 {
		t.Errorf("Ratios() = %v", r)
	}

	f.Wav = filepath.Join(t.TempDir(), "missing.wav")
	if _, err := Ratios(f); err == nil {
		t.Error("expected an error for a missing wav")
	}
}

func stripes(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8((x * 37) % 256), uint8(y * 9), uint8((x * y) % 256), 255})
		}
	}
	return img
}

func rowSum(img *image.NRGBA, y int) int {
	s := 0
	for x := 0; x < img.Rect.Dx(); x++ {
		s += int(img.NRGBAAt(x, y).R)
	}
	return s
}

func TestProcessUpright(t *testing.T) {
	img := stripes(12, 8)
	e := core.NewEngine(core.Options{Segmentation: core.SegmentNone, Key: psmath.Red, Seed: 1}, nil)
	out := Process(e, img, FrameParams{Scale: 1}, false, false)

	if out.Rect.Size() != img.Rect.Size() {
		t.Fatalf("size %v, want %v", out.Rect.Size(), img.Rect.Size())
	}
	if out == img {
		t.Fatal("Process must not sort the input in place")
	}
	for y := 0; y < 8; y++ {
		if rowSum(out, y) != rowSum(img, y) {
			t.Errorf("row %d lost pixels", y)
		}
		for x := 1; x < 12; x++ {
			if out.NRGBAAt(x-1, y).R > out.NRGBAAt(x, y).R {
				t.Fatalf("row %d not sorted at %d", y, x)
			}
		}
	}
}

func TestProcessSizes(t *testing.T) {
	img := stripes(20, 10)
	e := core.NewEngine(core.Options{Segmentation: core.SegmentBlocky, Key: psmath.Lightness, Seed: 1}, nil)
	fp := FrameParams{
		Sort:   core.Params{Angle: 30, Size: 0.2},
		SAngle: 90,
		Scale:  0.5,
	}

	out := Process(e, img, fp, true, false)
	if out.Rect.Dx() != 10 || out.Rect.Dy() != 5 {
		t.Errorf("scaled output is %v", out.Rect)
	}

	out = Process(e, img, fp, true, true)
	if out.Rect.Dx() != 20 || out.Rect.Dy() != 10 {
		t.Errorf("preserved output is %v", out.Rect)
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	f := flags.Default()
	f.Input = "x.png"
	f.Key = "luma"
	if _, err := Run(context.Background(), f, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected an error for an unknown key")
	}

	f = flags.Default()
	f.Input = filepath.Join(t.TempDir(), "missing.png")
	if _, err := Run(context.Background(), f, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected an error for a missing input")
	}
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end run in short mode")
	}
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	if err := nrgbautil.WriteFile(stripes(24, 16), input); err != nil {
		t.Fatal(err)
	}

	f := flags.Default()
	f.Input = input
	f.Output = filepath.Join(dir, "out")
	f.Segmentation = "chunky"
	f.Length = "3,8"
	f.Angle = "0,45"
	f.Amount = 3
	f.Workers = 2
	f.Seed = 9

	paths, err := Run(context.Background(), f, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d frames", len(paths))
	}
	for i, p := range paths {
		want := filepath.Join(dir, "out", []string{"in_0001.png", "in_0002.png", "in_0003.png"}[i])
		if p != want {
			t.Errorf("frame %d path %q, want %q", i+1, p, want)
		}
		if _, err := os.Stat(p); err != nil {
			t.Error(err)
		}
		img, err := nrgbautil.LoadImage(p)
		if err != nil {
			t.Fatal(err)
		}
		if img.Rect.Dx() != 24 || img.Rect.Dy() != 16 {
			t.Errorf("frame %d is %v", i+1, img.Rect)
		}
	}
}

func TestProcessKeepsInputColours(t *testing.T) {
	a, b := color.NRGBA{230, 40, 40, 255}, color.NRGBA{40, 200, 90, 255}
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			c := a
			if (x/5+y/5)%2 == 1 {
				c = b
			}
			img.SetNRGBA(x, y, c)
		}
	}

	e := core.NewEngine(core.Options{Segmentation: core.SegmentNone, Key: psmath.Lightness, Seed: 1}, nil)
	out := Process(e, img, FrameParams{Sort: core.Params{Angle: 30}, SAngle: 90, Scale: 1}, true, false)
	if out.Rect.Dx() != 40 || out.Rect.Dy() != 30 {
		t.Fatalf("output is %v", out.Rect)
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			if c := out.NRGBAAt(x, y); c != a && c != b && c != nrgbautil.Padding {
				t.Fatalf("colour %v at (%d,%d) is not from the input", c, x, y)
			}
		}
	}
}
