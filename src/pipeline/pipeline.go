// Package pipeline turns one input image into one or more sorted frames:
// resize, rotate, sort, rotate back, crop, and write.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/faceplate-kleo/glitchsort/lib/flags"
	"github.com/faceplate-kleo/glitchsort/lib/keyframe"
	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
	"github.com/faceplate-kleo/glitchsort/lib/nrgbautil"
	"github.com/faceplate-kleo/glitchsort/lib/wave"
	"github.com/faceplate-kleo/glitchsort/src/core"
)

// FrameParams are the option values of a single frame.
type FrameParams struct {
	Sort   core.Params
	SAngle int
	Scale  float64
	Width  int
	Height int
}

// Frame evaluates every variable option at ratio.
func Frame(r flags.Ranges, ratio float64) FrameParams {
	return FrameParams{
		Sort: core.Params{
			Threshold:  r.Threshold.At(ratio),
			Angle:      int(r.Angle.At(ratio)),
			Size:       r.Size.At(ratio),
			Randomness: r.Randomness.At(ratio),
			Length:     int(r.Length.At(ratio)),
		},
		SAngle: int(r.SAngle.At(ratio)),
		Scale:  r.Scale.At(ratio),
		Width:  int(r.Width.At(ratio)),
		Height: int(r.Height.At(ratio)),
	}
}

// CalcDims returns the size the image is resized to before sorting. An
// explicit width or height wins over scale; a missing side keeps the aspect
// ratio.
func CalcDims(size image.Point, fp FrameParams) image.Point {
	w, h := float64(size.X), float64(size.Y)
	out := size
	switch {
	case fp.Width != 0 || fp.Height != 0:
		out = image.Pt(fp.Width, fp.Height)
		if fp.Width == 0 {
			out.X = int(math.RoundToEven(w / h * float64(fp.Height)))
		}
		if fp.Height == 0 {
			out.Y = int(math.RoundToEven(h / w * float64(fp.Width)))
		}
	case fp.Scale != 1:
		out = image.Pt(int(math.RoundToEven(w*fp.Scale)), int(math.RoundToEven(h*fp.Scale)))
	}
	out.X = max(out.X, 1)
	out.Y = max(out.Y, 1)
	return out
}

// Process renders one frame from img. img is not modified.
func Process(engine *core.Engine, img *image.NRGBA, fp FrameParams, secondPass, preserveRes bool) *image.NRGBA {
	size := img.Rect.Size()
	dims := CalcDims(size, fp)
	out := nrgbautil.ResizeNrgba(img, dims.X, dims.Y)

	out = sortRotated(engine, out, fp.Sort, dims)
	if secondPass {
		sp := fp.Sort
		sp.Angle = fp.Sort.Angle + fp.SAngle
		out = sortRotated(engine, out, sp, dims)
	}
	if preserveRes {
		out = nrgbautil.ResizeNrgba(out, size.X, size.Y)
	}
	return out
}

func sortRotated(engine *core.Engine, img *image.NRGBA, params core.Params, dims image.Point) *image.NRGBA {
	rotated := nrgbautil.RotateNrgba(img, params.Angle)
	engine.SortImage(rotated, params, dims)
	back := nrgbautil.RotateNrgba(rotated, -params.Angle)
	return nrgbautil.CropCenter(back, dims.X, dims.Y)
}

// OutputPath names frame (1-based) of amount. An output without an extension
// is a folder that receives <input stem>_NNNN<ext>; a file output is used as
// is for a single frame and numbered otherwise.
func OutputPath(input, output, ext string, amount, frame int) string {
	if filepath.Ext(output) != "" {
		if amount == 1 {
			return output
		}
		return numbered(filepath.Dir(output), output, filepath.Ext(output), frame)
	}
	if ext == "" || strings.EqualFold(ext, "same") {
		ext = filepath.Ext(input)
	}
	return numbered(output, input, ext, frame)
}

func numbered(dir, name, ext string, frame int) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return filepath.Join(dir, fmt.Sprintf("%s_%04d%s", stem, frame, ext))
}

// Ratios returns the keyframe position of each frame, taken from the audio
// envelope when a wav file is set.
func Ratios(f *flags.Flags) ([]float64, error) {
	if f.Wav != "" {
		return wave.Envelope(f.Wav, f.FPS, f.Amount)
	}
	out := make([]float64, f.Amount)
	for i := range out {
		out[i] = keyframe.Ratio(i, f.Amount)
	}
	return out, nil
}

func warnInvalid(logger *slog.Logger) func(string) {
	return func(name string) {
		logger.Warn(fmt.Sprintf("%s value is invalid, will use default.", strings.ToUpper(name[:1])+name[1:]))
	}
}

// Run renders every frame of f and returns the written paths in frame order.
func Run(ctx context.Context, f *flags.Flags, logger *slog.Logger) ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.Normalize()
	ranges := f.Resolve(warnInvalid(logger))

	seg, err := core.ParseSegmentation(f.Segmentation)
	if err != nil {
		return nil, err
	}
	key, err := psmath.ParseKey(f.Key)
	if err != nil {
		return nil, err
	}
	logger.Debug("options",
		"segmentation", seg, "key", key, "reverse", f.Reverse,
		"threshold", ranges.Threshold, "angle", ranges.Angle, "sangle", ranges.SAngle,
		"size", ranges.Size, "randomness", ranges.Randomness, "length", ranges.Length,
		"scale", ranges.Scale, "width", ranges.Width, "height", ranges.Height,
		"amount", f.Amount, "workers", f.Workers)

	started := time.Now()
	logger.Info(fmt.Sprintf("Opening image %s...", filepath.Base(f.Input)))
	img, err := nrgbautil.LoadImage(f.Input)
	if err != nil {
		return nil, err
	}

	ratios, err := Ratios(f)
	if err != nil {
		return nil, err
	}
	if f.Wav != "" {
		mean, std := wave.Summary(ratios)
		logger.Debug("audio envelope", "file", f.Wav, "fps", f.FPS, "mean", mean, "std", std)
	}

	seed := f.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, f.Amount)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	// Frames run side by side when there are several of them, bands
	// otherwise.
	bandWorkers := f.Workers
	if f.Amount > 1 {
		bandWorkers = 1
	}

	paths := make([]string, f.Amount)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Workers)
	for i := range f.Amount {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Info(fmt.Sprintf("Preparing frame %d/%d...", i+1, f.Amount))
			fp := Frame(ranges, ratios[i])
			engine := core.NewEngine(core.Options{
				Segmentation: seg,
				Key:          key,
				Reverse:      f.Reverse,
				Workers:      bandWorkers,
				Seed:         seeds[i],
			}, logger.With("frame", i+1))

			out := Process(engine, img, fp, f.SecondPass, f.PreserveRes)

			path := OutputPath(f.Input, f.Output, f.Ext, f.Amount, i+1)
			logger.Info(fmt.Sprintf("Saving to %s...", path))
			if err := nrgbautil.WriteFile(out, path); err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info(fmt.Sprintf("%s done in %.3f seconds.", filepath.Base(f.Input), time.Since(started).Seconds()))
	return paths, nil
}
