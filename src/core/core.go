package core

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"github.com/faceplate-kleo/glitchsort/lib/edges"
	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
	"github.com/faceplate-kleo/glitchsort/lib/nrgbautil"
)

// Params are the per-pass values. Angle describes how the raster was rotated
// before the pass and is only used to locate the padding.
type Params struct {
	Threshold  float64
	Angle      int
	Size       float64
	Randomness float64
	Length     int
}

type Options struct {
	Segmentation Segmentation
	Key          psmath.Key
	Reverse      bool

	// Workers > 1 splits the rows into bands sorted concurrently, each with
	// its own generator and key cache.
	Workers int

	// Seed for the engine's generator; 0 picks one from the clock.
	Seed int64
}

// Engine runs sorting passes. It may be reused for any number of passes but
// must not run two passes at once.
type Engine struct {
	opts   Options
	logger *slog.Logger
	rng    *rand.Rand
}

func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// SortImage runs one pass over imData in place. original is the size of the
// image before it was rotated into imData.
func (e *Engine) SortImage(imData *image.NRGBA, params Params, original image.Point) {
	px := nrgbautil.Pixels(imData)
	e.Sort(px, imData.Rect.Dx(), imData.Rect.Dy(), params, original)
	nrgbautil.PutPixels(imData, px)
}

// pass is everything derived once per Sort call.
type pass struct {
	params   Params
	original image.Point
	width    int
	spans    []span
	edges    *edges.Map
	chunky   []int
}

// Sort runs one pass over a row-major buffer of width*height pixels in place.
// Invalid dimensions are programming errors and panic.
func (e *Engine) Sort(buf []color.NRGBA, width, height int, params Params, original image.Point) {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("core: invalid raster size %dx%d", width, height))
	}
	if len(buf) != width*height {
		panic(fmt.Sprintf("core: buffer has %d pixels, want %d (%dx%d)", len(buf), width*height, width, height))
	}
	if e.opts.Segmentation == SegmentChunky && params.Length < 1 {
		panic(fmt.Sprintf("core: chunk length %d", params.Length))
	}

	started := time.Now()
	p := &pass{
		params:   params,
		original: original,
		width:    width,
		spans:    newGeometry(params.Angle, original, width, height).spans(),
	}
	if e.opts.Segmentation == SegmentEdge {
		p.edges = edges.FromPixels(buf, width, height)
	}
	if e.opts.Segmentation == SegmentChunky {
		p.chunky = chunkyOffsets(p.spans, params.Length)
	}

	bands := e.bands(height)
	if len(bands) == 1 {
		e.sortBand(p, buf, bands[0], e.rng, psmath.NewKeyCache(e.opts.Key))
	} else {
		wg := sizedwaitgroup.New(e.opts.Workers)
		for _, b := range bands {
			rng := rand.New(rand.NewSource(e.rng.Int63()))
			wg.Add()
			go func(b span, rng *rand.Rand) {
				defer wg.Done()
				e.sortBand(p, buf, b, rng, psmath.NewKeyCache(e.opts.Key))
			}(b, rng)
		}
		wg.Wait()
	}

	e.logger.Debug("sorting pass done",
		"segmentation", e.opts.Segmentation,
		"key", e.opts.Key,
		"angle", params.Angle,
		"size", fmt.Sprintf("%dx%d", width, height),
		"bands", len(bands),
		"elapsed", time.Since(started))
}

// bands splits [0,height) into contiguous row ranges, one per unit of work.
func (e *Engine) bands(height int) []span {
	if e.opts.Workers <= 1 || height < 2 {
		return []span{{0, height}}
	}
	n := min(e.opts.Workers*4, height)
	size := (height + n - 1) / n
	out := make([]span, 0, n)
	for y := 0; y < height; y += size {
		out = append(out, span{y, min(y+size, height)})
	}
	return out
}

func (e *Engine) sortBand(p *pass, buf []color.NRGBA, rows span, rng Rand, keys *psmath.KeyCache) {
	rc := &rowContext{
		params:   p.params,
		original: p.original,
		reverse:  e.opts.Reverse,
		rng:      rng,
		keys:     keys,
	}
	var row []color.NRGBA
	for y := rows.start; y < rows.end; y++ {
		s := p.spans[y]
		if s.len() < 2 {
			continue
		}
		rc.y, rc.start, rc.end = y, s.start, s.end
		if p.edges != nil {
			rc.edges = p.edges.Row(y, s.start, s.end)
		}
		if p.chunky != nil {
			rc.chunkyOffset = p.chunky[y]
		}

		off := y * p.width
		row = append(row[:0], buf[off+s.start:off+s.end]...)
		e.opts.Segmentation.apply(row, rc)
		copy(buf[off+s.start:off+s.end], row)
	}
}

// chunkyOffsets folds the chunk phase over the rows so that each row knows
// its entering offset without depending on the rows sorted before it.
func chunkyOffsets(spans []span, length int) []int {
	out := make([]int, len(spans))
	offset := 0
	for y, s := range spans {
		out[y] = offset
		if s.len() < 2 {
			continue
		}
		offset = nextChunkyOffset(s.len(), offset, length)
	}
	return out
}
