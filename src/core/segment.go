package core

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strings"

	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
)

// Segmentation selects how a row span is cut into independently sorted runs.
type Segmentation int

const (
	SegmentNone Segmentation = iota
	SegmentEdge
	SegmentMelting
	SegmentBlocky
	SegmentChunky
)

var segmentationNames = map[string]Segmentation{
	"none":    SegmentNone,
	"row":     SegmentNone,
	"edge":    SegmentEdge,
	"melting": SegmentMelting,
	"blocky":  SegmentBlocky,
	"chunky":  SegmentChunky,
}

func ParseSegmentation(name string) (Segmentation, error) {
	s, ok := segmentationNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown segmentation %q", name)
	}
	return s, nil
}

func (s Segmentation) String() string {
	switch s {
	case SegmentNone:
		return "none"
	case SegmentEdge:
		return "edge"
	case SegmentMelting:
		return "melting"
	case SegmentBlocky:
		return "blocky"
	case SegmentChunky:
		return "chunky"
	}
	return fmt.Sprintf("Segmentation(%d)", int(s))
}

var strategies = [...]func(row []color.NRGBA, rc *rowContext){
	SegmentNone:    sortNone,
	SegmentEdge:    sortEdge,
	SegmentMelting: sortMelting,
	SegmentBlocky:  sortBlocky,
	SegmentChunky:  sortChunky,
}

func (s Segmentation) apply(row []color.NRGBA, rc *rowContext) {
	if s < 0 || int(s) >= len(strategies) {
		panic(fmt.Sprintf("core: invalid segmentation %d", int(s)))
	}
	strategies[s](row, rc)
}

// Rand is the source of randomness the strategies draw from.
type Rand interface {
	Float64() float64
}

type keyed struct {
	p color.NRGBA
	k int
}

// rowContext carries what one row needs. start and end are the row's span in
// raster coordinates; row slices passed to the strategies are relative to start.
type rowContext struct {
	y, start, end int

	params   Params
	original image.Point
	reverse  bool

	edges        []uint8
	chunkyOffset int

	rng     Rand
	keys    *psmath.KeyCache
	scratch []keyed
}

// sortRange stably sorts row[lo:hi] by key after clamping both bounds into the row.
func (rc *rowContext) sortRange(row []color.NRGBA, lo, hi int, reverse bool) {
	lo = psmath.Clamp(lo, 0, len(row))
	hi = psmath.Clamp(hi, 0, len(row))
	if hi-lo < 2 {
		return
	}
	seg := row[lo:hi]

	buf := rc.scratch[:0]
	for _, p := range seg {
		buf = append(buf, keyed{p, rc.keys.Value(p)})
	}
	if reverse {
		slices.SortStableFunc(buf, func(a, b keyed) int { return cmp.Compare(b.k, a.k) })
	} else {
		slices.SortStableFunc(buf, func(a, b keyed) int { return cmp.Compare(a.k, b.k) })
	}
	for i := range buf {
		seg[i] = buf[i].p
	}
	rc.scratch = buf
}

func sortNone(row []color.NRGBA, rc *rowContext) {
	rc.sortRange(row, 0, len(row), rc.reverse)
}

// sortEdge cuts the row at every pixel whose edge lightness exceeds the
// threshold. Boundary pixels stay where they are.
func sortEdge(row []color.NRGBA, rc *rowContext) {
	cutoff := rc.params.Threshold * 255
	begin := 0
	for x := range row {
		if float64(rc.edges[x]) > cutoff {
			rc.sortRange(row, begin, x, rc.reverse)
			begin = x + 1
		}
	}
	rc.sortRange(row, begin, len(row), rc.reverse)
}

func sortMelting(row []color.NRGBA, rc *rowContext) {
	width := rc.params.Size * float64(rc.original.X) * (1 - 0.5*(rc.rng.Float64()+0.5))
	width = math.Max(width, 1)

	n := float64(len(row))
	x := 0.0
	first := true
	for x < n {
		last := roundIndex(x)
		if first {
			x += width * rc.rng.Float64()
			first = false
		} else {
			x += width
		}
		rc.sortRange(row, last, roundIndex(x), rc.reverse)
	}
}

// sortBlocky tiles the row on a grid of blockSize anchored in raster
// coordinates. One random offset per row moves the end of the first block,
// shifting every later grid line with it. Odd block rows sort the other way.
func sortBlocky(row []color.NRGBA, rc *rowContext) {
	blockSize := math.Max(rc.params.Size*float64(rc.original.X), 1)
	offset := math.RoundToEven(blockSize * rc.params.Randomness * (rc.rng.Float64() - 0.5))

	rstart, rend := float64(rc.start), float64(rc.end)
	odd := int(math.Floor(float64(rc.y)/blockSize))%2 == 1
	reverse := odd != rc.reverse

	x := math.Floor(rstart/blockSize) * blockSize
	first := true
	for x < rend {
		prev := x
		last := max(roundIndex(x)-rc.start, 0)

		x += blockSize
		if first {
			x += offset
			first = false
		}
		x = math.Max(x, rstart)
		if math.Max(0, rend-x) <= -offset+1 {
			x -= offset
		}
		if x <= prev {
			x = prev + blockSize
		}

		rc.sortRange(row, last, roundIndex(x)-rc.start, reverse)
	}
}

// sortChunky cuts the row into runs of Length pixels whose ends are jittered
// independently. The phase comes from the previous row.
func sortChunky(row []color.NRGBA, rc *rowContext) {
	l := rc.params.Length
	jitter := float64(l) * rc.params.Randomness

	offset := 0
	x := -(l - rc.chunkyOffset)
	for x < len(row) {
		lastOffset := offset
		offset = roundIndex(jitter * (rc.rng.Float64() - 0.5))
		last := max(x, 0)
		x += l
		rc.sortRange(row, last+lastOffset, x+offset, rc.reverse)
	}
}

// nextChunkyOffset carries the chunk phase from a row of n pixels to the
// next row. The result is reduced modulo length.
func nextChunkyOffset(n, offset, length int) int {
	if n == 0 {
		return offset
	}
	next := floorMod((floorDiv(n-offset, length)+1)*length+offset, n)
	return floorMod(next, length)
}
