// Package keyframe turns "start,end" option values into per-frame scalars.
package keyframe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds limits a value. NaN on either side means unbounded.
type Bounds struct {
	Min, Max float64
}

func (b Bounds) Contains(v float64) bool {
	if !math.IsNaN(b.Min) && v < b.Min {
		return false
	}
	if !math.IsNaN(b.Max) && v > b.Max {
		return false
	}
	return true
}

type Range struct {
	Start, End float64
	Int        bool
}

// Constant is a range that does not change across frames.
func Constant(v float64, isInt bool) Range {
	return Range{Start: v, End: v, Int: isInt}
}

// Parse reads "v" or "start,end". An end that fails to parse or falls outside
// bounds is replaced by def; ok is false whenever a replacement happened.
func Parse(value string, def float64, bounds Bounds, isInt bool) (r Range, ok bool) {
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) > 2 {
		return Constant(def, isInt), false
	}
	ok = true
	read := func(s string) float64 {
		v, err := parseNumber(strings.TrimSpace(s), isInt)
		if err != nil || !bounds.Contains(v) {
			ok = false
			return def
		}
		return v
	}
	r = Range{Start: read(parts[0]), End: read(parts[len(parts)-1]), Int: isInt}
	return r, ok
}

func parseNumber(s string, isInt bool) (float64, error) {
	if isInt {
		n, err := strconv.Atoi(s)
		return float64(n), err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return 0, fmt.Errorf("keyframe: %q is not finite", s)
	}
	return v, err
}

// At interpolates the range at ratio in [0,1]. Integer ranges round to the
// nearest integer, float ranges to three decimals.
func (r Range) At(ratio float64) float64 {
	v := r.Start*(1-ratio) + r.End*ratio
	if r.Int {
		return math.RoundToEven(v)
	}
	return math.RoundToEven(v*1000) / 1000
}

func (r Range) String() string {
	if r.Start == r.End {
		return strconv.FormatFloat(r.Start, 'g', -1, 64)
	}
	return strconv.FormatFloat(r.Start, 'g', -1, 64) + "," + strconv.FormatFloat(r.End, 'g', -1, 64)
}

// Ratio is the linear position of frame i (0-based) among n frames.
func Ratio(i, n int) float64 {
	return float64(i) / float64(max(1, n-1))
}
