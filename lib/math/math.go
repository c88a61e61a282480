package math

import (
	"fmt"
	"image/color"
	gomath "math"
	"slices"
	"strings"
)

// Key reduces a pixel to the scalar it is ordered by.
type Key int

const (
	Hue Key = iota
	Lightness
	Saturation
	MinValue
	MaxValue
	Red
	Green
	Blue
)

var keyNames = [...]string{
	Hue:        "hue",
	Lightness:  "lightness",
	Saturation: "saturation",
	MinValue:   "min_value",
	MaxValue:   "max_value",
	Red:        "red",
	Green:      "green",
	Blue:       "blue",
}

// KeyNames lists the accepted key names in key order.
func KeyNames() []string {
	return slices.Clone(keyNames[:])
}

func ParseKey(name string) (Key, error) {
	i := slices.Index(keyNames[:], strings.ToLower(name))
	if i < 0 {
		return 0, fmt.Errorf("unknown sorting key %q (valid: %s)", name, strings.Join(KeyNames(), ", "))
	}
	return Key(i), nil
}

func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Value returns the key of p in [0,255]. Alpha never takes part.
func (k Key) Value(p color.NRGBA) int {
	switch k {
	case Hue:
		h, _, _ := HLS(p)
		return unit(h)
	case Lightness:
		_, l, _ := HLS(p)
		return unit(l)
	case Saturation:
		_, _, s := HLS(p)
		return unit(s)
	case MinValue:
		return int(min(p.R, p.G, p.B))
	case MaxValue:
		return int(max(p.R, p.G, p.B))
	case Red:
		return int(p.R)
	case Green:
		return int(p.G)
	case Blue:
		return int(p.B)
	}
	panic(fmt.Sprintf("psmath: invalid key %d", int(k)))
}

func (k Key) costly() bool {
	return k == Hue || k == Lightness || k == Saturation
}

// truncates a [0,1] component to [0,255]
func unit(v float64) int {
	return int(v * 255)
}

// HLS converts p to hue, lightness and saturation, each in [0,1].
// Achromatic pixels have hue and saturation 0.
func HLS(p color.NRGBA) (h, l, s float64) {
	r := float64(p.R) / 255
	g := float64(p.G) / 255
	b := float64(p.B) / 255

	maxc := max(r, g, b)
	minc := min(r, g, b)
	sumc := maxc + minc
	rangec := maxc - minc

	l = sumc / 2
	if minc == maxc {
		return 0, l, 0
	}
	if l <= 0.5 {
		s = rangec / sumc
	} else {
		s = rangec / (2 - sumc)
	}

	rc := (maxc - r) / rangec
	gc := (maxc - g) / rangec
	bc := (maxc - b) / rangec
	switch {
	case r == maxc:
		h = bc - gc
	case g == maxc:
		h = 2 + rc - bc
	default:
		h = 4 + gc - rc
	}
	h /= 6
	h -= gomath.Floor(h)
	return h, l, s
}

// KeyCache memoizes key values per distinct RGB triple. Only the HLS keys are
// worth caching; the channel keys are computed directly.
//
// A KeyCache is not safe for concurrent use.
type KeyCache struct {
	key  Key
	memo map[uint32]int
}

func NewKeyCache(k Key) *KeyCache {
	c := &KeyCache{key: k}
	if k.costly() {
		c.memo = make(map[uint32]int)
	}
	return c
}

func (c *KeyCache) Value(p color.NRGBA) int {
	if c.memo == nil {
		return c.key.Value(p)
	}
	rgb := uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
	if v, ok := c.memo[rgb]; ok {
		return v
	}
	v := c.key.Value(p)
	c.memo[rgb] = v
	return v
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
