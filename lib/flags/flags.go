// Package flags holds the user-facing options, their defaults and bounds,
// and loads or saves them as YAML presets.
package flags

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/faceplate-kleo/glitchsort/lib/keyframe"
	psmath "github.com/faceplate-kleo/glitchsort/lib/math"
)

var (
	SegmentationChoices = []string{"none", "row", "edge", "melting", "chunky", "blocky"}
	LogLevelChoices     = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
	ExtChoices          = []string{"same", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff"}
)

func KeyChoices() []string {
	return psmath.KeyNames()
}

// Flags is the full option set of a run. Variable options are kept as text
// because they may hold a "start,end" keyframe range.
type Flags struct {
	Input        string `yaml:"-"`
	Output       string `yaml:"output"`
	Ext          string `yaml:"ext"`
	LogLevel     string `yaml:"loglevel"`
	Segmentation string `yaml:"segmentation"`
	Key          string `yaml:"key"`

	Threshold  string `yaml:"threshold"`
	Angle      string `yaml:"angle"`
	SAngle     string `yaml:"sangle"`
	Size       string `yaml:"size"`
	Randomness string `yaml:"randomness"`
	Length     string `yaml:"length"`
	Scale      string `yaml:"scale"`
	Width      string `yaml:"width"`
	Height     string `yaml:"height"`

	Amount  int   `yaml:"amount"`
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`

	SecondPass  bool `yaml:"secondPass"`
	Reverse     bool `yaml:"reverse"`
	PreserveRes bool `yaml:"preserveRes"`
	Silent      bool `yaml:"silent"`
	NoLog       bool `yaml:"nolog"`

	// Wav drives the keyframe ratio from the audio envelope when set.
	Wav string `yaml:"wav"`
	FPS int    `yaml:"fps"`
}

type variable struct {
	name   string
	def    float64
	bounds keyframe.Bounds
	isInt  bool
	field  func(*Flags) *string
}

var variables = []variable{
	{"threshold", 0.1, keyframe.Bounds{Min: 0, Max: 1}, false, func(f *Flags) *string { return &f.Threshold }},
	{"angle", 0, keyframe.Bounds{Min: 0, Max: 360}, true, func(f *Flags) *string { return &f.Angle }},
	{"sangle", 90, keyframe.Bounds{Min: 0, Max: 360}, true, func(f *Flags) *string { return &f.SAngle }},
	{"size", 0.05, keyframe.Bounds{Min: 0.01, Max: 1}, false, func(f *Flags) *string { return &f.Size }},
	{"randomness", 0, keyframe.Bounds{Min: 0, Max: 0.5}, false, func(f *Flags) *string { return &f.Randomness }},
	{"length", 10, keyframe.Bounds{Min: 2, Max: math.NaN()}, true, func(f *Flags) *string { return &f.Length }},
	{"scale", 1, keyframe.Bounds{Min: 0.01, Max: 10}, false, func(f *Flags) *string { return &f.Scale }},
	{"width", 0, keyframe.Bounds{Min: 0, Max: math.NaN()}, true, func(f *Flags) *string { return &f.Width }},
	{"height", 0, keyframe.Bounds{Min: 0, Max: math.NaN()}, true, func(f *Flags) *string { return &f.Height }},
}

func lookup(name string) variable {
	v, ok := lo.Find(variables, func(v variable) bool { return v.name == name })
	if !ok {
		panic("flags: unknown variable option " + name)
	}
	return v
}

func (v variable) defaultText() string {
	return strconv.FormatFloat(v.def, 'f', -1, 64)
}

func Default() *Flags {
	f := &Flags{
		Output:       "pixelsorted",
		Ext:          "same",
		LogLevel:     "INFO",
		Segmentation: "edge",
		Key:          "lightness",
		Amount:       1,
		Workers:      1,
		FPS:          25,
	}
	for _, v := range variables {
		*v.field(f) = v.defaultText()
	}
	return f
}

// Load reads a YAML preset on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Flags, error) {
	f := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return f, nil
}

func Save(f *Flags, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate rejects names outside the known choices.
func (f *Flags) Validate() error {
	if f.Input == "" {
		return errors.New("input path is required")
	}
	if !lo.Contains(SegmentationChoices, strings.ToLower(f.Segmentation)) {
		return choiceError("segmentation", f.Segmentation, SegmentationChoices)
	}
	if !lo.Contains(KeyChoices(), strings.ToLower(f.Key)) {
		return choiceError("sorting key", f.Key, KeyChoices())
	}
	if !lo.Contains(LogLevelChoices, strings.ToUpper(f.LogLevel)) {
		return choiceError("log level", f.LogLevel, LogLevelChoices)
	}
	if !lo.Contains(ExtChoices, strings.ToLower(f.Ext)) {
		return choiceError("extension", f.Ext, ExtChoices)
	}
	return nil
}

func choiceError(what, got string, choices []string) error {
	return fmt.Errorf("invalid %s %q, available choices: %s", what, got, strings.Join(choices, ", "))
}

// Normalize resets options the chosen segmentation does not use.
func (f *Flags) Normalize() {
	seg := strings.ToLower(f.Segmentation)
	reset := func(name string) {
		v := lookup(name)
		*v.field(f) = v.defaultText()
	}
	if seg != "edge" {
		reset("threshold")
	}
	if !f.SecondPass {
		reset("sangle")
	}
	if seg != "melting" && seg != "blocky" {
		reset("size")
	}
	if seg != "blocky" && seg != "chunky" {
		reset("randomness")
	}
	if seg != "chunky" {
		reset("length")
	}
	if strings.TrimSpace(f.Width) != "0" || strings.TrimSpace(f.Height) != "0" {
		reset("scale")
	}
}

// Ranges are the parsed variable options.
type Ranges struct {
	Threshold, Angle, SAngle, Size, Randomness, Length keyframe.Range
	Scale, Width, Height                               keyframe.Range
}

// Resolve parses the variable options and clamps the plain ones. Every value
// that had to fall back to its default is reported to warn by option name.
func (f *Flags) Resolve(warn func(name string)) Ranges {
	parsed := make(map[string]keyframe.Range, len(variables))
	for _, v := range variables {
		r, ok := keyframe.Parse(*v.field(f), v.def, v.bounds, v.isInt)
		if !ok {
			warn(v.name)
		}
		parsed[v.name] = r
	}
	if f.Amount < 1 {
		warn("amount")
		f.Amount = 1
	}
	if f.Workers < 1 {
		warn("workers")
		f.Workers = 1
	}
	if f.FPS < 1 {
		warn("fps")
		f.FPS = 25
	}
	return Ranges{
		Threshold:  parsed["threshold"],
		Angle:      parsed["angle"],
		SAngle:     parsed["sangle"],
		Size:       parsed["size"],
		Randomness: parsed["randomness"],
		Length:     parsed["length"],
		Scale:      parsed["scale"],
		Width:      parsed["width"],
		Height:     parsed["height"],
	}
}
