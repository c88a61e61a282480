package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/faceplate-kleo/glitchsort/lib/flags"
	"github.com/faceplate-kleo/glitchsort/lib/logging"
	"github.com/faceplate-kleo/glitchsort/src/pipeline"
)

func choice(name string, choices []string, normalize func(string) string) func(*cli.Context, string) error {
	return func(_ *cli.Context, v string) error {
		if !lo.Contains(choices, normalize(v)) {
			return fmt.Errorf("invalid %s %q [%s]", name, v, strings.Join(choices, ", "))
		}
		return nil
	}
}

func variable(name, alias, usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    name,
		Aliases: []string{alias},
		Usage:   usage + ` Accepts a "start,end" range across frames.`,
	}
}

func appFlags() []cli.Flag {
	def := flags.Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load options from a YAML `file`; flags on the command line override it"},
		&cli.StringFlag{Name: "save-config", Usage: "write the effective options to a YAML `file`"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: def.Output, Usage: "output `path`; without an extension it is a folder"},
		&cli.StringFlag{
			Name: "ext", Aliases: []string{"e"}, Value: def.Ext,
			Usage:  fmt.Sprintf("output image extension when output is a folder [%s]", strings.Join(flags.ExtChoices, ", ")),
			Action: choice("extension", flags.ExtChoices, strings.ToLower),
		},
		&cli.StringFlag{
			Name: "loglevel", Aliases: []string{"ll"}, Value: def.LogLevel,
			Usage:  fmt.Sprintf("console log `level` [%s], lowercase is also accepted", strings.Join(flags.LogLevelChoices, ", ")),
			Action: choice("log level", flags.LogLevelChoices, strings.ToUpper),
		},
		&cli.StringFlag{
			Name: "segmentation", Aliases: []string{"sg"}, Value: def.Segmentation,
			Usage:  fmt.Sprintf("`segmentation` [%s]", strings.Join(flags.SegmentationChoices, ", ")),
			Action: choice("segmentation", flags.SegmentationChoices, strings.ToLower),
		},
		&cli.StringFlag{
			Name: "key", Aliases: []string{"sk"}, Value: def.Key,
			Usage:  fmt.Sprintf("sorting `key` [%s]", strings.Join(flags.KeyChoices(), ", ")),
			Action: choice("sorting key", flags.KeyChoices(), strings.ToLower),
		},
		variable("threshold", "t", "Threshold for edge detection, between 0 and 1. Default is 0.1."),
		variable("angle", "a", "Angle to rotate the image before sorting in degrees, between 0 and 360. Default is 0."),
		variable("sangle", "sa", "Angle for the second pass, between 0 and 360. Default is 90."),
		variable("size", "sz", `Size of "melting" or "blocky" segmentation, between 0.01 and 1. Default is 0.05.`),
		variable("randomness", "r", `Randomness of "blocky" or "chunky" segmentation, between 0 and 0.5. Default is 0.`),
		variable("length", "l", `Length of "chunky" segmentation, at least 2. Default is 10.`),
		variable("scale", "sc", "Rescale the image before sorting, between 0.01 and 10. Ignored when width or height is set. Default is 1."),
		variable("width", "w", "Resize to width before sorting; 0 keeps the aspect ratio. Default is 0."),
		variable("height", "hg", "Resize to height before sorting; 0 keeps the aspect ratio. Default is 0."),
		&cli.IntFlag{Name: "amount", Aliases: []string{"am"}, Value: def.Amount, Usage: "number of frames to render"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Value: def.Workers, Usage: "sort across `N` goroutines"},
		&cli.Int64Flag{Name: "seed", Usage: "random seed, 0 picks one from the clock"},
		&cli.BoolFlag{Name: "second-pass", Aliases: []string{"sp"}, Usage: "sort a second time at angle + sangle"},
		&cli.BoolFlag{Name: "reverse", Aliases: []string{"re"}, Usage: "reverse the sort direction"},
		&cli.BoolFlag{Name: "preserve-res", Aliases: []string{"pr"}, Usage: "resize the result back to the input resolution"},
		&cli.BoolFlag{Name: "silent", Aliases: []string{"sl"}, Usage: "no console output"},
		&cli.BoolFlag{Name: "nolog", Aliases: []string{"nl"}, Usage: "disable logging"},
		&cli.StringFlag{Name: "wav", Usage: "drive keyframes from the loudness of a PCM `file`"},
		&cli.IntFlag{Name: "fps", Value: def.FPS, Usage: "frames per second of the wav envelope"},
	}
}

// readFlags starts from the preset (or the defaults) and applies every flag
// given on the command line.
func readFlags(ctx *cli.Context) (*flags.Flags, error) {
	f := flags.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := flags.Load(path)
		if err != nil {
			return nil, err
		}
		f = loaded
	}
	f.Input = ctx.Args().First()

	strs := map[string]*string{
		"output": &f.Output, "ext": &f.Ext, "loglevel": &f.LogLevel,
		"segmentation": &f.Segmentation, "key": &f.Key,
		"threshold": &f.Threshold, "angle": &f.Angle, "sangle": &f.SAngle,
		"size": &f.Size, "randomness": &f.Randomness, "length": &f.Length,
		"scale": &f.Scale, "width": &f.Width, "height": &f.Height,
		"wav": &f.Wav,
	}
	for name, dst := range strs {
		if ctx.IsSet(name) {
			*dst = ctx.String(name)
		}
	}
	ints := map[string]*int{"amount": &f.Amount, "workers": &f.Workers, "fps": &f.FPS}
	for name, dst := range ints {
		if ctx.IsSet(name) {
			*dst = ctx.Int(name)
		}
	}
	bools := map[string]*bool{
		"second-pass": &f.SecondPass, "reverse": &f.Reverse, "preserve-res": &f.PreserveRes,
		"silent": &f.Silent, "nolog": &f.NoLog,
	}
	for name, dst := range bools {
		if ctx.IsSet(name) {
			*dst = ctx.Bool(name)
		}
	}
	if ctx.IsSet("seed") {
		f.Seed = ctx.Int64("seed")
	}
	return f, nil
}

func run(ctx *cli.Context) error {
	f, err := readFlags(ctx)
	if err != nil {
		return err
	}
	if f.Input == "" {
		return errors.New("missing input image path")
	}

	logger, closer, err := logging.Setup(logging.Config{
		Level:  f.LogLevel,
		Silent: f.Silent,
		NoLog:  f.NoLog,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if _, err := pipeline.Run(ctx.Context, f, logger); err != nil {
		logger.Log(ctx.Context, logging.LevelCritical, err.Error())
		return err
	}
	if path := ctx.String("save-config"); path != "" {
		if err := flags.Save(f, path); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Options saved to %s.", path))
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:      "glitchsort",
		Usage:     "Sort pixels in images.",
		ArgsUsage: "input_path",
		Flags:     appFlags(),
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
