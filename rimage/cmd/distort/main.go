// Package main is a command line tool that renders image files through a lens distortion model.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lensdistort/logging"
	"go.viam.com/lensdistort/rimage"
	"go.viam.com/lensdistort/rimage/transform"
)

const (
	flagDebug         = "debug"
	flagInput         = "input"
	flagOutput        = "output"
	flagParams        = "params"
	flagWidth         = "width"
	flagHeight        = "height"
	flagDirection     = "direction"
	flagInterpolation = "interpolation"
	flagBorder        = "border"
	flagBorderColor   = "border-color"
	flagMargin        = "margin"
	flagPlot          = "plot"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		logging.Global().Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	var logger logging.Logger

	return &cli.App{
		Name:      "distort",
		Usage:     "render images through a pinhole lens distortion model",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("distort")
				c.Context = logging.EnableDebugMode(c.Context)
			} else {
				logger = logging.NewLogger("distort")
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "resample an image file through the lens model",
				UsageText: "distort run --input IN --output OUT --params PARAMS [options]",
				Flags: append([]cli.Flag{
					&cli.PathFlag{Name: flagInput, Aliases: []string{"i"}, Required: true, Usage: "source image `FILE`"},
					&cli.PathFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "output image `FILE`, encoded by extension",
					},
					paramsFlag(),
					&cli.StringFlag{Name: flagDirection, Usage: "apply or remove the distortion"},
					&cli.StringFlag{Name: flagInterpolation, Usage: "nearest, linear, cubic or lanczos4"},
					&cli.StringFlag{Name: flagBorder, Usage: "transparent, constant, replicate, reflect, reflect101 or wrap"},
					&cli.StringFlag{Name: flagBorderColor, Usage: "constant border color as #rrggbb or #rrggbbaa"},
				}, sizeFlags()...),
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:      "map",
				Usage:     "print statistics about the sampling map of the lens model",
				UsageText: "distort map --params PARAMS [--width W --height H] [--output STATS.json] [--plot PLOT.png]",
				Flags: append([]cli.Flag{
					paramsFlag(),
					&cli.PathFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "write the statistics to `FILE`"},
					&cli.PathFlag{Name: flagPlot, Usage: "plot displacement against radius to `FILE` (png, svg, pdf)"},
					&cli.StringFlag{Name: flagDirection, Usage: "apply or remove the distortion"},
				}, sizeFlags()...),
				Action: func(c *cli.Context) error {
					return mapAction(c, logger)
				},
			},
			{
				Name:      "compare",
				Usage:     "compare two images of the same size",
				ArgsUsage: "<image a> <image b>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagMargin, Usage: "ignore this many pixels along every edge"},
				},
				Action: compareAction,
			},
		},
	}
}

func paramsFlag() cli.Flag {
	return &cli.PathFlag{
		Name:     flagParams,
		Aliases:  []string{"p"},
		Required: true,
		Usage:    "camera parameters JSON `FILE`",
	}
}

func sizeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: flagWidth, Usage: "output width in pixels, defaults to the calibrated width"},
		&cli.IntFlag{Name: flagHeight, Usage: "output height in pixels, defaults to the calibrated height"},
	}
}

// loadParameters reads the camera parameters and applies flag overrides to the mapper config.
func loadParameters(c *cli.Context) (*transform.CameraParameters, *transform.MapperConfig, image.Point, error) {
	params, err := transform.NewCameraParametersFromJSONFile(c.Path(flagParams))
	if err != nil {
		return nil, nil, image.Point{}, err
	}
	conf := transform.MapperConfig{}
	if params.Mapper != nil {
		conf = *params.Mapper
	}
	overrides := map[string]*string{
		flagDirection:     &conf.Direction,
		flagInterpolation: &conf.Interpolation,
		flagBorder:        &conf.Border,
		flagBorderColor:   &conf.BorderColor,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
	if err := conf.Validate("flags"); err != nil {
		return nil, nil, image.Point{}, err
	}

	size := params.Intrinsics.Size()
	if c.IsSet(flagWidth) {
		size.X = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		size.Y = c.Int(flagHeight)
	}
	return params, &conf, size, nil
}

func runAction(c *cli.Context, logger logging.Logger) error {
	params, conf, size, err := loadParameters(c)
	if err != nil {
		return err
	}
	src, err := rimage.ReadImageFromFile(c.Path(flagInput))
	if err != nil {
		return err
	}
	mapper, err := transform.NewDistortionMapper(conf, logger.Sublogger("mapper"))
	if err != nil {
		return err
	}
	out, err := mapper.DistortImage(c.Context, src, params.Intrinsics.GetCameraMatrix(), params.DistortionCoefficients(), size)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(c.Path(flagOutput), out); err != nil {
		return err
	}
	logger.Infow("wrote image", "path", c.Path(flagOutput), "width", size.X, "height", size.Y)
	return nil
}

func mapAction(c *cli.Context, logger logging.Logger) error {
	params, conf, size, err := loadParameters(c)
	if err != nil {
		return err
	}
	mapper, err := transform.NewDistortionMapper(conf, logger.Sublogger("mapper"))
	if err != nil {
		return err
	}
	m, err := mapper.BuildSamplingMap(params.Intrinsics.GetCameraMatrix(), params.DistortionCoefficients(), size)
	if err != nil {
		return err
	}
	summary, err := summarizeDisplacement(m)
	if err != nil {
		return err
	}
	report := mapReport{
		Width:        size.X,
		Height:       size.Y,
		Direction:    string(mapper.Direction()),
		Stats:        m.Stats(params.Intrinsics.Size()),
		Displacement: summary,
	}
	if c.IsSet(flagPlot) {
		center := r2.Point{X: params.Intrinsics.Ppx, Y: params.Intrinsics.Ppy}
		if err := plotDisplacement(m, center, c.Path(flagPlot)); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if !c.IsSet(flagOutput) {
		_, err = fmt.Fprintln(c.App.Writer, string(data))
		return err
	}
	return errors.Wrap(os.WriteFile(c.Path(flagOutput), data, 0o600), "error writing map statistics")
}

func compareAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("compare needs <image a> <image b>")
	}
	a, err := rimage.ReadImageFromFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	b, err := rimage.ReadImageFromFile(c.Args().Get(1))
	if err != nil {
		return err
	}
	region := image.Rectangle{}
	if c.IsSet(flagMargin) {
		if a.Bounds().Size() != b.Bounds().Size() {
			return errors.Errorf("image dimensions don't match %v != %v", a.Bounds().Size(), b.Bounds().Size())
		}
		region = rimage.InteriorRect(a.Bounds().Size(), c.Int(flagMargin))
		if region.Empty() {
			return errors.Errorf("margin %d leaves nothing to compare", c.Int(flagMargin))
		}
	}
	diff, err := rimage.CompareImages(a, b, region)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "pixels=%d mean_lab_distance=%.6f max_channel_delta=%d alpha_mismatches=%d\n",
		diff.Pixels, diff.MeanLabDistance, diff.MaxChannelDelta, diff.AlphaMismatches)
	return err
}
