// Package main is the posetrack command, which recovers per-frame pitch and yaw from recorded or
// synthetic correspondences and scores them against ground truth.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/monovo/correspondence"
	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/pipeline"
	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/score"
	"go.viam.com/monovo/utils"
)

const (
	// Flags.
	flagConfig      = "config"
	flagMatches     = "matches"
	flagGroundTruth = "ground-truth"
	flagOut         = "out"
	flagDebug       = "debug"
	flagFrames      = "frames"
	flagYawDeg      = "yaw-deg"
	flagNoise       = "noise"
	flagSeed        = "seed"
)

// sequenceSource is a correspondence provider that knows how long its sequence is.
type sequenceSource interface {
	correspondence.Provider
	NumFrames() int
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	var logger logging.Logger

	return &cli.App{
		Name:   "posetrack",
		Usage:  "recover camera pitch and yaw from frame correspondences",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging, overriding log_level in the config",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("posetrack")
			} else {
				logger = logging.NewLogger("posetrack")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "track a recorded sequence of matches",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Usage:    "pipeline configuration `FILE`",
						Required: true,
					},
					&cli.PathFlag{
						Name:     flagMatches,
						Usage:    "JSON match `FILE`, one entry per frame pair",
						Required: true,
					},
					&cli.PathFlag{
						Name:     flagGroundTruth,
						Usage:    "ground truth `FILE` with one \"pitch yaw\" line per estimated frame",
						Required: true,
					},
					&cli.PathFlag{
						Name:  flagOut,
						Usage: "write predictions to `FILE`",
					},
				},
				Action: func(c *cli.Context) error {
					return runCommand(c, logger)
				},
			},
			{
				Name:  "simulate",
				Usage: "track a synthetic yaw sweep",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "pipeline configuration `FILE`; defaults to the calibration challenge camera",
					},
					&cli.IntFlag{
						Name:  flagFrames,
						Value: 10,
						Usage: "number of frames",
					},
					&cli.Float64Flag{
						Name:  flagYawDeg,
						Value: 2,
						Usage: "yaw between consecutive frames in degrees",
					},
					&cli.Float64Flag{
						Name:  flagNoise,
						Usage: "gaussian pixel noise added to the matches",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Value: 1,
						Usage: "random seed for the noise",
					},
					&cli.PathFlag{
						Name:  flagOut,
						Usage: "write predictions to `FILE`",
					},
				},
				Action: func(c *cli.Context) error {
					return simulateCommand(c, logger)
				},
			},
		},
	}
}

func runCommand(c *cli.Context, logger logging.Logger) error {
	conf, err := pipeline.ReadConfigFile(c.Path(flagConfig))
	if err != nil {
		return err
	}
	provider, err := correspondence.NewFileProviderFromJSONFile(c.Path(flagMatches))
	if err != nil {
		return err
	}
	groundTruth, err := score.ReadGroundTruthFile(c.Path(flagGroundTruth))
	if err != nil {
		return err
	}
	return track(c, *conf, provider, groundTruth, logger)
}

func simulateCommand(c *cli.Context, logger logging.Logger) error {
	conf := pipeline.Config{Intrinsics: defaultIntrinsics()}
	if path := c.Path(flagConfig); path != "" {
		read, err := pipeline.ReadConfigFile(path)
		if err != nil {
			return err
		}
		conf = *read
	}
	numFrames := c.Int(flagFrames)
	if numFrames < 2 {
		return errors.Errorf("need at least 2 frames, got %d", numFrames)
	}
	yaws := make([]float64, numFrames)
	for i := 1; i < numFrames; i++ {
		yaws[i] = utils.DegToRad(c.Float64(flagYawDeg))
	}
	provider, groundTruth := correspondence.NewYawSweep(conf.Intrinsics, yaws, r3.Vector{X: 0.2, Z: 1}, c.Int64(flagSeed))
	provider.Noise = c.Float64(flagNoise)
	return track(c, conf, provider, groundTruth, logger)
}

func defaultIntrinsics() *transform.PinholeCameraIntrinsics {
	return &transform.PinholeCameraIntrinsics{
		Width:  1164,
		Height: 874,
		Fx:     910,
		Fy:     910,
		Ppx:    582,
		Ppy:    437,
	}
}

func track(
	c *cli.Context,
	conf pipeline.Config,
	provider sequenceSource,
	groundTruth []transform.AngleEstimate,
	logger logging.Logger,
) error {
	if c.Bool(flagDebug) {
		conf.LogLevel = nil
	}
	p, err := pipeline.New(conf, provider, groundTruth, logger)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(p.Close)

	var last pipeline.Output
	for i := 0; i < provider.NumFrames(); i++ {
		out, err := p.Process(c.Context, correspondence.Frame{Index: i})
		if err != nil {
			return err
		}
		if !out.Emitted {
			continue
		}
		last = out
		note := ""
		if out.Recovered {
			note = " (recovered)"
		}
		fmt.Fprintf(c.App.Writer, "frame %d: pitch %.4f deg yaw %.4f deg error %s%s\n",
			out.Frame, utils.RadToDeg(out.Estimate.Pitch), utils.RadToDeg(out.Estimate.Yaw), formatPercent(out.Score), note)
	}
	fmt.Fprintf(c.App.Writer, "final error over %d frames: %s\n", last.Score.Frames, formatPercent(last.Score))

	if path := c.Path(flagOut); path != "" {
		if err := score.WritePredictionsFile(path, p.Predictions()); err != nil {
			return err
		}
	}
	return nil
}

func formatPercent(res score.Result) string {
	if !res.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", res.Percent)
}
