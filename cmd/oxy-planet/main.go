// Package main is the oxy-planet command: it opens a window (or runs headless) and flies a viewer over a
// procedurally generated planet.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine"
	"github.com/Carmen-Shannon/oxy-planet/engine/camera"
	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-planet/engine/systems"
	"github.com/Carmen-Shannon/oxy-planet/engine/terrain"
	"github.com/Carmen-Shannon/oxy-planet/engine/window"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	flagConfig      = "config"
	flagHeadless    = "headless"
	flagFrames      = "frames"
	flagDebug       = "debug"
	flagTextureSize = "texture-size"
	flagAltitude    = "altitude"
	flagSoftware    = "software"
	flagFPS         = "fps"
	flagProfile     = "profile"
	flagWidth       = "width"
	flagHeight      = "height"
)

var app = &cli.App{
	Name:            "oxy-planet",
	Usage:           "render a planet with a clipmap terrain atlas",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load parameters from `FILE`",
		},
		&cli.BoolFlag{
			Name:  flagHeadless,
			Usage: "run without a window on the software backend",
		},
		&cli.IntFlag{
			Name:  flagFrames,
			Usage: "stop after `N` frames (0 runs until the window closes)",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
		&cli.IntFlag{
			Name:  flagTextureSize,
			Usage: "override the atlas layer edge length in texels",
		},
		&cli.Int64Flag{
			Name:  flagAltitude,
			Value: 10_000_000,
			Usage: "initial viewer altitude above the surface in millimeters",
		},
		&cli.BoolFlag{
			Name:  flagSoftware,
			Usage: "force a software GPU adapter for the wgpu backend",
		},
		&cli.Float64Flag{
			Name:  flagFPS,
			Usage: "cap the frame rate (0 is uncapped)",
		},
		&cli.BoolFlag{
			Name:  flagProfile,
			Usage: "log a performance summary every second",
		},
		&cli.IntFlag{
			Name:  flagWidth,
			Value: 1280,
			Usage: "window width in pixels",
		},
		&cli.IntFlag{
			Name:  flagHeight,
			Value: 720,
			Usage: "window height in pixels",
		},
	},
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "creating logger")
	}
	return logger.Sugar(), nil
}

// loadParameters reads the configuration file, if any, and applies flag overrides.
func loadParameters(c *cli.Context) (config.Parameters, error) {
	params := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return params, err
		}
		params = loaded
	}
	if c.IsSet(flagTextureSize) {
		params.TerrainTextureSize = c.Int(flagTextureSize)
	}
	if err := params.Validate(); err != nil {
		return params, errors.Wrap(err, "invalid parameters")
	}
	return params, nil
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	params, err := loadParameters(c)
	if err != nil {
		return err
	}
	field := terrain.NewNoiseField(params.ElevationSeed, params.ElevationOctaves)
	width, height := c.Int(flagWidth), c.Int(flagHeight)

	var (
		win     window.Window
		backend = renderer.BackendTypeSoftware
	)
	if !c.Bool(flagHeadless) {
		win, err = window.NewWindow(
			window.WithTitle("oxy-planet"),
			window.WithWidth(width),
			window.WithHeight(height),
		)
		if err != nil {
			return err
		}
		backend = renderer.BackendTypeWGPU
	}

	msaa := renderer.MSAAOff
	if params.MSAASamples > 1 {
		msaa = renderer.MSAA4x
	}
	device, err := renderer.NewDevice(backend, win,
		renderer.WithLogger(logger.Named("renderer")),
		renderer.WithElevationField(field),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(c.Bool(flagSoftware)),
	)
	if err != nil {
		if win != nil {
			_ = win.Close()
		}
		return errors.Wrap(err, "creating device")
	}

	store := demoScene(params, c.Int64(flagAltitude), [2]int{width, height})
	controller := camera.NewCameraController(
		camera.WithAnglePerPixel(params.AnglePerPixel),
		camera.WithPlayerHeight(params.PlayerHeight),
	)

	opts := []engine.EngineBuilderOption{
		engine.WithStore(store),
		engine.WithDevice(device),
		engine.WithLogger(logger.Named("engine")),
		engine.WithProfiling(c.Bool(flagProfile)),
		engine.WithRenderFrameLimit(c.Float64(flagFPS)),
		engine.WithSystems(
			&systems.InputSystem{},
			systems.NewCameraSystem(controller),
			&systems.RotationSystem{},
			systems.NewRenderSystem(device, params, logger.Named("planet")),
		),
	}
	if win != nil {
		opts = append(opts, engine.WithWindow(win))
	}
	eng := engine.NewEngine(opts...)

	logger.Infow("starting",
		"backend", backend.String(),
		"texture_size", params.TerrainTextureSize,
		"texture_count", params.TerrainTextureCount,
		"altitude", c.Int64(flagAltitude),
	)

	if n := c.Int(flagFrames); n > 0 {
		err = eng.RunFrames(n)
	} else {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		go func() {
			<-ctx.Done()
			eng.Quit()
		}()
		err = eng.Run()
		stop()
	}
	logger.Infow("stopped", "frames", eng.Frames())
	return multierr.Append(err, errors.Wrap(eng.Close(), "closing engine"))
}
