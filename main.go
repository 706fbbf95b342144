package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"

	"imageclip/geom"
	"imageclip/widget"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("imageclip"),
		kong.Description("Interactive image cropping with ratio-locked handles."),
		kong.UsageOnError(),
		kong.Configuration(yamlConfig, configPaths...),
	)
	if err := cliCtx.Run(&args.Globals); err != nil {
		return err
	}

	return nil
}

type cliArgs struct {
	Globals

	Serve  serveCmd  `cmd:"" default:"withargs" help:"Serve the cropping UI for a directory of images"`
	Layout layoutCmd `cmd:"" help:"Print the initial layout and crop for an image"`
	Crop   cropCmd   `cmd:"" help:"Export a crop of an image"`
}

type serveCmd struct {
	RootDir string      `arg:"" help:"Root directory to serve files from"`
	Open    bool        `help:"Open the browser automatically when the server starts" default:"true"`
	Once    bool        `help:"Run the server once and exit after save" default:"false"`
	Widget  widgetFlags `embed:""`
}

func (cmd *serveCmd) Run(g *Globals) error {
	g.setupLogging()
	if err := cmd.Widget.validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	renderer := NewImagingRenderer(cmd.RootDir)
	executor := OperationExecutor{
		BaseDir:   cmd.RootDir,
		OutputDir: filepath.Join(cmd.RootDir, "output"),
		Renderer:  renderer,
	}

	app := NewWebApp(Config{
		RootDir:  cmd.RootDir,
		Defaults: cmd.Widget,
		Renderer: renderer,
		Executor: executor,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := browser.OpenURL(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnSave: func(path string) {
			log.Ctx(ctx).Info().Str("path", path).Msg("crop saved")
			if cmd.Once {
				cancel()
			}
		},
	})

	return app.Run(ctx)
}

type layoutCmd struct {
	File           string      `arg:"" type:"existingfile" help:"Image to lay out"`
	ContainerWidth float64     `help:"Width of the container in display pixels" default:"1000"`
	Widget         widgetFlags `embed:""`
}

type layoutOutput struct {
	Natural     geom.Size   `json:"natural"`
	Layout      geom.Layout `json:"layout"`
	ScaleFactor float64     `json:"scale_factor"`
	Minimum     geom.Size   `json:"minimum"`
	Crop        widget.Crop `json:"crop"`
}

func (cmd *layoutCmd) Run(g *Globals) error {
	g.setupLogging()
	if err := cmd.Widget.validate(); err != nil {
		return err
	}
	ctx := log.Logger.WithContext(context.Background())

	w := widget.New(cmd.Widget.options(nil))
	if err := w.Load(ctx, NewImagingRenderer(""), cmd.File, cmd.ContainerWidth); err != nil {
		return err
	}
	s := w.State()
	printJSON(layoutOutput{
		Natural:     s.Natural,
		Layout:      s.Layout,
		ScaleFactor: s.Layout.ScaleFactor(s.Natural),
		Minimum: geom.MinimumSize(cmd.Widget.MinWidth, cmd.Widget.MinHeight,
			geom.Size{Width: s.Layout.ContainerWidth, Height: s.Layout.ContainerHeight},
			s.Natural, cmd.Widget.Ratio),
		Crop: s.Crop,
	})
	return nil
}

type cropCmd struct {
	File           string      `arg:"" type:"existingfile" help:"Image to crop"`
	Output         string      `short:"o" help:"Output file; defaults to <file>-crop.<format> next to the source"`
	Rect           []float64   `help:"Crop x,y,width,height in natural pixels; defaults to the initial layout crop" sep:","`
	ContainerWidth float64     `help:"Width of the container used for the default crop" default:"1000"`
	Widget         widgetFlags `embed:""`
}

func (cmd *cropCmd) Run(g *Globals) error {
	g.setupLogging()
	if err := cmd.Widget.validate(); err != nil {
		return err
	}
	ctx := log.Logger.WithContext(context.Background())
	renderer := NewImagingRenderer("")

	w := widget.New(cmd.Widget.options(nil))
	if err := w.Load(ctx, renderer, cmd.File, cmd.ContainerWidth); err != nil {
		return err
	}
	req, err := w.ExportRequest(cmd.Widget.Format, cmd.Widget.Quality, cmd.Widget.Fill)
	if err != nil {
		return err
	}
	if len(cmd.Rect) > 0 {
		if len(cmd.Rect) != 4 {
			return fmt.Errorf("--rect needs 4 values, got %d", len(cmd.Rect))
		}
		req.Rect = geom.Rect{X: cmd.Rect[0], Y: cmd.Rect[1], Width: cmd.Rect[2], Height: cmd.Rect[3]}
	}

	out := cmd.Output
	if out == "" {
		ext := filepath.Ext(cmd.File)
		out = fmt.Sprintf("%s-crop.%s", cmd.File[:len(cmd.File)-len(ext)], extension(req.Format))
	}

	src, err := os.Open(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", cmd.File, err)
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", out, err)
	}
	defer dst.Close()

	if err := renderer.Export(ctx, src, dst, req); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("path", out).Stringer("rect", req.Rect).Msg("crop written")
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode output as JSON")
	}
}
