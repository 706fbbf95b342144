package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"imageclip/geom"
	"imageclip/widget"
)

// configPaths are read for flag defaults when present.
var configPaths = []string{"~/.config/imageclip/config.yaml", "imageclip.yaml"}

// yamlConfig is a kong configuration loader. Keys are flag names, with
// either dashes or underscores:
//
//	ratio: 1.5
//	min_width: 20%
//	fill: "#000"
func yamlConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if v, ok := values[key]; ok && v != nil {
				return fmt.Sprint(v), nil
			}
		}
		return nil, nil
	}), nil
}

type Globals struct {
	Verbose bool            `help:"Enable verbose logging" default:"false"`
	Config  kong.ConfigFlag `help:"YAML file with flag defaults"`
}

func (g *Globals) setupLogging() {
	level := zerolog.InfoLevel
	if g.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter()).Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

// widgetFlags configure every widget a command creates.
type widgetFlags struct {
	Ratio     float64       `help:"Locked crop width/height; 0 leaves it free" default:"0"`
	Overflow  bool          `help:"Let the crop extend past the image"`
	MinWidth  geom.Length   `help:"Minimum crop width, in natural pixels or percent of the container" default:"37%"`
	MinHeight geom.Length   `help:"Minimum crop height, in natural pixels or percent of the container" default:"37%"`
	Delay     time.Duration `help:"Hold time before a press turns into a drag" default:"0s"`
	Format    string        `help:"Export format" default:"jpeg" enum:"jpeg,jpg,png,bmp,gif,tif,tiff"`
	Quality   float64       `help:"Export quality in (0, 1]" default:"1"`
	Fill      string        `help:"Color for exposed background in overflow mode, e.g. #fff or rgba(0,0,0,0)"`
}

func (f widgetFlags) validate() error {
	if f.Ratio < 0 {
		return fmt.Errorf("ratio must not be negative, got %g", f.Ratio)
	}
	if f.Quality <= 0 || f.Quality > 1 {
		return fmt.Errorf("quality must be in (0, 1], got %g", f.Quality)
	}
	if f.Fill != "" {
		if _, err := parseColor(f.Fill); err != nil {
			return err
		}
	}
	return nil
}

func (f widgetFlags) options(arbiter *widget.Arbiter) widget.Options {
	return widget.Options{
		Ratio:     f.Ratio,
		Overflow:  f.Overflow,
		MinWidth:  f.MinWidth,
		MinHeight: f.MinHeight,
		Delay:     f.Delay,
		Arbiter:   arbiter,
	}
}
