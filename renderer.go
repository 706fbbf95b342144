package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/mazznoer/csscolorparser"
	"github.com/rs/zerolog/log"

	"imageclip/geom"
	"imageclip/widget"
)

var (
	errInvalidColor = errors.New("invalid color")
	errOutsideRoot  = errors.New("path outside root directory")
)

// Renderer produces the cropped output image for an export request.
type Renderer interface {
	Export(ctx context.Context, r io.Reader, w io.Writer, req widget.ExportRequest) error
}

var (
	_ Renderer      = (*ImagingRenderer)(nil)
	_ widget.Loader = (*ImagingRenderer)(nil)
)

// ImagingRenderer loads and exports images with the disintegration/imaging
// library. Sources are paths relative to BaseDir.
type ImagingRenderer struct {
	BaseDir string
}

func NewImagingRenderer(baseDir string) *ImagingRenderer {
	return &ImagingRenderer{BaseDir: baseDir}
}

// openInRoot opens the slash separated name below root. Names that are
// absolute or climb out with ".." are rejected, and symlinks may not escape
// root either. An empty root opens name as given.
func openInRoot(root, name string) (*os.File, error) {
	if root == "" {
		return os.Open(name)
	}
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %q", errOutsideRoot, name)
	}
	return os.OpenInRoot(root, name)
}

// Load returns the natural size of the image at src, after EXIF orientation
// is applied so it matches what Export will see.
func (c *ImagingRenderer) Load(ctx context.Context, src string) (geom.Size, error) {
	f, err := openInRoot(c.BaseDir, src)
	if err != nil {
		return geom.Size{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return geom.Size{}, fmt.Errorf("failed to open image: %w", err)
	}
	b := img.Bounds()
	log.Ctx(ctx).Debug().Str("src", src).Int("width", b.Dx()).Int("height", b.Dy()).Msg("image loaded")
	return geom.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

// Export reads an image from r, cuts out req.Rect and writes it to w in the
// requested format. Parts of the rectangle outside the image are painted
// with the fill color.
func (c *ImagingRenderer) Export(ctx context.Context, r io.Reader, w io.Writer, req widget.ExportRequest) error {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	format, err := imaging.FormatFromExtension(req.Format)
	if err != nil {
		return fmt.Errorf("unsupported export format %q: %w", req.Format, err)
	}

	fill, err := fillColor(req.Fill, format)
	if err != nil {
		return err
	}

	x := int(math.Floor(req.Rect.X))
	y := int(math.Floor(req.Rect.Y))
	width := int(math.Round(req.Rect.Width))
	height := int(math.Round(req.Rect.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid crop dimensions: width=%d, height=%d", width, height)
	}
	cropRect := image.Rect(x, y, x+width, y+height)

	bounds := src.Bounds()
	dst := imaging.New(width, height, fill)
	if visible := cropRect.Intersect(bounds); !visible.Empty() {
		dst = imaging.Paste(dst, imaging.Crop(src, visible), visible.Min.Sub(cropRect.Min))
	}

	log.Ctx(ctx).Debug().
		Stringer("rect", cropRect).
		Stringer("format", format).
		Float64("quality", req.Quality).
		Msg("exporting")

	quality := int(math.Round(req.Quality * 100))
	if quality <= 0 || quality > 100 {
		quality = 100
	}
	return imaging.Encode(w, dst, format, imaging.JPEGQuality(quality))
}

// fillColor parses the fill, defaulting to transparent for PNG and white otherwise.
func fillColor(s string, format imaging.Format) (color.Color, error) {
	if strings.TrimSpace(s) == "" {
		if format == imaging.PNG {
			return color.Transparent, nil
		}
		return color.White, nil
	}
	c, err := parseColor(s)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// parseColor accepts any CSS color: hex forms, rgb(), rgba(), hsl() and
// named colors.
func parseColor(s string) (color.NRGBA, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %w", errInvalidColor, err)
	}
	r, g, b, a := c.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}
