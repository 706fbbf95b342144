package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"imageclip/widget"
)

// SaveOperation writes the export of one crop into the output directory.
type SaveOperation struct {
	Filename string               `json:"filename"`
	Request  widget.ExportRequest `json:"request"`
}

func (o SaveOperation) String() string {
	r := o.Request.Rect
	return fmt.Sprintf("crop(x=%.2f,y=%.2f,w=%.2f,h=%.2f,%s,q=%.2f,fill=%s)",
		r.X, r.Y, r.Width, r.Height, o.Request.Format, o.Request.Quality, o.Request.Fill)
}

// ID is stable for identical requests, so saving the same crop twice
// overwrites the earlier file.
func (o SaveOperation) ID() string {
	return fmt.Sprintf("%x", md5.Sum([]byte(o.String())))
}

type OperationExecutor struct {
	BaseDir   string
	OutputDir string
	Renderer  Renderer
}

// Exec renders op and returns the path of the written file.
func (r OperationExecutor) Exec(ctx context.Context, op SaveOperation) (string, error) {
	log.Ctx(ctx).Info().Str("filename", op.Filename).Stringer("op", op).Msg("cropping")

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}

	f, err := openInRoot(r.BaseDir, op.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", op.Filename, err)
	}
	defer f.Close()

	var b bytes.Buffer
	if err := r.Renderer.Export(ctx, f, &b, op.Request); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(op.Filename), filepath.Ext(op.Filename))
	newName := fmt.Sprintf("%s-%s.%s", base, op.ID(), extension(op.Request.Format))
	croppedPath := filepath.Join(r.OutputDir, newName)
	wf, err := os.Create(croppedPath)
	if err != nil {
		return "", fmt.Errorf("failed to create cropped file %s: %w", newName, err)
	}
	defer wf.Close()
	if _, err := b.WriteTo(wf); err != nil {
		return "", fmt.Errorf("failed to write cropped data to file %s: %w", newName, err)
	}
	return croppedPath, nil
}

func extension(format string) string {
	switch f := strings.ToLower(strings.TrimPrefix(format, ".")); f {
	case "", "jpeg":
		return "jpg"
	case "tiff":
		return "tif"
	default:
		return f
	}
}

// contentType maps an export format to its MIME type.
func contentType(format string) string {
	switch extension(format) {
	case "jpg":
		return "image/jpeg"
	case "tif":
		return "image/tiff"
	default:
		return "image/" + extension(format)
	}
}
