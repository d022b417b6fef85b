package normalizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"DocForensics/pkg/errs"
)

// DefaultDPI is the resolution PDF pages are rendered at
const DefaultDPI = 300

// Rasterizer renders the first page of a PDF document
type Rasterizer interface {
	RasterizeFirstPage(ctx context.Context, pdf []byte, dpi int) (image.Image, error)
}

// RasterizerFunc adapts a function to the Rasterizer interface
type RasterizerFunc func(ctx context.Context, pdf []byte, dpi int) (image.Image, error)

// RasterizeFirstPage calls f
func (f RasterizerFunc) RasterizeFirstPage(ctx context.Context, pdf []byte, dpi int) (image.Image, error) {
	return f(ctx, pdf, dpi)
}

// Pdftoppm renders pages with the poppler pdftoppm binary.
// The PDF is streamed on stdin and the PNG read from stdout.
type Pdftoppm struct {
	Path    string        // binary name or path, resolved through PATH
	Timeout time.Duration // zero means bounded only by the caller's context
}

// NewPdftoppm creates a pdftoppm adapter
func NewPdftoppm(path string, timeout time.Duration) *Pdftoppm {
	if path == "" {
		path = "pdftoppm"
	}
	return &Pdftoppm{Path: path, Timeout: timeout}
}

// Available reports whether the binary can be found
func (p *Pdftoppm) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// RasterizeFirstPage renders page 1 at dpi
func (p *Pdftoppm) RasterizeFirstPage(ctx context.Context, pdf []byte, dpi int) (image.Image, error) {
	if dpi <= 0 {
		return nil, errs.New(errs.KindInvalidArgument, "rasterize", fmt.Sprintf("dpi must be positive, got %d", dpi))
	}

	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "rasterize", "PDF renderer not available", err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(dpi),
		"-singlefile", "-png",
		"-",
	)
	cmd.Stdin = bytes.NewReader(pdf)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, errs.Wrap(errs.KindRenderTimeout, "rasterize", "PDF rendering timed out", ctxErr)
			}
			return nil, ctxErr
		}
		msg := "PDF renderer failed"
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg = fmt.Sprintf("%s: %s", msg, s)
		}
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "rasterize", msg, err)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "rasterize", "failed to decode rendered page", err)
	}
	return img, nil
}

func (p *Pdftoppm) binary() string {
	if p.Path == "" {
		return "pdftoppm"
	}
	return p.Path
}
