package stitch

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/kiesman99/tilewall/internal/render"
	"github.com/kiesman99/tilewall/pkg/tile"
)

// Options contains all configuration for a tiling job
type Options struct {
	// Output file; empty derives a name from Prefix and the canvas size,
	// "-" writes to Stdout.
	Output string
	Prefix string

	Canvas tile.Size

	// Preview renders the checkerboard preview instead of the export
	Preview          bool
	ContainerWidth   int
	PreviewMaxWidth  int
	CenterVertically bool

	Stdout io.Writer
	Log    io.Writer
}

// Stitcher handles the main tiling job
type Stitcher struct {
	renderer *render.Renderer
	options  *Options
}

// NewStitcher creates a new stitcher instance
func NewStitcher(renderer *render.Renderer, opts *Options) *Stitcher {
	if renderer == nil {
		renderer = render.New(nil)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Log == nil {
		opts.Log = os.Stderr
	}

	return &Stitcher{
		renderer: renderer,
		options:  opts,
	}
}

// StitchFile tiles the image at path and returns the name written to
func (s *Stitcher) StitchFile(path string) (string, error) {
	img, err := tile.LoadImage(path, s.renderer.MaxPixels())
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	fmt.Fprintf(s.options.Log, "==Source: %s (%dx%d)\n", path, b.Dx(), b.Dy())

	data, err := s.render(img)
	if err != nil {
		return "", err
	}

	output := s.outputName()
	if output == "-" {
		if f, ok := s.options.Stdout.(*os.File); ok {
			if stat, _ := f.Stat(); stat != nil && (stat.Mode()&os.ModeCharDevice) != 0 {
				return "", fmt.Errorf("refusing to write PNG data to a terminal")
			}
		}
		fmt.Fprintf(s.options.Log, "Output PNG: stdout\n")
	} else {
		fmt.Fprintf(s.options.Log, "Output PNG: %s\n", output)
	}

	if err := tile.WritePNG(output, data, s.options.Stdout); err != nil {
		return "", fmt.Errorf("failed to write PNG: %v", err)
	}
	return output, nil
}

func (s *Stitcher) render(img image.Image) ([]byte, error) {
	canvas := s.options.Canvas
	b := img.Bounds()

	target := canvas
	if s.options.Preview {
		target = tile.FitPreview(canvas, s.options.ContainerWidth, s.options.PreviewMaxWidth)
	}

	plan, err := tile.ComputeSize(tile.Size{Width: b.Dx(), Height: b.Dy()}, target)
	if err != nil {
		return nil, err
	}
	s.logPlan(canvas, target, plan)

	if !s.options.Preview {
		return s.renderer.RenderExport(img, canvas.Width, canvas.Height)
	}

	surface, err := s.renderer.NewSurface(target.Width, target.Height)
	if err != nil {
		return nil, err
	}
	if err := s.renderer.RenderPreview(img, surface, target.Width, target.Height, s.options.CenterVertically); err != nil {
		return nil, err
	}

	return s.renderer.Encode(surface.Image())
}

func (s *Stitcher) logPlan(canvas, target tile.Size, plan tile.Plan) {
	fmt.Fprintf(s.options.Log, "==Canvas Size: %s\n", canvas)
	if target != canvas {
		fmt.Fprintf(s.options.Log, "==Preview Size: %s\n", target)
	}
	fmt.Fprintf(s.options.Log, "==Scale: %.17g\n", plan.Scale)
	fmt.Fprintf(s.options.Log, "==Tile Count: %d\n", plan.TileCount)
	fmt.Fprintf(s.options.Log, "==Tile Size: %.17gx%.17g\n", plan.TileWidth, plan.TileHeight)
	fmt.Fprintf(s.options.Log, "==Vertical Offset: %.17g\n", plan.VerticalOffset)
}

func (s *Stitcher) outputName() string {
	if s.options.Output != "" {
		return s.options.Output
	}
	name := tile.OutputFilename(s.options.Prefix, s.options.Canvas.Width, s.options.Canvas.Height)
	if s.options.Preview {
		name = "preview-" + name
	}
	return name
}
