package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/kiesman99/tilewall/pkg/tile"
)

// CheckerSize is the edge length of one preview checkerboard cell
const CheckerSize = 10

// Checkerboard colors
var (
	CheckerEven = color.RGBA{0xf0, 0xf0, 0xf0, 0xff} // #f0f0f0
	CheckerOdd  = color.RGBA{0xff, 0xff, 0xff, 0xff} // #ffffff
)

// Options configures a Renderer
type Options struct {
	Interpolation xdraw.Interpolator
	Compression   png.CompressionLevel
	MaxPixels     int64
}

// Renderer paints tiling plans onto surfaces. It keeps no state between
// calls and may be shared between goroutines as long as each call gets its
// own surface.
type Renderer struct {
	interp      xdraw.Interpolator
	compression png.CompressionLevel
	maxPixels   int64
}

// New creates a new renderer. opts may be nil.
func New(opts *Options) *Renderer {
	r := &Renderer{
		interp:      xdraw.BiLinear,
		compression: png.DefaultCompression,
		maxPixels:   DefaultMaxPixels,
	}
	if opts == nil {
		return r
	}

	if opts.Interpolation != nil {
		r.interp = opts.Interpolation
	}
	r.compression = opts.Compression
	if opts.MaxPixels > 0 {
		r.maxPixels = opts.MaxPixels
	}
	return r
}

// MaxPixels is the largest raster area the renderer accepts
func (r *Renderer) MaxPixels() int64 {
	return r.maxPixels
}

// NewSurface allocates an off-screen surface with the renderer's settings
func (r *Renderer) NewSurface(width, height int) (*RGBASurface, error) {
	return NewRGBASurface(width, height, r.interp, r.maxPixels)
}

// RenderExport renders src tiled across a canvasWidth x canvasHeight raster
// and returns it PNG encoded. Pixels not covered by a tile stay transparent.
func (r *Renderer) RenderExport(src image.Image, canvasWidth, canvasHeight int) ([]byte, error) {
	img, err := r.ExportImage(src, canvasWidth, canvasHeight)
	if err != nil {
		return nil, err
	}

	return r.Encode(img)
}

// Encode serializes img as PNG
func (r *Renderer) Encode(img image.Image) ([]byte, error) {
	var output bytes.Buffer
	if err := tile.EncodePNG(&output, img, r.compression); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// ExportImage is RenderExport without the encoding step
func (r *Renderer) ExportImage(src image.Image, canvasWidth, canvasHeight int) (*image.RGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no source image", tile.ErrInvalidDimension)
	}

	plan, err := planFor(src, canvasWidth, canvasHeight)
	if err != nil {
		return nil, err
	}

	s, err := r.NewSurface(canvasWidth, canvasHeight)
	if err != nil {
		return nil, err
	}
	s.Clear(s.Bounds())
	paintTiles(s, src, plan, true)

	return s.Image(), nil
}

// RenderPreview redraws s as a preview: s is resized to targetWidth x
// targetHeight, covered with a checkerboard, and src is tiled on top using a
// plan computed for the preview size. Tiles are top-aligned unless
// centerVertically is set.
func (r *Renderer) RenderPreview(src image.Image, s Surface, targetWidth, targetHeight int, centerVertically bool) error {
	if s == nil {
		return fmt.Errorf("%w: no preview surface", tile.ErrSurfaceUnavailable)
	}
	if src == nil {
		return fmt.Errorf("%w: no source image", tile.ErrInvalidDimension)
	}

	plan, err := planFor(src, targetWidth, targetHeight)
	if err != nil {
		return err
	}

	if err := s.Resize(targetWidth, targetHeight); err != nil {
		return err
	}
	s.Clear(s.Bounds())
	paintCheckerboard(s)
	paintTiles(s, src, plan, centerVertically)

	return nil
}

// planFor computes the plan for src. Tiles narrower than MinTileWidth are
// rejected.
func planFor(src image.Image, canvasWidth, canvasHeight int) (tile.Plan, error) {
	b := src.Bounds()
	plan, err := tile.Compute(float64(b.Dx()), float64(b.Dy()), float64(canvasWidth), float64(canvasHeight))
	if err != nil {
		return tile.Plan{}, err
	}
	if plan.TileWidth < tile.MinTileWidth {
		return tile.Plan{}, &tile.DimensionError{Field: "tile width", Value: plan.TileWidth, Min: tile.MinTileWidth}
	}
	return plan, nil
}

func paintTiles(s Surface, src image.Image, plan tile.Plan, center bool) {
	for i := 0; i < plan.TileCount; i++ {
		x, y := plan.Origin(i, center)
		s.DrawImage(src, x, y, plan.TileWidth, plan.TileHeight)
	}
}

// paintCheckerboard fills s with alternating cells; the cell at (0, 0) is
// CheckerEven.
func paintCheckerboard(s Surface) {
	b := s.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += CheckerSize {
		for x := b.Min.X; x < b.Max.X; x += CheckerSize {
			c := CheckerOdd
			if ((x-b.Min.X)/CheckerSize+(y-b.Min.Y)/CheckerSize)%2 == 0 {
				c = CheckerEven
			}
			cell := image.Rect(x, y, x+CheckerSize, y+CheckerSize).Intersect(b)
			s.FillRect(cell, c)
		}
	}
}
