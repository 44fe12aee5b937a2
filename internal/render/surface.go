package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kiesman99/tilewall/pkg/tile"
)

// DefaultMaxPixels bounds the area of any surface
const DefaultMaxPixels = tile.DefaultMaxPixels

// Surface is a resizable 2D raster that tiles are painted onto
type Surface interface {
	// Resize reallocates the surface. All previous content is discarded.
	Resize(width, height int) error
	Bounds() image.Rectangle
	// Clear sets r to transparent black.
	Clear(r image.Rectangle)
	FillRect(r image.Rectangle, c color.Color)
	// DrawImage paints src scaled to w x h with its top-left corner at (x, y).
	DrawImage(src image.Image, x, y, w, h float64)
}

// RGBASurface is an in-memory Surface
type RGBASurface struct {
	img       *image.RGBA
	interp    xdraw.Interpolator
	maxPixels int64
}

// NewRGBASurface allocates a width x height surface. A nil interpolator
// means bilinear; maxPixels <= 0 means DefaultMaxPixels.
func NewRGBASurface(width, height int, interp xdraw.Interpolator, maxPixels int64) (*RGBASurface, error) {
	if interp == nil {
		interp = xdraw.BiLinear
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	s := &RGBASurface{interp: interp, maxPixels: maxPixels}
	if err := s.Resize(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

// Resize implements Surface
func (s *RGBASurface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid size %dx%d", tile.ErrSurfaceUnavailable, width, height)
	}
	if int64(width)*int64(height) > s.maxPixels {
		return fmt.Errorf("%w: requested size too large: %dx%d", tile.ErrSurfaceUnavailable, width, height)
	}

	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// Bounds implements Surface
func (s *RGBASurface) Bounds() image.Rectangle {
	if s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Bounds()
}

// Clear implements Surface
func (s *RGBASurface) Clear(r image.Rectangle) {
	draw.Draw(s.img, r, image.Transparent, image.Point{}, draw.Src)
}

// FillRect implements Surface
func (s *RGBASurface) FillRect(r image.Rectangle, c color.Color) {
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// DrawImage implements Surface. Placement is sub-pixel: a destination pixel
// is painted when its center falls inside the scaled rectangle.
func (s *RGBASurface) DrawImage(src image.Image, x, y, w, h float64) {
	sr := src.Bounds()
	if sr.Empty() || w <= 0 || h <= 0 {
		return
	}

	kx := w / float64(sr.Dx())
	ky := h / float64(sr.Dy())
	m := f64.Aff3{
		kx, 0, x - float64(sr.Min.X)*kx,
		0, ky, y - float64(sr.Min.Y)*ky,
	}
	s.interp.Transform(s.img, m, src, sr, xdraw.Over, nil)
}

// Image returns the backing raster
func (s *RGBASurface) Image() *image.RGBA {
	return s.img
}

// ParseInterpolation maps a config value to an interpolator
func ParseInterpolation(name string) (xdraw.Interpolator, error) {
	switch name {
	case "nearest":
		return xdraw.NearestNeighbor, nil
	case "approx-bilinear":
		return xdraw.ApproxBiLinear, nil
	case "", "bilinear":
		return xdraw.BiLinear, nil
	case "catmull-rom":
		return xdraw.CatmullRom, nil
	}
	return nil, fmt.Errorf("unknown interpolation: %s", name)
}
