package tile

import (
	"errors"
	"fmt"
)

// Default LED wall dimensions
const (
	DefaultCanvasWidth  = 3500
	DefaultCanvasHeight = 1080
)

// DefaultPreviewMaxWidth caps the width of a preview raster
const DefaultPreviewMaxWidth = 1000

// DefaultMaxPixels bounds the area of any raster, decoded or rendered
const DefaultMaxPixels = 10000 * 10000

// MinTileWidth is the narrowest tile that will be rendered, in pixels
const MinTileWidth = 1

// DefaultPrefix is prepended to generated output file names
const DefaultPrefix = "tiled"

var (
	// ErrInvalidDimension is returned for zero, negative or non-finite sizes.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrSurfaceUnavailable is returned when a drawing surface cannot be allocated.
	ErrSurfaceUnavailable = errors.New("surface unavailable")
	// ErrEncodeFailure is returned when a raster cannot be serialized.
	ErrEncodeFailure = errors.New("encode failure")
	// ErrUnsupportedImage is returned when the source bytes are not a known image format.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// DimensionError reports which input failed validation. Min and Max are
// set when the value broke an explicit bound rather than being non-positive
// or non-finite.
type DimensionError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *DimensionError) Error() string {
	switch {
	case e.Max > 0 && e.Value > e.Max:
		return fmt.Sprintf("%s: %s must not exceed %v, got %v", ErrInvalidDimension, e.Field, e.Max, e.Value)
	case e.Min > 0 && e.Value < e.Min:
		return fmt.Sprintf("%s: %s must be at least %v, got %v", ErrInvalidDimension, e.Field, e.Min, e.Value)
	}
	return fmt.Sprintf("%s: %s must be positive and finite, got %v", ErrInvalidDimension, e.Field, e.Value)
}

// Is makes DimensionError match ErrInvalidDimension.
func (e *DimensionError) Is(target error) bool {
	return target == ErrInvalidDimension
}

// Size is a pixel width and height
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Plan describes how a source image repeats across a canvas.
//
// TileCount copies of the image, each TileWidth by TileHeight, laid out
// left to right from x=0 cover the canvas width exactly.
type Plan struct {
	Scale          float64 `json:"scale"`
	TileWidth      float64 `json:"tile_width"`
	TileHeight     float64 `json:"tile_height"`
	TileCount      int     `json:"tile_count"`
	VerticalOffset float64 `json:"vertical_offset"`
}

// Origin returns the top-left corner of tile i. When center is false the
// tile is top-aligned at y=0.
func (p Plan) Origin(i int, center bool) (float64, float64) {
	y := 0.0
	if center {
		y = p.VerticalOffset
	}
	return float64(i) * p.TileWidth, y
}

// CoveredWidth is the total width spanned by all tiles
func (p Plan) CoveredWidth() float64 {
	return float64(p.TileCount) * p.TileWidth
}
