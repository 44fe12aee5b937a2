package tile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// MaxTileCount bounds the number of tiles a plan may contain
const MaxTileCount = math.MaxInt32

// Tolerances used when snapping the width/tile quotient to a whole count.
const (
	countAbsTol = 1e-12
	countRelTol = 1e-9
)

// Compute derives the tiling plan for an image repeated across a canvas.
//
// The image is first scaled to the canvas height. The number of repeats is
// rounded up, then the scale is shrunk uniformly so that exactly that many
// tiles span the canvas width. Any height left over is split evenly above
// and below the row of tiles.
func Compute(imageWidth, imageHeight, canvasWidth, canvasHeight float64) (Plan, error) {
	if err := validate("image width", imageWidth); err != nil {
		return Plan{}, err
	}
	if err := validate("image height", imageHeight); err != nil {
		return Plan{}, err
	}
	if err := validate("canvas width", canvasWidth); err != nil {
		return Plan{}, err
	}
	if err := validate("canvas height", canvasHeight); err != nil {
		return Plan{}, err
	}

	scale := canvasHeight / imageHeight
	scaledWidth := imageWidth * scale
	rawCount := math.Ceil(canvasWidth / scaledWidth)
	if err := validateCount(rawCount); err != nil {
		return Plan{}, err
	}
	total := scaledWidth * rawCount

	finalScale := scale
	if total > canvasWidth {
		finalScale = scale * (canvasWidth / total)
	}
	if err := validate("scale", finalScale); err != nil {
		return Plan{}, err
	}

	tileWidth := imageWidth * finalScale
	tileHeight := imageHeight * finalScale
	if err := validate("tile width", tileWidth); err != nil {
		return Plan{}, err
	}
	if err := validate("tile height", tileHeight); err != nil {
		return Plan{}, err
	}

	count, err := tileCount(canvasWidth, tileWidth)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Scale:          finalScale,
		TileWidth:      tileWidth,
		TileHeight:     tileHeight,
		TileCount:      count,
		VerticalOffset: (canvasHeight - tileHeight) / 2,
	}, nil
}

// ComputeSize is Compute for integer pixel sizes.
func ComputeSize(img, canvas Size) (Plan, error) {
	return Compute(float64(img.Width), float64(img.Height), float64(canvas.Width), float64(canvas.Height))
}

// tileCount recounts tiles from the final tile width. A quotient that is an
// integer up to rounding noise is taken as that integer.
func tileCount(canvasWidth, tileWidth float64) (int, error) {
	q := canvasWidth / tileWidth
	if r := math.Round(q); scalar.EqualWithinAbsOrRel(q, r, countAbsTol, countRelTol) {
		q = r
	}
	q = math.Ceil(q)
	if err := validateCount(q); err != nil {
		return 0, err
	}
	return max(1, int(q)), nil
}

// validateCount rejects tile counts that do not fit a 32 bit int.
func validateCount(n float64) error {
	if math.IsNaN(n) || math.IsInf(n, 0) || n > MaxTileCount {
		return &DimensionError{Field: "tile count", Value: n, Max: MaxTileCount}
	}
	return nil
}

func validate(field string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &DimensionError{Field: field, Value: v}
	}
	return nil
}

// FitPreview scales canvas down to fit a container of the given width, never
// wider than maxWidth. A containerWidth <= 0 means the canvas width itself.
// The result keeps the canvas aspect ratio, rounding the height down, and is
// at least 1x1. A canvas without positive dimensions is returned as is.
func FitPreview(canvas Size, containerWidth, maxWidth int) Size {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return canvas
	}
	if containerWidth <= 0 {
		containerWidth = canvas.Width
	}
	if maxWidth <= 0 {
		maxWidth = DefaultPreviewMaxWidth
	}
	w := containerWidth
	if w > maxWidth {
		w = maxWidth
	}

	return Size{
		Width:  max(1, w),
		Height: max(1, int(int64(canvas.Height)*int64(w)/int64(canvas.Width))),
	}
}

// ParseSize parses "WIDTHxHEIGHT", e.g. "3500x1080".
func ParseSize(s string) (Size, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("size must be in format 'WIDTHxHEIGHT', got %q", s)
	}

	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Size{}, fmt.Errorf("invalid width in size: %v", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Size{}, fmt.Errorf("invalid height in size: %v", err)
	}

	if err := validate("width", float64(w)); err != nil {
		return Size{}, err
	}
	if err := validate("height", float64(h)); err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h}, nil
}
