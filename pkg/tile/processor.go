package tile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a source photo. PNG, JPEG, GIF, WebP, BMP and TIFF
// are recognized; EXIF orientation is applied so the image is upright.
// Images whose header declares more than maxPixels pixels are rejected
// before any pixel data is decoded. maxPixels <= 0 means DefaultMaxPixels.
func DecodeImage(r io.Reader, maxPixels int64) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(err)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds %d pixels", ErrSurfaceUnavailable, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, decodeError(err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 {
		return nil, &DimensionError{Field: "image width", Value: float64(b.Dx())}
	}
	if b.Dy() <= 0 {
		return nil, &DimensionError{Field: "image height", Value: float64(b.Dy())}
	}
	return img, nil
}

func decodeError(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return fmt.Errorf("decode image: %w", err)
}

// LoadImage opens and decodes the image at path
func LoadImage(path string, maxPixels int64) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := DecodeImage(f, maxPixels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// EncodePNG writes img as PNG at the given compression level
func EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	enc := &png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}
	return nil
}

// ParseCompression maps a config value to a PNG compression level
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch name {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "fast", "best-speed":
		return png.BestSpeed, nil
	case "best", "best-compression":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("unknown compression: %s", name)
}

// WritePNG writes encoded PNG data to filename, or to stdout when filename is "-"
func WritePNG(filename string, data []byte, stdout io.Writer) error {
	if filename == "-" {
		_, err := io.Copy(stdout, bytes.NewReader(data))
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// OutputFilename names an export after the canvas it was rendered for,
// e.g. "tiled-3500x1080.png".
func OutputFilename(prefix string, width, height int) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s-%dx%d.png", prefix, width, height)
}
