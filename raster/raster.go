package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp"
)

// jpegQuality is used when encoding JPEG output files.
const jpegQuality = 90

// Image is an in-memory raster image together with the format it was
// decoded from. It is the object type the CLI wrapper loads from and
// writes to file paths.
type Image struct {
	img    image.Image
	format string
}

// New wraps a decoded image. The format is recorded as "unknown" until the
// image is encoded or was produced by Decode.
func New(img image.Image) *Image {
	return &Image{img: img, format: "unknown"}
}

// Image returns the underlying image.Image.
func (m *Image) Image() image.Image {
	return m.img
}

// Format returns the format the image was decoded from (e.g. "png").
func (m *Image) Format() string {
	return m.format
}

// Bounds returns the pixel bounds of the image.
func (m *Image) Bounds() image.Rectangle {
	return m.img.Bounds()
}

// Width returns the image width in pixels.
func (m *Image) Width() int {
	return m.img.Bounds().Dx()
}

// Height returns the image height in pixels.
func (m *Image) Height() int {
	return m.img.Bounds().Dy()
}

// Read loads an image from a file. The format is detected from the file
// content, not the extension, so a mislabelled file still decodes.
func Read(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image file %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes raster image data. SVG input is detected and rasterized;
// all other formats go through the registered image decoders.
func Decode(data []byte) (*Image, error) {
	if isSVGData(data) {
		img, err := decodeSVG(data)
		if err != nil {
			return nil, err
		}
		return &Image{img: img, format: "svg"}, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Normalize format names
	format = strings.ToLower(format)
	if format == "jpg" {
		format = "jpeg"
	}

	slog.Debug("decoded image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"input_size_bytes", len(data))

	return &Image{img: img, format: format}, nil
}

// Write encodes the image into the format implied by the file extension and
// writes it to path. Unsupported or write-only extensions return an error.
func (m *Image) Write(path string) error {
	data, err := m.Encode(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image file %s: %w", path, err)
	}
	slog.Debug("wrote image file", "path", path, "output_size_bytes", len(data))
	return nil
}

// Encode encodes the image into the format implied by ext (including the
// leading dot, case-insensitive).
func (m *Image) Encode(ext string) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(&buf, m.img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, m.img, &jpeg.Options{Quality: jpegQuality})
	case ".gif":
		err = gif.Encode(&buf, m.img, nil)
	case ".bmp":
		err = bmp.Encode(&buf, m.img)
	case ".tif", ".tiff":
		err = tiff.Encode(&buf, m.img, nil)
	case ".webp", ".svg":
		return nil, fmt.Errorf("format %s is read-only, cannot encode", ext)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode image to %s: %w", ext, err)
	}
	return buf.Bytes(), nil
}

// CanWrite reports whether the extension maps to a writable image format.
func CanWrite(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
