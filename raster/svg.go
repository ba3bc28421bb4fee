package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Fallback render size for SVG files that carry no explicit width/height
// attributes. Overridable via configuration before any decoding happens.
var (
	SVGFallbackWidth  = 512
	SVGFallbackHeight = 512
)

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for an "<svg" tag or the SVG namespace in the initial portion
// of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.HasPrefix(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// decodeSVG rasterizes SVG data. Explicit width/height attributes win;
// otherwise the package fallback size is used.
func decodeSVG(data []byte) (image.Image, error) {
	w, h, ok := parseSVGExplicitSize(data)
	if !ok {
		w, h = SVGFallbackWidth, SVGFallbackHeight
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("SVG has no explicit size and no fallback size is set")
		}
		slog.Debug("SVG lacks explicit size; using fallback", "width", w, "height", h)
	}
	return renderSVG(data, w, h)
}

// parseSVGExplicitSize attempts to extract width and height attributes from
// the SVG start tag. Returns ok=true only when both are found and positive.
func parseSVGExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	// Limit to the start tag portion up to '>'
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk && w > 0 && h > 0 {
		return w, h, true
	}
	// viewBox is not a pixel size; callers fall back instead.
	return 0, 0, false
}

// parseNumericAttr extracts the leading numeric value of an attribute
// (e.g. width="123px"). Returns the integer value and ok=true if found.
// Matches only whole attribute names, so width never matches stroke-width.
func parseNumericAttr(tag, attr string) (int, bool) {
	needle := attr + "="
	pos := 0
	for {
		i := strings.Index(tag[pos:], needle)
		if i < 0 {
			return 0, false
		}
		i += pos
		pos = i + len(needle)

		if i > 0 {
			switch tag[i-1] {
			case ' ', '\t', '\n', '\r':
			default:
				continue
			}
		}
		rest := tag[pos:]
		if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
			continue
		}
		quote := rest[0]
		val := rest[1:]
		if end := strings.IndexByte(val, quote); end >= 0 {
			val = val[:end]
		}

		// Extract leading number
		num := 0
		found := false
		for j := 0; j < len(val); j++ {
			ch := val[j]
			if ch >= '0' && ch <= '9' {
				found = true
				num = num*10 + int(ch-'0')
			} else if found {
				break
			}
		}
		if !found || num <= 0 {
			return 0, false
		}
		return num, true
	}
}

// renderSVG rasterizes an SVG byte slice onto a white canvas of the given
// target dimensions.
func renderSVG(svgData []byte, targetW, targetH int) (image.Image, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	// White background so transparent SVGs stay visible in opaque formats
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	slog.Debug("rasterized SVG", "width", targetW, "height", targetH)
	return dst, nil
}
