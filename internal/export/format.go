// Package export renders a canvas view to PNG, SVG or PDF.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"CanvasBoard/internal/state"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
)

// Formats lists every supported format in menu order.
var Formats = []Format{FormatPNG, FormatSVG, FormatPDF}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case FormatPNG, FormatSVG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

func (f Format) Extension() string { return "." + string(f) }

// Renderer returns the renderer for f.
func (f Format) Renderer() (state.Renderer, error) {
	switch f {
	case FormatPNG:
		return NewPNG(), nil
	case FormatSVG:
		return SVG{}, nil
	case FormatPDF:
		return PDF{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// size returns the canvas size of v, falling back to the default.
func size(v state.View) (w, h float64) {
	w, h = v.Width, v.Height
	if w <= 0 || h <= 0 {
		w, h = state.DefaultWidth, state.DefaultHeight
	}
	return w, h
}

// textBaseline is the distance from an i-text object's top to its
// first baseline.
func textBaseline(fontSize float64) float64 { return fontSize * 0.89 }

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}
