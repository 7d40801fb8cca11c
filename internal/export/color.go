package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
)

// paint is a parsed colour with opacity already applied.
type paint struct {
	R, G, B, A float64
}

// parseColor accepts the colour forms found in canvas documents:
// #rgb, #rrggbb, #rrggbbaa, rgb(), rgba() and a few names. ok is
// false for "", "none" and "transparent".
func parseColor(s string, opacity float64) (paint, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "none", "transparent":
		return paint{}, false
	case "black":
		s = "#000000"
	case "white":
		s = "#ffffff"
	case "red":
		s = "#ff0000"
	case "green":
		s = "#008000"
	case "blue":
		s = "#0000ff"
	}

	var p paint
	switch {
	case strings.HasPrefix(s, "#"):
		c := gg.Hex(s)
		p = paint{R: c.R, G: c.G, B: c.B, A: c.A}
	case strings.HasPrefix(s, "rgb"):
		var ok bool
		if p, ok = parseRGB(s); !ok {
			return paint{}, false
		}
	default:
		return paint{}, false
	}
	p.A *= clamp01(opacity)
	return p, p.A > 0
}

// ParseColor converts a document colour to an image colour for on-screen
// drawing. ok is false when nothing should be painted.
func ParseColor(s string, opacity float64) (c color.NRGBA, ok bool) {
	p, ok := parseColor(s, opacity)
	if !ok {
		return color.NRGBA{}, false
	}
	r, g, b := p.rgb255()
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(p.A*255 + 0.5)}, true
}

func parseRGB(s string) (paint, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return paint{}, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return paint{}, false
	}
	vals := make([]float64, 4)
	vals[3] = 1
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return paint{}, false
		}
		if i < 3 {
			v /= 255
		}
		vals[i] = clamp01(v)
	}
	return paint{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, true
}

func (p paint) rgb255() (r, g, b int) {
	return int(p.R*255 + 0.5), int(p.G*255 + 0.5), int(p.B*255 + 0.5)
}

func (p paint) hex() string {
	r, g, b := p.rgb255()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
