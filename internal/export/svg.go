package export

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"CanvasBoard/internal/state"
)

// SVG writes the view as a standalone SVG document at canvas size.
type SVG struct{}

func (SVG) Render(w io.Writer, v state.View) error {
	cw, ch := size(v)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(cw), formatFloat(ch), formatFloat(cw), formatFloat(ch))
	b.WriteString("\n")

	if bg, ok := parseColor(v.Background, 1); ok {
		fmt.Fprintf(&b, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", bg.hex())
	}
	for _, o := range v.Objects {
		if elem := renderElement(o); elem != "" {
			b.WriteString("  ")
			b.WriteString(elem)
			b.WriteString("\n")
		}
	}
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func renderElement(o *state.Object) string {
	transform := fmt.Sprintf(`transform="translate(%s %s) rotate(%s) scale(%s %s)"`,
		formatFloat(o.X), formatFloat(o.Y), formatFloat(o.Angle),
		formatFloat(nonZero(o.ScaleX)), formatFloat(nonZero(o.ScaleY)))

	switch s := o.Shape.(type) {
	case *state.Rect:
		return fmt.Sprintf(`<rect id="%s" width="%s" height="%s" %s %s/>`,
			html.EscapeString(o.ID), formatFloat(s.Width), formatFloat(s.Height), paintAttrs(o), transform)
	case *state.Circle:
		return fmt.Sprintf(`<circle id="%s" cx="%s" cy="%s" r="%s" %s %s/>`,
			html.EscapeString(o.ID), formatFloat(s.Radius), formatFloat(s.Radius), formatFloat(s.Radius), paintAttrs(o), transform)
	case *state.Text:
		fill := "none"
		if c, ok := parseColor(o.Fill, 1); ok {
			fill = c.hex()
		}
		return fmt.Sprintf(`<text id="%s" x="0" y="%s" font-family="%s" font-size="%s" fill="%s" opacity="%s" %s>%s</text>`,
			html.EscapeString(o.ID), formatFloat(textBaseline(s.FontSize)), html.EscapeString(s.FontFamily),
			formatFloat(s.FontSize), fill, formatFloat(o.Opacity), transform, html.EscapeString(s.Content))
	case *state.Path:
		if len(s.Points) == 0 {
			return ""
		}
		stroke := "none"
		if c, ok := parseColor(pathColor(o, s), 1); ok {
			stroke = c.hex()
		}
		return fmt.Sprintf(`<path id="%s" d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round" opacity="%s" %s/>`,
			html.EscapeString(o.ID), pathData(s.Points), stroke, formatFloat(pathWidth(o, s)), formatFloat(o.Opacity), transform)
	}
	return ""
}

func paintAttrs(o *state.Object) string {
	fill, stroke := "none", "none"
	if c, ok := parseColor(o.Fill, 1); ok {
		fill = c.hex()
	}
	if c, ok := parseColor(o.Stroke, 1); ok && o.StrokeWidth > 0 {
		stroke = c.hex()
	}
	return fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="%s" opacity="%s"`,
		fill, stroke, formatFloat(o.StrokeWidth), formatFloat(o.Opacity))
}

func pathData(points []state.Point) string {
	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(formatFloat(p.X))
		b.WriteString(" ")
		b.WriteString(formatFloat(p.Y))
	}
	return b.String()
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
