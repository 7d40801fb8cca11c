package export

import (
	"io"

	"github.com/jung-kurt/gofpdf"

	"CanvasBoard/internal/state"
)

// PDF writes the view as a single page the size of the canvas, one
// point per canvas pixel.
type PDF struct{}

func (PDF) Render(w io.Writer, v state.View) error {
	cw, ch := size(v)
	orientation := "P"
	if cw > ch {
		orientation = "L"
	}
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: cw, Ht: ch},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	if bg, ok := parseColor(v.Background, 1); ok {
		r, g, b := bg.rgb255()
		p.SetFillColor(r, g, b)
		p.Rect(0, 0, cw, ch, "F")
	}

	tr := p.UnicodeTranslatorFromDescriptor("")
	for _, o := range v.Objects {
		drawPDF(p, o, tr)
	}
	if err := p.Error(); err != nil {
		return err
	}
	return p.Output(w)
}

func drawPDF(p *gofpdf.Fpdf, o *state.Object, tr func(string) string) {
	p.TransformBegin()
	defer p.TransformEnd()
	// PDF angles run counter-clockwise; canvas angles clockwise.
	p.TransformRotate(-o.Angle, o.X, o.Y)
	p.TransformScale(nonZero(o.ScaleX)*100, nonZero(o.ScaleY)*100, o.X, o.Y)
	p.SetAlpha(clamp01(o.Opacity), "Normal")
	defer p.SetAlpha(1, "Normal")

	switch s := o.Shape.(type) {
	case *state.Rect:
		if style := pdfStyle(p, o); style != "" {
			p.Rect(o.X, o.Y, s.Width, s.Height, style)
		}
	case *state.Circle:
		if style := pdfStyle(p, o); style != "" {
			p.Circle(o.X+s.Radius, o.Y+s.Radius, s.Radius, style)
		}
	case *state.Text:
		c, ok := parseColor(o.Fill, 1)
		if !ok || s.Content == "" {
			return
		}
		r, g, b := c.rgb255()
		p.SetTextColor(r, g, b)
		p.SetFont("Helvetica", "", s.FontSize)
		p.Text(o.X, o.Y+textBaseline(s.FontSize), tr(s.Content))
	case *state.Path:
		c, ok := parseColor(pathColor(o, s), 1)
		if !ok || len(s.Points) == 0 {
			return
		}
		r, g, b := c.rgb255()
		p.SetDrawColor(r, g, b)
		p.SetLineWidth(pathWidth(o, s))
		p.SetLineCapStyle("round")
		p.SetLineJoinStyle("round")
		p.MoveTo(o.X+s.Points[0].X, o.Y+s.Points[0].Y)
		for _, pt := range s.Points[1:] {
			p.LineTo(o.X+pt.X, o.Y+pt.Y)
		}
		p.DrawPath("D")
	}
}

// pdfStyle sets the fill and draw colours of o and returns the gofpdf
// style string, or "" when there is nothing to paint.
func pdfStyle(p *gofpdf.Fpdf, o *state.Object) string {
	style := ""
	if c, ok := parseColor(o.Fill, 1); ok {
		r, g, b := c.rgb255()
		p.SetFillColor(r, g, b)
		style += "F"
	}
	if c, ok := parseColor(o.Stroke, 1); ok && o.StrokeWidth > 0 {
		r, g, b := c.rgb255()
		p.SetDrawColor(r, g, b)
		p.SetLineWidth(o.StrokeWidth)
		style += "D"
	}
	return style
}
