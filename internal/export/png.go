package export

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"CanvasBoard/internal/state"
)

// RasterScale is the linear resolution multiplier of PNG exports.
const RasterScale = 2

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
	fontErr    error
)

// regularFont is used for every text object regardless of its font
// family.
func regularFont() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSource, fontErr
}

// PNG rasterises a view at Scale times the canvas size.
type PNG struct {
	Scale float64
}

func NewPNG() *PNG { return &PNG{Scale: RasterScale} }

func (p *PNG) Render(w io.Writer, v state.View) error {
	scale := p.Scale
	if scale <= 0 {
		scale = RasterScale
	}
	cw, ch := size(v)
	dc := gg.NewContext(int(math.Ceil(cw*scale)), int(math.Ceil(ch*scale)))
	defer dc.Close()

	bg, ok := parseColor(v.Background, 1)
	if !ok {
		bg = paint{R: 1, G: 1, B: 1, A: 1}
	}
	dc.ClearWithColor(gg.RGBA2(bg.R, bg.G, bg.B, bg.A))
	dc.Scale(scale, scale)

	for _, o := range v.Objects {
		if err := p.draw(dc, o, scale); err != nil {
			return fmt.Errorf("draw %s %s: %w", o.Kind(), o.ID, err)
		}
	}
	return dc.EncodePNG(w)
}

func (p *PNG) draw(dc *gg.Context, o *state.Object, scale float64) error {
	dc.Push()
	defer dc.Pop()
	dc.Translate(o.X, o.Y)
	dc.Rotate(o.Angle * math.Pi / 180)
	dc.Scale(nonZero(o.ScaleX), nonZero(o.ScaleY))

	switch s := o.Shape.(type) {
	case *state.Rect:
		dc.DrawRectangle(0, 0, s.Width, s.Height)
		return fillStroke(dc, o)
	case *state.Circle:
		dc.DrawCircle(s.Radius, s.Radius, s.Radius)
		return fillStroke(dc, o)
	case *state.Path:
		return strokePath(dc, o, s)
	case *state.Text:
		return drawText(dc, o, s, scale)
	}
	return nil
}

func fillStroke(dc *gg.Context, o *state.Object) error {
	fill, hasFill := parseColor(o.Fill, o.Opacity)
	stroke, hasStroke := parseColor(o.Stroke, o.Opacity)
	hasStroke = hasStroke && o.StrokeWidth > 0

	if hasFill {
		dc.SetRGBA(fill.R, fill.G, fill.B, fill.A)
		var err error
		if hasStroke {
			err = dc.FillPreserve()
		} else {
			err = dc.Fill()
		}
		if err != nil {
			return err
		}
	}
	if hasStroke {
		dc.SetRGBA(stroke.R, stroke.G, stroke.B, stroke.A)
		dc.SetLineWidth(o.StrokeWidth)
		return dc.Stroke()
	}
	if !hasFill {
		dc.ClearPath()
	}
	return nil
}

func strokePath(dc *gg.Context, o *state.Object, p *state.Path) error {
	if len(p.Points) == 0 {
		return nil
	}
	c, ok := parseColor(pathColor(o, p), o.Opacity)
	if !ok {
		return nil
	}
	dc.MoveTo(p.Points[0].X, p.Points[0].Y)
	for _, pt := range p.Points[1:] {
		dc.LineTo(pt.X, pt.Y)
	}
	if len(p.Points) == 1 {
		dc.LineTo(p.Points[0].X, p.Points[0].Y)
	}
	dc.SetRGBA(c.R, c.G, c.B, c.A)
	dc.SetLineWidth(pathWidth(o, p))
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	return dc.Stroke()
}

// drawText places glyphs in device space: the text rasteriser does not
// follow the context transform, so rotation is not applied to text.
func drawText(dc *gg.Context, o *state.Object, t *state.Text, scale float64) error {
	c, ok := parseColor(o.Fill, o.Opacity)
	if !ok || t.Content == "" {
		return nil
	}
	src, err := regularFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	x, y := dc.TransformPoint(0, textBaseline(t.FontSize))
	dc.SetFont(src.Face(t.FontSize * scale * nonZero(o.ScaleY)))
	dc.SetRGBA(c.R, c.G, c.B, c.A)

	dc.Push()
	defer dc.Pop()
	dc.Identity()
	dc.DrawString(t.Content, x, y)
	return nil
}

func pathColor(o *state.Object, p *state.Path) string {
	if o.Stroke != "" {
		return o.Stroke
	}
	return p.BrushColor
}

func pathWidth(o *state.Object, p *state.Path) float64 {
	if o.StrokeWidth > 0 {
		return o.StrokeWidth
	}
	return p.BrushWidth
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
