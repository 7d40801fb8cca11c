package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/export"
	"CanvasBoard/internal/session"
	"CanvasBoard/internal/state"
)

var selectionColor = color.NRGBA{R: 0x1e, G: 0x90, B: 0xff, A: 0xff}

// BoardWidget paints a session's scene and turns pointer input into
// session actions: taps select, drags move the selected object, and in
// drawing mode drags become freehand strokes.
type BoardWidget struct {
	widget.BaseWidget
	sess *session.Session

	dragging bool
	moving   string
	stroke   []state.Point
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Tappable = (*BoardWidget)(nil)

func NewBoardWidget() *BoardWidget {
	b := &BoardWidget{}
	b.ExtendBaseWidget(b)
	return b
}

// Attach binds the board to a session. Until then it paints a blank
// canvas.
func (b *BoardWidget) Attach(s *session.Session) {
	b.sess = s
	b.Refresh()
}

func (b *BoardWidget) Tapped(e *fyne.PointEvent) {
	if b.sess == nil || b.sess.Mode() == state.ModeDrawing {
		return
	}
	b.sess.SelectAt(float64(e.Position.X), float64(e.Position.Y))
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	if b.sess == nil || b.sess.ReadOnly() {
		return
	}
	pos := toPoint(e.Position)
	if !b.dragging {
		b.dragging = true
		start := state.Point{X: pos.X - float64(e.Dragged.DX), Y: pos.Y - float64(e.Dragged.DY)}
		if b.sess.Mode() == state.ModeDrawing {
			b.stroke = []state.Point{start}
		} else {
			b.moving = b.sess.SelectAt(start.X, start.Y)
		}
	}

	switch {
	case b.stroke != nil:
		b.stroke = append(b.stroke, pos)
		b.Refresh()
	case b.moving != "":
		o, ok := b.sess.Selected()
		if !ok || o.ID != b.moving {
			b.moving = ""
			return
		}
		g := o.Geometry()
		g.X += float64(e.Dragged.DX)
		g.Y += float64(e.Dragged.DY)
		b.sess.Modify(o.ID, g)
	}
}

func (b *BoardWidget) DragEnd() {
	if len(b.stroke) > 1 {
		b.sess.CompleteStroke(b.stroke)
	}
	b.dragging = false
	b.moving = ""
	b.stroke = nil
	b.Refresh()
}

func toPoint(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(color.White)
	r.rebuild()
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	objects    []fyne.CanvasObject
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *boardWidgetRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.board)
}

// rebuild repaints the whole scene; documents are small enough that
// diffing is not worth it.
func (r *boardWidgetRenderer) rebuild() {
	r.objects = []fyne.CanvasObject{r.background}
	sess := r.board.sess
	if sess == nil {
		return
	}

	v := sess.View()
	if c, ok := export.ParseColor(v.Background, 1); ok {
		r.background.FillColor = c
	}
	r.background.Refresh()

	var selected string
	if o, ok := sess.Selected(); ok {
		selected = o.ID
	}
	for _, o := range v.Objects {
		r.objects = append(r.objects, drawObject(o)...)
		if o.ID == selected {
			r.objects = append(r.objects, selectionBox(o))
		}
	}

	if stroke := r.board.stroke; len(stroke) > 1 {
		brush, _ := sess.Brush()
		c, _ := export.ParseColor(brush.Color, 1)
		r.objects = append(r.objects, polyline(stroke, 0, 0, 1, 1, c, brush.Width)...)
	}
}

func drawObject(o *state.Object) []fyne.CanvasObject {
	fill, hasFill := export.ParseColor(o.Fill, o.Opacity)
	stroke, hasStroke := export.ParseColor(o.Stroke, o.Opacity)
	strokeWidth := float32(o.StrokeWidth)
	if !hasStroke {
		strokeWidth = 0
	}
	pos := fyne.NewPos(float32(o.X), float32(o.Y))

	switch shape := o.Shape.(type) {
	case *state.Rect:
		rect := canvas.NewRectangle(color.Transparent)
		if hasFill {
			rect.FillColor = fill
		}
		rect.StrokeColor = stroke
		rect.StrokeWidth = strokeWidth
		rect.Move(pos)
		rect.Resize(fyne.NewSize(float32(o.DisplayWidth()), float32(o.DisplayHeight())))
		return []fyne.CanvasObject{rect}
	case *state.Circle:
		circle := canvas.NewCircle(color.Transparent)
		if hasFill {
			circle.FillColor = fill
		}
		circle.StrokeColor = stroke
		circle.StrokeWidth = strokeWidth
		box := o.Bounds()
		circle.Move(pos)
		circle.Resize(fyne.NewSize(float32(box.Width), float32(box.Height)))
		return []fyne.CanvasObject{circle}
	case *state.Text:
		if !hasFill {
			fill = color.NRGBA{A: 0xff}
		}
		text := canvas.NewText(shape.Content, fill)
		text.TextSize = float32(shape.FontSize * o.ScaleY)
		text.Move(pos)
		return []fyne.CanvasObject{text}
	case *state.Path:
		c, ok := export.ParseColor(shape.BrushColor, o.Opacity)
		if !ok {
			c = stroke
		}
		width := shape.BrushWidth
		if width <= 0 {
			width = o.StrokeWidth
		}
		return polyline(shape.Points, o.X, o.Y, o.ScaleX, o.ScaleY, c, width)
	}
	return nil
}

func polyline(points []state.Point, x, y, sx, sy float64, c color.Color, width float64) []fyne.CanvasObject {
	lines := make([]fyne.CanvasObject, 0, len(points))
	for i := 1; i < len(points); i++ {
		seg := canvas.NewLine(c)
		seg.StrokeWidth = float32(width)
		seg.Position1 = fyne.NewPos(float32(x+points[i-1].X*sx), float32(y+points[i-1].Y*sy))
		seg.Position2 = fyne.NewPos(float32(x+points[i].X*sx), float32(y+points[i].Y*sy))
		lines = append(lines, seg)
	}
	return lines
}

func selectionBox(o *state.Object) fyne.CanvasObject {
	box := o.Bounds()
	outline := canvas.NewRectangle(color.Transparent)
	outline.StrokeColor = selectionColor
	outline.StrokeWidth = 1
	outline.Move(fyne.NewPos(float32(box.X-2), float32(box.Y-2)))
	outline.Resize(fyne.NewSize(float32(box.Width+4), float32(box.Height+4)))
	return outline
}

func (r *boardWidgetRenderer) Destroy() {}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	if s := r.board.sess; s != nil {
		v := s.View()
		return fyne.NewSize(float32(v.Width), float32(v.Height))
	}
	return fyne.NewSize(state.DefaultWidth, state.DefaultHeight)
}
