package state

// Mode is the interaction state of a Controller.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDrawing
)

func (m Mode) String() string {
	if m == ModeDrawing {
		return "drawing"
	}
	return "idle"
}

// MaxBrushWidth bounds SetBrushWidth; the toolbar slider uses the
// same range.
const MaxBrushWidth = 20

// Controller gates which scene operations are permitted. Read-only is
// an overlay on top of the mode: while it is set the scene is fully
// non-interactive and mode changes are refused.
type Controller struct {
	scene    *Scene
	mode     Mode
	readOnly bool
}

func NewController(s *Scene) *Controller {
	return &Controller{scene: s}
}

func (c *Controller) Mode() Mode     { return c.mode }
func (c *Controller) ReadOnly() bool { return c.readOnly }

// EnableDrawing switches to free-draw capture. The brush is created on
// the first call and keeps its configuration afterwards.
func (c *Controller) EnableDrawing() bool {
	if c.readOnly || c.mode == ModeDrawing {
		return false
	}
	if c.scene.brush == nil {
		c.scene.brush = &Brush{Color: DefaultBrushColor, Width: DefaultBrushWidth}
	}
	c.mode = ModeDrawing
	c.scene.drawing = true
	c.scene.setSelectable(false)
	return true
}

func (c *Controller) DisableDrawing() bool {
	if c.readOnly || c.mode != ModeDrawing {
		return false
	}
	c.mode = ModeIdle
	c.scene.drawing = false
	c.scene.setSelectable(true)
	return true
}

// SetBrushColor is a no-op until a drawing session has created the brush.
func (c *Controller) SetBrushColor(color string) bool {
	if c.scene.brush == nil || color == "" {
		return false
	}
	c.scene.brush.Color = color
	return true
}

func (c *Controller) SetBrushWidth(width float64) bool {
	if c.scene.brush == nil || !finite(width) || width <= 0 || width > MaxBrushWidth {
		return false
	}
	c.scene.brush.Width = width
	return true
}

// CompleteStroke turns a captured pointer trace into a path object.
// Traces are only accepted in drawing mode; the points are in canvas
// coordinates.
func (c *Controller) CompleteStroke(points []Point) (string, bool) {
	if c.readOnly || c.mode != ModeDrawing || len(points) == 0 || c.scene.brush == nil {
		return "", false
	}
	for _, pt := range points {
		if !finite(pt.X) || !finite(pt.Y) {
			return "", false
		}
	}

	box := boundsOf(points)
	rel := make([]Point, len(points))
	for i, pt := range points {
		rel[i] = Point{X: pt.X - box.X, Y: pt.Y - box.Y}
	}
	brush := *c.scene.brush
	o := &Object{
		ID:          NewObjectID(),
		X:           box.X,
		Y:           box.Y,
		Stroke:      brush.Color,
		StrokeWidth: brush.Width,
		Opacity:     1,
		ScaleX:      1,
		ScaleY:      1,
		Selectable:  c.scene.selection,
		Evented:     c.scene.evented,
		Shape:       &Path{Points: rel, BrushColor: brush.Color, BrushWidth: brush.Width},
	}
	c.scene.addPath(o)
	return o.ID, true
}

// SetReadOnly imposes or lifts the read-only overlay. Lifting it
// returns the controller to idle.
func (c *Controller) SetReadOnly(readOnly bool) {
	c.readOnly = readOnly
	c.mode = ModeIdle
	c.scene.drawing = false
	c.scene.SetInteractivity(!readOnly)
}

// Reapply re-imposes the current mode on the scene. Hydration makes
// every object interactive, so sessions call this after each one.
func (c *Controller) Reapply() {
	switch {
	case c.readOnly:
		c.scene.SetInteractivity(false)
	case c.mode == ModeDrawing:
		c.scene.setSelectable(false)
	}
}
