package state

import (
	"math"

	"github.com/google/uuid"
)

// Kind is the variant tag of a drawable object. The values match the
// type tags of the fabric 5.x document format.
type Kind string

const (
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindText   Kind = "i-text"
	KindPath   Kind = "path"
)

type Point struct{ X, Y float64 }

// Shape is the closed set of object variants. Only the types in this
// package implement it.
type Shape interface {
	Kind() Kind
	// size returns the unscaled bounding box.
	size() (w, h float64)
	clone() Shape
}

type Rect struct {
	Width  float64
	Height float64
}

type Circle struct {
	Radius float64
}

type Text struct {
	Content    string
	FontSize   float64
	FontFamily string
	Editable   bool
}

// Path is a freehand stroke. Points are relative to the owning
// object's X/Y.
type Path struct {
	Points     []Point
	BrushWidth float64
	BrushColor string
}

func (*Rect) Kind() Kind   { return KindRect }
func (*Circle) Kind() Kind { return KindCircle }
func (*Text) Kind() Kind   { return KindText }
func (*Path) Kind() Kind   { return KindPath }

func (r *Rect) size() (float64, float64)   { return r.Width, r.Height }
func (c *Circle) size() (float64, float64) { return 2 * c.Radius, 2 * c.Radius }

// Text extents are estimated from the font size; the desktop renderer
// measures the real glyphs.
func (t *Text) size() (float64, float64) {
	n := float64(len([]rune(t.Content)))
	return n * t.FontSize * 0.6, t.FontSize * 1.16
}

func (p *Path) size() (float64, float64) {
	var w, h float64
	for _, pt := range p.Points {
		w = math.Max(w, pt.X)
		h = math.Max(h, pt.Y)
	}
	return w, h
}

func (r *Rect) clone() Shape   { c := *r; return &c }
func (c *Circle) clone() Shape { n := *c; return &n }
func (t *Text) clone() Shape   { c := *t; return &c }
func (p *Path) clone() Shape {
	c := *p
	c.Points = append([]Point(nil), p.Points...)
	return &c
}

// Style is the set of paint attributes shared by every variant.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
}

// Geometry is what direct manipulation (drag, resize, rotate) changes.
type Geometry struct {
	X, Y           float64
	ScaleX, ScaleY float64
	Angle          float64
}

// Object is one drawable entity in a Scene.
type Object struct {
	ID          string
	X, Y        float64
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
	ScaleX      float64
	ScaleY      float64
	Angle       float64
	Selectable  bool
	Evented     bool
	Shape       Shape
}

// NewObjectID returns a fresh identifier for a drawable object.
func NewObjectID() string { return uuid.NewString() }

func (o *Object) Kind() Kind { return o.Shape.Kind() }

// Clone returns a deep copy; scene callers never get to alias live objects.
func (o *Object) Clone() *Object {
	c := *o
	c.Shape = o.Shape.clone()
	return &c
}

func (o *Object) Geometry() Geometry {
	return Geometry{X: o.X, Y: o.Y, ScaleX: o.ScaleX, ScaleY: o.ScaleY, Angle: o.Angle}
}

// Bounds returns the axis-aligned box covered by the object, scale
// applied and rotation ignored.
func (o *Object) Bounds() Region {
	w, h := o.Shape.size()
	return Region{X: o.X, Y: o.Y, Width: w * nonZero(o.ScaleX), Height: h * nonZero(o.ScaleY)}
}

// DisplayWidth is the rendered rectangle width (raw width × scaleX).
func (o *Object) DisplayWidth() float64 {
	if r, ok := o.Shape.(*Rect); ok {
		return r.Width * nonZero(o.ScaleX)
	}
	return 0
}

// DisplayHeight is the rendered rectangle height (raw height × scaleY).
func (o *Object) DisplayHeight() float64 {
	if r, ok := o.Shape.(*Rect); ok {
		return r.Height * nonZero(o.ScaleY)
	}
	return 0
}

// DisplayRadius is the rendered circle radius (raw radius × scaleX).
func (o *Object) DisplayRadius() float64 {
	if c, ok := o.Shape.(*Circle); ok {
		return c.Radius * nonZero(o.ScaleX)
	}
	return 0
}

// valid checks the object invariants that hydration enforces.
func (o *Object) valid() bool {
	if o.Opacity < 0 || o.Opacity > 1 || math.IsNaN(o.Opacity) {
		return false
	}
	switch s := o.Shape.(type) {
	case *Rect:
		return s.Width >= 0 && s.Height >= 0
	case *Circle:
		return s.Radius >= 0
	case *Text:
		return s.FontSize >= 0
	case *Path:
		return s.BrushWidth >= 0
	}
	return false
}

func nonZero(scale float64) float64 {
	if scale == 0 {
		return 1
	}
	return scale
}
