package state

import "math"

// Property is one attribute update for the selected object. The set of
// implementations is closed; apply reports false when the property
// does not exist on the object's variant or the value breaks an
// invariant, in which case the object is left untouched.
type Property interface {
	apply(o *Object) bool
}

type (
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64

	// Width, Height and Radius are display values: they are divided by
	// the object's current scale before being stored.
	Width  float64
	Height float64
	Radius float64

	FontSize    float64
	FontFamily  string
	TextContent string
)

func (p Fill) apply(o *Object) bool   { o.Fill = string(p); return true }
func (p Stroke) apply(o *Object) bool { o.Stroke = string(p); return true }

func (p StrokeWidth) apply(o *Object) bool {
	if !finite(float64(p)) || p < 0 {
		return false
	}
	o.StrokeWidth = float64(p)
	return true
}

func (p Opacity) apply(o *Object) bool {
	if !finite(float64(p)) || p < 0 || p > 1 {
		return false
	}
	o.Opacity = float64(p)
	return true
}

func (p Width) apply(o *Object) bool {
	r, ok := o.Shape.(*Rect)
	if !ok || !finite(float64(p)) || p < 0 {
		return false
	}
	r.Width = float64(p) / nonZero(o.ScaleX)
	return true
}

func (p Height) apply(o *Object) bool {
	r, ok := o.Shape.(*Rect)
	if !ok || !finite(float64(p)) || p < 0 {
		return false
	}
	r.Height = float64(p) / nonZero(o.ScaleY)
	return true
}

func (p Radius) apply(o *Object) bool {
	c, ok := o.Shape.(*Circle)
	if !ok || !finite(float64(p)) || p < 0 {
		return false
	}
	c.Radius = float64(p) / nonZero(o.ScaleX)
	return true
}

func (p FontSize) apply(o *Object) bool {
	t, ok := o.Shape.(*Text)
	if !ok || !finite(float64(p)) || p <= 0 {
		return false
	}
	t.FontSize = float64(p)
	return true
}

func (p FontFamily) apply(o *Object) bool {
	t, ok := o.Shape.(*Text)
	if !ok || p == "" {
		return false
	}
	t.FontFamily = string(p)
	return true
}

func (p TextContent) apply(o *Object) bool {
	t, ok := o.Shape.(*Text)
	if !ok || !t.Editable {
		return false
	}
	t.Content = string(p)
	return true
}

// ParseProperty maps a string-keyed update, as produced by generic UI
// or HTTP code, onto a Property. Unknown names and values of the wrong
// type report false.
func ParseProperty(name string, value any) (Property, bool) {
	switch name {
	case "fill":
		s, ok := value.(string)
		return Fill(s), ok
	case "stroke":
		s, ok := value.(string)
		return Stroke(s), ok
	case "fontFamily":
		s, ok := value.(string)
		return FontFamily(s), ok
	case "text":
		s, ok := value.(string)
		return TextContent(s), ok
	}

	n, ok := number(value)
	if !ok {
		return nil, false
	}
	switch name {
	case "strokeWidth":
		return StrokeWidth(n), true
	case "opacity":
		return Opacity(n), true
	case "width":
		return Width(n), true
	case "height":
		return Height(n), true
	case "radius":
		return Radius(n), true
	case "fontSize":
		return FontSize(n), true
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
