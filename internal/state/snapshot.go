package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedSnapshot reports a document that cannot be hydrated: no
// version tag, an unknown variant tag, or an attribute that breaks an
// object invariant.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the portable form of a Scene.
//
// Unknown object fields are dropped on decode. Revision and Origin are
// only written by sessions that run with the stale-inbound guard.
type Snapshot struct {
	Version    string      `json:"version"`
	Objects    []ObjectDoc `json:"objects"`
	Background string      `json:"background,omitempty"`
	Revision   uint64      `json:"revision,omitempty"`
	Origin     string      `json:"origin,omitempty"`
}

// ObjectDoc is one serialized object. Variant attributes are pointers
// so that only the fields of the tagged variant are written.
type ObjectDoc struct {
	Type        Kind    `json:"type"`
	ID          string  `json:"id,omitempty"`
	Left        float64 `json:"left"`
	Top         float64 `json:"top"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
	ScaleX      float64 `json:"scaleX"`
	ScaleY      float64 `json:"scaleY"`
	Angle       float64 `json:"angle"`
	Selectable  bool    `json:"selectable"`
	Evented     bool    `json:"evented"`

	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Radius *float64 `json:"radius,omitempty"`

	Text       *string  `json:"text,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily string   `json:"fontFamily,omitempty"`
	Editable   *bool    `json:"editable,omitempty"`

	Path       [][]any  `json:"path,omitempty"`
	BrushColor string   `json:"brushColor,omitempty"`
	BrushWidth *float64 `json:"brushWidth,omitempty"`
}

// UnmarshalJSON fills in the fabric defaults for attributes the
// document omits.
func (d *ObjectDoc) UnmarshalJSON(data []byte) error {
	type plain ObjectDoc
	p := plain{
		StrokeWidth: 1,
		Opacity:     1,
		ScaleX:      1,
		ScaleY:      1,
		Selectable:  true,
		Evented:     true,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = ObjectDoc(p)
	return nil
}

// EmptySnapshot is what a document that does not exist yet hydrates to.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Version: SnapshotVersion, Objects: []ObjectDoc{}}
}

// DecodeSnapshot parses the wire form. It checks structure only; the
// variant tags are checked by FromSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if s.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedSnapshot)
	}
	return &s, nil
}

// Encode returns the wire form.
func (s *Snapshot) Encode() ([]byte, error) {
	if s.Objects == nil {
		s.Objects = []ObjectDoc{}
	}
	return json.Marshal(s)
}

// ToSnapshot captures the scene. Drawing mode is suspended for the
// capture and restored; the active selection is cleared.
func ToSnapshot(s *Scene) *Snapshot {
	var snap *Snapshot
	s.capture(false, func() {
		snap = &Snapshot{
			Version:    SnapshotVersion,
			Objects:    make([]ObjectDoc, 0, len(s.objects)),
			Background: s.background,
		}
		for _, o := range s.objects {
			snap.Objects = append(snap.Objects, encodeObject(o))
		}
	})
	return snap
}

// FromSnapshot replaces the scene's objects with those in snap. Every
// hydrated object is selectable and evented regardless of the stored
// flags. On error the scene is left unmodified.
func FromSnapshot(snap *Snapshot, s *Scene) error {
	objects, err := decodeObjects(snap)
	if err != nil {
		return err
	}
	bg := snap.Background
	if bg == "" {
		bg = DefaultBackground
	}
	s.replace(objects, bg)
	return nil
}

func decodeObjects(snap *Snapshot) ([]*Object, error) {
	if snap == nil || snap.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedSnapshot)
	}
	seen := make(map[string]bool, len(snap.Objects))
	objects := make([]*Object, 0, len(snap.Objects))
	for i, d := range snap.Objects {
		o, err := decodeObject(d)
		if err != nil {
			return nil, fmt.Errorf("%w: object %d: %v", ErrMalformedSnapshot, i, err)
		}
		if o.ID == "" || seen[o.ID] {
			o.ID = NewObjectID()
		}
		seen[o.ID] = true
		o.Selectable = true
		o.Evented = true
		objects = append(objects, o)
	}
	return objects, nil
}

func encodeObject(o *Object) ObjectDoc {
	d := ObjectDoc{
		Type:        o.Kind(),
		ID:          o.ID,
		Left:        o.X,
		Top:         o.Y,
		Fill:        o.Fill,
		Stroke:      o.Stroke,
		StrokeWidth: o.StrokeWidth,
		Opacity:     o.Opacity,
		ScaleX:      o.ScaleX,
		ScaleY:      o.ScaleY,
		Angle:       o.Angle,
		Selectable:  o.Selectable,
		Evented:     o.Evented,
	}
	switch s := o.Shape.(type) {
	case *Rect:
		d.Width, d.Height = ptr(s.Width), ptr(s.Height)
	case *Circle:
		d.Radius = ptr(s.Radius)
	case *Text:
		d.Text, d.FontSize, d.Editable = ptr(s.Content), ptr(s.FontSize), ptr(s.Editable)
		d.FontFamily = s.FontFamily
	case *Path:
		d.Path = encodePath(s.Points)
		d.BrushColor = s.BrushColor
		d.BrushWidth = ptr(s.BrushWidth)
	}
	return d
}

func decodeObject(d ObjectDoc) (*Object, error) {
	o := &Object{
		ID:          d.ID,
		X:           d.Left,
		Y:           d.Top,
		Fill:        d.Fill,
		Stroke:      d.Stroke,
		StrokeWidth: d.StrokeWidth,
		Opacity:     d.Opacity,
		ScaleX:      d.ScaleX,
		ScaleY:      d.ScaleY,
		Angle:       d.Angle,
	}
	switch d.Type {
	case KindRect:
		o.Shape = &Rect{Width: deref(d.Width, 0), Height: deref(d.Height, 0)}
	case KindCircle:
		o.Shape = &Circle{Radius: deref(d.Radius, 0)}
	case KindText:
		family := d.FontFamily
		if family == "" {
			family = "Times New Roman"
		}
		o.Shape = &Text{
			Content:    deref(d.Text, ""),
			FontSize:   deref(d.FontSize, 40),
			FontFamily: family,
			Editable:   deref(d.Editable, true),
		}
	case KindPath:
		points, err := decodePath(d.Path)
		if err != nil {
			return nil, err
		}
		color := d.BrushColor
		if color == "" {
			color = d.Stroke
		}
		o.Shape = &Path{Points: points, BrushColor: color, BrushWidth: deref(d.BrushWidth, d.StrokeWidth)}
	default:
		return nil, fmt.Errorf("unknown type %q", d.Type)
	}
	if !o.valid() {
		return nil, fmt.Errorf("%s attributes out of range", d.Type)
	}
	return o, nil
}

func encodePath(points []Point) [][]any {
	cmds := make([][]any, 0, len(points))
	for i, p := range points {
		op := "L"
		if i == 0 {
			op = "M"
		}
		cmds = append(cmds, []any{op, p.X, p.Y})
	}
	return cmds
}

// decodePath keeps the end point of every drawing command, which is
// how the desktop renderer and the exporters draw strokes.
func decodePath(cmds [][]any) ([]Point, error) {
	points := make([]Point, 0, len(cmds))
	for _, cmd := range cmds {
		if len(cmd) == 0 {
			continue
		}
		op, ok := cmd[0].(string)
		if !ok {
			return nil, errors.New("path command without operator")
		}
		var want int
		switch op {
		case "M", "L":
			want = 2
		case "Q":
			want = 4
		case "C":
			want = 6
		case "Z", "z":
			continue
		default:
			return nil, fmt.Errorf("unsupported path command %q", op)
		}
		if len(cmd) != want+1 {
			return nil, fmt.Errorf("path command %q takes %d coordinates", op, want)
		}
		x, okX := cmd[want-1].(float64)
		y, okY := cmd[want].(float64)
		if !okX || !okY {
			return nil, fmt.Errorf("path command %q has non-numeric coordinates", op)
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
