package state

import (
	"io"
	"slices"
)

// MutationKind classifies a change reported to the change notifier.
type MutationKind int

const (
	MutationAdded MutationKind = iota
	MutationRemoved
	MutationModified
	MutationPathCreated
	MutationCleared
)

func (k MutationKind) String() string {
	switch k {
	case MutationAdded:
		return "added"
	case MutationRemoved:
		return "removed"
	case MutationModified:
		return "modified"
	case MutationPathCreated:
		return "path-created"
	case MutationCleared:
		return "cleared"
	}
	return "unknown"
}

// Hooks is the fixed set of callbacks a Scene reports through. Any
// field may be nil. Objects passed to callbacks are copies.
//
// OnMutation fires for every mutation in addition to the specific
// callback. Hydration never fires OnMutation; it fires OnHydrated.
type Hooks struct {
	OnMutation    func(MutationKind)
	OnAdded       func(o *Object)
	OnRemoved     func(ids []string)
	OnModified    func(o *Object)
	OnPathCreated func(o *Object)
	OnCleared     func()
	OnSelection   func(id string)
	OnHydrated    func()
	OnRender      func()
}

// Brush is the free-draw configuration.
type Brush struct {
	Color string
	Width float64
}

// View is a read-only copy of what a Scene would paint.
type View struct {
	Objects    []*Object
	Background string
	Width      float64
	Height     float64
}

// Renderer turns a View into an export payload.
type Renderer interface {
	Render(w io.Writer, v View) error
}

type hookEntry struct {
	id    int
	hooks Hooks
}

// Scene is the live drawable-object collection of one editor. It is
// not safe for concurrent use; the owning session serialises access.
type Scene struct {
	objects    []*Object
	index      map[string]*Object
	background string
	width      float64
	height     float64

	selected  string
	selection bool
	evented   bool
	drawing   bool
	brush     *Brush

	placer   *Placer
	hooks    []hookEntry
	nextHook int
}

type SceneOption func(*Scene)

func WithSize(width, height float64) SceneOption {
	return func(s *Scene) { s.width, s.height = width, height }
}

func WithBackground(color string) SceneOption {
	return func(s *Scene) { s.background = color }
}

func WithPlacer(p *Placer) SceneOption {
	return func(s *Scene) { s.placer = p }
}

// NewScene returns an empty, interactive scene.
func NewScene(opts ...SceneOption) *Scene {
	s := &Scene{
		index:      make(map[string]*Object),
		background: DefaultBackground,
		width:      DefaultWidth,
		height:     DefaultHeight,
		selection:  true,
		evented:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.placer == nil {
		s.placer = NewPlacer(PlacementArea, 0)
	}
	return s
}

// Subscribe registers hooks and returns the function that removes them.
func (s *Scene) Subscribe(h Hooks) (unsubscribe func()) {
	s.nextHook++
	id := s.nextHook
	s.hooks = append(s.hooks, hookEntry{id: id, hooks: h})
	return func() {
		s.hooks = slices.DeleteFunc(s.hooks, func(e hookEntry) bool { return e.id == id })
	}
}

func (s *Scene) each(fn func(h Hooks)) {
	for _, e := range slices.Clone(s.hooks) {
		fn(e.hooks)
	}
}

func (s *Scene) mutated(kind MutationKind) {
	s.each(func(h Hooks) {
		if h.OnMutation != nil {
			h.OnMutation(kind)
		}
	})
	s.render()
}

func (s *Scene) render() {
	s.each(func(h Hooks) {
		if h.OnRender != nil {
			h.OnRender()
		}
	})
}

func (s *Scene) Len() int               { return len(s.objects) }
func (s *Scene) Background() string     { return s.background }
func (s *Scene) Size() (w, h float64)   { return s.width, s.height }
func (s *Scene) Selected() string       { return s.selected }
func (s *Scene) SelectionEnabled() bool { return s.selection }
func (s *Scene) DrawingMode() bool      { return s.drawing }

// Brush returns the free-draw brush, if a drawing session created one.
func (s *Scene) Brush() (Brush, bool) {
	if s.brush == nil {
		return Brush{}, false
	}
	return *s.brush, true
}

// Object returns a copy of the object with the given id.
func (s *Scene) Object(id string) (*Object, bool) {
	o, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Objects returns copies of all objects in paint order.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = o.Clone()
	}
	return out
}

func (s *Scene) View() View {
	return View{Objects: s.Objects(), Background: s.background, Width: s.width, Height: s.height}
}

// AddObject inserts a new object at a randomized position at the end
// of the paint order and makes it the selection.
func (s *Scene) AddObject(shape Shape, style Style) string {
	x, y := s.placer.Next(shape.size())
	o := &Object{
		ID:          NewObjectID(),
		X:           x,
		Y:           y,
		Fill:        style.Fill,
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
		Opacity:     style.Opacity,
		ScaleX:      1,
		ScaleY:      1,
		Selectable:  s.selection,
		Evented:     s.evented,
		Shape:       shape.clone(),
	}
	s.insert(o)
	s.each(func(h Hooks) {
		if h.OnAdded != nil {
			h.OnAdded(o.Clone())
		}
	})
	s.setSelected(o.ID)
	s.mutated(MutationAdded)
	return o.ID
}

// addPath inserts a completed freehand stroke. Strokes never become
// the selection.
func (s *Scene) addPath(o *Object) {
	s.insert(o)
	s.each(func(h Hooks) {
		if h.OnPathCreated != nil {
			h.OnPathCreated(o.Clone())
		}
	})
	s.mutated(MutationPathCreated)
}

func (s *Scene) insert(o *Object) {
	s.objects = append(s.objects, o)
	s.index[o.ID] = o
}

// RemoveObjects deletes every listed object that exists. Removing the
// selected object clears the selection.
func (s *Scene) RemoveObjects(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	removed := make([]string, 0, len(drop))
	s.objects = slices.DeleteFunc(s.objects, func(o *Object) bool {
		if drop[o.ID] {
			removed = append(removed, o.ID)
			delete(s.index, o.ID)
			return true
		}
		return false
	})
	if drop[s.selected] {
		s.setSelected("")
	}
	s.each(func(h Hooks) {
		if h.OnRemoved != nil {
			h.OnRemoved(slices.Clone(removed))
		}
	})
	s.mutated(MutationRemoved)
}

// SetProperty updates one attribute of the selected object. It is a
// no-op when id is not the selection or the property does not apply
// to the object's variant.
func (s *Scene) SetProperty(id string, p Property) bool {
	if id == "" || id != s.selected || p == nil {
		return false
	}
	o, ok := s.index[id]
	if !ok {
		return false
	}
	candidate := o.Clone()
	if !p.apply(candidate) {
		return false
	}
	*o = *candidate
	s.modified(o)
	return true
}

// Modify applies a direct-manipulation result reported by the
// rendering engine.
func (s *Scene) Modify(id string, g Geometry) bool {
	o, ok := s.index[id]
	if !ok || !finite(g.X) || !finite(g.Y) || !finite(g.Angle) {
		return false
	}
	if !finite(g.ScaleX) || !finite(g.ScaleY) || g.ScaleX == 0 || g.ScaleY == 0 {
		return false
	}
	o.X, o.Y = g.X, g.Y
	o.ScaleX, o.ScaleY = g.ScaleX, g.ScaleY
	o.Angle = g.Angle
	s.modified(o)
	return true
}

func (s *Scene) modified(o *Object) {
	s.each(func(h Hooks) {
		if h.OnModified != nil {
			h.OnModified(o.Clone())
		}
	})
	s.mutated(MutationModified)
}

// SetInteractivity toggles per-object selectable/evented flags and
// scene-level selection together. Disabling also drops the selection.
func (s *Scene) SetInteractivity(enabled bool) {
	s.evented = enabled
	for _, o := range s.objects {
		o.Evented = enabled
	}
	s.setSelectable(enabled)
}

// setSelectable is the drawing-mode half of SetInteractivity: objects
// stay evented but nothing can be selected.
func (s *Scene) setSelectable(enabled bool) {
	s.selection = enabled
	for _, o := range s.objects {
		o.Selectable = enabled
	}
	if !enabled {
		s.setSelected("")
	}
	s.render()
}

// Interactive reports whether objects receive pointer events.
func (s *Scene) Interactive() bool { return s.evented }

// Clear removes every object and resets the background.
func (s *Scene) Clear() {
	s.objects = nil
	s.index = make(map[string]*Object)
	s.background = DefaultBackground
	s.setSelected("")
	s.each(func(h Hooks) {
		if h.OnCleared != nil {
			h.OnCleared()
		}
	})
	s.mutated(MutationCleared)
}

// Select makes id the selection if scene selection is enabled and the
// object is selectable. An empty id clears the selection.
func (s *Scene) Select(id string) bool {
	if id == "" {
		s.setSelected("")
		return true
	}
	o, ok := s.index[id]
	if !ok || !s.selection || !o.Selectable {
		return false
	}
	s.setSelected(id)
	return true
}

func (s *Scene) setSelected(id string) {
	if s.selected == id {
		return
	}
	s.selected = id
	s.each(func(h Hooks) {
		if h.OnSelection != nil {
			h.OnSelection(id)
		}
	})
}

// HitTest returns the topmost evented object whose bounds contain the
// point, or "" when nothing is hit.
func (s *Scene) HitTest(x, y float64) string {
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.Evented && o.Bounds().Contains(x, y) {
			return o.ID
		}
	}
	return ""
}

// Rasterize renders the visible state. Selection and drawing mode are
// suspended for the capture and restored afterwards so no handle
// decorations reach the output.
func (s *Scene) Rasterize(w io.Writer, r Renderer) error {
	var err error
	s.capture(true, func() { err = r.Render(w, s.View()) })
	return err
}

// capture runs fn with drawing mode off and no selection. Drawing mode
// is always restored; the selection only when restoreSelection is set
// and the object still exists.
func (s *Scene) capture(restoreSelection bool, fn func()) {
	wasDrawing := s.drawing
	prev := s.selected
	s.drawing = false
	s.setSelected("")

	fn()

	s.drawing = wasDrawing
	if restoreSelection && prev != "" {
		if _, ok := s.index[prev]; ok {
			s.setSelected(prev)
		}
	}
}

// replace swaps the whole object sequence for hydrated objects.
func (s *Scene) replace(objects []*Object, background string) {
	s.objects = objects
	s.index = make(map[string]*Object, len(objects))
	for _, o := range objects {
		s.index[o.ID] = o
	}
	s.background = background
	s.selection = true
	s.evented = true
	s.setSelected("")
	s.each(func(h Hooks) {
		if h.OnHydrated != nil {
			h.OnHydrated()
		}
	})
	s.render()
}
