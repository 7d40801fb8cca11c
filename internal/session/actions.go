package session

import "CanvasBoard/internal/state"

// The toolbar action surface. Every edit is refused on a read-only or
// closed session; refusals are silent no-ops reported as false.

func (s *Session) editable() bool {
	return !s.closed && !s.opts.ReadOnly
}

func (s *Session) add(shape state.Shape, style state.Style) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editable() {
		return "", false
	}
	return s.scene.AddObject(shape, style), true
}

func (s *Session) AddRectangle() (string, bool) { return s.add(state.DefaultRect()) }
func (s *Session) AddCircle() (string, bool)    { return s.add(state.DefaultCircle()) }
func (s *Session) AddText() (string, bool)      { return s.add(state.DefaultText()) }

func (s *Session) EnableDrawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable() && s.ctrl.EnableDrawing()
}

func (s *Session) DisableDrawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable() && s.ctrl.DisableDrawing()
}

func (s *Session) Mode() state.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Mode()
}

func (s *Session) SetBrushColor(color string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable() && s.ctrl.SetBrushColor(color)
}

func (s *Session) SetBrushWidth(width float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable() && s.ctrl.SetBrushWidth(width)
}

// CompleteStroke records a freehand stroke captured by the rendering
// engine.
func (s *Session) CompleteStroke(points []state.Point) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editable() {
		return "", false
	}
	return s.ctrl.CompleteStroke(points)
}

// DeleteSelected removes the current selection, if any.
func (s *Session) DeleteSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.scene.Selected()
	if !s.editable() || id == "" {
		return false
	}
	s.scene.RemoveObjects(id)
	return true
}

func (s *Session) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editable() {
		return false
	}
	s.scene.Clear()
	return true
}

// SetProperty updates the selected object.
func (s *Session) SetProperty(id string, p state.Property) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable() && s.scene.SetProperty(id, p)
}

// SetNamedProperty is SetProperty for string-keyed callers.
func (s *Session) SetNamedProperty(id, name string, value any) bool {
	p, ok := state.ParseProperty(name, value)
	if !ok {
		return false
	}
	return s.SetProperty(id, p)
}

// Modify reports a drag, resize or rotate of an object.
func (s *Session) Modify(id string, g state.Geometry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable() && s.scene.Modify(id, g)
}

// SelectAt selects the topmost object under the point, or clears the
// selection when there is none.
func (s *Session) SelectAt(x, y float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.scene.HitTest(x, y)
	if !s.scene.Select(id) {
		return ""
	}
	return id
}

// Selected returns a copy of the selected object.
func (s *Session) Selected() (*state.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.scene.Selected()
	if id == "" {
		return nil, false
	}
	return s.scene.Object(id)
}
