package ui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/session"
	"CanvasBoard/internal/state"
)

// PropertyPanel edits the selected object. Sizes are shown as they
// appear on the canvas, scale included.
type PropertyPanel struct {
	sess *session.Session
	box  *fyne.Container
	id   string
}

func NewPropertyPanel(sess *session.Session) *PropertyPanel {
	p := &PropertyPanel{sess: sess, box: container.NewVBox()}
	p.Update()
	return p
}

func (p *PropertyPanel) Container() fyne.CanvasObject { return p.box }

// Update rebuilds the panel for the current selection.
func (p *PropertyPanel) Update() {
	p.box.RemoveAll()
	o, ok := p.sess.Selected()
	if !ok {
		p.id = ""
		p.box.Add(widget.NewLabel("Nothing selected"))
		return
	}
	p.id = o.ID

	form := widget.NewForm()
	form.Append("Fill", p.textEntry(o.Fill, "fill"))

	opacity := widget.NewSlider(0, 1)
	opacity.Step = 0.05
	opacity.SetValue(o.Opacity)
	opacity.OnChangeEnded = func(v float64) { p.sess.SetProperty(p.id, state.Opacity(v)) }
	form.Append("Opacity", opacity)

	switch shape := o.Shape.(type) {
	case *state.Rect:
		form.Append("Width", p.numberEntry(o.DisplayWidth(), "width"))
		form.Append("Height", p.numberEntry(o.DisplayHeight(), "height"))
	case *state.Circle:
		form.Append("Radius", p.numberEntry(o.DisplayRadius(), "radius"))
	case *state.Text:
		form.Append("Text", p.textEntry(shape.Content, "text"))
		form.Append("Font size", p.numberEntry(shape.FontSize, "fontSize"))
	}
	p.box.Add(form)
}

func (p *PropertyPanel) textEntry(value, name string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(value)
	e.OnSubmitted = func(s string) { p.sess.SetNamedProperty(p.id, name, s) }
	return e
}

func (p *PropertyPanel) numberEntry(value float64, name string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.FormatFloat(value, 'f', -1, 64))
	e.OnSubmitted = func(s string) {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return
		}
		p.sess.SetNamedProperty(p.id, name, n)
	}
	return e
}
