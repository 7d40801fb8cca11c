package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/export"
	"CanvasBoard/internal/session"
	"CanvasBoard/internal/state"
)

// brushColors is the pen palette, as document colours.
var brushColors = []string{"#000000", "#e74c3c", "#27ae60", "#3498db", "#f1c40f"}

type colorSwatch struct {
	widget.BaseWidget
	Color    string
	OnTapped func(string)
}

func newColorSwatch(c string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(swatchColor(s.Color))
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

func swatchColor(c string) color.Color {
	if nc, ok := export.ParseColor(c, 1); ok {
		return nc
	}
	return color.Transparent
}

// NewToolbar builds the editing controls for an editable session.
func NewToolbar(sess *session.Session, win fyne.Window) fyne.CanvasObject {
	shapes := container.NewHBox(
		widget.NewButtonWithIcon("Rectangle", theme.ContentAddIcon(), func() { sess.AddRectangle() }),
		widget.NewButtonWithIcon("Circle", theme.ContentAddIcon(), func() { sess.AddCircle() }),
		widget.NewButtonWithIcon("Text", theme.ContentAddIcon(), func() { sess.AddText() }),
	)

	strokeSlider := widget.NewSlider(1, state.MaxBrushWidth)
	strokeSlider.Step = 1
	strokeSlider.SetValue(state.DefaultBrushWidth)
	strokeSlider.OnChangeEnded = func(val float64) { sess.SetBrushWidth(val) }
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), strokeSlider)

	swatches := container.NewHBox()
	for _, c := range brushColors {
		swatches.Add(newColorSwatch(c, func(c string) { sess.SetBrushColor(c) }))
	}
	brushControls := container.NewHBox(widget.NewLabel("Color:"), swatches, widget.NewLabel("Size:"), sliderContainer)
	brushControls.Hide()

	var pen *widget.Button
	pen = widget.NewButtonWithIcon("Pen", theme.DocumentCreateIcon(), func() {
		if sess.Mode() == state.ModeDrawing {
			sess.DisableDrawing()
			pen.Importance = widget.MediumImportance
			brushControls.Hide()
		} else if sess.EnableDrawing() {
			pen.Importance = widget.HighImportance
			if b, ok := sess.Brush(); ok {
				strokeSlider.SetValue(b.Width)
			}
			brushControls.Show()
		}
		pen.Refresh()
	})

	actions := widget.NewToolbar(
		widget.NewToolbarAction(theme.DeleteIcon(), func() { sess.DeleteSelected() }),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() {
			dialog.ShowConfirm("Clear canvas", "Remove every object from the canvas?", func(ok bool) {
				if ok {
					sess.Clear()
				}
			}, win)
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { showExportDialog(sess, win) }),
	)

	return container.NewHBox(
		shapes,
		widget.NewSeparator(),
		pen,
		brushControls,
		layout.NewSpacer(),
		actions,
	)
}
