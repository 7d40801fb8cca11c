package state

// Canvas defaults.
const (
	SnapshotVersion   = "5.3.0"
	DefaultBackground = "#ffffff"
	DefaultWidth      = 800
	DefaultHeight     = 600
	DefaultBrushColor = "#000000"
	DefaultBrushWidth = 3
)

// DefaultRect returns the shape and style of a newly added rectangle.
func DefaultRect() (Shape, Style) {
	return &Rect{Width: 100, Height: 100},
		Style{Fill: "#3498db", Stroke: "#2980b9", StrokeWidth: 2, Opacity: 1}
}

// DefaultCircle returns the shape and style of a newly added circle.
func DefaultCircle() (Shape, Style) {
	return &Circle{Radius: 50},
		Style{Fill: "#e74c3c", Stroke: "#c0392b", StrokeWidth: 2, Opacity: 1}
}

// DefaultText returns the shape and style of a newly added text box.
func DefaultText() (Shape, Style) {
	return &Text{Content: "Click to edit", FontSize: 20, FontFamily: "Arial", Editable: true},
		Style{Fill: "#2c3e50", Opacity: 1}
}
