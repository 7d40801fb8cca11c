package state

import (
	"math"
	"math/rand"
	"time"
)

// Region is an axis-aligned rectangle on the canvas.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PlacementArea is where new objects land: a 200×200 square offset by
// 100 from the canvas origin, so repeated adds do not stack exactly.
var PlacementArea = Region{X: 100, Y: 100, Width: 200, Height: 200}

func (r Region) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

func (r Region) Overlaps(o Region) bool {
	return !(r.X+r.Width < o.X || o.X+o.Width < r.X ||
		r.Y+r.Height < o.Y || o.Y+o.Height < r.Y)
}

// placementTries bounds how often Next redraws a position that would
// overlap the previously placed object.
const placementTries = 8

// Placer picks randomized positions inside a bounded area, steering
// each new object clear of the one placed before it.
type Placer struct {
	area   Region
	rng    *rand.Rand
	last   Region
	placed bool
}

// NewPlacer returns a Placer over area. A zero seed uses the current
// time; tests pass a fixed seed for reproducible placement.
func NewPlacer(area Region, seed int64) *Placer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Placer{area: area, rng: rand.New(rand.NewSource(seed))}
}

// Next returns the top-left corner for a new object of size w×h. When
// every try overlaps the previous object the last draw is used.
func (p *Placer) Next(w, h float64) (x, y float64) {
	var r Region
	for i := 0; i < placementTries; i++ {
		r = Region{
			X:      p.area.X + p.rng.Float64()*p.area.Width,
			Y:      p.area.Y + p.rng.Float64()*p.area.Height,
			Width:  w,
			Height: h,
		}
		if !p.placed || !r.Overlaps(p.last) {
			break
		}
	}
	p.last, p.placed = r, true
	return r.X, r.Y
}

// boundsOf returns the bounding box of a point sequence.
func boundsOf(points []Point) Region {
	if len(points) == 0 {
		return Region{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range points[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
