package state

import "testing"

func TestRegionOverlaps(t *testing.T) {
	base := Region{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		name string
		o    Region
		want bool
	}{
		{"same", base, true},
		{"inside", Region{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"partial", Region{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{"touching edge", Region{X: 10, Y: 0, Width: 5, Height: 5}, true},
		{"right of", Region{X: 11, Y: 0, Width: 5, Height: 5}, false},
		{"below", Region{X: 0, Y: 20, Width: 5, Height: 5}, false},
		{"above left", Region{X: -10, Y: -10, Width: 5, Height: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.o); got != tt.want {
				t.Errorf("Overlaps(%+v) = %v, want %v", tt.o, got, tt.want)
			}
			if got := tt.o.Overlaps(base); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %+v", tt.o)
			}
		})
	}
}

func TestPlacerAvoidsPreviousObject(t *testing.T) {
	p := NewPlacer(Region{X: 0, Y: 0, Width: 1000, Height: 10}, 3)
	var prev Region
	for i := 0; i < 50; i++ {
		x, y := p.Next(10, 10)
		r := Region{X: x, Y: y, Width: 10, Height: 10}
		if i > 0 && r.Overlaps(prev) {
			t.Fatalf("placement %d at %+v overlaps previous %+v", i, r, prev)
		}
		prev = r
	}
}

func TestPlacerFallsBackWhenCrowded(t *testing.T) {
	p := NewPlacer(Region{X: 10, Y: 10}, 1)
	for i := 0; i < 3; i++ {
		if x, y := p.Next(100, 100); x != 10 || y != 10 {
			t.Fatalf("Next() = (%v, %v), want (10, 10)", x, y)
		}
	}
}

func TestBoundsOf(t *testing.T) {
	got := boundsOf([]Point{{X: 5, Y: 9}, {X: -1, Y: 3}, {X: 2, Y: 12}})
	want := Region{X: -1, Y: 3, Width: 6, Height: 9}
	if got != want {
		t.Errorf("boundsOf() = %+v, want %+v", got, want)
	}
	if boundsOf(nil) != (Region{}) {
		t.Error("boundsOf(nil) is not empty")
	}
}
