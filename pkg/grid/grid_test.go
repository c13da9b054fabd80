package grid

import (
	"errors"
	"testing"
)

func TestNewRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 3}, {3, 0}, {-1, 2}} {
		if _, err := New(dims[0], dims[1]); !errors.Is(err, ErrBadDimensions) {
			t.Errorf("New(%d, %d) err = %v, want ErrBadDimensions", dims[0], dims[1], err)
		}
	}
}

func TestBounds3x3(t *testing.T) {
	topo, _ := New(3, 3)
	if topo.Min() != -4 || topo.Max() != 4 {
		t.Fatalf("range = [%d, %d], want [-4, 4]", topo.Min(), topo.Max())
	}
	if topo.Invalid() != 10 {
		t.Errorf("Invalid() = %d, want 10", topo.Invalid())
	}
	if topo.Contains(5) || topo.Contains(-5) || !topo.Contains(0) {
		t.Error("Contains gave the wrong answer at the edges")
	}
}

func TestNeighbor3x3(t *testing.T) {
	topo, _ := New(3, 3)
	inv := topo.Invalid()

	// Rows are {-4,-3,-2}, {-1,0,1}, {2,3,4}.
	tests := []struct {
		n    int
		d    Direction
		want int
	}{
		{0, North, 3},
		{0, South, -3},
		{0, East, 1},
		{0, West, -1},
		{1, East, inv},  // x = width-1
		{-1, West, inv}, // x = 0
		{2, West, inv},  // x = 0, n-1 is in bounds but on the row below
		{-2, East, inv}, // x = width-1, n+1 is in bounds but on the row above
		{-4, West, inv},
		{-4, South, inv},
		{4, North, inv},
		{4, East, inv},
		{-4, East, -3},
		{3, West, 2},
	}
	for _, tt := range tests {
		if got := topo.Neighbor(tt.n, tt.d); got != tt.want {
			t.Errorf("Neighbor(%d, %s) = %d, want %d", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestColumnIsNonNegative(t *testing.T) {
	topo, _ := New(4, 3)
	for n := topo.Min(); n <= topo.Max(); n++ {
		x := topo.Column(n)
		if x < 0 || x >= topo.Width {
			t.Errorf("Column(%d) = %d, out of [0, %d)", n, x, topo.Width)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	opposite := map[Direction]Direction{North: South, South: North, East: West, West: East}
	for w := 1; w <= 6; w++ {
		for h := 1; h <= 6; h++ {
			topo, _ := New(w, h)
			for n := topo.Min(); n <= topo.Max(); n++ {
				for d, back := range opposite {
					there := topo.Neighbor(n, d)
					if there == topo.Invalid() {
						continue
					}
					if !topo.Contains(there) {
						t.Fatalf("%dx%d: Neighbor(%d, %s) = %d is out of bounds", w, h, n, d, there)
					}
					if got := topo.Neighbor(there, back); got != n {
						t.Errorf("%dx%d: %d -%s-> %d -%s-> %d, want %d", w, h, n, d, there, back, got, n)
					}
				}
			}
		}
	}
}

func TestExits(t *testing.T) {
	topo, _ := New(3, 3)
	got := topo.Exits(1)
	want := []Direction{North, South, West}
	if len(got) != len(want) {
		t.Fatalf("Exits(1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Exits(1)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseDirection(t *testing.T) {
	if d, ok := ParseDirection(" North "); !ok || d != North {
		t.Errorf("ParseDirection(North) = %q, %v", d, ok)
	}
	if _, ok := ParseDirection("up"); ok {
		t.Error("ParseDirection(up) should fail")
	}
}
