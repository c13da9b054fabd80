// Package grid describes the fixed 2D topology of a maze: which room numbers
// exist and which of them neighbor each other.
package grid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDimensions is returned for a non-positive width or height.
var ErrBadDimensions = errors.New("grid: width and height must be positive")

// Direction is one of the four relative movement tokens.
type Direction string

const (
	North Direction = "north"
	East  Direction = "east"
	South Direction = "south"
	West  Direction = "west"
)

// Directions lists the relative directions in the order exits are described.
var Directions = []Direction{North, East, South, West}

// ParseDirection matches a (case-insensitive) relative direction token.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case North:
		return North, true
	case East:
		return East, true
	case South:
		return South, true
	case West:
		return West, true
	}
	return "", false
}

// Topology is an immutable width x height grid of rooms numbered from
// -size/2 to size/2, with room 0 in the centre.
type Topology struct {
	Width  int
	Height int
}

// New validates the dimensions and returns the topology.
func New(width, height int) (Topology, error) {
	if width <= 0 || height <= 0 {
		return Topology{}, fmt.Errorf("%w: got %dx%d", ErrBadDimensions, width, height)
	}
	return Topology{Width: width, Height: height}, nil
}

// Size is width*height.
func (t Topology) Size() int { return t.Width * t.Height }

// Min is the lowest valid room number.
func (t Topology) Min() int { return -t.Size() / 2 }

// Max is the highest valid room number.
func (t Topology) Max() int { return t.Size() / 2 }

// Invalid is the sentinel returned for a neighbor that does not exist.
func (t Topology) Invalid() int { return t.Size() + 1 }

// Contains reports whether n is inside the grid bounds.
func (t Topology) Contains(n int) bool {
	return n >= t.Min() && n <= t.Max()
}

// Column returns the column index of room n, always in [0, Width).
func (t Topology) Column(n int) int {
	return floorMod(n+t.Width/2, t.Width)
}

// Neighbor resolves a relative move from room n. It returns Invalid() when
// the move would leave the grid or wrap around a row edge.
func (t Topology) Neighbor(n int, d Direction) int {
	x := t.Column(n)
	switch d {
	case North:
		if n+t.Width <= t.Max() {
			return n + t.Width
		}
	case South:
		if n-t.Width >= t.Min() {
			return n - t.Width
		}
	case East:
		if floorMod(x+1, t.Width) > x && n+1 <= t.Max() {
			return n + 1
		}
	case West:
		if floorMod(x-1, t.Width) < x && n-1 >= t.Min() {
			return n - 1
		}
	}
	return t.Invalid()
}

// Exits returns the directions that lead to a valid room from n.
func (t Topology) Exits(n int) []Direction {
	var out []Direction
	for _, d := range Directions {
		if t.Neighbor(n, d) != t.Invalid() {
			out = append(out, d)
		}
	}
	return out
}

func floorMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
