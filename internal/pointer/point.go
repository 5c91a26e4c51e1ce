// Package pointer produces the stable 2-D control coordinate that drives the
// HUD cursor: landmark extraction, the fallback pointing device and the
// exponential smoother.
package pointer

import "math"

// Point is a control coordinate in [-1,1]x[-1,1], origin at screen centre.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Norm returns the Euclidean distance of p from the origin.
func (p Point) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Source yields zero or one raw target per tick.
type Source interface {
	Target() (Point, bool)
}

// MoveSource is a Source whose reports are numbered. The counter grows with
// every report and never goes back.
type MoveSource interface {
	Source
	Moved() (Point, uint64, bool)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (Point, bool)

// Target calls f.
func (f SourceFunc) Target() (Point, bool) {
	return f()
}

// First returns the target of the first source that yields one.
// Nil sources are skipped.
func First(sources ...Source) (Point, bool) {
	for _, s := range sources {
		if s == nil {
			continue
		}
		if p, ok := s.Target(); ok {
			return p, true
		}
	}
	return Point{}, false
}
