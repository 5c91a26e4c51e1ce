package pointer

import (
	"math"
	"sync"
)

// Device is the fallback Source fed by the user's pointing device. It holds
// the last reported position until a new one arrives. Every report bumps a
// move counter so a consumer can ignore positions it has already seen.
type Device struct {
	mu    sync.RWMutex
	pos   Point
	seq   uint64
	valid bool
}

// NewDevice creates a Device with no known position.
func NewDevice() *Device {
	return &Device{}
}

// Move records a pointer position in pixels within a viewport of the given
// size. Positions are normalised to [-1,1] and clamped to the viewport.
// Non-positive viewport sizes are ignored.
func (d *Device) Move(px, py, width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	d.Set(Point{
		X: clamp(px/width*2-1, -1, 1),
		Y: clamp(py/height*2-1, -1, 1),
	})
}

// Set records an already normalised position.
func (d *Device) Set(p Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = Point{X: clamp(p.X, -1, 1), Y: clamp(p.Y, -1, 1)}
	d.seq++
	d.valid = true
}

// Target returns the last reported position, if any.
func (d *Device) Target() (Point, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pos, d.valid
}

// Moved returns the last reported position with its move counter.
func (d *Device) Moved() (Point, uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pos, d.seq, d.valid
}

// Reset forgets the last position.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = Point{}
	d.valid = false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
