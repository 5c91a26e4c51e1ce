// Package detector defines the hand detector boundary: landmark types, the
// MediaPipe subprocess backend, a mock, and a template classifier for
// landmark-only backends.
package detector

import (
	"math"

	"github.com/ayusman/handhud/internal/gesture"
)

// Hand landmark indices, MediaPipe order.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is one landmark. X and Y are normalised to the image, Z is
// relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) sub(o Point3D) Point3D {
	return Point3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

func (p Point3D) scale(f float64) Point3D {
	return Point3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

func (p Point3D) norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// HandLandmarks is one detected hand and the recognizer's ranked gesture
// candidates for it.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
	Gestures   []gesture.Candidate   `json:"gestures,omitempty"` // best first
}

// BestGesture returns the highest ranked gesture candidate, if any.
func (h *HandLandmarks) BestGesture() (gesture.Candidate, bool) {
	if h == nil || len(h.Gestures) == 0 {
		return gesture.Candidate{}, false
	}
	return h.Gestures[0], true
}

func distance3D(a, b Point3D) float64 {
	return a.sub(b).norm()
}

// Normalize returns a copy of h translated so the wrist is the origin and
// scaled so the wrist to middle MCP distance is 1. A degenerate hand
// (zero palm length) is only translated.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
		Gestures:   h.Gestures,
	}

	wrist := h.Points[Wrist]
	for i, p := range h.Points {
		out.Points[i] = p.sub(wrist)
	}

	palm := out.Points[MiddleMCP].norm()
	if palm < 1e-10 {
		return out
	}
	for i := range out.Points {
		out.Points[i] = out.Points[i].scale(1 / palm)
	}
	return out
}
