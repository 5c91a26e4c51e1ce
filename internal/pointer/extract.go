package pointer

import (
	"math"

	"github.com/ayusman/handhud/internal/detector"
)

// ControlLandmark is the landmark used as the control point. The middle
// finger MCP sits at the centre of the palm and moves far less between
// frames than any fingertip.
const ControlLandmark = detector.MiddleMCP

// Extract maps a hand's landmarks to a raw control point.
// The horizontal axis is mirrored because the camera preview is shown
// mirrored to the user. It reports false when the palm landmark is missing
// or outside the detector's normalised [0,1] range.
func Extract(landmarks []detector.Point3D) (Point, bool) {
	if len(landmarks) <= ControlLandmark {
		return Point{}, false
	}

	palm := landmarks[ControlLandmark]
	if !inUnitRange(palm.X) || !inUnitRange(palm.Y) {
		return Point{}, false
	}

	return Point{
		X: (1-palm.X)*2 - 1,
		Y: palm.Y*2 - 1,
	}, true
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Landmarks is a Source backed by one tick's detected landmarks.
type Landmarks []detector.Point3D

// Target extracts the control point from the landmarks.
func (l Landmarks) Target() (Point, bool) {
	return Extract(l)
}
