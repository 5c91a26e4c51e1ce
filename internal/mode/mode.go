// Package mode combines the confirmed hand gesture with the application's
// own chat-driven mode into the single mode the HUD displays.
package mode

import (
	"fmt"
	"strings"

	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/pointer"
)

// Mode is a HUD display state.
type Mode string

const (
	Idle       Mode = "IDLE"
	Listening  Mode = "LISTENING"
	Processing Mode = "PROCESSING"
	Speaking   Mode = "SPEAKING"
	Analyzing  Mode = "ANALYZING"
)

// All lists every known mode.
var All = []Mode{Idle, Listening, Processing, Speaking, Analyzing}

// Parse converts s (case-insensitive) to a Mode.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, known := range All {
		if m == known {
			return true
		}
	}
	return false
}

// Visual is the reactor animation state the renderer shows for a mode.
type Visual string

const (
	VisualIdle       Visual = "idle"
	VisualActive     Visual = "active"
	VisualProcessing Visual = "processing"
	VisualSpeaking   Visual = "speaking"
)

// Visual projects m onto the reactor animation state.
func (m Mode) Visual() Visual {
	switch m {
	case Speaking:
		return VisualSpeaking
	case Processing:
		return VisualProcessing
	case Analyzing:
		return VisualActive
	default:
		return VisualIdle
	}
}

// Overrides maps gesture labels to the mode they force.
type Overrides map[string]Mode

// DefaultOverrides returns the built-in override table: an open palm
// expands the reactor, a closed fist calms it.
func DefaultOverrides() Overrides {
	return Overrides{
		"Open_Palm":   Analyzing,
		"Closed_Fist": Idle,
	}
}

// Effective returns the mode to display. A confirmed gesture found in the
// override table always wins; anything else, including gesture.None,
// passes app through unchanged.
func Effective(confirmed string, app Mode, overrides Overrides) Mode {
	if confirmed == gesture.None || confirmed == "" {
		return app
	}
	if m, ok := overrides[confirmed]; ok {
		return m
	}
	return app
}

// EngagementDistance is 0 while a hand is tracked, otherwise the distance
// of the smoothed point from screen centre.
func EngagementDistance(tracked bool, smoothed pointer.Point) float64 {
	if tracked {
		return 0
	}
	return smoothed.Norm()
}
