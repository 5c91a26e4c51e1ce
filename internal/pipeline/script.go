package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pointer"
)

// Script is a recorded or hand-written tick sequence for offline replay.
type Script struct {
	AppMode mode.Mode    `json:"app_mode"`
	Ticks   []ScriptTick `json:"ticks"`
}

// ScriptTick is one tick of a Script. Palm is a shorthand for a hand whose
// only meaningful landmark is the palm centre, in detector image space.
// Pointer is the fallback device position in [-1,1]. Mode, when set,
// changes the application mode from this tick on. Held replays the tick's
// detection as a repeat of the previous one. Repeat runs the tick that many
// times (default once).
type ScriptTick struct {
	Landmarks []detector.Point3D  `json:"landmarks,omitempty"`
	Palm      *detector.Point3D   `json:"palm,omitempty"`
	Gestures  []gesture.Candidate `json:"gestures,omitempty"`
	Pointer   *pointer.Point      `json:"pointer,omitempty"`
	Mode      mode.Mode           `json:"mode,omitempty"`
	Held      bool                `json:"held,omitempty"`
	Repeat    int                 `json:"repeat,omitempty"`
}

// ReadScript decodes a Script from r and validates its modes.
func ReadScript(r io.Reader) (*Script, error) {
	var s Script
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	if s.AppMode == "" {
		s.AppMode = mode.Idle
	}
	app, err := mode.Parse(string(s.AppMode))
	if err != nil {
		return nil, fmt.Errorf("script app_mode: %w", err)
	}
	s.AppMode = app

	for i := range s.Ticks {
		t := &s.Ticks[i]
		if t.Mode != "" {
			m, err := mode.Parse(string(t.Mode))
			if err != nil {
				return nil, fmt.Errorf("script tick %d: %w", i, err)
			}
			t.Mode = m
		}
		if t.Repeat < 0 {
			return nil, fmt.Errorf("script tick %d: negative repeat", i)
		}
	}

	return &s, nil
}

func (t ScriptTick) frame() Frame {
	f := Frame{Landmarks: t.Landmarks, Gestures: t.Gestures, Held: t.Held}
	if len(f.Landmarks) == 0 && t.Palm != nil {
		points := make([]detector.Point3D, detector.NumLandmarks)
		for i := range points {
			points[i] = *t.Palm
		}
		f.Landmarks = points
	}
	return f
}

// Replay steps a fresh session through the script and returns one Output
// per tick.
func (p *Pipeline) Replay(s *Script) []Output {
	st := NewState()
	app := s.AppMode
	device := pointer.NewDevice()

	var outputs []Output
	for _, t := range s.Ticks {
		if t.Mode != "" {
			app = t.Mode
		}
		if t.Pointer != nil {
			device.Set(*t.Pointer)
		}

		n := t.Repeat
		if n == 0 {
			n = 1
		}
		frame := t.frame()
		for i := 0; i < n; i++ {
			var out Output
			st, out = p.Step(st, frame, device, app)
			outputs = append(outputs, out)
		}
	}

	return outputs
}
