// Package pipeline advances the pointer and gesture state by one tick.
//
// Each tick takes the detector's output for that tick (possibly empty), the
// fallback pointer source and the application's own mode, and produces a
// smoothed control point, a confirmed gesture, the effective display mode
// and the engagement distance. All state that survives between ticks lives
// in State, which Step takes and returns, so a scripted tick sequence can
// be replayed deterministically.
package pipeline

import (
	"sync"

	"github.com/ayusman/handhud/internal/detector"
	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pointer"
)

// Frame is one tick's detector output for the tracked hand. Empty
// Landmarks means no hand was tracked. Held marks a frame that repeats a
// detection an earlier tick already received; its landmarks still steer the
// pointer but its gestures are not counted again.
type Frame struct {
	Landmarks []detector.Point3D  `json:"landmarks,omitempty"`
	Gestures  []gesture.Candidate `json:"gestures,omitempty"`
	Held      bool                `json:"held,omitempty"`
}

// FrameFromHands builds a Frame from the first detected hand.
func FrameFromHands(hands []detector.HandLandmarks) Frame {
	if len(hands) == 0 {
		return Frame{}
	}
	hand := hands[0]
	return Frame{
		Landmarks: append([]detector.Point3D(nil), hand.Points[:]...),
		Gestures:  hand.Gestures,
	}
}

// FrameSource supplies the detector output for the current tick. Poll must
// not block; a detector that has nothing fresh returns an empty Frame.
type FrameSource interface {
	Poll() Frame
}

// Config holds the tunable pipeline constants.
type Config struct {
	Alpha           float64
	ConfidenceFloor float64
	ConfirmTicks    int
	Overrides       mode.Overrides
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Alpha:           pointer.DefaultAlpha,
		ConfidenceFloor: gesture.DefaultConfidenceFloor,
		ConfirmTicks:    gesture.DefaultConfirmTicks,
		Overrides:       mode.DefaultOverrides(),
	}
}

// State is everything carried from one tick to the next. FallbackSeen is
// the newest fallback move counter already accounted for.
type State struct {
	Tick         uint64        `json:"tick"`
	Smoothed     pointer.Point `json:"smoothed"`
	Target       pointer.Point `json:"target"`
	Gesture      gesture.State `json:"gesture"`
	FallbackSeen uint64        `json:"fallback_seen"`
}

// NewState returns the state of a fresh session: cursor centred, no gesture.
func NewState() State {
	return State{Gesture: gesture.NewState()}
}

// Output is what the renderer consumes after each tick.
type Output struct {
	Tick     uint64        `json:"tick"`
	Pointer  pointer.Point `json:"pointer"`
	Tracked  bool          `json:"tracked"`
	Gesture  string        `json:"gesture"`
	AppMode  mode.Mode     `json:"app_mode"`
	Mode     mode.Mode     `json:"mode"`
	Visual   mode.Visual   `json:"visual"`
	Distance float64       `json:"distance"`
}

// Pipeline holds the per-tick transformation. It has no per-session state
// of its own, so one Pipeline can step any number of States.
type Pipeline struct {
	smoother  pointer.Smoother
	debouncer gesture.Debouncer

	mu        sync.RWMutex
	overrides mode.Overrides
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		smoother:  pointer.Smoother{Alpha: cfg.Alpha},
		debouncer: gesture.Debouncer{Floor: cfg.ConfidenceFloor, ConfirmTicks: cfg.ConfirmTicks},
	}
	p.SetOverrides(cfg.Overrides)
	return p
}

// SetOverrides replaces the gesture to mode override table. It may be
// called while another goroutine is stepping.
func (p *Pipeline) SetOverrides(o mode.Overrides) {
	cp := make(mode.Overrides, len(o))
	for label, m := range o {
		cp[label] = m
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides = cp
}

// Overrides returns a copy of the current override table.
func (p *Pipeline) Overrides() mode.Overrides {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make(mode.Overrides, len(p.overrides))
	for label, m := range p.overrides {
		cp[label] = m
	}
	return cp
}

// Step advances st by one tick.
//
// The tracked hand's palm is the target when present. Without a hand the
// fallback source takes over, but a numbered source (pointer.MoveSource)
// only counts when it reported a position after the hand was last seen;
// otherwise the previous target is kept. The smoother always runs, so
// losing or regaining the hand never makes the cursor jump.
//
// A tick without a tracked hand feeds the debouncer an empty candidate
// list. A held frame leaves the debouncer untouched.
func (p *Pipeline) Step(st State, frame Frame, fallback pointer.Source, app mode.Mode) (State, Output) {
	live, tracked := pointer.Landmarks(frame.Landmarks).Target()

	target, seen := st.Target, st.FallbackSeen
	if tracked {
		target = live
		if ms, ok := fallback.(pointer.MoveSource); ok {
			_, seen, _ = ms.Moved()
		}
	} else if fb, seq, ok := fallbackTarget(fallback, seen); ok {
		target, seen = fb, seq
	}

	g := st.Gesture
	switch {
	case !tracked:
		g = p.debouncer.Step(g, nil)
	case !frame.Held:
		g = p.debouncer.Step(g, frame.Gestures)
	}

	next := State{
		Tick:         st.Tick + 1,
		Smoothed:     p.smoother.Step(st.Smoothed, target),
		Target:       target,
		Gesture:      g,
		FallbackSeen: seen,
	}

	p.mu.RLock()
	effective := mode.Effective(next.Gesture.Confirmed, app, p.overrides)
	p.mu.RUnlock()

	out := Output{
		Tick:     next.Tick,
		Pointer:  next.Smoothed,
		Tracked:  tracked,
		Gesture:  next.Gesture.Confirmed,
		AppMode:  app,
		Mode:     effective,
		Visual:   effective.Visual(),
		Distance: mode.EngagementDistance(tracked, next.Smoothed),
	}

	return next, out
}

// fallbackTarget returns the fallback position when it is usable: any
// position from a plain Source, or a position from a MoveSource reported
// after seen.
func fallbackTarget(src pointer.Source, seen uint64) (pointer.Point, uint64, bool) {
	if src == nil {
		return pointer.Point{}, seen, false
	}
	if ms, ok := src.(pointer.MoveSource); ok {
		pos, seq, ok := ms.Moved()
		if !ok || seq <= seen {
			return pointer.Point{}, seen, false
		}
		return pos, seq, true
	}
	pos, ok := src.Target()
	return pos, seen, ok
}

// Passthrough produces the output shown while tracking is off: the
// pointer position is used as is, with no smoothing and no gesture.
func Passthrough(tick uint64, pos pointer.Point, app mode.Mode) Output {
	return Output{
		Tick:     tick,
		Pointer:  pos,
		Gesture:  gesture.None,
		AppMode:  app,
		Mode:     app,
		Visual:   app.Visual(),
		Distance: mode.EngagementDistance(false, pos),
	}
}
