// Package gesture turns the detector's per-frame gesture scores into a
// confirmed, flicker-free gesture symbol.
package gesture

// None is the confirmed gesture when nothing has been held long enough.
const None = "None"

// Default debouncer settings.
const (
	// DefaultConfidenceFloor is the score a candidate must exceed to count.
	DefaultConfidenceFloor = 0.6
	// DefaultConfirmTicks is the number of consecutive qualifying ticks
	// needed before a label is confirmed (~80-100ms at 60 Hz).
	DefaultConfirmTicks = 5
)

// Candidate is one ranked gesture guess from the detector.
type Candidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// State is the debouncer's run-length buffer plus the label currently
// exposed to consumers.
type State struct {
	Label     string `json:"label"`
	RunLength int    `json:"run_length"`
	Confirmed string `json:"confirmed"`
}

// NewState returns the initial buffer state.
func NewState() State {
	return State{Label: None, Confirmed: None}
}

// Debouncer applies a confidence floor and run-length hysteresis to the
// per-tick candidate stream.
type Debouncer struct {
	Floor        float64
	ConfirmTicks int
}

// NewDebouncer creates a Debouncer with the default floor and threshold.
func NewDebouncer() Debouncer {
	return Debouncer{
		Floor:        DefaultConfidenceFloor,
		ConfirmTicks: DefaultConfirmTicks,
	}
}

// Step advances the buffer by one tick. candidates are ranked best-first;
// only the first one is considered.
//
// The confirmed label rises once the run reaches ConfirmTicks and falls to
// None only when the run drops to zero. In between it is held.
func (d Debouncer) Step(s State, candidates []Candidate) State {
	if s.Confirmed == "" {
		s.Confirmed = None
	}

	if len(candidates) > 0 && candidates[0].Score > d.Floor {
		best := candidates[0]
		if best.Label == s.Label {
			s.RunLength++
		} else {
			s.Label = best.Label
			s.RunLength = 1
		}
	} else {
		s.RunLength = 0
	}

	threshold := d.ConfirmTicks
	if threshold < 1 {
		threshold = 1
	}

	switch {
	case s.RunLength >= threshold:
		s.Confirmed = s.Label
	case s.RunLength == 0:
		s.Confirmed = None
	}

	return s
}
