package detector

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/handhud/internal/gesture"
)

const epsilon = 1e-9

func TestHandLandmarks_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		wrist    Point3D
		palm     Point3D
		wantPalm float64
	}{
		{name: "image coordinates", wrist: Point3D{X: 0.5, Y: 0.8}, palm: Point3D{X: 0.5, Y: 0.6}, wantPalm: 1},
		{name: "pixel coordinates", wrist: Point3D{X: 10, Y: 20, Z: 5}, palm: Point3D{X: 13, Y: 24, Z: 5}, wantPalm: 1},
		{name: "degenerate palm", wrist: Point3D{X: 10, Y: 20, Z: 5}, palm: Point3D{X: 10, Y: 20, Z: 5}, wantPalm: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := HandLandmarks{Handedness: "Right", Score: 0.9}
			for i := range hand.Points {
				hand.Points[i] = Point3D{X: tt.wrist.X + float64(i)*0.01, Y: tt.wrist.Y, Z: tt.wrist.Z}
			}
			hand.Points[Wrist] = tt.wrist
			hand.Points[MiddleMCP] = tt.palm

			n := hand.Normalize()

			if n.Points[Wrist].norm() > epsilon {
				t.Errorf("wrist = %+v, want origin", n.Points[Wrist])
			}
			if got := n.Points[MiddleMCP].norm(); math.Abs(got-tt.wantPalm) > epsilon {
				t.Errorf("palm length = %f, want %f", got, tt.wantPalm)
			}
			if n.Handedness != hand.Handedness || n.Score != hand.Score {
				t.Errorf("metadata not preserved: %+v", n)
			}
			if hand.Points[Wrist] != tt.wrist {
				t.Error("Normalize modified its receiver")
			}
		})
	}

	var nilHand *HandLandmarks
	if nilHand.Normalize() != nil {
		t.Error("expected nil result for nil hand")
	}
}

func TestNormalize_TranslationAndScaleInvariant(t *testing.T) {
	base := ThumbsUpLandmarks()
	moved := ThumbsUpLandmarks()
	for i := range moved.Points {
		moved.Points[i] = moved.Points[i].scale(2).sub(Point3D{X: 0.3, Y: -0.1})
	}

	a, b := base.Normalize(), moved.Normalize()
	if d := landmarkDistance(a.Points[:], b.Points[:]); d > 1e-6 {
		t.Errorf("distance between normalised copies = %g, want 0", d)
	}
}

func TestMockDetector(t *testing.T) {
	mock := NewMockDetector()
	var _ Detector = mock

	if hands, err := mock.Detect(nil); err != nil || hands != nil {
		t.Errorf("default Detect() = %v, %v; want nil, nil", hands, err)
	}

	mock.SetHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks()})
	hands, err := mock.Detect(nil)
	if err != nil || len(hands) != 2 {
		t.Fatalf("Detect() = %d hands, %v; want 2, nil", len(hands), err)
	}

	// Callers may annotate the result without affecting later calls.
	hands[0].Gestures = []gesture.Candidate{{Label: "Thumb_Up", Score: 1}}
	again, _ := mock.Detect(nil)
	if len(again[0].Gestures) != 0 {
		t.Error("Detect() returned shared state")
	}

	wantErr := errors.New("detection failed")
	mock.SetError(wantErr)
	if hands, err := mock.Detect(nil); !errors.Is(err, wantErr) || hands != nil {
		t.Errorf("Detect() with error = %v, %v", hands, err)
	}

	if mock.Calls() != 4 {
		t.Errorf("Calls() = %d, want 4", mock.Calls())
	}
	if err := mock.Close(); err != nil || !mock.Closed() {
		t.Errorf("Close() = %v, Closed() = %v", err, mock.Closed())
	}
}

// extension is how far a finger tip sits above its knuckle (image Y grows
// downward).
func extension(h HandLandmarks, mcp, tip int) float64 {
	return h.Points[mcp].Y - h.Points[tip].Y
}

func TestPresetHands(t *testing.T) {
	fingers := []struct {
		name     string
		mcp, tip int
	}{
		{"index", IndexMCP, IndexTip},
		{"middle", MiddleMCP, MiddleTip},
		{"ring", RingMCP, RingTip},
		{"pinky", PinkyMCP, PinkyTip},
	}

	thumbsUp := ThumbsUpLandmarks()
	openPalm := OpenPalmLandmarks()

	for _, h := range []HandLandmarks{thumbsUp, openPalm} {
		if h.Handedness != "Right" || h.Score < 0.9 {
			t.Errorf("preset metadata = %q %f", h.Handedness, h.Score)
		}
	}

	if thumbsUp.Points[ThumbTip].Y >= thumbsUp.Points[ThumbIP].Y {
		t.Error("thumbs up: thumb tip should be above the IP joint")
	}
	if openPalm.Points[ThumbTip].X <= openPalm.Points[ThumbMCP].X {
		t.Error("open palm: thumb should be spread outward")
	}

	for _, f := range fingers {
		if e := extension(thumbsUp, f.mcp, f.tip); e > 0.15 {
			t.Errorf("thumbs up: %s finger extended by %f, want curled", f.name, e)
		}
		if e := extension(openPalm, f.mcp, f.tip); e < 0.2 {
			t.Errorf("open palm: %s finger extended by %f, want >= 0.2", f.name, e)
		}
	}

	for _, h := range []HandLandmarks{thumbsUp, openPalm} {
		palm := h.Points[MiddleMCP]
		if palm.X < 0 || palm.X > 1 || palm.Y < 0 || palm.Y > 1 {
			t.Errorf("palm landmark %+v outside the image", palm)
		}
	}
}

func TestHandLandmarks_BestGesture(t *testing.T) {
	var nilHand *HandLandmarks
	if _, ok := nilHand.BestGesture(); ok {
		t.Error("expected no gesture for nil hand")
	}

	hand := ThumbsUpLandmarks()
	if _, ok := hand.BestGesture(); ok {
		t.Error("expected no gesture for hand without candidates")
	}

	hand = WithGestures(hand,
		gesture.Candidate{Label: "Thumb_Up", Score: 0.9},
		gesture.Candidate{Label: "None", Score: 0.1},
	)
	best, ok := hand.BestGesture()
	if !ok || best.Label != "Thumb_Up" {
		t.Errorf("best gesture = %+v (ok=%v), want Thumb_Up", best, ok)
	}
}

func TestJSONHand_ToHandLandmarks(t *testing.T) {
	full := make([]jsonPoint, NumLandmarks)
	for i := range full {
		full[i] = jsonPoint{X: 0.5, Y: 0.5}
	}
	nonFinite := append([]jsonPoint(nil), full...)
	nonFinite[MiddleMCP].X = math.Inf(1)

	tests := []struct {
		name    string
		hand    jsonHand
		wantErr bool
	}{
		{name: "short record", hand: jsonHand{Points: full[:MiddleMCP]}, wantErr: true},
		{name: "non-finite point", hand: jsonHand{Points: nonFinite}, wantErr: true},
		{name: "valid", hand: jsonHand{Points: full, Handedness: "Left", Score: 0.97}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.hand.toHandLandmarks()
			if tt.wantErr != errors.Is(err, errMalformedHand) {
				t.Errorf("toHandLandmarks() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("gesture order kept, blank labels dropped", func(t *testing.T) {
		h := jsonHand{
			Points:     full,
			Handedness: "Left",
			Score:      0.97,
			Gestures: []jsonGesture{
				{Label: "Open_Palm", Score: 0.8},
				{Label: "", Score: 0.7},
				{Label: "None", Score: 0.1},
			},
		}

		lm, err := h.toHandLandmarks()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lm.Handedness != "Left" || lm.Score != 0.97 {
			t.Errorf("unexpected metadata: %+v", lm)
		}
		if len(lm.Gestures) != 2 || lm.Gestures[0].Label != "Open_Palm" || lm.Gestures[1].Label != "None" {
			t.Errorf("unexpected gestures: %+v", lm.Gestures)
		}
	})
}
