package detector

import (
	"testing"

	"github.com/ayusman/handhud/internal/gesture"
)

func thumbsUpTemplate(id string, tolerance float64) *Template {
	hand := ThumbsUpLandmarks()
	return &Template{
		ID:        id,
		Label:     "Thumb_Up",
		Landmarks: hand.Normalize().Points[:],
		Tolerance: tolerance,
	}
}

func TestTemplateClassifier_Classify(t *testing.T) {
	c := NewTemplateClassifier()
	c.AddTemplate(thumbsUpTemplate("thumbs-up", 0.5))

	hand := ThumbsUpLandmarks()
	candidates := c.Classify(&hand)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Label != "Thumb_Up" {
		t.Errorf("expected label Thumb_Up, got %q", candidates[0].Label)
	}
	if candidates[0].Score < 0.9 {
		t.Errorf("expected high score (>0.9) for identical pose, got %f", candidates[0].Score)
	}
}

func TestTemplateClassifier_NoMatchOutsideTolerance(t *testing.T) {
	c := NewTemplateClassifier()
	c.AddTemplate(thumbsUpTemplate("thumbs-up", 0.3))

	hand := OpenPalmLandmarks()
	for _, cand := range c.Classify(&hand) {
		if cand.Score > 0.5 {
			t.Errorf("expected low score (<0.5) for a different pose, got %f", cand.Score)
		}
	}
}

func TestTemplateClassifier_RankedAndDeduplicated(t *testing.T) {
	c := NewTemplateClassifier()
	c.AddTemplate(thumbsUpTemplate("thumbs-up-1", 0.5))
	c.AddTemplate(thumbsUpTemplate("thumbs-up-2", 0.8))

	palm := OpenPalmLandmarks()
	c.AddTemplate(&Template{
		ID:        "palm",
		Label:     "Open_Palm",
		Landmarks: palm.Normalize().Points[:],
		Tolerance: 100,
	})

	hand := ThumbsUpLandmarks()
	candidates := c.Classify(&hand)

	if len(candidates) != 2 {
		t.Fatalf("expected one candidate per label (2), got %d", len(candidates))
	}
	if candidates[0].Label != "Thumb_Up" {
		t.Errorf("expected Thumb_Up ranked first, got %q", candidates[0].Label)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Error("candidates should be sorted by score descending")
		}
	}
}

func TestTemplateClassifier_AddRemove(t *testing.T) {
	c := NewTemplateClassifier()

	c.AddTemplate(nil)
	c.AddTemplate(&Template{ID: "empty", Label: "x"})
	if c.Len() != 0 {
		t.Errorf("nil and empty templates should be ignored, got %d", c.Len())
	}

	c.AddTemplate(thumbsUpTemplate("a", 0.5))
	c.AddTemplate(thumbsUpTemplate("b", 0.5))
	c.RemoveTemplate("a")
	c.RemoveTemplate("non-existent")
	if c.Len() != 1 {
		t.Errorf("expected 1 template after removal, got %d", c.Len())
	}

	c.SetTemplates([]*Template{thumbsUpTemplate("c", 0.5), nil})
	if c.Len() != 1 {
		t.Errorf("expected 1 template after SetTemplates, got %d", c.Len())
	}
}

func TestTemplateClassifier_Annotate(t *testing.T) {
	c := NewTemplateClassifier()
	c.AddTemplate(thumbsUpTemplate("thumbs-up", 0.5))

	preset := gesture.Candidate{Label: "Victory", Score: 0.8}
	hands := []HandLandmarks{
		ThumbsUpLandmarks(),
		WithGestures(ThumbsUpLandmarks(), preset),
	}

	c.Annotate(hands)

	if len(hands[0].Gestures) == 0 || hands[0].Gestures[0].Label != "Thumb_Up" {
		t.Errorf("hand without gestures should be classified, got %+v", hands[0].Gestures)
	}
	if len(hands[1].Gestures) != 1 || hands[1].Gestures[0] != preset {
		t.Errorf("recognizer gestures should be kept, got %+v", hands[1].Gestures)
	}
}

func TestTemplateClassifier_NilHand(t *testing.T) {
	c := NewTemplateClassifier()
	c.AddTemplate(thumbsUpTemplate("thumbs-up", 0.5))

	if got := c.Classify(nil); got != nil {
		t.Errorf("expected nil for nil hand, got %v", got)
	}
}
