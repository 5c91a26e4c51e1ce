package detector

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/handhud/internal/gesture"
)

// Template is a recorded static hand pose with the gesture label it stands
// for. Landmarks are stored normalized (see HandLandmarks.Normalize).
type Template struct {
	ID        string
	Label     string
	Landmarks []Point3D
	Tolerance float64 // Maximum distance for a match
}

// TemplateClassifier scores hands against recorded pose templates. It fills
// in gesture candidates for backends that report landmarks only.
type TemplateClassifier struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewTemplateClassifier creates an empty TemplateClassifier.
func NewTemplateClassifier() *TemplateClassifier {
	return &TemplateClassifier{
		templates: make([]*Template, 0),
	}
}

// AddTemplate adds a template. Nil templates and templates without
// landmarks are ignored.
func (c *TemplateClassifier) AddTemplate(t *Template) {
	if t == nil || len(t.Landmarks) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (c *TemplateClassifier) RemoveTemplate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.templates {
		if t.ID == id {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			return
		}
	}
}

// SetTemplates replaces all templates.
func (c *TemplateClassifier) SetTemplates(templates []*Template) {
	kept := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t != nil && len(t.Landmarks) > 0 {
			kept = append(kept, t)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = kept
}

// Len returns the number of templates.
func (c *TemplateClassifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Classify returns gesture candidates for hand, best first. Each template
// within its tolerance contributes a candidate scored 1/(1+distance); when
// several templates share a label only the best one is kept.
func (c *TemplateClassifier) Classify(hand *HandLandmarks) []gesture.Candidate {
	if hand == nil {
		return nil
	}

	normalized := hand.Normalize()
	input := normalized.Points[:]

	c.mu.RLock()
	best := make(map[string]float64)
	for _, t := range c.templates {
		distance := landmarkDistance(input, t.Landmarks)
		if distance > t.Tolerance {
			continue
		}
		score := 1.0 / (1.0 + distance)
		if score > best[t.Label] {
			best[t.Label] = score
		}
	}
	c.mu.RUnlock()

	candidates := make([]gesture.Candidate, 0, len(best))
	for label, score := range best {
		candidates = append(candidates, gesture.Candidate{Label: label, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Label < candidates[j].Label
		}
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// Annotate classifies every hand that arrived without gesture candidates.
func (c *TemplateClassifier) Annotate(hands []HandLandmarks) {
	if c.Len() == 0 {
		return
	}
	for i := range hands {
		if len(hands[i].Gestures) > 0 {
			continue
		}
		hands[i].Gestures = c.Classify(&hands[i])
	}
}

// landmarkDistance sums the Euclidean distances between corresponding
// points of a and b.
func landmarkDistance(a, b []Point3D) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var total float64
	for i := 0; i < n; i++ {
		total += distance3D(a[i], b[i])
	}

	return total
}
