package pointer

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func between(v, a, b float64) bool {
	lo, hi := math.Min(a, b), math.Max(a, b)
	return v >= lo-epsilon && v <= hi+epsilon
}

func TestSmoother_Step(t *testing.T) {
	s := NewSmoother()

	got := s.Step(Point{X: 0, Y: 0}, Point{X: 1, Y: -1})
	if math.Abs(got.X-0.15) > epsilon || math.Abs(got.Y+0.15) > epsilon {
		t.Errorf("Step() = %+v, want {0.15 -0.15}", got)
	}
}

func TestSmoother_NoOvershoot(t *testing.T) {
	s := NewSmoother()
	targets := []Point{
		{X: 1, Y: 1}, {X: -1, Y: 0.5}, {X: 0.2, Y: -0.9}, {X: 0.2, Y: -0.9},
		{X: -0.7, Y: 0.7}, {X: 1, Y: -1}, {X: 0, Y: 0}, {X: 0.999, Y: -0.001},
	}

	cur := Point{}
	for i, target := range targets {
		next := s.Step(cur, target)
		if !between(next.X, cur.X, target.X) {
			t.Errorf("tick %d: X %f not between %f and %f", i, next.X, cur.X, target.X)
		}
		if !between(next.Y, cur.Y, target.Y) {
			t.Errorf("tick %d: Y %f not between %f and %f", i, next.Y, cur.Y, target.Y)
		}
		if next.X < -1 || next.X > 1 || next.Y < -1 || next.Y > 1 {
			t.Errorf("tick %d: %+v left [-1,1]", i, next)
		}
		cur = next
	}
}

func TestSmoother_Converges(t *testing.T) {
	s := NewSmoother()
	target := Point{X: 0.8, Y: -0.6}
	eps := 1e-3

	// Distance shrinks by (1-alpha) per tick from an initial distance of 1.
	bound := int(math.Ceil(math.Log(1/eps) / math.Log(1/(1-s.Alpha))))

	cur := Point{}
	for i := 0; i < bound; i++ {
		cur = s.Step(cur, target)
	}

	if math.Abs(cur.X-target.X) > eps || math.Abs(cur.Y-target.Y) > eps {
		t.Errorf("after %d ticks %+v is not within %g of %+v", bound, cur, eps, target)
	}
}

func TestSmoother_StepBounded(t *testing.T) {
	s := NewSmoother()
	cur := Point{X: 0.5, Y: 0.5}
	target := Point{X: -0.5, Y: 0.9}

	next := s.Step(cur, target)

	if d := math.Abs(next.X - cur.X); d > s.Alpha*math.Abs(target.X-cur.X)+epsilon {
		t.Errorf("X moved %f, more than alpha*|target-prev|", d)
	}
	if d := math.Abs(next.Y - cur.Y); d > s.Alpha*math.Abs(target.Y-cur.Y)+epsilon {
		t.Errorf("Y moved %f, more than alpha*|target-prev|", d)
	}
}

func TestSmoother_InvalidAlphaFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		alpha float64
	}{
		{name: "zero", alpha: 0},
		{name: "negative", alpha: -0.3},
		{name: "above one", alpha: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Smoother{Alpha: tt.alpha}
			got := s.Step(Point{}, Point{X: 1})
			if math.Abs(got.X-DefaultAlpha) > epsilon {
				t.Errorf("Step() X = %f, want %f", got.X, DefaultAlpha)
			}
		})
	}
}

func TestSmoother_AlphaOneSnaps(t *testing.T) {
	s := Smoother{Alpha: 1}
	target := Point{X: 0.3, Y: -0.4}

	if got := s.Step(Point{X: -1, Y: 1}, target); got != target {
		t.Errorf("Step() = %+v, want %+v", got, target)
	}
}
