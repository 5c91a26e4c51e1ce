package pointer

// DefaultAlpha is the default smoothing factor. Lower is steadier but lags
// more; higher is snappier but lets detector jitter through.
const DefaultAlpha = 0.15

// Smoother low-pass filters a control point with an exponential moving
// average, each axis independently.
type Smoother struct {
	Alpha float64
}

// NewSmoother creates a Smoother with DefaultAlpha.
func NewSmoother() Smoother {
	return Smoother{Alpha: DefaultAlpha}
}

// Step moves current a fraction Alpha of the way toward target.
// With Alpha in (0,1] the result never overshoots target.
func (s Smoother) Step(current, target Point) Point {
	a := s.Alpha
	if a <= 0 || a > 1 {
		a = DefaultAlpha
	}
	return Point{
		X: current.X + (target.X-current.X)*a,
		Y: current.Y + (target.Y-current.Y)*a,
	}
}
