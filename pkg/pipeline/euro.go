package pipeline

import (
	"math"
	"sync"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

// oneEuroFilter is a low-pass filter with a derivative-adaptive cutoff: a
// low-pass on the value and on its own first derivative, where the cutoff
// used for the value widens with the speed of change. This keeps fast
// transitions crisp while smoothing slow jitter, which is the property that
// makes it well suited to noisy human-motion signals.
type oneEuroFilter struct {
	minCutoff float64
	beta      float64
	dCutoff   float64
	hz        float64

	xPrev     float64
	dxPrev    float64
	rawXPrev  float64
	initialized bool
}

func newOneEuroFilter(minCutoff, beta float64) *oneEuroFilter {
	return &oneEuroFilter{
		minCutoff: minCutoff,
		beta:      beta,
		dCutoff:   1.0,
		hz:        60.0,
	}
}

func alpha(hz, cutoff float64) float64 {
	tau := 1.0 / (2.0 * math.Pi * cutoff)
	te := 1.0 / hz
	return 1.0 / (1.0 + tau/te)
}

func lowPass(prev *float64, x, a float64) float64 {
	out := a*x + (1-a)**prev
	*prev = out
	return out
}

// filter applies the filter to one new sample. hz is updated from the
// caller's measured tick rate (1/dt) so the cutoff-to-Hz ratio tracks the
// real frame period instead of an assumed constant rate.
func (f *oneEuroFilter) filter(x, hz float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if hz > 0 {
		f.hz = hz
	}

	if !f.initialized {
		f.initialized = true
		f.rawXPrev = x
		f.xPrev = x
		f.dxPrev = 0
		return x
	}

	dx := (x - f.rawXPrev) * f.hz
	f.rawXPrev = x

	edx := lowPass(&f.dxPrev, dx, alpha(f.hz, f.dCutoff))
	cutoff := f.minCutoff + f.beta*math.Abs(edx)

	return lowPass(&f.xPrev, x, alpha(f.hz, cutoff))
}

func (f *oneEuroFilter) reset() {
	f.xPrev = 0
	f.dxPrev = 0
	f.rawXPrev = 0
	f.initialized = false
}

// smoothnessToParams maps the user-facing smoothness in [0,1] to
// (min_cutoff, beta) per spec: 0 -> (10, 1) near pass-through,
// 1 -> (0.1, 0) heavy smoothing, linear in between.
func smoothnessToParams(smoothness float64) (minCutoff, beta float64) {
	s := canonical.Clamp01(smoothness)
	minCutoff = 10 + s*(0.1-10)
	beta = 1 + s*(0-1)
	return minCutoff, beta
}

// Smoothing is the One-Euro mutation step. It manages one filter per
// canonical signal, lazily created, the way the teacher's LandmarkSmoother
// manages one Kalman filter per landmark index — structure kept, filter
// math replaced.
type Smoothing struct {
	mu      sync.Mutex
	filters [expression.Count]*oneEuroFilter
	minCutoff, beta float64
}

// NewSmoothing returns a Smoothing step with default parameters; call
// Initialize to apply a configured smoothness.
func NewSmoothing() *Smoothing {
	mc, b := smoothnessToParams(0.5)
	return &Smoothing{minCutoff: mc, beta: b}
}

func (s *Smoothing) Initialize(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minCutoff, s.beta = smoothnessToParams(cfg.Smoothness)
	for i := range s.filters {
		s.filters[i] = nil // re-seed on next sample at the new parameters
	}
	return nil
}

func (s *Smoothing) Mutate(frame *canonical.Frame, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hz := 60.0
	if dt > 0 {
		hz = 1.0 / dt
	}

	for i := range frame.Shapes {
		f := s.filters[i]
		if f == nil {
			f = newOneEuroFilter(s.minCutoff, s.beta)
			s.filters[i] = f
		}
		frame.Shapes[i] = f.filter(frame.Shapes[i], hz)
	}
}

func (s *Smoothing) Name() string { return "smoothing" }
