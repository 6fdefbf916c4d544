package pipeline

import (
	"math"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// POINTS is the ring-buffer capacity for each per-signal calibration record.
const POINTS = 64

// SDelta is the noise-gate threshold: a sample is accepted only if it
// differs from the last accepted (quantized) value by at least SDelta*dt.
const SDelta = 0.15

// CalibrationConfig is the subset of configuration the calibration step
// reads from Config.
type CalibrationConfig struct {
	Enabled    bool
	Continuous bool
	Blend      float64 // k in the blend formula
}

// CalibrationState is the calibration lifecycle: Uncalibrated ->
// Collecting{timer,duration} -> Calibrated, with external control able to
// request a transition back to Collecting from either terminal state.
type CalibrationState int

const (
	Uncalibrated CalibrationState = iota
	Collecting
	Calibrated
)

func (s CalibrationState) String() string {
	switch s {
	case Uncalibrated:
		return "uncalibrated"
	case Collecting:
		return "collecting"
	case Calibrated:
		return "calibrated"
	default:
		return "unknown"
	}
}

// Parameter is one signal's statistical record, per §3.
type Parameter struct {
	Name string

	points     [POINTS]float64
	rollingIdx int
	fixedIndex int // samples accepted so far, saturating at POINTS

	Mean          float64
	StdDev        float64
	Confidence    float64 // [0,1]
	MaxConfidence float64 // [0,1], monotonically non-decreasing within a run
	Max           float64 // legacy
	CurrentStep   float64 // last accepted quantized value; NaN = uninitialised
}

// NewParameter returns a fresh, uninitialised record for the given name.
func NewParameter(name string) *Parameter {
	return &Parameter{Name: name, CurrentStep: math.NaN()}
}

// Progress reports fixed_index / POINTS.
func (p *Parameter) Progress() float64 {
	return float64(p.fixedIndex) / float64(POINTS)
}

// Reset clears the ring buffer and all derived statistics, keeping the
// name. Invoked on entry to Collecting.
func (p *Parameter) Reset() {
	name := p.Name
	*p = Parameter{Name: name, CurrentStep: math.NaN()}
}

// SetFixedIndexFromProgress restores fixed_index from a persisted progress
// value (fixed_index/POINTS), used when loading a calibration file — the
// ring buffer itself is never persisted, so this only re-derives the
// saturating sample count, not the buffer contents.
func (p *Parameter) SetFixedIndexFromProgress(progress float64) {
	n := int(progress*POINTS + 0.5)
	if n < 0 {
		n = 0
	}
	if n > POINTS {
		n = POINTS
	}
	p.fixedIndex = n
}

// Update feeds one sample through the noise-gated sampler and recomputes
// running statistics, per §3's invariants.
func (p *Parameter) Update(v float64, continuous bool, dt float64) {
	threshold := SDelta * dt
	accept := math.IsNaN(p.CurrentStep) || math.Abs(v-p.CurrentStep) >= threshold

	if accept {
		if p.fixedIndex < POINTS {
			p.fixedIndex++
		}
		p.points[p.rollingIdx] = v
		if p.fixedIndex < POINTS || continuous {
			p.rollingIdx = (p.rollingIdx + 1) % POINTS
			p.recalculateStats()
		}
		if threshold > 0 {
			p.CurrentStep = math.Floor(v/threshold) * threshold
		} else {
			p.CurrentStep = v
		}
	}
}

func (p *Parameter) recalculateStats() {
	n := p.fixedIndex
	if n > POINTS {
		n = POINTS
	}
	if n == 0 {
		return
	}

	var sum, max float64
	for i := 0; i < n; i++ {
		v := p.points[i]
		sum += v
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	var variance float64
	for i := 0; i < n; i++ {
		d := p.points[i] - mean
		variance += d * d
	}
	variance /= float64(n)

	p.Mean = mean
	p.StdDev = math.Sqrt(variance)
	if max > p.Max {
		p.Max = max
	}

	progress := p.Progress()
	quality := math.Pow(math.Abs(math.Sqrt(12)*p.StdDev-1), 0.2)
	confidence := canonical.Clamp01(progress * quality)
	p.Confidence = confidence
	if confidence > p.MaxConfidence {
		p.MaxConfidence = confidence
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Calculate blends raw v with a calibration-adjusted curve, per §4.C:
//
//	out = confidence*sigmoid*quality*curve(v) + (1-that)*v
//
// where curve(v) = v^(2m/(1+m)), m = mean + k*std_dev, sigmoid =
// sigma(40*(v-0.05)), quality = |sqrt(12)*std_dev - 1|^0.2. If both
// confidence and max are zero (never collected), v passes through
// unchanged. NaN results fall back to raw v.
func (p *Parameter) Calculate(v, k float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if p.Confidence == 0 && p.Max == 0 {
		return v
	}

	m := p.Mean + k*p.StdDev
	var curved float64
	if v > 0 && m > -0.5 {
		exp := (2 * m) / (1 + m)
		curved = math.Pow(v, exp)
	} else {
		curved = v
	}

	quality := math.Pow(math.Abs(math.Sqrt(12)*p.StdDev-1), 0.2)
	factor := p.Confidence * sigmoid(40*(v-0.05)) * quality
	factor = canonical.Clamp01(factor)

	out := factor*curved + (1-factor)*v
	if math.IsNaN(out) {
		return v
	}
	return out
}

// CalibrationStore is the interface the calibration mutation uses to
// persist/restore its statistical records. Calibration owns its
// store rather than the store referencing the mutation back, avoiding the
// cyclic-ownership the source this is distilled from works around.
type CalibrationStore interface {
	Parameters() []*Parameter
	MarkDirty()
}

// Calibration is the calibration mutation step.
type Calibration struct {
	store CalibrationStore
	state CalibrationState
	timer, duration float64
	cfg CalibrationConfig
}

// NewCalibration returns a Calibration step backed by store.
func NewCalibration(store CalibrationStore) *Calibration {
	return &Calibration{store: store, state: Uncalibrated}
}

func (c *Calibration) Initialize(cfg Config) error {
	c.cfg = cfg.Calibration
	return nil
}

// RequestCollecting transitions to Collecting{0, duration}, clearing the
// ring buffers, regardless of current state.
func (c *Calibration) RequestCollecting(duration float64) {
	c.state = Collecting
	c.timer = 0
	c.duration = duration
	for _, p := range c.store.Parameters() {
		p.Reset()
	}
}

// State returns the current lifecycle state.
func (c *Calibration) State() CalibrationState { return c.state }

// Status mirrors the control-surface status payload: (isCalibrating,
// elapsed, duration, progress).
func (c *Calibration) Status() (isCalibrating bool, elapsed, duration, progress float64) {
	if c.state != Collecting {
		return false, 0, 0, 0
	}
	p := 0.0
	if c.duration > 0 {
		p = canonical.Clamp01(c.timer / c.duration)
	}
	return true, c.timer, c.duration, p
}

func (c *Calibration) Mutate(frame *canonical.Frame, dt float64) {
	if !c.cfg.Enabled {
		return
	}

	if c.state == Collecting {
		c.timer += dt
		if c.timer >= c.duration {
			c.state = Calibrated
		}
	}

	params := c.store.Parameters()
	for i := range frame.Shapes {
		if i >= len(params) {
			break
		}
		raw := frame.Shapes[i]
		params[i].Update(raw, c.cfg.Continuous, dt)
		frame.Shapes[i] = params[i].Calculate(raw, c.cfg.Blend)
	}
	c.store.MarkDirty()
}

func (c *Calibration) Name() string { return "calibration" }
