package pipeline

import "github.com/facetrackd/facetrackd/pkg/canonical"

// minSpan is the minimum observed (max-min) span before normalization is
// considered meaningful; below it the output defaults to 0.5 to avoid
// division by a near-zero span.
const minSpan = 1e-3

// eyeBounds tracks a running min/max over observed positive pupil
// diameters for one eye. Zeros (unmeasured) are ignored when updating
// bounds, per §4.C.
type eyeBounds struct {
	min, max float64
	seen     bool
}

func (b *eyeBounds) observe(v float64) {
	if v <= 0 {
		return
	}
	if !b.seen {
		b.min, b.max = v, v
		b.seen = true
		return
	}
	if v < b.min {
		b.min = v
	}
	if v > b.max {
		b.max = v
	}
}

func (b *eyeBounds) normalize(v float64) float64 {
	if !b.seen || b.max-b.min <= minSpan {
		return 0.5
	}
	return canonical.Clamp01((v - b.min) / (b.max - b.min))
}

// PupilNormalization maintains a running min/max per eye over observed
// positive diameters and rewrites each eye's diameter to a [0,1] fraction
// of that window, writing the window bounds back onto the frame (the only
// mutation step that touches Eye.{Min,Max}Dilation; of the adapters, only
// extmodule writes them, and this step overwrites its values).
type PupilNormalization struct {
	left, right eyeBounds
}

// NewPupilNormalization returns a fresh step with an empty window.
func NewPupilNormalization() *PupilNormalization {
	return &PupilNormalization{}
}

func (p *PupilNormalization) Initialize(cfg Config) error { return nil }

func (p *PupilNormalization) Mutate(frame *canonical.Frame, dt float64) {
	p.left.observe(frame.Left.PupilDiameterMM)
	p.right.observe(frame.Right.PupilDiameterMM)

	frame.Left.MinDilation = p.left.min
	frame.Left.MaxDilation = p.left.max
	frame.Right.MinDilation = p.right.min
	frame.Right.MaxDilation = p.right.max

	frame.Left.PupilDiameterMM = p.left.normalize(frame.Left.PupilDiameterMM)
	frame.Right.PupilDiameterMM = p.right.normalize(frame.Right.PupilDiameterMM)
}

func (p *PupilNormalization) Name() string { return "pupil_normalization" }
