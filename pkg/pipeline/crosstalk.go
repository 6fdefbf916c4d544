package pipeline

import (
	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

// crosstalkFraction is the share of a paired signal's weight subtracted
// from its counterpart. Cheek-puff and cheek-squint tend to co-activate on
// cameras/sensors that can't fully separate the two shapes.
const crosstalkFraction = 0.3

type crosstalkPair struct {
	a, b expression.Signal
}

var crosstalkPairs = []crosstalkPair{
	{expression.CheekPuffRight, expression.CheekSquintRight},
	{expression.CheekPuffLeft, expression.CheekSquintLeft},
}

// CrosstalkReduction is an optional pipeline step (§4.C, §9) that reduces
// the shared contribution between a canonical signal pair by subtracting a
// fraction of the paired signal's value before re-clamping. It replaces the
// inconsistent per-adapter heuristic the source this is distilled from
// applies in one adapter variant but not the other: here it is a uniform,
// explicit pipeline option instead of an adapter-specific behaviour.
type CrosstalkReduction struct {
	enabled bool
}

// NewCrosstalkReduction returns the step, disabled until Initialize opts it
// in via Config.CrosstalkReduction.
func NewCrosstalkReduction() *CrosstalkReduction {
	return &CrosstalkReduction{}
}

func (c *CrosstalkReduction) Initialize(cfg Config) error {
	c.enabled = cfg.CrosstalkReduction
	return nil
}

func (c *CrosstalkReduction) Mutate(frame *canonical.Frame, dt float64) {
	if !c.enabled {
		return
	}
	for _, pair := range crosstalkPairs {
		a, b := frame.Shape(pair.a), frame.Shape(pair.b)
		frame.SetShape(pair.a, canonical.Clamp01(a-crosstalkFraction*b))
		frame.SetShape(pair.b, canonical.Clamp01(b-crosstalkFraction*a))
	}
}

func (c *CrosstalkReduction) Name() string { return "crosstalk_reduction" }
