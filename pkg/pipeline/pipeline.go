// Package pipeline runs the ordered chain of stateful frame transforms:
// smoothing, calibration, pupil normalization, and an optional crosstalk
// reduction step. Each step is deterministic and side-effect-free except
// for updating its own internal state, and never panics on frame data —
// numeric degeneracies fall back to a pass-through of the pre-step value.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// Config is the subset of mutator configuration a Mutation needs to
// (re)initialise itself. It is passed to Initialize on startup and again
// whenever configuration changes.
type Config struct {
	Smoothness float64 // [0,1], 0 = near pass-through, 1 = heavy smoothing
	Calibration CalibrationConfig
	CrosstalkReduction bool
}

// Mutation is one step of the pipeline.
type Mutation interface {
	// Initialize is called once on startup and again on every config
	// change.
	Initialize(cfg Config) error
	// Mutate transforms frame in place. dt is the elapsed time since the
	// previous tick, in seconds.
	Mutate(frame *canonical.Frame, dt float64)
	// Name identifies the step for logging.
	Name() string
}

// Pipeline runs an ordered list of Mutation steps against a frame.
type Pipeline struct {
	steps  []Mutation
	logger *slog.Logger
}

// New builds a pipeline from an explicit ordered list of steps.
func New(logger *slog.Logger, steps ...Mutation) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{steps: steps, logger: logger}
}

// Default builds the default pipeline: smoothing, crosstalk reduction,
// calibration, pupil normalization. The crosstalk step is always present
// and leaves frames untouched unless Config.CrosstalkReduction is set.
func Default(logger *slog.Logger, store CalibrationStore) *Pipeline {
	steps := []Mutation{NewSmoothing()}
	steps = append(steps, NewCrosstalkReduction())
	steps = append(steps, NewCalibration(store))
	steps = append(steps, NewPupilNormalization())
	return New(logger, steps...)
}

// FromNames builds an ordered step list from an explicit subset of step
// names ("smoothing", "crosstalk", "calibration", "pupil"), as named by
// MutatorConfig.Pipeline. Unknown names are rejected rather than silently
// skipped.
func FromNames(names []string, store CalibrationStore) ([]Mutation, error) {
	steps := make([]Mutation, 0, len(names))
	for _, name := range names {
		switch name {
		case "smoothing":
			steps = append(steps, NewSmoothing())
		case "crosstalk":
			steps = append(steps, NewCrosstalkReduction())
		case "calibration":
			steps = append(steps, NewCalibration(store))
		case "pupil":
			steps = append(steps, NewPupilNormalization())
		default:
			return nil, fmt.Errorf("pipeline: unknown mutation step %q", name)
		}
	}
	return steps, nil
}

// Initialize initialises every step with cfg, in order.
func (p *Pipeline) Initialize(cfg Config) error {
	for _, step := range p.steps {
		if err := step.Initialize(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Run applies every step to frame in order, clamping weights once at
// entry as spec'd.
func (p *Pipeline) Run(frame *canonical.Frame, dt float64) {
	frame.ClampWeights()
	for _, step := range p.steps {
		step.Mutate(frame, dt)
	}
}

// Steps returns the ordered step list, e.g. for introspection by the
// control surface.
func (p *Pipeline) Steps() []Mutation {
	return p.steps
}
