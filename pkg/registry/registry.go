package registry

import (
	"log/slog"
	"sync"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

// Registry owns the full set of declarative Parameters and rebuilds their
// resolved wire addresses whenever a fresh discovery Snapshot arrives
// (§4.E). Process is the per-frame hot path; Rebuild is called from the
// orchestrator's discovery snapshot handoff, and once at startup for the
// generic transport's fixed snapshot.
type Registry struct {
	mu       sync.RWMutex
	params   []Parameter
	relevant int
	total    int
	logger   *slog.Logger
}

// New builds a Registry over the default parameter set: one binary-encoded
// and one legacy float/FT parameter per expression signal, plus the fixed
// eye lid/gaze, eye-tracking-active and native eye parameters.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	r.params = defaultParameters()
	return r
}

func defaultParameters() []Parameter {
	var params []Parameter
	for i := 0; i < expression.Count; i++ {
		sig := expression.Signal(i)
		name := sig.String()
		params = append(params,
			NewFloatParam(name, func(s expression.Signal) func(*canonical.Frame) float64 {
				return func(f *canonical.Frame) float64 { return f.Shape(s) }
			}(sig)),
			NewBinaryParam(name, func(s expression.Signal) func(*canonical.Frame) float64 {
				return func(f *canonical.Frame) float64 { return f.Shape(s) }
			}(sig)),
		)
	}

	params = append(params,
		NewFloatParam("EyeLidLeft", func(f *canonical.Frame) float64 { return f.Left.Openness }),
		NewFloatParam("EyeLidRight", func(f *canonical.Frame) float64 { return f.Right.Openness }),
		NewFloatParam("EyeLeftX", func(f *canonical.Frame) float64 { return f.Left.Gaze.X }),
		NewFloatParam("EyeLeftY", func(f *canonical.Frame) float64 { return f.Left.Gaze.Y }),
		NewFloatParam("EyeRightX", func(f *canonical.Frame) float64 { return f.Right.Gaze.X }),
		NewFloatParam("EyeRightY", func(f *canonical.Frame) float64 { return f.Right.Gaze.Y }),
		NewBoolParam("EyeTrackingActive", func(f *canonical.Frame) bool { return true }),
		NewNativeEyeParam(),
	)
	return params
}

// Rebuild re-resolves every parameter's wire addresses against snapshot.
// It is safe to call concurrently with Process: callers are blocked out
// via the write lock for the duration of the (cheap, O(parameters ×
// addresses)) rebuild.
func (r *Registry) Rebuild(snapshot *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	relevant := 0
	for _, p := range r.params {
		if p.Reset(snapshot) > 0 {
			relevant++
		}
	}
	r.relevant = relevant
	r.total = len(r.params)
	r.logger.Info("registry rebuilt", "relevant", relevant, "total", r.total)
}

// Process runs every relevant parameter against frame and returns the
// union of wire messages due this tick. This is the per-frame hot path.
func (r *Registry) Process(frame *canonical.Frame) []WireMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []WireMessage
	for _, p := range r.params {
		if !p.Relevant() {
			continue
		}
		out = append(out, p.Process(frame)...)
	}
	return out
}

// Stats reports how many of the registry's parameters currently resolve to
// at least one wire address, for the control surface's /metrics gauges.
func (r *Registry) Stats() (relevant, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.relevant, r.total
}
