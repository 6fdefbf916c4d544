package pipeline

import (
	"math"
	"testing"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

func TestSmoothnessToParams(t *testing.T) {
	mc, b := smoothnessToParams(0)
	if mc != 10 || b != 1 {
		t.Errorf("smoothness=0: got (%f,%f), want (10,1)", mc, b)
	}
	mc, b = smoothnessToParams(1)
	if math.Abs(mc-0.1) > 1e-9 || b != 0 {
		t.Errorf("smoothness=1: got (%f,%f), want (0.1,0)", mc, b)
	}
}

func TestOneEuroFirstCallPassThrough(t *testing.T) {
	f := newOneEuroFilter(10, 1)
	if got := f.filter(0.75, 60); got != 0.75 {
		t.Errorf("first call should pass through, got %f", got)
	}
}

func TestOneEuroNaNMapsToZero(t *testing.T) {
	f := newOneEuroFilter(10, 1)
	if got := f.filter(math.NaN(), 60); got != 0 {
		t.Errorf("NaN input should map to 0, got %f", got)
	}
}

// Smoothing identity: scenario 1 from spec section 8. smoothness=0, feed
// 0.0, 1.0, 0.0 — first output 0, subsequent outputs within 1% of input
// (near pass-through).
func TestSmoothingIdentityScenario(t *testing.T) {
	s := NewSmoothing()
	if err := s.Initialize(Config{Smoothness: 0}); err != nil {
		t.Fatal(err)
	}

	frame := canonical.New()
	samples := []float64{0.0, 1.0, 0.0}
	var outputs []float64
	for _, v := range samples {
		frame.SetShape(expression.JawOpen, v)
		s.Mutate(frame, 1.0/60)
		outputs = append(outputs, frame.Shape(expression.JawOpen))
	}

	if outputs[0] != 0 {
		t.Errorf("first output should equal first sample exactly, got %f", outputs[0])
	}
	for i := 1; i < len(samples); i++ {
		if math.Abs(outputs[i]-samples[i]) > 0.01 {
			t.Errorf("sample %d: output %f not within 1%% of input %f", i, outputs[i], samples[i])
		}
	}
}

func TestSmoothingResetsFiltersOnReinitialize(t *testing.T) {
	s := NewSmoothing()
	_ = s.Initialize(Config{Smoothness: 0.5})

	frame := canonical.New()
	frame.SetShape(expression.JawOpen, 0.5)
	s.Mutate(frame, 1.0/60)
	frame.SetShape(expression.JawOpen, 0.9)
	s.Mutate(frame, 1.0/60)

	// Re-initialize: next sample must pass through again (filters reseeded).
	_ = s.Initialize(Config{Smoothness: 0.5})
	frame.SetShape(expression.JawOpen, 0.1)
	s.Mutate(frame, 1.0/60)
	if frame.Shape(expression.JawOpen) != 0.1 {
		t.Errorf("expected pass-through after reinitialize, got %f", frame.Shape(expression.JawOpen))
	}
}
