package pipeline

import (
	"math"
	"testing"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

// fakeStore implements CalibrationStore for tests.
type fakeStore struct {
	params []*Parameter
	dirty  int
}

func newFakeStore() *fakeStore {
	params := make([]*Parameter, expression.Count)
	for i := range params {
		params[i] = NewParameter(expression.Signal(i).String())
	}
	return &fakeStore{params: params}
}

func (s *fakeStore) Parameters() []*Parameter { return s.params }
func (s *fakeStore) MarkDirty()               { s.dirty++ }

func TestCalibrationBlendFloorScenario(t *testing.T) {
	p := NewParameter("Test")
	// confidence == 0 and max == 0 (never collected) -> passes through.
	for _, k := range []float64{0, 0.5, 1, 5} {
		if got := p.Calculate(0.4, k); got != 0.4 {
			t.Errorf("k=%f: got %f, want 0.4", k, got)
		}
	}
}

func TestCalibrationMaxConfidenceMonotonic(t *testing.T) {
	p := NewParameter("Test")
	prev := 0.0
	for i := 0; i < 200; i++ {
		v := 0.5 + 0.1*math.Sin(float64(i))
		p.Update(v, true, 1.0/60)
		if p.MaxConfidence < prev-1e-12 {
			t.Fatalf("iteration %d: max confidence decreased: %f -> %f", i, prev, p.MaxConfidence)
		}
		prev = p.MaxConfidence
	}
}

func TestCalibrationNoiseGate(t *testing.T) {
	p := NewParameter("Test")
	dt := 1.0 / 60
	threshold := SDelta * dt

	p.Update(0.5, true, dt)
	firstStep := p.CurrentStep
	firstFixed := p.fixedIndex

	// A sample within the noise gate must be discarded (no change to
	// fixedIndex or CurrentStep).
	p.Update(0.5+threshold*0.1, true, dt)
	if p.fixedIndex != firstFixed {
		t.Errorf("sample within noise gate should be discarded, fixedIndex changed %d -> %d", firstFixed, p.fixedIndex)
	}
	if p.CurrentStep != firstStep {
		t.Errorf("current step should not change on discarded sample")
	}

	// A sample clearly outside the gate must be accepted.
	p.Update(0.5+threshold*2, true, dt)
	if p.fixedIndex != firstFixed+1 {
		t.Errorf("sample outside noise gate should be accepted")
	}
}

func TestCalibrationLifecycle(t *testing.T) {
	store := newFakeStore()
	c := NewCalibration(store)
	_ = c.Initialize(Config{Calibration: CalibrationConfig{Enabled: true, Blend: 0.5}})

	if c.State() != Uncalibrated {
		t.Fatalf("expected Uncalibrated initially, got %v", c.State())
	}

	c.RequestCollecting(1.0)
	if c.State() != Collecting {
		t.Fatalf("expected Collecting after request, got %v", c.State())
	}

	frame := canonical.New()
	for i := 0; i < 61; i++ { // ~1.017s at 60Hz, crosses the 1.0s duration
		c.Mutate(frame, 1.0/60)
	}
	if c.State() != Calibrated {
		t.Fatalf("expected Calibrated after duration elapses, got %v", c.State())
	}

	// External control can re-request Collecting from Calibrated.
	c.RequestCollecting(2.0)
	if c.State() != Collecting {
		t.Fatalf("expected Collecting after re-request from Calibrated, got %v", c.State())
	}
}

func TestCalibrationDisabledIsNoop(t *testing.T) {
	store := newFakeStore()
	c := NewCalibration(store)
	_ = c.Initialize(Config{Calibration: CalibrationConfig{Enabled: false}})

	frame := canonical.New()
	frame.SetShape(expression.JawOpen, 0.3)
	c.Mutate(frame, 1.0/60)

	if frame.Shape(expression.JawOpen) != 0.3 {
		t.Error("disabled calibration must not touch the frame")
	}
	if store.dirty != 0 {
		t.Error("disabled calibration must not mark the store dirty")
	}
}

func TestCalculateNaNFallsBackToRaw(t *testing.T) {
	p := NewParameter("Test")
	p.Confidence = 0.5
	p.Max = 1
	if got := p.Calculate(math.NaN(), 1); !math.IsNaN(got) {
		t.Errorf("NaN input should return NaN (raw value), got %f", got)
	}
}
