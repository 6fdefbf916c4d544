package canonical

import (
	"encoding/json"
	"testing"

	"github.com/facetrackd/facetrackd/pkg/expression"
)

func TestNewFrameDefaults(t *testing.T) {
	f := New()
	if f.Left.Openness != 1 || f.Right.Openness != 1 {
		t.Error("default frame should have full eye openness")
	}
	for i, w := range f.Shapes {
		if w != 0 {
			t.Fatalf("shape %d: want 0, got %f", i, w)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f := New()
	f.SetShape(expression.JawOpen, 0.5)

	clone := f.Clone()
	clone.SetShape(expression.JawOpen, 0.9)

	if f.Shape(expression.JawOpen) != 0.5 {
		t.Errorf("mutating clone affected original: %f", f.Shape(expression.JawOpen))
	}
	if clone.Shape(expression.JawOpen) != 0.9 {
		t.Errorf("clone not mutated: %f", clone.Shape(expression.JawOpen))
	}
}

func TestClampWeights(t *testing.T) {
	f := New()
	f.SetShape(expression.JawOpen, 1.5)
	f.SetShape(expression.TongueOut, -0.3)
	f.Left.Openness = 2
	f.Right.Openness = -1
	f.Left.PupilDiameterMM = -5

	f.ClampWeights()

	if f.Shape(expression.JawOpen) != 1 {
		t.Errorf("expected clamp to 1, got %f", f.Shape(expression.JawOpen))
	}
	if f.Shape(expression.TongueOut) != 0 {
		t.Errorf("expected clamp to 0, got %f", f.Shape(expression.TongueOut))
	}
	if f.Left.Openness != 1 || f.Right.Openness != 0 {
		t.Errorf("openness not clamped: %f %f", f.Left.Openness, f.Right.Openness)
	}
	if f.Left.PupilDiameterMM != 0 {
		t.Errorf("pupil diameter not floored at zero: %f", f.Left.PupilDiameterMM)
	}
}

func TestOutOfRangeShapeIsNoop(t *testing.T) {
	f := New()
	bogus := expression.Signal(expression.Count + 10)
	f.SetShape(bogus, 1) // must not panic
	if f.Shape(bogus) != 0 {
		t.Error("out-of-range shape read should return 0")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := New()
	f.EyeConvention = GazePitchYaw
	f.SetShape(expression.JawOpen, 0.42)
	f.SetShape(expression.TongueOut, 0.7)
	f.Head = Head{Yaw: 0.1, Pitch: 0.2, Roll: 0.3, Position: Vec3{X: 1, Y: 2, Z: 3}}
	f.Left = Eye{Gaze: Vec3{X: 0.1, Y: 0.2}, Openness: 0.8, PupilDiameterMM: 4.2, MinDilation: 2, MaxDilation: 6}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var round Frame
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if round.EyeConvention != f.EyeConvention {
		t.Error("eye convention mismatch")
	}
	if round.Shape(expression.JawOpen) != 0.42 || round.Shape(expression.TongueOut) != 0.7 {
		t.Error("shapes mismatch after round trip")
	}
	if round.Head != f.Head {
		t.Errorf("head mismatch: %+v vs %+v", round.Head, f.Head)
	}
	if round.Left != f.Left {
		t.Errorf("left eye mismatch: %+v vs %+v", round.Left, f.Left)
	}
}
