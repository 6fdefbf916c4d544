package headset

import (
	"math"
	"testing"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

func TestPitchYawIdentityQuaternion(t *testing.T) {
	pitch, yaw := PitchYaw(Quaternion{X: 0, Y: 0, Z: 0, W: 1})
	if pitch != 0 || yaw != 0 {
		t.Errorf("identity quaternion should yield (0,0), got (%v,%v)", pitch, yaw)
	}
}

func TestPitchYaw45DegreeYaw(t *testing.T) {
	half := math.Pi / 8
	q := Quaternion{X: 0, Y: math.Sin(half), Z: 0, W: math.Cos(half)}
	pitch, yaw := PitchYaw(q)
	if math.Abs(pitch) > 1e-3 {
		t.Errorf("expected pitch near 0, got %v", pitch)
	}
	if math.Abs(yaw-math.Pi/4) > 1e-3 {
		t.Errorf("expected yaw near pi/4, got %v", yaw)
	}
}

func TestPitchYawDegenerateQuaternionIsZero(t *testing.T) {
	pitch, yaw := PitchYaw(Quaternion{})
	if pitch != 0 || yaw != 0 {
		t.Errorf("near-zero quaternion should map to (0,0), got (%v,%v)", pitch, yaw)
	}
}

type fakeReader struct {
	leftQ, rightQ                  Quaternion
	leftQValid, rightQValid        bool
	leftOpen, rightOpen            float64
	leftOpenValid, rightOpenValid  bool
	leftPupil, rightPupil          float64
	leftPupilValid, rightPupilValid bool
}

func (f *fakeReader) ReadEyeQuaternions() (Quaternion, Quaternion, bool, bool, error) {
	return f.leftQ, f.rightQ, f.leftQValid, f.rightQValid, nil
}
func (f *fakeReader) ReadEyeOpenness() (float64, float64, bool, bool) {
	return f.leftOpen, f.rightOpen, f.leftOpenValid, f.rightOpenValid
}
func (f *fakeReader) ReadPupilDiameterMM() (float64, float64, bool, bool) {
	return f.leftPupil, f.rightPupil, f.leftPupilValid, f.rightPupilValid
}
func (f *fakeReader) Close() error { return nil }

func TestSourceUpdateAppliesValidFieldsOnly(t *testing.T) {
	reader := &fakeReader{
		leftQ: Quaternion{W: 1}, leftQValid: true,
		rightQValid: false,
		leftOpenValid: true, leftOpen: 0.4,
		rightPupilValid: true, rightPupil: 3.2,
	}
	src := New(reader)
	if err := src.Initialize(nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	frame := canonical.New()
	updated, err := src.Update(frame)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated {
		t.Fatal("expected update to report fresh data")
	}
	if frame.EyeConvention != canonical.GazePitchYaw {
		t.Error("expected pitch/yaw convention to be declared")
	}
	if frame.Left.Openness != 0.4 {
		t.Errorf("expected left openness applied, got %v", frame.Left.Openness)
	}
	if frame.Right.PupilDiameterMM != 3.2 {
		t.Errorf("expected right pupil applied, got %v", frame.Right.PupilDiameterMM)
	}
	if frame.Right.Gaze != (canonical.Vec3{}) {
		t.Errorf("invalid right gaze should be left untouched, got %v", frame.Right.Gaze)
	}
}

func TestSourceUpdateWithNilReaderIsNoop(t *testing.T) {
	src := New(nil)
	updated, err := src.Update(canonical.New())
	if err != nil || updated {
		t.Errorf("expected (false, nil), got (%v, %v)", updated, err)
	}
}
