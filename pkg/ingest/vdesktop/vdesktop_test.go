package vdesktop

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

type fakeRegion struct {
	ready   bool
	state   FaceState
	readErr error
	waitErr error
	closed  bool
}

func (f *fakeRegion) WaitForFrame(time.Duration) (bool, error) {
	if f.waitErr != nil {
		return false, f.waitErr
	}
	return f.ready, nil
}

func (f *fakeRegion) Read() (FaceState, error) {
	return f.state, f.readErr
}

func (f *fakeRegion) Close() error {
	f.closed = true
	return nil
}

func TestRotateForwardIdentity(t *testing.T) {
	v := rotateForward(Quaternion{W: 1})
	if v != (canonical.Vec3{Z: 1}) {
		t.Errorf("identity quaternion should rotate forward to itself, got %v", v)
	}
}

func TestQuaternionToPitchYawDegenerateIsZero(t *testing.T) {
	pitch, yaw := quaternionToPitchYaw(Quaternion{})
	if pitch != 0 || yaw != 0 {
		t.Errorf("zero quaternion should yield (0,0), got (%v,%v)", pitch, yaw)
	}
}

func TestQuaternionToPitchYaw45DegreeYaw(t *testing.T) {
	half := math.Pi / 8
	pitch, yaw := quaternionToPitchYaw(Quaternion{Y: math.Sin(half), W: math.Cos(half)})
	if math.Abs(pitch) > 1e-3 {
		t.Errorf("expected pitch near 0, got %v", pitch)
	}
	if math.Abs(yaw-math.Pi/4) > 1e-3 {
		t.Errorf("expected yaw near pi/4, got %v", yaw)
	}
}

func TestStandardSourceDeclaresGazeVectorConvention(t *testing.T) {
	region := &fakeRegion{ready: true, state: FaceState{FaceValid: true, LeftEyeValid: true, LeftEye: EyePose{Orientation: Quaternion{W: 1}, Valid: true}}}
	src := NewStandardSource(region)
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
	if frame.EyeConvention != canonical.GazeVector {
		t.Error("expected vector convention to be declared")
	}
	if frame.Left.Gaze != (canonical.Vec3{Z: 1}) {
		t.Errorf("expected forward gaze vector, got %v", frame.Left.Gaze)
	}
}

func TestLegacySourceDeclaresPitchYawConvention(t *testing.T) {
	region := &fakeRegion{ready: true, state: FaceState{FaceValid: true, LeftEyeValid: true, LeftEye: EyePose{Orientation: Quaternion{W: 1}, Valid: true}}}
	src := NewLegacySource(region)
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
}

func TestLegacySourceNeverWritesDilationBounds(t *testing.T) {
	region := &fakeRegion{ready: true, state: FaceState{FaceValid: true}}
	src := NewLegacySource(region)
	_ = src.Initialize(nil)

	frame := canonical.New()
	if _, err := src.Update(frame); err != nil {
		t.Fatalf("update: %v", err)
	}
	if frame.Left.MinDilation != 0 || frame.Left.MaxDilation != 0 {
		t.Errorf("adapter must not write dilation bounds, got min=%v max=%v", frame.Left.MinDilation, frame.Left.MaxDilation)
	}
}

func TestSourceUpdateNotReadyReturnsNoUpdate(t *testing.T) {
	region := &fakeRegion{ready: false}
	src := NewStandardSource(region)
	_ = src.Initialize(nil)
	src.lastValidTime = time.Now()

	updated, err := src.Update(canonical.New())
	if err != nil || updated {
		t.Errorf("expected (false, nil) when region not ready, got (%v, %v)", updated, err)
	}
}

func TestSourceUpdateTimesOutAfterStaleConnection(t *testing.T) {
	region := &fakeRegion{ready: false}
	src := NewStandardSource(region)
	_ = src.Initialize(nil)
	src.lastValidTime = time.Now().Add(-(connectionTimeout + time.Second))

	_, err := src.Update(canonical.New())
	if err == nil {
		t.Fatal("expected timeout error after stale connection")
	}
}

func TestSourceUpdatePropagatesReadError(t *testing.T) {
	region := &fakeRegion{ready: true, readErr: errors.New("boom")}
	src := NewStandardSource(region)
	_ = src.Initialize(nil)

	if _, err := src.Update(canonical.New()); err == nil {
		t.Fatal("expected read error to propagate")
	}
}

func TestSourceUnloadClosesRegion(t *testing.T) {
	region := &fakeRegion{}
	src := NewStandardSource(region)
	if err := src.Unload(); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if !region.closed {
		t.Error("expected region to be closed")
	}
}

func TestOpennessFormulaAppliedWhenEyesValid(t *testing.T) {
	state := FaceState{LeftEyeValid: true, RightEyeValid: true}
	state.ExpressionWeights[12] = 0.2
	region := &fakeRegion{ready: true, state: state}
	src := NewStandardSource(region)
	_ = src.Initialize(nil)

	frame := canonical.New()
	if _, err := src.Update(frame); err != nil {
		t.Fatalf("update: %v", err)
	}
	if frame.Left.Openness != 0.8 {
		t.Errorf("expected openness 1-0.2=0.8, got %v", frame.Left.Openness)
	}
	if frame.Left.PupilDiameterMM != 5 {
		t.Errorf("expected valid-eye pupil diameter 5mm, got %v", frame.Left.PupilDiameterMM)
	}
}
