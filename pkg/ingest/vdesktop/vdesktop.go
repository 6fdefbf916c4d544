// Package vdesktop implements the shared-memory virtual-desktop adapter in
// its two historically divergent variants (Design Note 9's open question):
// StandardSource publishes eye gaze as a 3-vector
// (modules/vd_module/src/virtual_desktop.rs); LegacySource publishes it as
// pitch/yaw extracted from the same quaternion
// (vd_module/src/virtual_desktop.rs, pre-dating the 3-vector rewrite). Both
// declare their own canonical.EyeConvention rather than the pipeline
// guessing one. Eye smoothing and cheek-crosstalk reduction, baked into the
// adapter inconsistently in the original source, are left to
// pkg/pipeline — not duplicated here.
package vdesktop

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// Quaternion is the shared-memory orientation representation.
type Quaternion struct{ X, Y, Z, W float64 }

// EyePose is one eye's orientation as read from shared memory.
type EyePose struct {
	Orientation Quaternion
	Valid       bool
}

// FaceState is the subset of the shared-memory face-tracking record this
// adapter consumes, named after the original packed C struct's fields.
type FaceState struct {
	FaceValid               bool
	LeftEyeValid            bool
	RightEyeValid           bool
	EyeFollowingBlendshapes bool
	LeftEye                 EyePose
	RightEye                EyePose
	// ExpressionWeights indexes the vendor's 70-entry blend-shape array;
	// only a representative subset is mapped onto canonical signals.
	ExpressionWeights [70]float64
}

// Region is the minimal shared-memory handshake surface: wait for the
// next-frame event (with a timeout) and read the current FaceState.
// The concrete shared-memory/event-handle implementation is out of scope
// per §1 (vendor IPC handshake specifics are an external collaborator).
type Region interface {
	WaitForFrame(timeout time.Duration) (ready bool, err error)
	Read() (FaceState, error)
	Close() error
}

const (
	connectionTimeout = 10 * time.Second
	waitTimeout       = 50 * time.Millisecond
)

var errNotConnected = errors.New("vdesktop: shared-memory region not connected")

type base struct {
	logger        *slog.Logger
	region        Region
	lastValidTime time.Time
	convention    canonical.EyeConvention
	applyGaze     func(frame *canonical.Frame, left, right Quaternion, leftValid, rightValid bool)
}

func newBase(region Region, convention canonical.EyeConvention, applyGaze func(*canonical.Frame, Quaternion, Quaternion, bool, bool)) *base {
	return &base{region: region, convention: convention, applyGaze: applyGaze}
}

func (b *base) Initialize(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	b.logger = logger
	b.lastValidTime = time.Now()
	return nil
}

func (b *base) Update(frame *canonical.Frame) (bool, error) {
	if b.region == nil {
		return false, errNotConnected
	}

	ready, err := b.region.WaitForFrame(waitTimeout)
	if err != nil {
		return false, err
	}
	if !ready {
		if time.Since(b.lastValidTime) > connectionTimeout {
			return false, errors.New("vdesktop: connection timeout, no valid data for 10s")
		}
		return false, nil
	}

	state, err := b.region.Read()
	if err != nil {
		return false, err
	}
	if !state.FaceValid && !state.LeftEyeValid && !state.RightEyeValid && !state.EyeFollowingBlendshapes {
		return false, nil
	}
	b.lastValidTime = time.Now()

	frame.EyeConvention = b.convention
	b.applyOpenness(frame, state)
	b.applyGaze(frame, state.LeftEye.Orientation, state.RightEye.Orientation, state.LeftEye.Valid, state.RightEye.Valid)
	if state.EyeFollowingBlendshapes {
		applyEyeShapes(frame, state.ExpressionWeights)
	}
	if state.FaceValid {
		applyMouthShapes(frame, state.ExpressionWeights)
	}
	return true, nil
}

func (b *base) applyOpenness(frame *canonical.Frame, state FaceState) {
	w := state.ExpressionWeights
	if state.LeftEyeValid {
		frame.Left.Openness = 1 - clamp01(w[12]+w[4]*w[28])
		frame.Left.PupilDiameterMM = 5
	} else {
		frame.Left.Openness = 0.5
		frame.Left.PupilDiameterMM = 2
	}
	if state.RightEyeValid {
		frame.Right.Openness = 1 - clamp01(w[13]+w[5]*w[29])
		frame.Right.PupilDiameterMM = 5
	} else {
		frame.Right.Openness = 0.5
		frame.Right.PupilDiameterMM = 2
	}
}

func (b *base) Unload() error {
	if b.region == nil {
		return nil
	}
	return b.region.Close()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// rotateForward rotates the unit +Z axis by q, matching the original's
// `quat * Vec3::new(0,0,1)`.
func rotateForward(q Quaternion) canonical.Vec3 {
	// q * (0,0,1) * q^-1 for a unit quaternion simplifies to:
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return canonical.Vec3{
		X: 2 * (x*z + w*y),
		Y: 2 * (y*z - w*x),
		Z: 1 - 2*(x*x+y*y),
	}
}

// quaternionToPitchYaw mirrors the legacy variant's normalized extraction,
// guarding near-zero magnitude quaternions to (0,0).
func quaternionToPitchYaw(q Quaternion) (pitch, yaw float64) {
	mag := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if mag < 1e-4 {
		return 0, 0
	}
	x, y, z, w := q.X/mag, q.Y/mag, q.Z/mag, q.W/mag
	pitch = math.Asin(clampSignedUnit(2 * (x*z - w*y)))
	yaw = math.Atan2(2*(y*z+w*x), w*w-x*x-y*y+z*z)
	return pitch, yaw
}

func clampSignedUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
