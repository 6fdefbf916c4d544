// Package canonical defines the single tracking-frame model that every
// ingestion adapter normalizes onto and every mutation/transport stage
// consumes. It is pure data: construction, clamping helpers, and the
// deep-clone used to move a frame across the producer/consumer boundary.
package canonical

import (
	"math"

	"github.com/facetrackd/facetrackd/pkg/expression"
)

// EyeConvention declares whether an adapter reports eye gaze as a unit
// 3-vector or as a pitch/yaw pair. A frame is consistently one or the
// other; downstream consumers must not assume a default.
type EyeConvention int

const (
	// GazeVector means Eye.{Left,Right}.Gaze is a unit 3-vector.
	GazeVector EyeConvention = iota
	// GazePitchYaw means Eye.{Left,Right}.Gaze.X/.Y hold pitch/yaw radians
	// (Z is unused and left at zero).
	GazePitchYaw
)

// Vec3 is a plain 3-component vector, reused for gaze direction and head
// position alike.
type Vec3 struct {
	X, Y, Z float64
}

// Eye holds one eye's tracked state.
type Eye struct {
	Gaze             Vec3
	Openness         float64 // [0,1]
	PupilDiameterMM  float64 // >= 0, 0 means unmeasured
	MinDilation      float64 // filled by the pupil-normalization mutation
	MaxDilation      float64 // filled by the pupil-normalization mutation
}

// Head holds the tracked head pose.
type Head struct {
	Yaw, Pitch, Roll float64 // radians
	Position         Vec3    // metres
}

// Frame is the canonical tracking frame. A fresh, default-initialised Frame
// is created per producer tick; the owning adapter mutates it in place; it
// is then deep-cloned into the producer->consumer channel, and the consumer
// owns the clone for the remainder of the pipeline. There is never more than
// one live owner of a given Frame value.
type Frame struct {
	EyeConvention EyeConvention
	Left          Eye
	Right         Eye
	Head          Head
	// Shapes is indexed by expression.Signal and is never resized: its
	// length is always expression.Count.
	Shapes [expression.Count]float64
}

// New returns a default-initialised frame: zeroed pose, zero shape weights,
// full eye openness (so a consumer that synthesises a frame on a stalled
// producer still reports open eyes rather than default-closed).
func New() *Frame {
	f := &Frame{}
	f.Left.Openness = 1
	f.Right.Openness = 1
	return f
}

// Clone returns a deep copy. The returned Frame shares no state with f;
// mutating one never affects the other.
func (f *Frame) Clone() *Frame {
	clone := *f
	return &clone
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ClampWeights clamps every shape weight and both eyes' openness into
// [0,1], and floors PupilDiameterMM at zero. This is applied once at
// pipeline entry, ahead of any mutation step.
func (f *Frame) ClampWeights() {
	for i := range f.Shapes {
		f.Shapes[i] = Clamp01(f.Shapes[i])
	}
	f.Left.Openness = Clamp01(f.Left.Openness)
	f.Right.Openness = Clamp01(f.Right.Openness)
	if f.Left.PupilDiameterMM < 0 {
		f.Left.PupilDiameterMM = 0
	}
	if f.Right.PupilDiameterMM < 0 {
		f.Right.PupilDiameterMM = 0
	}
}

// Shape returns the weight for a given canonical signal.
func (f *Frame) Shape(s expression.Signal) float64 {
	if !s.Valid() {
		return 0
	}
	return f.Shapes[s]
}

// SetShape sets the weight for a given canonical signal. Out-of-range
// signals are silently ignored rather than panicking — frame mutation must
// never panic on adapter or pipeline data.
func (f *Frame) SetShape(s expression.Signal, weight float64) {
	if !s.Valid() {
		return
	}
	f.Shapes[s] = weight
}

// PitchYawFromGaze reduces a gaze reading to a pitch/yaw pair regardless of
// which EyeConvention produced it, for consumers (the registry's reserved
// native eye endpoints) that need one fixed representation. Under
// GazePitchYaw the vector already holds (pitch, yaw) in X/Y and is returned
// unchanged; under GazeVector the forward vector is normalised and
// decomposed as pitch = asin(-y), yaw = atan2(x, z), with a near-zero
// vector mapping to (0, 0). This is not the quaternion formula the headset
// and vdesktop adapters use, and the two can disagree for the same
// orientation.
func PitchYawFromGaze(convention EyeConvention, gaze Vec3) (pitch, yaw float64) {
	if convention == GazePitchYaw {
		return gaze.X, gaze.Y
	}

	mag := math.Sqrt(gaze.X*gaze.X + gaze.Y*gaze.Y + gaze.Z*gaze.Z)
	if mag < 1e-6 {
		return 0, 0
	}
	x, y, z := gaze.X/mag, gaze.Y/mag, gaze.Z/mag
	pitch = math.Asin(-y)
	yaw = math.Atan2(x, z)
	return pitch, yaw
}
