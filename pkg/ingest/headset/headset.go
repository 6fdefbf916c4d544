// Package headset implements the quaternion-to-pitch/yaw headset SDK
// adapter (§4.B bullet 2), structurally grounded on
// experimental/sranipal_module/src/mapping.rs's per-eye validity-gated
// field updates, with the quaternion conversion given directly by §4.B.
package headset

import (
	"log/slog"
	"math"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// quaternionMagnitudeGuard is the threshold below which a quaternion is
// treated as degenerate/uninitialised and mapped to (0, 0).
const quaternionMagnitudeGuard = 1e-6

// Quaternion is a unit rotation in the headset SDK's native representation.
type Quaternion struct {
	X, Y, Z, W float64
}

// PitchYaw converts a quaternion to (pitch, yaw) via
// pitch = asin(2(xz - wy)), yaw = atan2(2(yz + wx), w² - x² - y² + z²).
// Near-zero quaternions return (0, 0) rather than NaN.
func PitchYaw(q Quaternion) (pitch, yaw float64) {
	magSq := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if magSq < quaternionMagnitudeGuard {
		return 0, 0
	}
	pitch = math.Asin(clampUnit(2 * (q.X*q.Z - q.W*q.Y)))
	yaw = math.Atan2(2*(q.Y*q.Z+q.W*q.X), q.W*q.W-q.X*q.X-q.Y*q.Y+q.Z*q.Z)
	return pitch, yaw
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Reader is the minimal per-tick SDK surface a concrete vendor binding
// implements; Source drives it and performs the canonical-frame mapping.
type Reader interface {
	ReadEyeQuaternions() (left, right Quaternion, leftValid, rightValid bool, err error)
	ReadEyeOpenness() (left, right float64, leftValid, rightValid bool)
	ReadPupilDiameterMM() (left, right float64, leftValid, rightValid bool)
	Close() error
}

// Source adapts a vendor SDK Reader into the canonical frame.
type Source struct {
	logger *slog.Logger
	reader Reader
}

// New builds a Source over an already-constructed SDK Reader (the vendor
// binding itself is out of scope per §1).
func New(reader Reader) *Source {
	return &Source{reader: reader}
}

func (s *Source) Initialize(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
	s.logger.Info("headset adapter initialized")
	return nil
}

func (s *Source) Update(frame *canonical.Frame) (bool, error) {
	if s.reader == nil {
		return false, nil
	}

	frame.EyeConvention = canonical.GazePitchYaw

	leftQ, rightQ, leftQValid, rightQValid, err := s.reader.ReadEyeQuaternions()
	if err != nil {
		return false, err
	}
	updated := false

	if leftQValid {
		pitch, yaw := PitchYaw(leftQ)
		frame.Left.Gaze = canonical.Vec3{X: pitch, Y: yaw}
		updated = true
	}
	if rightQValid {
		pitch, yaw := PitchYaw(rightQ)
		frame.Right.Gaze = canonical.Vec3{X: pitch, Y: yaw}
		updated = true
	}

	leftOpen, rightOpen, leftOpenValid, rightOpenValid := s.reader.ReadEyeOpenness()
	if leftOpenValid {
		frame.Left.Openness = leftOpen
		updated = true
	}
	if rightOpenValid {
		frame.Right.Openness = rightOpen
		updated = true
	}

	leftPupil, rightPupil, leftPupilValid, rightPupilValid := s.reader.ReadPupilDiameterMM()
	if leftPupilValid {
		frame.Left.PupilDiameterMM = leftPupil
		updated = true
	}
	if rightPupilValid {
		frame.Right.PupilDiameterMM = rightPupil
		updated = true
	}

	return updated, nil
}

func (s *Source) Unload() error {
	if s.reader == nil {
		return nil
	}
	return s.reader.Close()
}

// pollInterval is a conservative default for callers wiring Source into a
// fixed-rate polling loop when the vendor Reader has no push notification.
const pollInterval = 10 * time.Millisecond

// PollInterval exposes the recommended polling cadence for Readers with no
// native push/event mechanism.
func PollInterval() time.Duration { return pollInterval }
