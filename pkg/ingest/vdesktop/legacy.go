package vdesktop

import "github.com/facetrackd/facetrackd/pkg/canonical"

// LegacySource is the pre-rewrite virtual-desktop adapter: eye gaze is
// reported as pitch/yaw extracted from the same orientation quaternion,
// grounded on vd_module/src/virtual_desktop.rs. Unlike that
// original, it never writes Eye.{Min,Max}Dilation — those fields are
// reserved for the pupil-normalization mutation.
type LegacySource struct {
	*base
}

// NewLegacySource builds a LegacySource over an already-connected
// shared-memory Region.
func NewLegacySource(region Region) *LegacySource {
	s := &LegacySource{}
	s.base = newBase(region, canonical.GazePitchYaw, s.applyGaze)
	return s
}

func (s *LegacySource) applyGaze(frame *canonical.Frame, left, right Quaternion, leftValid, rightValid bool) {
	if leftValid {
		pitch, yaw := quaternionToPitchYaw(left)
		frame.Left.Gaze = canonical.Vec3{X: pitch, Y: yaw}
	}
	if rightValid {
		pitch, yaw := quaternionToPitchYaw(right)
		frame.Right.Gaze = canonical.Vec3{X: pitch, Y: yaw}
	}
}
