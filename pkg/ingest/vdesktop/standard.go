package vdesktop

import "github.com/facetrackd/facetrackd/pkg/canonical"

// StandardSource is the current virtual-desktop adapter: eye gaze is
// reported as a rotated unit forward vector, grounded on
// modules/vd_module/src/virtual_desktop.rs.
type StandardSource struct {
	*base
}

// NewStandardSource builds a StandardSource over an already-connected
// shared-memory Region. Establishing the connection is the caller's
// responsibility (out of scope per §1).
func NewStandardSource(region Region) *StandardSource {
	s := &StandardSource{}
	s.base = newBase(region, canonical.GazeVector, s.applyGaze)
	return s
}

func (s *StandardSource) applyGaze(frame *canonical.Frame, left, right Quaternion, leftValid, rightValid bool) {
	if leftValid {
		frame.Left.Gaze = rotateForward(left)
	}
	if rightValid {
		frame.Right.Gaze = rotateForward(right)
	}
}
