package registry

import (
	"math"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// Reserved native addresses (§6): unlike every other resolved address,
// these are not rooted at DefaultPrefix and are never subject to
// discovery matching — only to the native-conditional relevance check
// below.
const (
	nativeEyePitchYaw = "/tracking/eye/LeftRightPitchYaw"
	nativeEyesClosed  = "/tracking/eye/EyesClosedAmount"
)

// eyeProbeNames are the per-eye parameter names whose presence in a
// discovered snapshot means the avatar already exposes per-eye gaze/lid
// control, making the combined native fallback redundant.
var eyeProbeNames = []string{"EyeLidLeft", "EyeLidRight", "EyeLeftX", "EyeLeftY", "EyeRightX", "EyeRightY"}

// NativeEyeParam emits the two reserved native eye endpoints (§4.G's
// "native conditional"): a combined four-float pitch/yaw message and a
// combined eyes-closed amount, sent only when the discovered avatar lacks
// its own per-eye parameters.
type NativeEyeParam struct {
	relevant   bool
	hasLast    bool
	lastValues [5]float64
}

// NewNativeEyeParam returns the native-eye fallback parameter.
func NewNativeEyeParam() *NativeEyeParam {
	return &NativeEyeParam{}
}

// Reset is relevant exactly when none of the per-eye parameter names
// resolve against snapshot — the avatar has no finer-grained eye control
// for the native endpoints to duplicate.
func (p *NativeEyeParam) Reset(snapshot *Snapshot) int {
	p.hasLast = false

	for _, name := range eyeProbeNames {
		for addr := range snapshot.Types {
			if MatchesAddress(name, addr) {
				p.relevant = false
				return 0
			}
		}
	}
	p.relevant = true
	return 2
}

func (p *NativeEyeParam) Relevant() bool { return p.relevant }

func (p *NativeEyeParam) Process(frame *canonical.Frame) []WireMessage {
	if !p.relevant {
		return nil
	}

	leftPitch, leftYaw := canonical.PitchYawFromGaze(frame.EyeConvention, frame.Left.Gaze)
	rightPitch, rightYaw := canonical.PitchYawFromGaze(frame.EyeConvention, frame.Right.Gaze)
	closed := 1 - (frame.Left.Openness+frame.Right.Openness)/2

	values := [5]float64{leftPitch, leftYaw, rightPitch, rightYaw, closed}
	if p.hasLast && nativeValuesEqual(values, p.lastValues) {
		return nil
	}
	p.lastValues = values
	p.hasLast = true

	return []WireMessage{
		{Address: nativeEyePitchYaw, Value: []float64{leftPitch, leftYaw, rightPitch, rightYaw}},
		{Address: nativeEyesClosed, Value: closed},
	}
}

func nativeValuesEqual(a, b [5]float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) >= FloatDeltaEpsilon {
			return false
		}
	}
	return true
}
