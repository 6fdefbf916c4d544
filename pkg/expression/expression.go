// Package expression defines the canonical facial expression enumeration.
//
// Every ingestion adapter maps its native blend shapes onto this fixed,
// ordered set. The ordering is part of the public contract: frame shape
// arrays and the calibration store's in-memory parameter slice are indexed
// by position (persisted calibration records are matched back by name), so
// entries are never reordered or removed across releases — only appended.
package expression

// Signal indexes one entry of the canonical expression enumeration.
type Signal int

// Count is the cardinality of the canonical expression enumeration. It is
// the single source of truth for the length of TrackingFrame.Shapes.
const Count = int(numSignals)

const (
	EyeSquintRight Signal = iota
	EyeSquintLeft
	EyeWideRight
	EyeWideLeft
	BrowPinchRight
	BrowPinchLeft
	BrowLowererRight
	BrowLowererLeft
	BrowInnerUpRight
	BrowInnerUpLeft
	BrowOuterUpRight
	BrowOuterUpLeft
	NasalDilationRight
	NasalDilationLeft
	NasalConstrictRight
	NasalConstrictLeft
	CheekSquintRight
	CheekSquintLeft
	CheekPuffRight
	CheekPuffLeft
	CheekSuckRight
	CheekSuckLeft
	JawOpen
	JawRight
	JawLeft
	JawForward
	JawBackward
	JawClench
	JawMandibleRaise
	MouthClosed
	LipSuckUpperRight
	LipSuckUpperLeft
	LipSuckLowerRight
	LipSuckLowerLeft
	LipSuckCornerRight
	LipSuckCornerLeft
	LipFunnelUpperRight
	LipFunnelUpperLeft
	LipFunnelLowerRight
	LipFunnelLowerLeft
	LipPuckerUpperRight
	LipPuckerUpperLeft
	LipPuckerLowerRight
	LipPuckerLowerLeft
	MouthUpperUpRight
	MouthUpperUpLeft
	MouthUpperDeepenRight
	MouthUpperDeepenLeft
	NoseSneerRight
	NoseSneerLeft
	MouthLowerDownRight
	MouthLowerDownLeft
	MouthUpperRight
	MouthUpperLeft
	MouthLowerRight
	MouthLowerLeft
	MouthCornerPullRight
	MouthCornerPullLeft
	MouthCornerSlantRight
	MouthCornerSlantLeft
	MouthFrownRight
	MouthFrownLeft
	MouthStretchRight
	MouthStretchLeft
	MouthDimpleRight
	MouthDimpleLeft
	MouthRaiserUpper
	MouthRaiserLower
	MouthPressRight
	MouthPressLeft
	MouthTightenerRight
	MouthTightenerLeft
	TongueOut
	TongueUp
	TongueDown
	TongueRight
	TongueLeft
	TongueRoll
	TongueBendDown
	TongueCurlUp
	TongueSquish
	TongueFlat
	TongueTwistRight
	TongueTwistLeft
	SoftPalateClose
	ThroatSwallow
	NeckFlexRight
	NeckFlexLeft

	numSignals
)

// names is a precomputed, order-stable table used for both String and Parse.
// It replaces the enum<->integer transmute the enumeration is iterated with
// in the source this system is distilled from: a total, fallible conversion
// plus a name table, rather than reinterpreting raw bits.
var names = [numSignals]string{
	"EyeSquintRight", "EyeSquintLeft", "EyeWideRight", "EyeWideLeft",
	"BrowPinchRight", "BrowPinchLeft", "BrowLowererRight", "BrowLowererLeft",
	"BrowInnerUpRight", "BrowInnerUpLeft", "BrowOuterUpRight", "BrowOuterUpLeft",
	"NasalDilationRight", "NasalDilationLeft", "NasalConstrictRight", "NasalConstrictLeft",
	"CheekSquintRight", "CheekSquintLeft", "CheekPuffRight", "CheekPuffLeft",
	"CheekSuckRight", "CheekSuckLeft",
	"JawOpen", "JawRight", "JawLeft", "JawForward", "JawBackward", "JawClench", "JawMandibleRaise",
	"MouthClosed",
	"LipSuckUpperRight", "LipSuckUpperLeft", "LipSuckLowerRight", "LipSuckLowerLeft",
	"LipSuckCornerRight", "LipSuckCornerLeft",
	"LipFunnelUpperRight", "LipFunnelUpperLeft", "LipFunnelLowerRight", "LipFunnelLowerLeft",
	"LipPuckerUpperRight", "LipPuckerUpperLeft", "LipPuckerLowerRight", "LipPuckerLowerLeft",
	"MouthUpperUpRight", "MouthUpperUpLeft", "MouthUpperDeepenRight", "MouthUpperDeepenLeft",
	"NoseSneerRight", "NoseSneerLeft",
	"MouthLowerDownRight", "MouthLowerDownLeft",
	"MouthUpperRight", "MouthUpperLeft", "MouthLowerRight", "MouthLowerLeft",
	"MouthCornerPullRight", "MouthCornerPullLeft", "MouthCornerSlantRight", "MouthCornerSlantLeft",
	"MouthFrownRight", "MouthFrownLeft", "MouthStretchRight", "MouthStretchLeft",
	"MouthDimpleRight", "MouthDimpleLeft", "MouthRaiserUpper", "MouthRaiserLower",
	"MouthPressRight", "MouthPressLeft", "MouthTightenerRight", "MouthTightenerLeft",
	"TongueOut", "TongueUp", "TongueDown", "TongueRight", "TongueLeft", "TongueRoll",
	"TongueBendDown", "TongueCurlUp", "TongueSquish", "TongueFlat",
	"TongueTwistRight", "TongueTwistLeft",
	"SoftPalateClose", "ThroatSwallow", "NeckFlexRight", "NeckFlexLeft",
}

var byName map[string]Signal

func init() {
	byName = make(map[string]Signal, len(names))
	for i, n := range names {
		byName[n] = Signal(i)
	}
}

// String returns the stable name of the signal, or "invalid" when s is out
// of range.
func (s Signal) String() string {
	if s < 0 || int(s) >= len(names) {
		return "invalid"
	}
	return names[s]
}

// Valid reports whether s indexes a real entry.
func (s Signal) Valid() bool {
	return s >= 0 && int(s) < len(names)
}

// Parse is the total, fallible reverse lookup from name to Signal.
func Parse(name string) (Signal, bool) {
	s, ok := byName[name]
	return s, ok
}

// All returns every signal in canonical order.
func All() []Signal {
	out := make([]Signal, len(names))
	for i := range names {
		out[i] = Signal(i)
	}
	return out
}
