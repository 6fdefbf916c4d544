package vdesktop

import (
	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

// eyeShapeMap and mouthShapeMap are a representative subset of
// update_eye_expressions/update_mouth_expressions in virtual_desktop.rs,
// identical between the standard and legacy variants.
var eyeShapeMap = []struct {
	index  int
	signal expression.Signal
}{
	{2, expression.BrowLowererRight},
	{3, expression.BrowLowererLeft},
	{4, expression.BrowInnerUpRight},
	{16, expression.CheekPuffRight},
	{17, expression.CheekPuffLeft},
}

var mouthShapeMap = []struct {
	index  int
	signal expression.Signal
}{
	{20, expression.JawOpen},
	{21, expression.JawRight},
	{22, expression.JawLeft},
	{30, expression.MouthCornerPullRight},
	{31, expression.MouthCornerPullLeft},
	{32, expression.MouthFrownRight},
	{33, expression.MouthFrownLeft},
	{40, expression.LipPuckerUpperRight},
	{50, expression.TongueOut},
	{60, expression.NoseSneerRight},
	{61, expression.NoseSneerLeft},
}

func applyEyeShapes(frame *canonical.Frame, w [70]float64) {
	for _, m := range eyeShapeMap {
		frame.SetShape(m.signal, w[m.index])
	}
}

func applyMouthShapes(frame *canonical.Frame, w [70]float64) {
	for _, m := range mouthShapeMap {
		frame.SetShape(m.signal, w[m.index])
	}
}
