package canonical

import "encoding/json"

// wireFrame is the JSON-serialisable shape of Frame, used both by
// GenericUdp transport (§4.G) and by the canonical-frame round-trip law
// tested in §8.
type wireFrame struct {
	EyeConvention int       `json:"eye_convention"`
	Left          wireEye   `json:"left"`
	Right         wireEye   `json:"right"`
	Head          wireHead  `json:"head"`
	Shapes        []float64 `json:"shapes"`
}

type wireEye struct {
	Gaze            Vec3    `json:"gaze"`
	Openness        float64 `json:"openness"`
	PupilDiameterMM float64 `json:"pupil_diameter_mm"`
	MinDilation     float64 `json:"min_dilation"`
	MaxDilation     float64 `json:"max_dilation"`
}

type wireHead struct {
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
	Roll     float64 `json:"roll"`
	Position Vec3    `json:"position"`
}

// MarshalJSON implements json.Marshaler.
func (f *Frame) MarshalJSON() ([]byte, error) {
	w := wireFrame{
		EyeConvention: int(f.EyeConvention),
		Left:          wireEye(f.Left),
		Right:         wireEye(f.Right),
		Head:          wireHead{Yaw: f.Head.Yaw, Pitch: f.Head.Pitch, Roll: f.Head.Roll, Position: f.Head.Position},
		Shapes:        f.Shapes[:],
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.EyeConvention = EyeConvention(w.EyeConvention)
	f.Left = Eye(w.Left)
	f.Right = Eye(w.Right)
	f.Head = Head{Yaw: w.Head.Yaw, Pitch: w.Head.Pitch, Roll: w.Head.Roll, Position: w.Head.Position}
	for i := 0; i < len(f.Shapes) && i < len(w.Shapes); i++ {
		f.Shapes[i] = w.Shapes[i]
	}
	return nil
}
