package initwfn

import G "gorgonia.org/gorgonia"

// FanScaledConfig configures an initializer whose scale depends on the
// fan-in and fan-out of the weight matrix: GlorotU, GlorotN, HeU or HeN.
//
// Scheme is carried by the Type of the wrapping InitWFn and is not part
// of the JSON encoding. Glorot schemes suit tanh and sigmoid layers, He
// schemes suit rectified layers.
type FanScaledConfig struct {
	Scheme Type `json:"-"`
	Gain   float64
}

func newFanScaled(scheme Type, gain float64) *InitWFn {
	return newInitWFn(FanScaledConfig{Scheme: scheme, Gain: gain})
}

// NewGlorotU returns an initializer drawing from the Glorot uniform
// distribution scaled by gain
func NewGlorotU(gain float64) *InitWFn { return newFanScaled(GlorotU, gain) }

// NewGlorotN returns an initializer drawing from the Glorot normal
// distribution scaled by gain
func NewGlorotN(gain float64) *InitWFn { return newFanScaled(GlorotN, gain) }

// NewHeU returns an initializer drawing from the He uniform
// distribution scaled by gain
func NewHeU(gain float64) *InitWFn { return newFanScaled(HeU, gain) }

// NewHeN returns an initializer drawing from the He normal distribution
// scaled by gain
func NewHeN(gain float64) *InitWFn { return newFanScaled(HeN, gain) }

// Type implements the Config interface
func (f FanScaledConfig) Type() Type {
	return f.Scheme
}

// Create implements the Config interface. An unset Scheme falls back
// to GlorotU.
func (f FanScaledConfig) Create() G.InitWFn {
	switch f.Scheme {
	case GlorotN:
		return G.GlorotN(f.Gain)
	case HeU:
		return G.HeU(f.Gain)
	case HeN:
		return G.HeN(f.Gain)
	default:
		return G.GlorotU(f.Gain)
	}
}
