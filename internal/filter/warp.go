// SPDX-License-Identifier: MIT
package filter

import "voiceshield/internal/pcm"

// DefaultWarpAmount is the default prediction coefficient.
const DefaultWarpAmount = 0.15

// WarpPredictor subtracts a scaled copy of the previous, already warped,
// sample: s[i] = clip(s[i] - w*s[i-1]) for i >= 1. s[0] is untouched.
type WarpPredictor struct {
	base
	amount *atomicFloat
}

// NewWarpPredictor returns an enabled predictor with the default coefficient.
func NewWarpPredictor() *WarpPredictor {
	return &WarpPredictor{
		base:   base{name: NameWarp},
		amount: newAtomicFloat(DefaultWarpAmount),
	}
}

// WarpAmount returns the prediction coefficient.
func (w *WarpPredictor) WarpAmount() float64 { return w.amount.Load() }

// SetWarpAmount sets the prediction coefficient, 0 to 1.
func (w *WarpPredictor) SetWarpAmount(v float64) error {
	if err := checkFloat(w.name, "warp_amount", v, WarpMin, WarpMax); err != nil {
		return err
	}
	w.amount.Store(v)
	return nil
}

// Params implements Tunable.
func (w *WarpPredictor) Params() []Param {
	return []Param{
		floatParam("warp_amount", WarpMin, WarpMax, w.WarpAmount, w.SetWarpAmount),
	}
}

// Process implements Filter.
func (w *WarpPredictor) Process(f pcm.Frames) {
	if !w.Enabled() {
		return
	}
	mustBeStereo(f)

	k := w.WarpAmount()

	for _, ch := range f.Channels() {
		for i := 1; i < len(ch); i++ {
			ch[i] = Clip(float64(ch[i]) - k*float64(ch[i-1]))
		}
	}
}
